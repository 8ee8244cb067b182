// Package store provides the SQLite delivery journal for replay runs.
//
// The journal is append-only:
//   - Runs: one row per replay, keyed by a UUIDv7 run ID
//   - Deliveries: one row per delivery attempt within a run
//
// A run that aborts keeps every delivery recorded before the failure, so the
// journal shows exactly which messages reached their receiver.
//
// # Ordering
//
// Deliveries are always read ORDER BY seq ASC. Runs are read ORDER BY
// started_at ASC, id ASC COLLATE BINARY; UUIDv7 IDs sort by creation time.
//
// # Journal Files
//
// A journal is a SQLite file stamped with application_id "SFBJ" and a
// layout version in user_version. Open refuses files holding any other
// database and journals newer than it understands, and migrates older ones
// in place. Connections use WAL, synchronous=NORMAL, a 5 second busy
// timeout and foreign keys.
//
// Payloads are not stored. Each delivery keeps a SHA-256 digest of its
// payload computed with domain separation (see PayloadDigest).
package store
