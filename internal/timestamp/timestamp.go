// Package timestamp converts between the ISO-8601 strings carried in SDN and
// SQL replay messages and time.Time values.
//
// Every timestamp must carry UTC offset information. A string without "Z" or
// an explicit ±HH:MM suffix is rejected rather than assumed to be UTC.
// Fractional seconds of any length are accepted and truncated (never
// rounded) to microseconds. Output always uses seven fractional digits, the
// convention of the IRLYNC logger.
package timestamp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Supported calendar range. The year field is always four digits.
const (
	MinYear = 1
	MaxYear = 9999
)

// fractionDigits is the number of fractional-second digits written by Format.
const fractionDigits = 7

var isoPattern = regexp.MustCompile(
	`^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})(?:\.(\d+))?(Z|[+-]\d{2}:\d{2})$`)

// FormatError reports a timestamp that cannot be parsed or formatted.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("timestamp %q: %s", e.Input, e.Reason)
}

func formatErr(input, reason string, args ...any) *FormatError {
	return &FormatError{Input: input, Reason: fmt.Sprintf(reason, args...)}
}

// Parse converts an ISO-8601 string of the form
// YYYY-MM-DDTHH:MM:SS[.fraction](Z|±HH:MM) into a time.Time whose location
// is a fixed zone with the given offset. Surrounding whitespace is ignored.
func Parse(s string) (time.Time, error) {
	text := strings.TrimSpace(s)
	m := isoPattern.FindStringSubmatch(text)
	if m == nil {
		if isoPattern.MatchString(text + "Z") {
			return time.Time{}, formatErr(s, "missing UTC offset (Z or ±HH:MM)")
		}
		return time.Time{}, formatErr(s, "does not match YYYY-MM-DDTHH:MM:SS[.fraction](Z|±HH:MM)")
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	second, _ := strconv.Atoi(m[6])

	switch {
	case year < MinYear || year > MaxYear:
		return time.Time{}, formatErr(s, "year %d outside supported range %d-%d", year, MinYear, MaxYear)
	case month < 1 || month > 12:
		return time.Time{}, formatErr(s, "month %d out of range", month)
	case day < 1 || day > daysIn(year, time.Month(month)):
		return time.Time{}, formatErr(s, "day %d out of range for %04d-%02d", day, year, month)
	case hour > 23:
		return time.Time{}, formatErr(s, "hour %d out of range", hour)
	case minute > 59:
		return time.Time{}, formatErr(s, "minute %d out of range", minute)
	case second > 59:
		return time.Time{}, formatErr(s, "second %d out of range", second)
	}

	micros := 0
	if frac := m[7]; frac != "" {
		if len(frac) > 6 {
			frac = frac[:6]
		}
		micros, _ = strconv.Atoi(frac + strings.Repeat("0", 6-len(frac)))
	}

	loc, err := parseOffset(s, m[8])
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, micros*1000, loc), nil
}

// parseOffset converts "Z" or "±HH:MM" into a location.
func parseOffset(input, offset string) (*time.Location, error) {
	if offset == "Z" {
		return time.UTC, nil
	}
	hours, _ := strconv.Atoi(offset[1:3])
	minutes, _ := strconv.Atoi(offset[4:6])
	if hours > 23 || minutes > 59 {
		return nil, formatErr(input, "UTC offset %s out of range", offset)
	}
	seconds := hours*3600 + minutes*60
	if seconds == 0 {
		return time.UTC, nil
	}
	if offset[0] == '-' {
		seconds = -seconds
	}
	return time.FixedZone("", seconds), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Format renders t as YYYY-MM-DDTHH:MM:SS.fffffff followed by "Z" for a zero
// offset or ±HH:MM otherwise. Sub-microsecond precision is dropped.
//
// Years outside MinYear..MaxYear and offsets that are not whole minutes (or
// not below 24 hours) cannot be represented and return a *FormatError.
func Format(t time.Time) (string, error) {
	if y := t.Year(); y < MinYear || y > MaxYear {
		return "", formatErr(t.String(), "year %d outside supported range %d-%d", y, MinYear, MaxYear)
	}
	_, offset := t.Zone()
	if offset%60 != 0 {
		return "", formatErr(t.String(), "UTC offset of %ds is not a whole number of minutes", offset)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%04d-%02d-%02dT%02d:%02d:%02d.%06d%s",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(),
		t.Nanosecond()/1000, strings.Repeat("0", fractionDigits-6))

	if offset == 0 {
		b.WriteByte('Z')
		return b.String(), nil
	}

	sign := byte('+')
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	if offset/3600 > 23 {
		return "", formatErr(t.String(), "UTC offset of %ds out of range", offset)
	}
	fmt.Fprintf(&b, "%c%02d:%02d", sign, offset/3600, offset%3600/60)
	return b.String(), nil
}

// Rebase shifts an ordered sequence of timestamps so that the first one
// becomes anchor while every gap between neighbours is preserved:
//
//	out[0] = anchor
//	out[i] = out[i-1] + (stamps[i] - stamps[i-1])
//
// Gaps are computed on absolute instants in whole seconds plus a nanosecond
// remainder, so gaps longer than a time.Duration can hold are kept exactly.
// Neighbours in different zones are handled correctly. The result is
// carried in anchor's location. A result outside MinYear..MaxYear returns a
// *FormatError and no timestamps.
func Rebase(stamps []time.Time, anchor time.Time) ([]time.Time, error) {
	if len(stamps) == 0 {
		return []time.Time{}, nil
	}

	out := make([]time.Time, len(stamps))
	out[0] = anchor
	for i := 1; i < len(stamps); i++ {
		secs, nanos := Gap(stamps[0], stamps[i])
		t := time.Unix(anchor.Unix()+secs, int64(anchor.Nanosecond())+nanos).In(anchor.Location())
		if y := t.Year(); y < MinYear || y > MaxYear {
			return nil, formatErr(stamps[i].String(), "rebased year %d outside supported range %d-%d", y, MinYear, MaxYear)
		}
		out[i] = t
	}
	return out, nil
}

// Gap returns b - a as whole seconds plus a nanosecond adjustment in
// (-1e9, 1e9). Unlike b.Sub(a) it does not saturate.
func Gap(a, b time.Time) (secs, nanos int64) {
	return b.Unix() - a.Unix(), int64(b.Nanosecond()) - int64(a.Nanosecond())
}

// FloorSeconds returns b - a rounded down to whole seconds.
func FloorSeconds(a, b time.Time) int64 {
	secs, nanos := Gap(a, b)
	if nanos < 0 {
		secs--
	}
	return secs
}

// SameInstant reports whether a and b denote the same absolute instant and
// carry the same UTC offset.
func SameInstant(a, b time.Time) bool {
	_, offA := a.Zone()
	_, offB := b.Zone()
	return a.Equal(b) && offA == offB
}
