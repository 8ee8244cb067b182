package message

import (
	"fmt"
	"strings"
)

// Kind identifies a message variant by its XML root element.
type Kind int

const (
	KindUnknown Kind = iota
	KindSDN
	KindSQLQuery
	KindConfiguration
)

// Root element names.
const (
	TagSDN                = "LyncDiagnostics"
	TagSQLQuery           = "SqlQueryMessage"
	TagReplayConfig       = "ReplayConfiguration"
	TagLegacyMockerConfig = "MockerConfiguration"
)

// RootTag returns the root element name of the kind.
func (k Kind) RootTag() string {
	switch k {
	case KindSDN:
		return TagSDN
	case KindSQLQuery:
		return TagSQLQuery
	case KindConfiguration:
		return TagReplayConfig
	default:
		return ""
	}
}

func (k Kind) String() string {
	switch k {
	case KindSDN:
		return "sdn"
	case KindSQLQuery:
		return "sql"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// KindForTag maps a root element name to its kind. Matching is exact.
func KindForTag(tag string) Kind {
	switch tag {
	case TagSDN:
		return KindSDN
	case TagSQLQuery:
		return KindSQLQuery
	case TagReplayConfig, TagLegacyMockerConfig:
		return KindConfiguration
	default:
		return KindUnknown
	}
}

// ParseKind accepts a root element name or a kind name, case-insensitively,
// for the extractable kinds.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lyncdiagnostics", "sdn":
		return KindSDN, nil
	case "sqlquerymessage", "sql":
		return KindSQLQuery, nil
	default:
		return KindUnknown, fmt.Errorf("unknown message kind %q (want %s or %s)", name, TagSDN, TagSQLQuery)
	}
}
