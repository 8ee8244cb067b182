package replay

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed senders.cue
var senderSchema string

// SDN protocol versions.
const (
	SDNVersion211 = "2.1.1"
	SDNVersion22  = "2.2"
)

// SDNConfig configures the HTTP sender for LyncDiagnostics messages.
type SDNConfig struct {
	Receiver       string `json:"receiver"`
	Version        string `json:"version"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	Probe          bool   `json:"probe"`
}

// Timeout returns the per-request timeout, zero for none.
func (c SDNConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c SDNConfig) String() string {
	return fmt.Sprintf("SDN sender: receiver=%s version=%s", c.Receiver, c.Version)
}

// SQLConfig configures the SQL sender for SqlQueryMessage messages.
type SQLConfig struct {
	Driver   string `json:"driver"`
	Database string `json:"database"`
	Server   string `json:"server,omitempty"`
	UID      string `json:"uid,omitempty"`
	Pwd      string `json:"pwd,omitempty"`
}

// String describes the connection with the password masked.
func (c SQLConfig) String() string {
	pwd := ""
	if c.Pwd != "" {
		pwd = "****"
	}
	return fmt.Sprintf("SQL sender: driver=%s server=%s database=%s uid=%s pwd=%s",
		c.Driver, c.Server, c.Database, c.UID, pwd)
}

// ParseSenderMap decodes a YAML flow mapping such as
// "{receiver: 'http://host/site', version: '2.2'}". Quoted keys are
// accepted, so the dictionary literal spelling of older tooling works.
func ParseSenderMap(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, configErr(ErrCodeInvalidSender, nil, "empty configuration")
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(s), &node); err != nil {
		return nil, configErr(ErrCodeInvalidSender, err, "parse configuration")
	}
	if len(node.Content) != 1 || node.Content[0].Kind != yaml.MappingNode {
		return nil, configErr(ErrCodeInvalidSender, nil, "configuration must be a mapping")
	}

	var m map[string]any
	if err := node.Content[0].Decode(&m); err != nil {
		return nil, configErr(ErrCodeInvalidSender, err, "decode configuration")
	}
	return m, nil
}

// DecodeSDNConfig validates m against the SDN schema and applies defaults.
func DecodeSDNConfig(m map[string]any) (SDNConfig, error) {
	// An unquoted 2.2 arrives as a float.
	if v, ok := m["version"].(float64); ok {
		m = withValue(m, "version", strconv.FormatFloat(v, 'f', -1, 64))
	}

	var cfg SDNConfig
	if err := decodeSchema("#SDN", m, &cfg); err != nil {
		return SDNConfig{}, err
	}
	return cfg, nil
}

// DecodeSQLConfig validates m against the SQL schema.
func DecodeSQLConfig(m map[string]any) (SQLConfig, error) {
	var cfg SQLConfig
	if err := decodeSchema("#SQL", m, &cfg); err != nil {
		return SQLConfig{}, err
	}
	return cfg, nil
}

func decodeSchema(def string, m map[string]any, out any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(senderSchema, cue.Filename("senders.cue"))
	if err := schema.Err(); err != nil {
		return configErr(ErrCodeInvalidSender, err, "compile schema")
	}

	if m == nil {
		m = map[string]any{}
	}
	v := schema.LookupPath(cue.ParsePath(def)).Unify(ctx.Encode(m))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return configErr(ErrCodeInvalidSender, err, "%s configuration", strings.TrimPrefix(def, "#"))
	}
	if err := v.Decode(out); err != nil {
		return configErr(ErrCodeInvalidSender, err, "%s configuration", strings.TrimPrefix(def, "#"))
	}
	return nil
}

func withValue(m map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out
}
