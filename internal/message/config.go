package message

import (
	"strconv"
	"strings"
)

// Configuration element paths.
const (
	PathMaxDelay    = "./MaxDelay"
	PathRealTime    = "./RealTime"
	PathCurrentTime = "./CurrentTime"
)

// ReplayConfig holds the replay settings of a scenario. A nil field was
// absent from the document, which is distinct from false or zero.
type ReplayConfig struct {
	MaxDelay    *int
	RealTime    *bool
	RebaseToNow *bool
}

// ReplayConfig reads MaxDelay, RealTime and CurrentTime. MaxDelay must be a
// non-negative integer; the flags must be "true" or "false" in any case.
func (m *Configuration) ReplayConfig() (ReplayConfig, error) {
	var cfg ReplayConfig

	if text, ok := m.el.FindText(PathMaxDelay); ok {
		text = strings.TrimSpace(text)
		n, err := strconv.Atoi(text)
		if err != nil {
			return ReplayConfig{}, &ValueError{Path: PathMaxDelay, Value: text, Reason: "not an integer"}
		}
		if n < 0 {
			return ReplayConfig{}, &ValueError{Path: PathMaxDelay, Value: text, Reason: "negative"}
		}
		cfg.MaxDelay = &n
	}

	var err error
	if cfg.RealTime, err = m.flag(PathRealTime); err != nil {
		return ReplayConfig{}, err
	}
	if cfg.RebaseToNow, err = m.flag(PathCurrentTime); err != nil {
		return ReplayConfig{}, err
	}
	return cfg, nil
}

func (m *Configuration) flag(path string) (*bool, error) {
	text, ok := m.el.FindText(path)
	if !ok {
		return nil, nil
	}
	var v bool
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true":
		v = true
	case "false":
		v = false
	default:
		return nil, &ValueError{Path: path, Value: text, Reason: "want true or false"}
	}
	return &v, nil
}
