package replay

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/roach88/sfbtools/internal/message"
	"github.com/roach88/sfbtools/internal/timestamp"
)

// Scenario element names. The Mocker* names are the legacy layout.
const (
	tagReplayMessages = "ReplayMessages"
	tagMockMessages   = "MockMessages"
	tagDescription    = "Description"
)

// Scenario is a parsed replay document.
type Scenario struct {
	// Root is the document's root element name (SfbReplay, Mocker, ...).
	Root string

	Description string

	// Settings holds the configuration exactly as written, with absent
	// elements left nil.
	Settings message.ReplayConfig

	// Config is Settings with defaults applied.
	Config Config

	// Messages are the replayable records in document order.
	Messages []message.Replayable
}

// LoadScenarioFile reads and parses a scenario document.
func LoadScenarioFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadScenario(data)
}

// LoadScenario parses a scenario document. The root may have any name and
// may declare a default namespace. A missing configuration element yields
// an all-absent configuration; a missing message list yields no messages.
// Any message element other than LyncDiagnostics or SqlQueryMessage is an
// error.
func LoadScenario(data []byte) (*Scenario, error) {
	root, err := message.ParseElement(data)
	if err != nil {
		return nil, configErr(ErrCodeInvalidScenario, err, "parse scenario")
	}

	sc := &Scenario{Root: root.Tag()}
	if desc, ok := root.FindText(tagDescription); ok {
		sc.Description = strings.TrimSpace(desc)
	}

	if cfgEl := findFirst(root, message.TagReplayConfig, message.TagLegacyMockerConfig); cfgEl != nil {
		decoded, err := message.Decode(cfgEl)
		if err != nil {
			return nil, configErr(ErrCodeInvalidScenario, err, "decode %s", cfgEl.Tag())
		}
		settings, err := decoded.(*message.Configuration).ReplayConfig()
		if err != nil {
			return nil, configErr(ErrCodeInvalidScenario, err, "read %s", cfgEl.Tag())
		}
		sc.Settings = settings
	}
	sc.Config = ConfigFrom(sc.Settings)

	list := findFirst(root, tagReplayMessages, tagMockMessages)
	if list == nil {
		return sc, nil
	}
	for i, child := range list.Children() {
		msg, err := message.Decode(child)
		if err != nil {
			return nil, configErr(ErrCodeInvalidScenario, err, "message %d", i+1)
		}
		r, ok := msg.(message.Replayable)
		if !ok {
			return nil, configErr(ErrCodeInvalidScenario, &message.UnknownElementError{Tag: child.Tag()},
				"message %d is not replayable", i+1)
		}
		sc.Messages = append(sc.Messages, r)
	}
	return sc, nil
}

func findFirst(root *message.Element, tags ...string) *message.Element {
	for _, tag := range tags {
		if el := root.Find("./" + tag); el != nil {
			return el
		}
	}
	return nil
}

// Kinds returns the distinct message kinds in the scenario, in order of
// first appearance.
func (s *Scenario) Kinds() []message.Kind {
	return kindsOf(s.Messages)
}

// Prepare rebases the message timestamps onto now when the scenario asks
// for it.
func (s *Scenario) Prepare(now time.Time) error {
	if !s.Config.RebaseToNow || len(s.Messages) == 0 {
		return nil
	}
	return RebaseMessages(s.Messages, now.UTC())
}

// RebaseMessages rewrites every message timestamp so the first becomes
// anchor and the gaps between neighbours are kept. Every timestamp is read,
// rebased and formatted before any is written, so a missing, unparseable or
// unrepresentable one leaves the messages untouched.
func RebaseMessages(msgs []message.Replayable, anchor time.Time) error {
	stamps, err := timestamps(msgs)
	if err != nil {
		return err
	}
	rebased, err := timestamp.Rebase(stamps, anchor)
	if err != nil {
		return fmt.Errorf("rebase: %w", err)
	}
	for i, t := range rebased {
		if _, err := timestamp.Format(t); err != nil {
			return fmt.Errorf("rebase message %d: %w", i+1, err)
		}
	}
	for i, t := range rebased {
		if err := msgs[i].SetTimestamp(t); err != nil {
			return fmt.Errorf("rebase message %d: %w", i+1, err)
		}
	}
	return nil
}

func timestamps(msgs []message.Replayable) ([]time.Time, error) {
	out := make([]time.Time, len(msgs))
	for i, m := range msgs {
		t, err := m.Timestamp()
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i+1, err)
		}
		out[i] = t
	}
	return out, nil
}

func kindsOf(msgs []message.Replayable) []message.Kind {
	var kinds []message.Kind
	seen := make(map[message.Kind]bool)
	for _, m := range msgs {
		if !seen[m.Kind()] {
			seen[m.Kind()] = true
			kinds = append(kinds, m.Kind())
		}
	}
	return kinds
}
