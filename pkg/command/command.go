// Package command recognizes local control phrases in transcripts.
package command

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a local directive.
type Kind int

const (
	// EnableCamera turns camera context on.
	EnableCamera Kind = iota + 1
	// DisableCamera turns camera context off.
	DisableCamera
)

func (k Kind) String() string {
	switch k {
	case EnableCamera:
		return "enable_camera"
	case DisableCamera:
		return "disable_camera"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k != EnableCamera && k != DisableCamera {
		return nil, fmt.Errorf("unknown command kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "enable_camera":
		*k = EnableCamera
	case "disable_camera":
		*k = DisableCamera
	default:
		return fmt.Errorf("unknown command %q", b)
	}
	return nil
}

// Rule maps a phrase to a command.
type Rule struct {
	Phrase string `yaml:"phrase" json:"phrase"`
	Kind   Kind   `yaml:"command" json:"command"`
	// Ack is spoken after the command is applied. Empty uses the router default.
	Ack string `yaml:"ack,omitempty" json:"ack,omitempty"`
}

// Command is a recognized directive.
type Command struct {
	Kind   Kind
	Phrase string
	Ack    string
}

// DefaultAck is spoken after a command when no rule-specific ack is set.
const DefaultAck = "Yes, sir."

// DefaultRules returns the built-in camera toggle phrases.
func DefaultRules() []Rule {
	return []Rule{
		{Phrase: "hide camera", Kind: DisableCamera},
		{Phrase: "disable camera", Kind: DisableCamera},
		{Phrase: "camera off", Kind: DisableCamera},
		{Phrase: "turn off the camera", Kind: DisableCamera},
		{Phrase: "show camera", Kind: EnableCamera},
		{Phrase: "enable camera", Kind: EnableCamera},
		{Phrase: "camera on", Kind: EnableCamera},
		{Phrase: "turn on the camera", Kind: EnableCamera},
	}
}

// Router matches transcripts against an ordered rule list.
type Router struct {
	rules      []Rule
	defaultAck string
}

// NewRouter creates a router. Rules are matched in order; the first whose
// phrase appears anywhere in the transcript wins.
func NewRouter(rules []Rule, defaultAck string) (*Router, error) {
	if defaultAck == "" {
		defaultAck = DefaultAck
	}

	var errs []error
	normalized := make([]Rule, 0, len(rules))
	for i, r := range rules {
		r.Phrase = normalize(r.Phrase)
		if r.Phrase == "" {
			errs = append(errs, fmt.Errorf("rule %d: empty phrase", i))
		}
		if r.Kind != EnableCamera && r.Kind != DisableCamera {
			errs = append(errs, fmt.Errorf("rule %d (%q): unknown command", i, r.Phrase))
		}
		normalized = append(normalized, r)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &Router{rules: normalized, defaultAck: defaultAck}, nil
}

// Route returns the command for text, if any. It has no side effects.
func (r *Router) Route(text string) (Command, bool) {
	t := normalize(text)
	if t == "" {
		return Command{}, false
	}
	for _, rule := range r.rules {
		if strings.Contains(t, rule.Phrase) {
			ack := rule.Ack
			if ack == "" {
				ack = r.defaultAck
			}
			return Command{Kind: rule.Kind, Phrase: rule.Phrase, Ack: ack}, true
		}
	}
	return Command{}, false
}

// normalize lower-cases s and collapses runs of whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
