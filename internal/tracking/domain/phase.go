package domain

import (
	"errors"
	"strings"
)

var (
	ErrUnknownPhase = errors.New("unknown phase")
	ErrUnknownTab   = errors.New("unknown tab")
)

// Phase is a stage of a task's lifecycle.
type Phase int

const (
	PhaseDiscovery Phase = iota
	PhaseDelivery
)

// Phases lists the phases in board order.
var Phases = []Phase{PhaseDiscovery, PhaseDelivery}

func (p Phase) String() string {
	switch p {
	case PhaseDiscovery:
		return "discovery"
	case PhaseDelivery:
		return "delivery"
	default:
		return "unknown"
	}
}

// ParsePhase parses "discovery" or "delivery".
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "discovery":
		return PhaseDiscovery, nil
	case "delivery":
		return PhaseDelivery, nil
	default:
		return PhaseDiscovery, ErrUnknownPhase
	}
}

// MarshalText encodes the phase name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PhaseFlags records which phase entry conditions a status satisfied,
// independent of whether any owner resolved.
type PhaseFlags struct {
	InDiscovery bool `json:"inDiscovery"`
	InDelivery  bool `json:"inDelivery"`
}

// Has reports whether the flag for p is set.
func (f PhaseFlags) Has(p Phase) bool {
	if p == PhaseDelivery {
		return f.InDelivery
	}
	return f.InDiscovery
}

// Unclassified reports whether neither phase was entered.
func (f PhaseFlags) Unclassified() bool {
	return !f.InDiscovery && !f.InDelivery
}

// Tab partitions tasks by whether their status is terminal.
type Tab int

const (
	TabAll Tab = iota
	TabOngoing
	TabDone
)

func (t Tab) String() string {
	switch t {
	case TabOngoing:
		return "ongoing"
	case TabDone:
		return "done"
	default:
		return "all"
	}
}

// ParseTab parses "", "all", "ongoing" or "done".
func ParseTab(s string) (Tab, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return TabAll, nil
	case "ongoing":
		return TabOngoing, nil
	case "done":
		return TabDone, nil
	default:
		return TabAll, ErrUnknownTab
	}
}
