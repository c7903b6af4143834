package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidResolveMode = errors.New("invalid owner resolve mode")
)

// ResolveMode decides what happens to a token missing from the directory.
type ResolveMode int

const (
	// ResolveStrict drops unknown tokens.
	ResolveStrict ResolveMode = iota
	// ResolvePassThrough returns unknown tokens unchanged. Use it when the
	// source already supplies display names, as the sheet export does.
	ResolvePassThrough
)

func (m ResolveMode) String() string {
	switch m {
	case ResolveStrict:
		return "strict"
	case ResolvePassThrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// ParseResolveMode parses "strict" or "passthrough".
func ParseResolveMode(s string) (ResolveMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return ResolveStrict, nil
	case "passthrough", "pass-through":
		return ResolvePassThrough, nil
	default:
		return ResolveStrict, ErrInvalidResolveMode
	}
}

// Member is a person shown in the member filter.
type Member struct {
	Name     string `json:"name" yaml:"name"`
	Role     string `json:"role" yaml:"role"`
	Part     string `json:"part" yaml:"part"`
	IsHiring bool   `json:"isHiring,omitempty" yaml:"hiring,omitempty"`
}

// OwnerDirectory maps identity tokens to display names. It is immutable after
// construction; several tokens may map to the same name.
type OwnerDirectory struct {
	names   map[string]string
	members []Member
}

// NewOwnerDirectory copies names and members into a new directory.
func NewOwnerDirectory(names map[string]string, members []Member) *OwnerDirectory {
	d := &OwnerDirectory{
		names:   make(map[string]string, len(names)),
		members: make([]Member, len(members)),
	}
	for token, name := range names {
		token = NormalizeText(token)
		name = NormalizeText(name)
		if token == "" || name == "" {
			continue
		}
		d.names[token] = name
	}
	copy(d.members, members)
	return d
}

// Lookup returns the display name for token.
func (d *OwnerDirectory) Lookup(token string) (string, bool) {
	if d == nil {
		return "", false
	}
	name, ok := d.names[token]
	return name, ok
}

// Members returns a copy of the roster.
func (d *OwnerDirectory) Members() []Member {
	if d == nil {
		return nil
	}
	out := make([]Member, len(d.members))
	copy(out, d.members)
	return out
}

// Len returns the number of known tokens.
func (d *OwnerDirectory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.names)
}

// Resolver turns owner candidate tokens into display names.
type Resolver struct {
	directory *OwnerDirectory
	mode      ResolveMode
	dedup     bool
}

// NewResolver creates a resolver over directory using mode.
func NewResolver(directory *OwnerDirectory, mode ResolveMode) *Resolver {
	return &Resolver{directory: directory, mode: mode}
}

// WithDedup makes ResolveList keep only the first occurrence of each name.
func (r *Resolver) WithDedup(enabled bool) *Resolver {
	r.dedup = enabled
	return r
}

// Mode returns the resolver's miss policy.
func (r *Resolver) Mode() ResolveMode {
	return r.mode
}

// Resolve maps one token to a display name. ok is false when the token is
// empty, or unknown under strict mode.
func (r *Resolver) Resolve(token string) (string, bool) {
	token = NormalizeText(token)
	if token == "" {
		return "", false
	}
	if name, ok := r.directory.Lookup(token); ok {
		return name, true
	}
	if r.mode == ResolvePassThrough {
		return token, true
	}
	return "", false
}

// ResolveList resolves tokens in order, dropping the ones that do not resolve.
// The result is never nil.
func (r *Resolver) ResolveList(tokens []string) []string {
	names := make([]string, 0, len(tokens))
	var seen map[string]struct{}
	if r.dedup {
		seen = make(map[string]struct{}, len(tokens))
	}
	for _, token := range tokens {
		name, ok := r.Resolve(token)
		if !ok {
			continue
		}
		if seen != nil {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
		}
		names = append(names, name)
	}
	return names
}

// ResolveMany resolves a comma-separated token list.
func (r *Resolver) ResolveMany(raw string) []string {
	return r.ResolveList(SplitTokens(raw))
}
