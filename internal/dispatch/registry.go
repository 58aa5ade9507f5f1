package dispatch

import (
	"errors"
	"fmt"
	"sort"
)

// Entry is one registered command.
type Entry struct {
	// Name is the lower-case command name.
	Name    string
	Handler Handler
}

// Registry is an immutable name to handler table. Lookups are safe from
// any number of goroutines.
type Registry struct {
	entries map[string]*Entry
	names   []string
}

// Lookup finds a command by its normalized name. The lookup compares byte
// sequences, so name must already be lower-case.
func (r *Registry) Lookup(name []byte) (*Entry, bool) {
	e, ok := r.entries[string(name)]
	return e, ok
}

// Entries returns all commands sorted by name.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.entries[n])
	}
	return out
}

// Names returns all command names sorted.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	return len(r.names)
}

// Builder collects registrations before the registry is frozen.
type Builder struct {
	entries map[string]*Entry
	errs    []error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[string]*Entry)}
}

// Register adds a command. Names are normalized to lower-case; duplicates
// and empty names are reported by Build.
func (b *Builder) Register(name string, h Handler) *Builder {
	key := string(NormalizeName([]byte(name)))
	switch {
	case key == "":
		b.errs = append(b.errs, errors.New("dispatch: empty command name"))
	case h.call == nil:
		b.errs = append(b.errs, fmt.Errorf("dispatch: command %q has no handler", key))
	default:
		if _, dup := b.entries[key]; dup {
			b.errs = append(b.errs, fmt.Errorf("dispatch: command %q registered twice", key))
			return b
		}
		b.entries[key] = &Entry{Name: key, Handler: h}
	}
	return b
}

// Build freezes the registrations into a Registry.
func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	r := &Registry{
		entries: make(map[string]*Entry, len(b.entries)),
		names:   make([]string, 0, len(b.entries)),
	}
	for name, e := range b.entries {
		r.entries[name] = e
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// MustBuild is like Build but panics on error. Intended for static tables.
func (b *Builder) MustBuild() *Registry {
	r, err := b.Build()
	if err != nil {
		panic(err)
	}
	return r
}

// NormalizeName returns an ASCII lower-case copy of name.
func NormalizeName(name []byte) []byte {
	out := make([]byte, len(name))
	for i, c := range name {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}
