package show

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Query keys recognised by Select.
const (
	QueryKey      = "mode"
	QueryKeyShort = "m"
)

// Registry maps mode names to loaders. Nothing is initialised until Load.
type Registry struct {
	mu      sync.RWMutex
	loaders map[Name]Loader
}

func NewRegistry() *Registry {
	return &Registry{loaders: make(map[Name]Loader)}
}

// Register records the loader for name, replacing any previous one.
func (r *Registry) Register(name Name, loader Loader) error {
	if _, ok := ParseName(string(name)); !ok {
		return fmt.Errorf("register %q: %w", name, ErrUnknownMode)
	}
	if loader == nil {
		return fmt.Errorf("register %q: nil loader", name)
	}
	r.mu.Lock()
	r.loaders[name] = loader
	r.mu.Unlock()
	return nil
}

// Load invokes the loader for name once and returns its handle. Every call
// yields a fresh handle.
func (r *Registry) Load(ctx context.Context, name Name) (Handle, error) {
	r.mu.RLock()
	loader, ok := r.loaders[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("load %q: %w", name, ErrUnknownMode)
	}
	h, err := loader(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	if h == nil {
		return nil, fmt.Errorf("load %q: loader returned no handle", name)
	}
	return h, nil
}

// Registered reports whether name has a loader.
func (r *Registry) Registered(name Name) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.loaders[name]
	return ok
}

// Names returns the registered names in display order.
func (r *Registry) Names() []Name {
	var out []Name
	for _, n := range names {
		if r.Registered(n) {
			out = append(out, n)
		}
	}
	return out
}

// Select extracts a mode name from a query string ("?mode=x", "m=x") or a
// full URL. The primary key wins over the short alias. Values outside the
// mode set yield no selection.
func Select(query string) (Name, bool) {
	query = strings.TrimSpace(query)
	if u, err := url.Parse(query); err == nil && (u.Scheme != "" || u.RawQuery != "") {
		query = u.RawQuery
	}
	query = strings.TrimPrefix(query, "?")

	// ParseQuery keeps every well-formed pair even when others are bad.
	values, _ := url.ParseQuery(query)
	for _, key := range []string{QueryKey, QueryKeyShort} {
		if v := values.Get(key); v != "" {
			return ParseName(strings.TrimSpace(v))
		}
	}
	return "", false
}
