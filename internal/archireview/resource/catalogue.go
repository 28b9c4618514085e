package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// TypeSource enumerates known type names. Names may be qualified
// ("io.Reader", "github.com/x/y.Client") or short ("Reader").
type TypeSource interface {
	// Key identifies the source for logging and disk caching.
	Key() string
	TypeNames(ctx context.Context) ([]string, error)
}

// Invalidator is implemented by sources that keep state outside the
// catalogue, such as an on-disk snapshot. TypeCatalogue.Reset calls it.
type Invalidator interface {
	Invalidate() error
}

func invalidate(s TypeSource) error {
	if inv, ok := s.(Invalidator); ok {
		return inv.Invalidate()
	}
	return nil
}

type typeIndex struct {
	short map[string]struct{}
	full  map[string]struct{}
}

// TypeCatalogue answers whether a type name is known, for example to avoid
// flagging a base type whose name merely looks like an unknown interface.
//
// The name set is built from the source on first Lookup and memoized for
// the process. A failing or panicking source yields an empty catalogue, so
// Lookup answers false; the failure is memoized too until Reset.
type TypeCatalogue struct {
	source TypeSource
	logger *slog.Logger
	index  *Lazy[*typeIndex]
}

// NewTypeCatalogue creates a catalogue over source. A nil logger selects
// slog.Default().
func NewTypeCatalogue(source TypeSource, logger *slog.Logger) *TypeCatalogue {
	if logger == nil {
		logger = slog.Default()
	}
	c := &TypeCatalogue{source: source, logger: logger}
	c.index = NewLazy(c.build)
	return c
}

// Lookup reports whether name is a known type. Short names match
// case-insensitively against the last segment of every known name;
// qualified names must match exactly.
func (c *TypeCatalogue) Lookup(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	idx, err := c.index.Get()
	if err != nil || idx == nil {
		return false
	}
	if _, ok := idx.full[name]; ok {
		return true
	}
	_, ok := idx.short[strings.ToLower(name)]
	return ok
}

// Len returns the number of distinct qualified names in the catalogue.
func (c *TypeCatalogue) Len() int {
	idx, err := c.index.Get()
	if err != nil || idx == nil {
		return 0
	}
	return len(idx.full)
}

// Reset drops the memoized name set and invalidates the source, so the
// next Lookup rebuilds from scratch.
func (c *TypeCatalogue) Reset() {
	if err := invalidate(c.source); err != nil {
		c.logger.Warn("failed to invalidate type source",
			slog.String("source", c.source.Key()),
			slog.String("error", err.Error()))
	}
	c.index.Reset()
}

func (c *TypeCatalogue) build() (idx *typeIndex, err error) {
	idx = &typeIndex{
		short: make(map[string]struct{}),
		full:  make(map[string]struct{}),
	}
	if c.source == nil {
		return idx, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Warn("type catalogue source panicked",
				slog.String("source", c.source.Key()),
				slog.Any("panic", rec))
			idx, err = &typeIndex{short: map[string]struct{}{}, full: map[string]struct{}{}}, nil
		}
	}()

	names, err := c.source.TypeNames(context.Background())
	if err != nil {
		c.logger.Warn("type catalogue source failed",
			slog.String("source", c.source.Key()),
			slog.String("error", err.Error()))
		if len(names) == 0 {
			return idx, nil
		}
	}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		idx.full[n] = struct{}{}
		idx.short[strings.ToLower(shortName(n))] = struct{}{}
	}
	c.logger.Debug("type catalogue built",
		slog.String("source", c.source.Key()),
		slog.Int("types", len(idx.full)))
	return idx, nil
}

func shortName(name string) string {
	if i := strings.LastIndexAny(name, "./"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// StaticSource is a fixed list of names.
type StaticSource struct {
	Name  string
	Names []string
}

func (s StaticSource) Key() string { return "static:" + s.Name }

func (s StaticSource) TypeNames(context.Context) ([]string, error) {
	return append([]string(nil), s.Names...), nil
}

// MultiSource concatenates several sources. Names from healthy sources are
// returned even when another source fails; the failures are joined.
type MultiSource []TypeSource

func (m MultiSource) Key() string {
	keys := make([]string, 0, len(m))
	for _, s := range m {
		keys = append(keys, s.Key())
	}
	return "multi:" + strings.Join(keys, "+")
}

func (m MultiSource) Invalidate() error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := invalidate(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSource) TypeNames(ctx context.Context) ([]string, error) {
	var names []string
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		n, err := s.TypeNames(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Key(), err))
			continue
		}
		names = append(names, n...)
	}
	return names, errors.Join(errs...)
}
