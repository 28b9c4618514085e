package resource

import (
	"context"
	"fmt"
	"go/types"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// PackagesSource enumerates the exported type names of Go packages using
// golang.org/x/tools/go/packages. It needs a working go toolchain; without
// one TypeNames fails and the catalogue degrades to answering false.
type PackagesSource struct {
	// Patterns are package patterns; empty means "std".
	Patterns []string
	// Dir is the directory the patterns are resolved in.
	Dir string
}

func (s PackagesSource) patterns() []string {
	if len(s.Patterns) == 0 {
		return []string{"std"}
	}
	return s.Patterns
}

func (s PackagesSource) Key() string {
	return "packages:" + s.Dir + ":" + strings.Join(s.patterns(), ",")
}

func (s PackagesSource) TypeNames(ctx context.Context) ([]string, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode:    packages.NeedName | packages.NeedTypes,
		Dir:     s.Dir,
	}
	pkgs, err := packages.Load(cfg, s.patterns()...)
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}

	var names []string
	for _, p := range pkgs {
		if p.Types == nil {
			continue
		}
		scope := p.Types.Scope()
		for _, n := range scope.Names() {
			tn, ok := scope.Lookup(n).(*types.TypeName)
			if !ok || !tn.Exported() {
				continue
			}
			names = append(names, p.PkgPath+"."+n)
		}
	}
	sort.Strings(names)
	return names, nil
}
