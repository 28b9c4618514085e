// Package rules holds the rule catalogue. The declaration lists in this
// file are the only place that enumerates rule types; adding a rule means
// adding one constructor to syntaxRules or semanticRules.
package rules

import (
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/resource"
	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

// ErrMissingDependency is returned when a required shared resource is nil.
var ErrMissingDependency = review.ErrMissingDependency

// TypeLookup answers whether a type name is known outside the project.
type TypeLookup interface {
	Lookup(name string) bool
}

// Dependencies are the shared resources rules are constructed with.
type Dependencies struct {
	Spelling resource.SpellChecker
	Types    TypeLookup
	Settings Settings
}

func (d Dependencies) validate() error {
	if d.Spelling == nil {
		return fmt.Errorf("%w: spelling service", ErrMissingDependency)
	}
	if d.Types == nil {
		return fmt.Errorf("%w: type lookup", ErrMissingDependency)
	}
	return nil
}

var syntaxRules = []func(Dependencies) review.SyntaxRule{
	newMethodNameSpellingRule,
	newSingleLineCommentLanguageRule,
	newMultiLineCommentLanguageRule,
	newPublicInterfaceImplementationRule,
	newTooDeepNestingRule,
	newTooManyParametersRule,
	newTooHighCyclomaticComplexityRule,
	newTodoCommentRule,
	newGotoStatementRule,
}

var semanticRules = []func(Dependencies) review.SemanticRule{
	newTooLowMaintainabilityIndexRule,
	newMemberSizeOutlierRule,
}

// GetSyntaxRules constructs every syntax rule in declaration order. It
// returns no rules when a dependency is missing.
func GetSyntaxRules(deps Dependencies) ([]review.SyntaxRule, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	deps.Settings = deps.Settings.withDefaults()
	out := make([]review.SyntaxRule, 0, len(syntaxRules))
	for _, ctor := range syntaxRules {
		out = append(out, ctor(deps))
	}
	return out, nil
}

// GetSemanticRules constructs every semantic rule in declaration order.
func GetSemanticRules(deps Dependencies) ([]review.SemanticRule, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	deps.Settings = deps.Settings.withDefaults()
	out := make([]review.SemanticRule, 0, len(semanticRules))
	for _, ctor := range semanticRules {
		out = append(out, ctor(deps))
	}
	return out, nil
}

// Registry builds both rule lists on first use and serves them for the
// lifetime of the process.
type Registry struct {
	deps Dependencies

	once     sync.Once
	syntax   []review.SyntaxRule
	semantic []review.SemanticRule
	err      error
}

func NewRegistry(deps Dependencies) *Registry {
	return &Registry{deps: deps}
}

func (r *Registry) load() {
	r.once.Do(func() {
		syn, err := GetSyntaxRules(r.deps)
		if err != nil {
			r.err = err
			return
		}
		sem, err := GetSemanticRules(r.deps)
		if err != nil {
			r.err = err
			return
		}
		r.syntax, r.semantic = syn, sem
	})
}

func (r *Registry) SyntaxRules() ([]review.SyntaxRule, error) {
	r.load()
	return r.syntax, r.err
}

func (r *Registry) SemanticRules() ([]review.SemanticRule, error) {
	r.load()
	return r.semantic, r.err
}

// Catalogue returns the metadata of every rule, syntax rules first.
func (r *Registry) Catalogue() ([]review.Metadata, error) {
	r.load()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]review.Metadata, 0, len(r.syntax)+len(r.semantic))
	for _, rule := range r.syntax {
		out = append(out, rule.Metadata())
	}
	for _, rule := range r.semantic {
		out = append(out, rule.Metadata())
	}
	return out, nil
}

// Without returns both rule lists minus the rules whose IDs are listed,
// keeping declaration order.
func (r *Registry) Without(disabled ...string) ([]review.SyntaxRule, []review.SemanticRule, error) {
	r.load()
	if r.err != nil {
		return nil, nil, r.err
	}
	skip := make(map[string]bool, len(disabled))
	for _, id := range disabled {
		skip[id] = true
	}
	var syn []review.SyntaxRule
	for _, rule := range r.syntax {
		if !skip[rule.Metadata().ID] {
			syn = append(syn, rule)
		}
	}
	var sem []review.SemanticRule
	for _, rule := range r.semantic {
		if !skip[rule.Metadata().ID] {
			sem = append(sem, rule)
		}
	}
	return syn, sem, nil
}
