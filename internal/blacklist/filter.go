package blacklist

import (
	"github.com/yourusername/kara-dl-go/internal/domain"
)

// Filter evaluates candidates against an ordered list of rules.
// A candidate is blocked as soon as one rule matches.
type Filter struct {
	rules []Rule
}

// NewFilter creates a filter over already compiled rules
func NewFilter(rules []Rule) *Filter {
	return &Filter{rules: rules}
}

// NewFilterFromCriteria compiles criteria into a filter
func NewFilterFromCriteria(criteria []*domain.BlacklistCriterion) (*Filter, error) {
	rules, err := Compile(criteria)
	if err != nil {
		return nil, err
	}
	return NewFilter(rules), nil
}

// Len returns the number of rules
func (f *Filter) Len() int {
	return len(f.rules)
}

// Match returns the first rule hitting the candidate, or nil
func (f *Filter) Match(c *domain.Candidate) Rule {
	for _, rule := range f.rules {
		if rule.Matches(c) {
			return rule
		}
	}
	return nil
}

// IsAllowed reports whether no rule matches the candidate
func (f *Filter) IsAllowed(c *domain.Candidate) bool {
	return f.Match(c) == nil
}

// IsAllowed evaluates one candidate against stored criteria
func IsAllowed(c *domain.Candidate, criteria []*domain.BlacklistCriterion) (bool, error) {
	f, err := NewFilterFromCriteria(criteria)
	if err != nil {
		return false, err
	}
	return f.IsAllowed(c), nil
}

// Pass memoizes verdicts by kid for the duration of one bulk run.
// Create a new Pass (or call Reset) at the start of every run.
type Pass struct {
	filter   *Filter
	verdicts map[string]bool
	hits     int
}

// NewPass starts a bulk pass over filter with an empty verdict cache
func NewPass(filter *Filter) *Pass {
	return &Pass{
		filter:   filter,
		verdicts: make(map[string]bool),
	}
}

// Allowed returns the cached verdict for c.KID, computing it on first sight
func (p *Pass) Allowed(c *domain.Candidate) bool {
	if c.KID != "" {
		if allowed, ok := p.verdicts[c.KID]; ok {
			p.hits++
			return allowed
		}
	}

	allowed := p.filter.IsAllowed(c)
	if c.KID != "" {
		p.verdicts[c.KID] = allowed
	}
	return allowed
}

// Reset drops every cached verdict
func (p *Pass) Reset() {
	p.verdicts = make(map[string]bool)
	p.hits = 0
}

// Size returns the number of cached verdicts
func (p *Pass) Size() int {
	return len(p.verdicts)
}

// CacheHits returns how many verdicts were served from the cache
func (p *Pass) CacheHits() int {
	return p.hits
}
