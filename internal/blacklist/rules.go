// Package blacklist decides whether karaoke entries are excluded from bulk
// download passes by user-defined criteria.
package blacklist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/kara-dl-go/internal/domain"
)

// Rule is one compiled blacklist criterion
type Rule interface {
	// Matches reports whether the candidate is hit by this rule
	Matches(c *domain.Candidate) bool

	// CriterionID returns the ID of the stored criterion the rule came from
	CriterionID() int64
}

// TagRule matches candidates carrying a tag of one category
type TagRule struct {
	ID       int64
	Category domain.CriterionType
	Value    string
}

func (r TagRule) Matches(c *domain.Candidate) bool {
	needle := strings.ToLower(r.Value)
	for _, tag := range c.TagsOf(r.Category) {
		if strings.EqualFold(tag.TID, r.Value) {
			return true
		}
		if tag.Name != "" && strings.Contains(strings.ToLower(tag.Name), needle) {
			return true
		}
	}
	return false
}

func (r TagRule) CriterionID() int64 { return r.ID }

// DurationGreaterRule matches candidates longer than Seconds
type DurationGreaterRule struct {
	ID      int64
	Seconds float64
}

func (r DurationGreaterRule) Matches(c *domain.Candidate) bool {
	return float64(c.Duration) > r.Seconds
}

func (r DurationGreaterRule) CriterionID() int64 { return r.ID }

// DurationLessRule matches candidates shorter than Seconds
type DurationLessRule struct {
	ID      int64
	Seconds float64
}

func (r DurationLessRule) Matches(c *domain.Candidate) bool {
	return float64(c.Duration) < r.Seconds
}

func (r DurationLessRule) CriterionID() int64 { return r.ID }

// TextContainsRule matches candidates whose title contains Value, ignoring case
type TextContainsRule struct {
	ID    int64
	Value string
}

func (r TextContainsRule) Matches(c *domain.Candidate) bool {
	return strings.Contains(strings.ToLower(c.Title), strings.ToLower(r.Value))
}

func (r TextContainsRule) CriterionID() int64 { return r.ID }

// CompileCriterion turns one stored criterion into a rule
func CompileCriterion(criterion *domain.BlacklistCriterion) (Rule, error) {
	switch t := criterion.Type; {
	case t.IsTag():
		return TagRule{ID: criterion.ID, Category: t, Value: criterion.Value}, nil
	case t == domain.CriterionLongerThan, t == domain.CriterionShorterThan:
		seconds, err := strconv.ParseFloat(strings.TrimSpace(criterion.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("criterion %d: invalid duration %q: %w", criterion.ID, criterion.Value, err)
		}
		if t == domain.CriterionLongerThan {
			return DurationGreaterRule{ID: criterion.ID, Seconds: seconds}, nil
		}
		return DurationLessRule{ID: criterion.ID, Seconds: seconds}, nil
	case t.IsText():
		return TextContainsRule{ID: criterion.ID, Value: criterion.Value}, nil
	default:
		return nil, fmt.Errorf("criterion %d: unsupported type %d", criterion.ID, int(t))
	}
}

// Compile turns stored criteria into an ordered rule list
func Compile(criteria []*domain.BlacklistCriterion) ([]Rule, error) {
	rules := make([]Rule, 0, len(criteria))
	for _, criterion := range criteria {
		rule, err := CompileCriterion(criterion)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
