package blacklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/kara-dl-go/internal/domain"
)

func TestIsAllowed_NoCriteria(t *testing.T) {
	allowed, err := IsAllowed(sampleCandidate(), nil)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestIsAllowed_LongerThan(t *testing.T) {
	criteria := []*domain.BlacklistCriterion{{ID: 1, Type: domain.CriterionLongerThan, Value: "120"}}

	allowed, err := IsAllowed(&domain.Candidate{KID: "long", Duration: 150}, criteria)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = IsAllowed(&domain.Candidate{KID: "short", Duration: 90}, criteria)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestIsAllowed_AnyCriterionBlocks(t *testing.T) {
	criteria := []*domain.BlacklistCriterion{
		{ID: 1, Type: domain.CriterionTitleContains, Value: "nomatch"},
		{ID: 2, Type: domain.CriterionSingers, Value: singerTID},
	}

	allowed, err := IsAllowed(sampleCandidate(), criteria)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestFilter_MatchReturnsFirstRule(t *testing.T) {
	f, err := NewFilterFromCriteria([]*domain.BlacklistCriterion{
		{ID: 10, Type: domain.CriterionShorterThan, Value: "100"},
		{ID: 11, Type: domain.CriterionTitleContains, Value: "angel"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())

	rule := f.Match(sampleCandidate())
	require.NotNil(t, rule)
	assert.Equal(t, int64(10), rule.CriterionID())

	assert.Nil(t, f.Match(&domain.Candidate{Title: "other", Duration: 200}))
}

func TestPass_MemoizesByKID(t *testing.T) {
	f := NewFilter([]Rule{DurationGreaterRule{ID: 1, Seconds: 120}})
	pass := NewPass(f)

	c := &domain.Candidate{KID: "k1", Duration: 150}
	assert.False(t, pass.Allowed(c))
	assert.Equal(t, 1, pass.Size())

	// Same kid within one pass serves the cached verdict.
	c.Duration = 10
	assert.False(t, pass.Allowed(c))
	assert.Equal(t, 1, pass.CacheHits())
}

func TestPass_ResetInvalidatesVerdicts(t *testing.T) {
	f := NewFilter([]Rule{DurationGreaterRule{ID: 1, Seconds: 120}})
	pass := NewPass(f)

	c := &domain.Candidate{KID: "k1", Duration: 150}
	assert.False(t, pass.Allowed(c))

	pass.Reset()
	assert.Zero(t, pass.Size())

	c.Duration = 10
	assert.True(t, pass.Allowed(c))
}

func TestPass_NewPassSeesNewCriteria(t *testing.T) {
	c := &domain.Candidate{KID: "k1", Title: "Song", Duration: 90}

	first := NewPass(NewFilter(nil))
	assert.True(t, first.Allowed(c))

	second := NewPass(NewFilter([]Rule{TextContainsRule{ID: 1, Value: "song"}}))
	assert.False(t, second.Allowed(c))
}

func TestPass_EmptyKIDNotCached(t *testing.T) {
	pass := NewPass(NewFilter(nil))
	assert.True(t, pass.Allowed(&domain.Candidate{Title: "anon"}))
	assert.Zero(t, pass.Size())
}
