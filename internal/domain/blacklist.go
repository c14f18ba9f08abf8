package domain

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// CriterionType classifies a download blacklist rule
type CriterionType int

const (
	CriterionText CriterionType = 0 // Free text, matched against the title

	// Tag categories, value is a tag UUID
	CriterionSeries      CriterionType = 1
	CriterionSingers     CriterionType = 2
	CriterionSongTypes   CriterionType = 3
	CriterionCreators    CriterionType = 4
	CriterionLanguages   CriterionType = 5
	CriterionAuthors     CriterionType = 6
	CriterionMisc        CriterionType = 7
	CriterionSongwriters CriterionType = 8
	CriterionGroups      CriterionType = 9
	CriterionFamilies    CriterionType = 10
	CriterionOrigins     CriterionType = 11
	CriterionGenres      CriterionType = 12
	CriterionPlatforms   CriterionType = 13

	CriterionLongerThan    CriterionType = 1002 // Duration in seconds
	CriterionShorterThan   CriterionType = 1003 // Duration in seconds
	CriterionTitleContains CriterionType = 1004
)

const (
	minTagCategory = CriterionSeries
	maxTagCategory = CriterionPlatforms
)

var tagCategoryNames = map[CriterionType]string{
	CriterionSeries:      "series",
	CriterionSingers:     "singers",
	CriterionSongTypes:   "songtypes",
	CriterionCreators:    "creators",
	CriterionLanguages:   "langs",
	CriterionAuthors:     "authors",
	CriterionMisc:        "misc",
	CriterionSongwriters: "songwriters",
	CriterionGroups:      "groups",
	CriterionFamilies:    "families",
	CriterionOrigins:     "origins",
	CriterionGenres:      "genres",
	CriterionPlatforms:   "platforms",
}

// IsTag checks if the type is one of the tag categories
func (t CriterionType) IsTag() bool {
	return t >= minTagCategory && t <= maxTagCategory
}

// IsNumeric checks if the type compares durations
func (t CriterionType) IsNumeric() bool {
	return t == CriterionLongerThan || t == CriterionShorterThan
}

// IsText checks if the type is a free-text match
func (t CriterionType) IsText() bool {
	return t == CriterionText || t == CriterionTitleContains
}

// Valid checks if the type lies in the documented range
func (t CriterionType) Valid() bool {
	return t.IsTag() || t.IsNumeric() || t.IsText()
}

// String returns a readable name for logs and the CLI
func (t CriterionType) String() string {
	if name, ok := tagCategoryNames[t]; ok {
		return name
	}
	switch t {
	case CriterionText:
		return "text"
	case CriterionLongerThan:
		return "longer_than"
	case CriterionShorterThan:
		return "shorter_than"
	case CriterionTitleContains:
		return "title_contains"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// BlacklistCriterion represents one rule used to reject candidates from bulk downloads
type BlacklistCriterion struct {
	ID    int64         `json:"id" gorm:"column:pk_id_dl_blcriteria;primaryKey;autoIncrement"`
	Type  CriterionType `json:"type" gorm:"column:type;not null"`
	Value string        `json:"value" gorm:"column:value;not null"`
}

// TableName specifies the table name for GORM
func (BlacklistCriterion) TableName() string {
	return "download_blacklist_criteria"
}

// NewBlacklistCriterion validates a type/value pair and builds an unsaved criterion
func NewBlacklistCriterion(t CriterionType, value string) (*BlacklistCriterion, error) {
	value = strings.TrimSpace(value)
	if err := ValidateCriterion(t, value); err != nil {
		return nil, err
	}
	if t.IsTag() {
		// Tag TIDs are compared in their hyphenated form
		value = uuid.MustParse(value).String()
	}
	return &BlacklistCriterion{Type: t, Value: value}, nil
}

// ValidateCriterion checks a type/value pair against the rule table
func ValidateCriterion(t CriterionType, value string) error {
	if !t.Valid() {
		return NewValidationError("criterion type %d is out of range", int(t))
	}
	if strings.TrimSpace(value) == "" {
		return NewValidationError("criterion value must not be empty")
	}
	if t.IsTag() {
		if _, err := uuid.Parse(value); err != nil {
			return NewValidationError("criterion value %q is not a valid tag UUID", value)
		}
	}
	if t.IsNumeric() {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || strings.ContainsAny(value, "xX") {
			return NewValidationError("criterion value %q is not a number", value)
		}
	}
	return nil
}

// BlacklistRepository defines the interface for blacklist criteria persistence
type BlacklistRepository interface {
	// CreateCriterion inserts a criterion and fills its ID
	CreateCriterion(ctx context.Context, criterion *BlacklistCriterion) error

	// FindCriterion finds a criterion by ID, ErrNotFound if absent
	FindCriterion(ctx context.Context, id int64) (*BlacklistCriterion, error)

	// DeleteCriterion deletes a criterion by ID, ErrNotFound if absent
	DeleteCriterion(ctx context.Context, id int64) error

	// ListCriteria returns all criteria ordered by ID
	ListCriteria(ctx context.Context) ([]*BlacklistCriterion, error)
}
