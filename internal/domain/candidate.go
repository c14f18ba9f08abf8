package domain

import "strings"

// Tag is a tag attached to a karaoke entry
type Tag struct {
	TID  string `json:"tid"`
	Name string `json:"name"`
}

// Candidate is a karaoke entry considered by a bulk download pass
type Candidate struct {
	KID        string                  `json:"kid"`
	Title      string                  `json:"title"`
	Duration   int                     `json:"duration"` // seconds
	Tags       map[CriterionType][]Tag `json:"tags,omitempty"`
	KaraFile   string                  `json:"karafile"`
	MediaFile  string                  `json:"mediafile"`
	MediaSize  int64                   `json:"mediasize"`
	Repository string                  `json:"repository"`
}

// TagsOf returns the candidate tags of one category
func (c *Candidate) TagsOf(category CriterionType) []Tag {
	if c.Tags == nil {
		return nil
	}
	return c.Tags[category]
}

// DownloadName derives the queue item label from the kara file name
func (c *Candidate) DownloadName() string {
	name := strings.TrimSuffix(c.KaraFile, ".kara.json")
	if name == "" {
		return c.MediaFile
	}
	return name
}

// ToDownloadItem builds an unsaved queue item for this candidate
func (c *Candidate) ToDownloadItem(id string) DownloadItem {
	return DownloadItem{
		UUID:       id,
		Name:       c.DownloadName(),
		Size:       c.MediaSize,
		Status:     StatusPlanned,
		Repository: c.Repository,
		KID:        c.KID,
	}
}

// CandidatePage is one page of a repository catalog listing
type CandidatePage struct {
	Candidates []Candidate
	Total      int
}
