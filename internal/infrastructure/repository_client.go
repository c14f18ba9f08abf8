package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/kara-dl-go/internal/domain"
)

// karaTagFields maps the tag arrays of a remote kara to blacklist categories
var karaTagFields = map[string]domain.CriterionType{
	"series":      domain.CriterionSeries,
	"singers":     domain.CriterionSingers,
	"songtypes":   domain.CriterionSongTypes,
	"creators":    domain.CriterionCreators,
	"langs":       domain.CriterionLanguages,
	"authors":     domain.CriterionAuthors,
	"misc":        domain.CriterionMisc,
	"songwriters": domain.CriterionSongwriters,
	"groups":      domain.CriterionGroups,
	"families":    domain.CriterionFamilies,
	"origins":     domain.CriterionOrigins,
	"genres":      domain.CriterionGenres,
	"platforms":   domain.CriterionPlatforms,
}

// RemoteKara is a kara as served by a karaoke repository
type RemoteKara struct {
	KID                   string                  `json:"kid"`
	Titles                map[string]string       `json:"titles"`
	TitlesDefaultLanguage string                  `json:"titles_default_language"`
	Duration              int                     `json:"duration"`
	KaraFile              string                  `json:"karafile"`
	MediaFile             string                  `json:"mediafile"`
	MediaSize             int64                   `json:"mediasize"`
	Repository            string                  `json:"repository"`
	Tags                  map[string][]domain.Tag `json:"-"`
}

// UnmarshalJSON decodes the fixed fields and collects every known tag array
func (k *RemoteKara) UnmarshalJSON(data []byte) error {
	type plain RemoteKara
	if err := json.Unmarshal(data, (*plain)(k)); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	k.Tags = make(map[string][]domain.Tag)
	for field := range karaTagFields {
		raw, ok := fields[field]
		if !ok || string(raw) == "null" {
			continue
		}
		var tags []domain.Tag
		if err := json.Unmarshal(raw, &tags); err != nil {
			return fmt.Errorf("failed to decode %s tags: %w", field, err)
		}
		k.Tags[field] = tags
	}
	return nil
}

// Title picks the title in the default language, then English, then any
func (k *RemoteKara) Title() string {
	if t, ok := k.Titles[k.TitlesDefaultLanguage]; ok && t != "" {
		return t
	}
	if t, ok := k.Titles["eng"]; ok && t != "" {
		return t
	}
	langs := make([]string, 0, len(k.Titles))
	for lang := range k.Titles {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if k.Titles[lang] != "" {
			return k.Titles[lang]
		}
	}
	return ""
}

// ToCandidate converts the remote kara into a filter candidate
func (k *RemoteKara) ToCandidate(repository string) domain.Candidate {
	c := domain.Candidate{
		KID:        k.KID,
		Title:      k.Title(),
		Duration:   k.Duration,
		KaraFile:   k.KaraFile,
		MediaFile:  k.MediaFile,
		MediaSize:  k.MediaSize,
		Repository: k.Repository,
	}
	if c.Repository == "" {
		c.Repository = repository
	}
	if len(k.Tags) > 0 {
		c.Tags = make(map[domain.CriterionType][]domain.Tag, len(k.Tags))
		for field, tags := range k.Tags {
			c.Tags[karaTagFields[field]] = tags
		}
	}
	return c
}

type karaSearchResponse struct {
	Content []RemoteKara `json:"content"`
	Infos   struct {
		Count int `json:"count"`
		From  int `json:"from"`
		To    int `json:"to"`
	} `json:"infos"`
}

// RepositoryClient talks to the HTTP API of remote karaoke repositories
type RepositoryClient struct {
	scheme     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRepositoryClient creates a client using scheme (http or https) for every repository
func NewRepositoryClient(config domain.RepositoryConfig, logger *zap.Logger) *RepositoryClient {
	scheme := config.Scheme
	if scheme == "" {
		scheme = "https"
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &RepositoryClient{
		scheme: scheme,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: timeout,
			},
		},
		logger: logger,
	}
}

// BaseURL returns the root URL of repository
func (c *RepositoryClient) BaseURL(repository string) string {
	return c.scheme + "://" + strings.TrimSuffix(repository, "/")
}

// MediaURL returns the download URL of a media file
func (c *RepositoryClient) MediaURL(repository, mediafile string) string {
	return c.BaseURL(repository) + "/downloads/medias/" + url.PathEscape(mediafile)
}

// SearchKaras returns one page of the catalog of repository
func (c *RepositoryClient) SearchKaras(ctx context.Context, repository string, from, size int) (*domain.CandidatePage, error) {
	query := url.Values{}
	query.Set("from", strconv.Itoa(from))
	query.Set("size", strconv.Itoa(size))

	var resp karaSearchResponse
	if err := c.getJSON(ctx, c.BaseURL(repository)+"/api/karas/search?"+query.Encode(), &resp); err != nil {
		return nil, err
	}

	page := &domain.CandidatePage{
		Candidates: make([]domain.Candidate, 0, len(resp.Content)),
		Total:      resp.Infos.Count,
	}
	for i := range resp.Content {
		page.Candidates = append(page.Candidates, resp.Content[i].ToCandidate(repository))
	}
	return page, nil
}

// GetKara fetches a single kara by its kid
func (c *RepositoryClient) GetKara(ctx context.Context, repository, kid string) (*RemoteKara, error) {
	var kara RemoteKara
	if err := c.getJSON(ctx, c.BaseURL(repository)+"/api/karas/"+url.PathEscape(kid), &kara); err != nil {
		return nil, err
	}
	if kara.KID == "" {
		kara.KID = kid
	}
	return &kara, nil
}

// Open starts a GET on rawURL and returns the response for streaming.
// The caller closes the body.
func (c *RepositoryClient) Open(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Media transfers can exceed the API timeout; rely on ctx instead
	client := &http.Client{Transport: c.httpClient.Transport}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", rawURL, err)
	}
	if err := checkStatus(resp, rawURL); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func (c *RepositoryClient) getJSON(ctx context.Context, rawURL string, result interface{}) error {
	if c.logger != nil {
		c.logger.Debug("Repository API request", zap.String("url", rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, rawURL); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", rawURL, err)
	}
	return nil
}

func checkStatus(resp *http.Response, rawURL string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode == http.StatusNotFound {
		return domain.NewNotFoundError("remote resource", rawURL)
	}
	return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, rawURL, strings.TrimSpace(string(body)))
}
