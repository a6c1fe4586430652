package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"memeverse/config"
	"memeverse/core"

	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by single-item lookups that yield no match.
var ErrNotFound = errors.New("meme not found")

const (
	trendingCount    = 20
	categoryPageSize = 100
	searchPageSize   = 10
)

// Client talks to the imgflip meme catalog. All list calls are built on
// the single get_memes endpoint; categories and search are derived
// client-side the same way the browsing UI derives them.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// NewClient builds a catalog client from configuration. The credentials
// are only needed by the caption endpoint.
func NewClient(cfg config.ImgflipConfig) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type imgflipMeme struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	BoxCount int    `json:"box_count"`
}

type getMemesResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Memes []imgflipMeme `json:"memes"`
	} `json:"data"`
	ErrorMessage string `json:"error_message"`
}

// getMemes fetches the full upstream template list.
func (c *Client) getMemes(ctx context.Context) ([]core.Meme, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get_memes", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch meme catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meme catalog returned status %d", resp.StatusCode)
	}

	var payload getMemesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode meme catalog response: %w", err)
	}
	if !payload.Success {
		return nil, fmt.Errorf("meme catalog request failed: %s", payload.ErrorMessage)
	}

	memes := make([]core.Meme, 0, len(payload.Data.Memes))
	for _, m := range payload.Data.Memes {
		memes = append(memes, core.Meme{
			ID:           m.ID,
			Name:         m.Name,
			URL:          m.URL,
			Width:        m.Width,
			Height:       m.Height,
			CaptionSlots: m.BoxCount,
		})
	}
	return memes, nil
}

// Trending returns the catalog's leading templates.
func (c *Client) Trending(ctx context.Context) ([]core.Meme, error) {
	memes, err := c.getMemes(ctx)
	if err != nil {
		return nil, err
	}
	if len(memes) > trendingCount {
		memes = memes[:trendingCount]
	}
	return memes, nil
}

// ByCategory returns one page of memes for a browsing category. The
// upstream API has no real categories, so they are simulated from slices
// of the full list: "trending" is the head, "new" the next block,
// "classic" everything with at most two caption slots and "random" a
// shuffle. Pages are 1-based.
func (c *Client) ByCategory(ctx context.Context, category string, page int) ([]core.Meme, error) {
	memes, err := c.getMemes(ctx)
	if err != nil {
		return nil, err
	}

	var filtered []core.Meme
	switch category {
	case core.CategoryTrending:
		filtered = sliceMemes(memes, 0, 50)
	case core.CategoryNew:
		filtered = sliceMemes(memes, 50, 100)
	case core.CategoryClassic:
		for _, m := range memes {
			if m.CaptionSlots <= 2 {
				filtered = append(filtered, m)
			}
		}
	case core.CategoryRandom:
		filtered = append([]core.Meme(nil), memes...)
		rand.Shuffle(len(filtered), func(i, j int) {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		})
	default:
		filtered = memes
	}

	return pageOf(filtered, page, categoryPageSize), nil
}

// Search returns one page of memes whose name contains the term,
// case-insensitively.
func (c *Client) Search(ctx context.Context, term string, page int) ([]core.Meme, error) {
	memes, err := c.getMemes(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(term)
	var filtered []core.Meme
	for _, m := range memes {
		if strings.Contains(strings.ToLower(m.Name), needle) {
			filtered = append(filtered, m)
		}
	}
	return pageOf(filtered, page, searchPageSize), nil
}

// ByID looks up a single template and fills the fields the catalog does
// not carry (a seeded like count, an empty comment list, a fetch-time
// timestamp). Returns ErrNotFound when the catalog has no match.
func (c *Client) ByID(ctx context.Context, id string) (*core.Meme, error) {
	memes, err := c.getMemes(ctx)
	if err != nil {
		return nil, err
	}
	for i := range memes {
		if memes[i].ID == id {
			m := memes[i]
			m.LikeCount = rand.Intn(1000)
			m.Comments = []core.Comment{}
			m.CreatedAt = time.Now().UTC().Format(time.RFC3339)
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

type captionResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	ErrorMessage string `json:"error_message"`
}

// Caption renders a template with top and bottom text through the caption
// endpoint and returns the URL of the generated image.
func (c *Client) Caption(ctx context.Context, templateID, topText, bottomText string) (string, error) {
	form := url.Values{
		"template_id": {templateID},
		"username":    {c.username},
		"password":    {c.password},
		"text0":       {topText},
		"text1":       {bottomText},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/caption_image", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to caption meme: %w", err)
	}
	defer resp.Body.Close()

	var payload captionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode caption response: %w", err)
	}
	if !payload.Success {
		logrus.WithField("template_id", templateID).Warn("caption request rejected by catalog")
		return "", fmt.Errorf("caption request failed: %s", payload.ErrorMessage)
	}
	return payload.Data.URL, nil
}

func sliceMemes(memes []core.Meme, from, to int) []core.Meme {
	if from > len(memes) {
		return nil
	}
	if to > len(memes) {
		to = len(memes)
	}
	return memes[from:to]
}

func pageOf(memes []core.Meme, page, pageSize int) []core.Meme {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(memes) {
		return nil
	}
	end := start + pageSize
	if end > len(memes) {
		end = len(memes)
	}
	return memes[start:end]
}
