package core

import (
	"time"
)

// Sort keys accepted by the collection state store.
const (
	SortByLikes    = "likes"
	SortByDate     = "date"
	SortByComments = "comments"
)

// Well-known browsing categories. The set is open: uploads may carry a
// user-chosen category that is none of these.
const (
	CategoryTrending = "trending"
	CategoryNew      = "new"
	CategoryClassic  = "classic"
	CategoryRandom   = "random"
)

type (
	// Meme is the core content entity: an image plus metadata, likes and
	// comments. Copies of the same logical meme may live in several
	// collections at once; they are kept consistent by explicit fan-out,
	// not by shared pointers.
	Meme struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
		// CaptionSlots is the number of caption placeholders the upstream
		// catalog reports for the template (imgflip box_count).
		CaptionSlots int       `json:"box_count"`
		LikeCount    int       `json:"likes"`
		Comments     []Comment `json:"comments"`
		Category     string    `json:"category,omitempty"`
		CreatedAt    string    `json:"createdAt,omitempty"`
		Author       string    `json:"author,omitempty"`
	}

	// Comment is owned by value inside its Meme. Author is a snapshot of
	// the commenter's display name at posting time.
	Comment struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		Author    string `json:"author"`
		CreatedAt string `json:"createdAt"`
	}
)

// MaxCommentLength bounds comment text at the input-validation boundary.
// The state store itself accepts any fully-formed comment.
const MaxCommentLength = 500

// Clone returns a deep copy of the meme. The comments slice gets its own
// backing array so collection copies stay independent.
func (m Meme) Clone() Meme {
	out := m
	if m.Comments != nil {
		out.Comments = make([]Comment, len(m.Comments))
		copy(out.Comments, m.Comments)
	}
	return out
}

// CreatedTime parses the record's timestamp. Missing or malformed
// timestamps sort as the earliest possible instant.
func (m Meme) CreatedTime() time.Time {
	if m.CreatedAt == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, m.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
