package state

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"sync"
	"time"

	"memeverse/core"

	"github.com/sirupsen/logrus"
)

// Query is the current browsing state for the explorable collection.
// Changing Category or SearchTerm invalidates every accumulated page.
type Query struct {
	Category    string `json:"category"`
	SearchTerm  string `json:"searchTerm"`
	SortBy      string `json:"sortBy"`
	CurrentPage int    `json:"currentPage"`
	HasMore     bool   `json:"hasMore"`
}

// Store is the single authoritative container for all meme browsing and
// interaction state: the trending set, the paginated explorable set, the
// user's own uploads, the liked-id set and the record under detailed view.
//
// Each collection holds its own denormalized copy of a meme; mutations
// that touch a logical record (likes, comments) are fanned out to every
// copy with a matching id. Operations run to completion under the lock,
// so no caller ever observes a half-applied mutation.
type Store struct {
	mu sync.Mutex

	trending   []core.Meme
	explorable []core.Meme
	userOwned  []core.Meme
	focused    *core.Meme

	likedIDs map[string]bool
	query    Query

	// generation counts query-state changes. Paginated fetch results issued
	// under an older generation are discarded on delivery.
	generation uint64

	prefs core.PreferenceStore
}

// New builds a store bound to a preference backend and performs the
// one-time load of the liked-id set. A missing or unparsable stored value
// starts the set empty.
func New(ctx context.Context, prefs core.PreferenceStore) *Store {
	s := &Store{
		likedIDs: make(map[string]bool),
		query: Query{
			Category:    core.CategoryTrending,
			SortBy:      core.SortByLikes,
			CurrentPage: 1,
			HasMore:     true,
		},
		prefs: prefs,
	}

	raw, err := prefs.Get(ctx, core.LikedMemesKey)
	if err != nil {
		logrus.WithError(err).Debug("no persisted liked memes, starting empty")
		return s
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		logrus.WithError(err).Warn("persisted liked memes are corrupt, starting empty")
		return s
	}
	for _, id := range ids {
		s.likedIDs[id] = true
	}
	logrus.WithField("count", len(ids)).Info("loaded liked memes")
	return s
}

// normalize fills the defaults a raw fetched record may be missing and
// rejects records without an id. The upstream catalog carries no like
// counts, so absent ones are seeded the way the original data set was.
func normalize(records []core.Meme, category string) []core.Meme {
	now := time.Now().UTC().Format(time.RFC3339)
	out := make([]core.Meme, 0, len(records))
	for _, m := range records {
		if m.ID == "" {
			continue
		}
		if m.LikeCount == 0 {
			m.LikeCount = rand.Intn(1000)
		}
		if m.Comments == nil {
			m.Comments = []core.Comment{}
		}
		if m.CreatedAt == "" {
			m.CreatedAt = now
		}
		if category != "" && m.Category == "" {
			m.Category = category
		}
		out = append(out, m)
	}
	return out
}

// ReplaceTrending normalizes the fetched records and replaces the trending
// collection wholesale. Calling it twice with the same input is a no-op in
// effect; it never appends.
func (s *Store) ReplaceTrending(records []core.Meme) {
	normalized := normalize(records, "")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.trending = normalized
}

// Generation returns the current query-state generation. Callers issuing a
// paginated fetch capture it and hand it back to AppendExplorable so stale
// responses can be told apart from current ones.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// AppendExplorable delivers one fetched page. An empty page marks the end
// of the list and leaves the accumulated records untouched. A non-empty
// page is normalized, tagged with the category it was fetched under and
// appended after the existing records. Duplicate ids across pages are
// passed through as-is: upstream pagination fidelity is preserved.
//
// Pages fetched under a generation that no longer matches the current
// query state are dropped entirely.
func (s *Store) AppendExplorable(records []core.Meme, forCategory string, generation uint64) {
	normalized := normalize(records, forCategory)

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		logrus.WithFields(logrus.Fields{
			"got":     generation,
			"current": s.generation,
		}).Debug("dropping stale explorable page")
		return
	}

	if len(normalized) == 0 {
		s.query.HasMore = false
		return
	}
	s.explorable = append(s.explorable, normalized...)
}

// SetCategory switches the browsing category and invalidates every
// accumulated explorable page.
func (s *Store) SetCategory(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.Category = category
	s.resetExplorableLocked()
}

// SetSearchTerm switches the search filter with the same invalidation
// contract as a category change.
func (s *Store) SetSearchTerm(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.SearchTerm = term
	s.resetExplorableLocked()
}

func (s *Store) resetExplorableLocked() {
	s.query.CurrentPage = 1
	s.query.HasMore = true
	s.explorable = nil
	s.generation++
}

// SetSortBy switches the sort key and stably re-orders the explorable and
// trending collections in place. userOwned keeps its newest-first order.
func (s *Store) SetSortBy(sortBy string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.SortBy = sortBy
	s.sortLocked(s.explorable)
	s.sortLocked(s.trending)
}

// sortLocked orders memes descending by the current sort key. The sort is
// stable: records with equal keys keep their relative input order.
func (s *Store) sortLocked(memes []core.Meme) {
	key := s.query.SortBy
	sort.SliceStable(memes, func(i, j int) bool {
		switch key {
		case core.SortByDate:
			return memes[i].CreatedTime().After(memes[j].CreatedTime())
		case core.SortByComments:
			return len(memes[i].Comments) > len(memes[j].Comments)
		default: // likes
			return memes[i].LikeCount > memes[j].LikeCount
		}
	})
}

// IncrementPage advances the page counter. The caller is responsible for
// issuing the matching fetch; the store never fetches.
func (s *Store) IncrementPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query.CurrentPage++
	return s.query.CurrentPage
}

// SetFocused replaces the record under detailed view wholesale. The store
// keeps its own copy, independent of any collection entry.
func (s *Store) SetFocused(m core.Meme) {
	clone := m.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = &clone
}

// ToggleLike flips membership of id in the liked set, writes the whole set
// through to the preference store and adjusts the like count on every
// denormalized copy of the record. The delta follows the resulting
// membership: +1 when the id becomes liked, -1 when it stops being liked.
func (s *Store) ToggleLike(ctx context.Context, id string) bool {
	s.mu.Lock()

	liked := !s.likedIDs[id]
	if liked {
		s.likedIDs[id] = true
	} else {
		delete(s.likedIDs, id)
	}

	delta := -1
	if liked {
		delta = 1
	}
	if s.focused != nil && s.focused.ID == id {
		s.focused.LikeCount += delta
	}
	bumpLikes(s.explorable, id, delta)
	bumpLikes(s.trending, id, delta)

	serialized := s.serializeLikedLocked()
	s.mu.Unlock()

	// Write-through outside the lock; the preference store is slow storage
	// and the in-memory state is already consistent.
	if err := s.prefs.Set(ctx, core.LikedMemesKey, serialized); err != nil {
		logrus.WithError(err).WithField("meme_id", id).Warn("failed to persist liked memes")
	}
	return liked
}

func (s *Store) serializeLikedLocked() string {
	ids := make([]string, 0, len(s.likedIDs))
	for id := range s.likedIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	data, _ := json.Marshal(ids)
	return string(data)
}

func bumpLikes(memes []core.Meme, id string, delta int) {
	for i := range memes {
		if memes[i].ID == id {
			memes[i].LikeCount += delta
		}
	}
}

// AddComment appends the comment to every copy of the target record: the
// focused record when its id matches, and any matching entries in the
// explorable and trending collections. Each copy's comment sequence stays
// independent.
func (s *Store) AddComment(memeID string, comment core.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.focused != nil && s.focused.ID == memeID {
		s.focused.Comments = append(s.focused.Comments, comment)
	}
	appendComment(s.explorable, memeID, comment)
	appendComment(s.trending, memeID, comment)
}

func appendComment(memes []core.Meme, id string, comment core.Comment) {
	for i := range memes {
		if memes[i].ID == id {
			memes[i].Comments = append(memes[i].Comments, comment)
		}
	}
}

// AddUserMeme prepends a locally created record to the user-owned
// collection, and to the explorable collection when the user is currently
// browsing the "new" category.
func (s *Store) AddUserMeme(m core.Meme) {
	if m.Comments == nil {
		m.Comments = []core.Comment{}
	}
	if m.CreatedAt == "" {
		m.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.userOwned = append([]core.Meme{m.Clone()}, s.userOwned...)
	if s.query.Category == core.CategoryNew {
		s.explorable = append([]core.Meme{m.Clone()}, s.explorable...)
	}
}

// Snapshot accessors. All of them return copies so callers can render or
// marshal without racing store mutations.

func (s *Store) Trending() []core.Meme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMemes(s.trending)
}

func (s *Store) Explorable() []core.Meme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMemes(s.explorable)
}

func (s *Store) UserOwned() []core.Meme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneMemes(s.userOwned)
}

// Focused returns the record under detailed view, or false when none is
// set.
func (s *Store) Focused() (core.Meme, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focused == nil {
		return core.Meme{}, false
	}
	return s.focused.Clone(), true
}

func (s *Store) Query() Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// LikedIDs returns the liked set as a sorted slice.
func (s *Store) LikedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.likedIDs))
	for id := range s.likedIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) IsLiked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likedIDs[id]
}

// FindByID searches every collection for a record with the given id,
// user-owned first since those never exist upstream.
func (s *Store) FindByID(id string) (core.Meme, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, set := range [][]core.Meme{s.userOwned, s.explorable, s.trending} {
		for i := range set {
			if set[i].ID == id {
				return set[i].Clone(), true
			}
		}
	}
	return core.Meme{}, false
}

func cloneMemes(memes []core.Meme) []core.Meme {
	out := make([]core.Meme, len(memes))
	for i := range memes {
		out[i] = memes[i].Clone()
	}
	return out
}
