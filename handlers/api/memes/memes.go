package memes

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"memeverse/catalog"
	"memeverse/core"
	"memeverse/middleware"
	"memeverse/state"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Catalog is the slice of the remote catalog client the browsing handlers
// need. Fetch failures are degraded to empty results here; the state store
// never sees an error.
type Catalog interface {
	Trending(ctx context.Context) ([]core.Meme, error)
	ByCategory(ctx context.Context, category string, page int) ([]core.Meme, error)
	Search(ctx context.Context, term string, page int) ([]core.Meme, error)
	ByID(ctx context.Context, id string) (*core.Meme, error)
}

// EventSink receives interaction events for the live feed. A nil sink
// disables broadcasting.
type EventSink interface {
	MemeLiked(memeID string, likeCount int, liked bool)
	MemeCommented(memeID string, comment core.Comment)
}

type listResponse struct {
	Memes    []core.Meme `json:"memes"`
	Query    state.Query `json:"query"`
	LikedIDs []string    `json:"likedIds"`
}

// HandleTrending refreshes the trending collection from the catalog and
// returns its current contents. A failed fetch keeps whatever was loaded
// before.
func HandleTrending(st *state.Store, cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fetched, err := cat.Trending(r.Context())
		if err != nil {
			logrus.WithError(err).Warn("Failed to fetch trending memes")
		} else {
			st.ReplaceTrending(fetched)
		}

		render.JSON(w, r, listResponse{
			Memes:    st.Trending(),
			Query:    st.Query(),
			LikedIDs: st.LikedIDs(),
		})
	}
}

// HandleExplore drives the paginated explorable collection. Category,
// search and sort parameters are applied first (changing the filter
// invalidates accumulated pages), then the current page is fetched and
// appended. The page parameter advances the cursor forward; it never
// rewinds.
func HandleExplore(st *state.Store, cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := st.Query()

		if category := r.URL.Query().Get("category"); category != "" && category != q.Category {
			st.SetCategory(category)
		}
		if r.URL.Query().Has("search") {
			if term := r.URL.Query().Get("search"); term != q.SearchTerm {
				st.SetSearchTerm(term)
			}
		}
		if sortBy := r.URL.Query().Get("sort"); sortBy != "" && sortBy != q.SortBy {
			switch sortBy {
			case core.SortByLikes, core.SortByDate, core.SortByComments:
				st.SetSortBy(sortBy)
			default:
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, map[string]string{"error": "sort must be one of likes, date, comments"})
				return
			}
		}

		q = st.Query()
		if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
			for q.CurrentPage < page {
				q.CurrentPage = st.IncrementPage()
			}
		}

		if q.HasMore {
			generation := st.Generation()
			fetched, err := fetchPage(r.Context(), cat, q)
			if err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"category": q.Category,
					"search":   q.SearchTerm,
					"page":     q.CurrentPage,
				}).Warn("Failed to fetch explorable page")
			} else {
				st.AppendExplorable(fetched, q.Category, generation)
			}
		}

		render.JSON(w, r, listResponse{
			Memes:    st.Explorable(),
			Query:    st.Query(),
			LikedIDs: st.LikedIDs(),
		})
	}
}

func fetchPage(ctx context.Context, cat Catalog, q state.Query) ([]core.Meme, error) {
	if q.SearchTerm != "" {
		return cat.Search(ctx, q.SearchTerm, q.CurrentPage)
	}
	return cat.ByCategory(ctx, q.Category, q.CurrentPage)
}

type memeResponse struct {
	Meme  core.Meme `json:"meme"`
	Liked bool      `json:"liked"`
}

// HandleGet looks a meme up by id, preferring copies already held in a
// collection (they carry accumulated likes and comments) over a fresh
// catalog lookup, and makes it the focused record.
func HandleGet(st *state.Store, cat Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Meme id is required"})
			return
		}

		meme, ok := st.FindByID(id)
		if !ok {
			fetched, err := cat.ByID(r.Context(), id)
			if err != nil {
				if err != catalog.ErrNotFound {
					logrus.WithError(err).WithField("meme_id", id).Warn("Failed to fetch meme")
				}
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "Meme not found"})
				return
			}
			meme = *fetched
		}

		st.SetFocused(meme)
		focused, _ := st.Focused()
		render.JSON(w, r, memeResponse{Meme: focused, Liked: st.IsLiked(id)})
	}
}

type likeResponse struct {
	ID        string `json:"id"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"likes"`
}

// HandleLike toggles the caller's like on a meme and fans the count change
// out to every collection copy.
func HandleLike(st *state.Store, events EventSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Meme id is required"})
			return
		}

		liked := st.ToggleLike(r.Context(), id)

		likeCount := 0
		if meme, ok := st.FindByID(id); ok {
			likeCount = meme.LikeCount
		} else if focused, ok := st.Focused(); ok && focused.ID == id {
			likeCount = focused.LikeCount
		}

		if events != nil {
			events.MemeLiked(id, likeCount, liked)
		}
		render.JSON(w, r, likeResponse{ID: id, Liked: liked, LikeCount: likeCount})
	}
}

type commentRequest struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// HandleComment validates and appends a comment to every copy of the
// target meme. The author is the authenticated login when a token is
// present, otherwise the name supplied in the body.
func HandleComment(st *state.Store, events EventSink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Meme id is required"})
			return
		}

		var req commentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid JSON in request body"})
			return
		}

		text := strings.TrimSpace(req.Text)
		if text == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Comment text is required"})
			return
		}
		if len(text) > core.MaxCommentLength {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Comment text must be at most 500 characters"})
			return
		}

		if _, ok := st.FindByID(id); !ok {
			if focused, ok := st.Focused(); !ok || focused.ID != id {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "Meme not found"})
				return
			}
		}

		author := req.Author
		if claims := middleware.ClaimsFrom(r.Context()); claims != nil {
			author = claims.Login
		}
		if author == "" {
			author = "Anonymous"
		}

		comment := core.Comment{
			ID:        ulid.Make().String(),
			Text:      text,
			Author:    author,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		st.AddComment(id, comment)

		if events != nil {
			events.MemeCommented(id, comment)
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, comment)
	}
}

// HandleUserMemes returns the locally created collection, newest first.
func HandleUserMemes(st *state.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"memes":    st.UserOwned(),
			"likedIds": st.LikedIDs(),
		})
	}
}

// HandleLeaderboard ranks the most liked memes across every collection.
// When the same id shows up in several collections, the copy with the
// highest like count represents it.
func HandleLeaderboard(st *state.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
			limit = n
		}

		best := make(map[string]core.Meme)
		order := make([]string, 0)
		for _, set := range [][]core.Meme{st.Trending(), st.Explorable(), st.UserOwned()} {
			for _, m := range set {
				current, seen := best[m.ID]
				if !seen {
					order = append(order, m.ID)
				}
				if !seen || m.LikeCount > current.LikeCount {
					best[m.ID] = m
				}
			}
		}

		ranked := make([]core.Meme, 0, len(order))
		for _, id := range order {
			ranked = append(ranked, best[id])
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].LikeCount > ranked[j].LikeCount
		})
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}

		render.JSON(w, r, map[string]any{"memes": ranked})
	}
}
