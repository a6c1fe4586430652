package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"memeverse/core"
)

// Mock preference store recording every write.
type mockPrefs struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
}

func newMockPrefs() *mockPrefs {
	return &mockPrefs{values: make(map[string]string)}
}

func (m *mockPrefs) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return "", fmt.Errorf("preference %s not found", key)
	}
	return value, nil
}

func (m *mockPrefs) Set(ctx context.Context, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}

func newTestStore(t *testing.T) (*Store, *mockPrefs) {
	t.Helper()
	prefs := newMockPrefs()
	return New(context.Background(), prefs), prefs
}

func meme(id string, likes int) core.Meme {
	return core.Meme{
		ID:        id,
		Name:      "meme " + id,
		URL:       "https://example.com/" + id + ".jpg",
		LikeCount: likes,
	}
}

func TestNew_Defaults(t *testing.T) {
	st, _ := newTestStore(t)

	q := st.Query()
	if q.Category != core.CategoryTrending {
		t.Errorf("default category: got %q, want %q", q.Category, core.CategoryTrending)
	}
	if q.SortBy != core.SortByLikes {
		t.Errorf("default sortBy: got %q, want %q", q.SortBy, core.SortByLikes)
	}
	if q.CurrentPage != 1 {
		t.Errorf("default currentPage: got %d, want 1", q.CurrentPage)
	}
	if !q.HasMore {
		t.Error("default hasMore should be true")
	}
	if len(st.LikedIDs()) != 0 {
		t.Errorf("liked ids should start empty, got %v", st.LikedIDs())
	}
}

func TestNew_LoadsPersistedLikes(t *testing.T) {
	prefs := newMockPrefs()
	prefs.values[core.LikedMemesKey] = `["a","b"]`

	st := New(context.Background(), prefs)

	if !st.IsLiked("a") || !st.IsLiked("b") {
		t.Errorf("persisted likes not loaded: %v", st.LikedIDs())
	}
	if st.IsLiked("c") {
		t.Error("unexpected liked id c")
	}
}

func TestNew_CorruptPersistedLikes(t *testing.T) {
	prefs := newMockPrefs()
	prefs.values[core.LikedMemesKey] = `{not json`

	st := New(context.Background(), prefs)

	if len(st.LikedIDs()) != 0 {
		t.Errorf("corrupt persisted likes should start empty, got %v", st.LikedIDs())
	}
}

func TestReplaceTrending_Replaces(t *testing.T) {
	st, _ := newTestStore(t)

	st.ReplaceTrending([]core.Meme{meme("a", 5), meme("b", 3)})
	st.ReplaceTrending([]core.Meme{meme("c", 1)})

	trending := st.Trending()
	if len(trending) != 1 || trending[0].ID != "c" {
		t.Errorf("ReplaceTrending should replace wholesale, got %v", trending)
	}
}

func TestReplaceTrending_Normalizes(t *testing.T) {
	st, _ := newTestStore(t)

	st.ReplaceTrending([]core.Meme{{ID: "a", Name: "no extras"}})

	m := st.Trending()[0]
	if m.Comments == nil {
		t.Error("normalize should fill an empty comments slice")
	}
	if m.CreatedAt == "" {
		t.Error("normalize should stamp createdAt")
	}
}

func TestReplaceTrending_SeedsLikeCounts(t *testing.T) {
	st, _ := newTestStore(t)
	input := make([]core.Meme, 8)
	for i := range input {
		input[i] = core.Meme{ID: fmt.Sprintf("m%d", i)}
	}

	st.ReplaceTrending(input)

	// Seeded counts come from [0,1000); all eight landing on zero would
	// mean seeding never ran.
	total := 0
	for _, m := range st.Trending() {
		total += m.LikeCount
	}
	if total == 0 {
		t.Error("like counts were not seeded")
	}
}

func TestReplaceTrending_DropsRecordsWithoutID(t *testing.T) {
	st, _ := newTestStore(t)

	st.ReplaceTrending([]core.Meme{{Name: "orphan"}, meme("a", 1)})

	trending := st.Trending()
	if len(trending) != 1 || trending[0].ID != "a" {
		t.Errorf("records missing an id must be excluded, got %v", trending)
	}
}

func TestAppendExplorable_Appends(t *testing.T) {
	st, _ := newTestStore(t)
	gen := st.Generation()

	st.AppendExplorable([]core.Meme{meme("a", 1)}, core.CategoryTrending, gen)
	st.AppendExplorable([]core.Meme{meme("b", 2)}, core.CategoryTrending, gen)

	got := st.Explorable()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("append should preserve the existing prefix, got %v", got)
	}
}

func TestAppendExplorable_TagsCategory(t *testing.T) {
	st, _ := newTestStore(t)

	st.AppendExplorable([]core.Meme{meme("a", 1)}, core.CategoryClassic, st.Generation())

	if got := st.Explorable()[0].Category; got != core.CategoryClassic {
		t.Errorf("category tag: got %q, want %q", got, core.CategoryClassic)
	}
}

func TestAppendExplorable_EmptyPageEndsList(t *testing.T) {
	st, _ := newTestStore(t)
	gen := st.Generation()
	st.AppendExplorable([]core.Meme{meme("a", 1)}, core.CategoryTrending, gen)

	st.AppendExplorable(nil, core.CategoryTrending, gen)

	if st.Query().HasMore {
		t.Error("empty page should set hasMore to false")
	}
	if got := st.Explorable(); len(got) != 1 {
		t.Errorf("empty page should leave explorable unchanged, got %v", got)
	}
}

func TestAppendExplorable_KeepsDuplicateIDs(t *testing.T) {
	st, _ := newTestStore(t)
	gen := st.Generation()

	st.AppendExplorable([]core.Meme{meme("a", 1)}, core.CategoryTrending, gen)
	st.AppendExplorable([]core.Meme{meme("a", 1)}, core.CategoryTrending, gen)

	if got := st.Explorable(); len(got) != 2 {
		t.Errorf("duplicate ids across pages are passed through, got %d records", len(got))
	}
}

func TestAppendExplorable_DropsStaleGeneration(t *testing.T) {
	st, _ := newTestStore(t)
	gen := st.Generation()

	// The query state changes while the page is in flight.
	st.SetCategory(core.CategoryClassic)
	st.AppendExplorable([]core.Meme{meme("a", 1)}, core.CategoryTrending, gen)

	if got := st.Explorable(); len(got) != 0 {
		t.Errorf("stale page must be discarded, got %v", got)
	}
	if !st.Query().HasMore {
		t.Error("stale page must not touch hasMore")
	}
}

func TestSetCategory_InvalidatesPages(t *testing.T) {
	st, _ := newTestStore(t)
	gen := st.Generation()
	st.AppendExplorable([]core.Meme{meme("a", 1), meme("b", 2)}, core.CategoryTrending, gen)
	st.IncrementPage()
	st.IncrementPage()
	st.AppendExplorable(nil, core.CategoryTrending, gen)

	st.SetCategory(core.CategoryClassic)

	q := st.Query()
	if q.Category != core.CategoryClassic {
		t.Errorf("category: got %q, want %q", q.Category, core.CategoryClassic)
	}
	if q.CurrentPage != 1 {
		t.Errorf("currentPage must reset to 1, got %d", q.CurrentPage)
	}
	if !q.HasMore {
		t.Error("hasMore must reset to true")
	}
	if got := st.Explorable(); len(got) != 0 {
		t.Errorf("explorable must be cleared, got %v", got)
	}
}

func TestSetSearchTerm_InvalidatesPages(t *testing.T) {
	st, _ := newTestStore(t)
	gen := st.Generation()
	for i := 0; i < 20; i++ {
		st.AppendExplorable([]core.Meme{meme(fmt.Sprintf("m%d", i), i+1)}, core.CategoryTrending, gen)
	}
	st.IncrementPage()
	st.IncrementPage()

	st.SetSearchTerm("cat")

	q := st.Query()
	if q.SearchTerm != "cat" {
		t.Errorf("searchTerm: got %q, want %q", q.SearchTerm, "cat")
	}
	if q.CurrentPage != 1 || !q.HasMore {
		t.Errorf("query must reset: page=%d hasMore=%v", q.CurrentPage, q.HasMore)
	}
	if got := st.Explorable(); len(got) != 0 {
		t.Errorf("explorable must be cleared, got %d records", len(got))
	}
}

func TestSetSortBy_Likes_StableDescending(t *testing.T) {
	st, _ := newTestStore(t)
	st.AppendExplorable([]core.Meme{
		meme("a", 5),
		meme("b", 5),
		meme("c", 9),
	}, core.CategoryTrending, st.Generation())

	st.SetSortBy(core.SortByLikes)

	got := st.Explorable()
	wantOrder := []string{"c", "a", "b"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Fatalf("sort by likes: position %d got %q, want %q (full order %v)", i, got[i].ID, want, ids(got))
		}
	}
}

func TestSetSortBy_Date(t *testing.T) {
	st, _ := newTestStore(t)
	older := meme("old", 1)
	older.CreatedAt = "2024-01-01T00:00:00Z"
	newer := meme("new", 1)
	newer.CreatedAt = "2025-06-01T00:00:00Z"
	undated := meme("undated", 1)
	undated.CreatedAt = "not a timestamp"
	st.AppendExplorable([]core.Meme{older, undated, newer}, core.CategoryTrending, st.Generation())

	st.SetSortBy(core.SortByDate)

	got := ids(st.Explorable())
	// Unparsable timestamps sort as the earliest instant, after every
	// dated record.
	want := []string{"new", "old", "undated"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sort by date: got %v, want %v", got, want)
		}
	}
}

func TestSetSortBy_Comments(t *testing.T) {
	st, _ := newTestStore(t)
	chatty := meme("chatty", 1)
	chatty.Comments = []core.Comment{{ID: "1"}, {ID: "2"}}
	quiet := meme("quiet", 1)
	st.AppendExplorable([]core.Meme{quiet, chatty}, core.CategoryTrending, st.Generation())

	st.SetSortBy(core.SortByComments)

	got := ids(st.Explorable())
	if got[0] != "chatty" || got[1] != "quiet" {
		t.Errorf("sort by comments: got %v", got)
	}
}

func TestSetSortBy_ReordersTrendingToo(t *testing.T) {
	st, _ := newTestStore(t)
	st.ReplaceTrending([]core.Meme{meme("low", 1), meme("high", 10)})

	st.SetSortBy(core.SortByLikes)

	if got := ids(st.Trending()); got[0] != "high" {
		t.Errorf("trending must be re-sorted: got %v", got)
	}
}

func TestSetSortBy_LeavesUserOwnedAlone(t *testing.T) {
	st, _ := newTestStore(t)
	st.AddUserMeme(meme("first", 1))
	st.AddUserMeme(meme("second", 100))

	st.SetSortBy(core.SortByLikes)

	got := ids(st.UserOwned())
	if got[0] != "second" || got[1] != "first" {
		t.Errorf("userOwned keeps newest-first order, got %v", got)
	}
}

func TestToggleLike_SelfInverse(t *testing.T) {
	st, prefs := newTestStore(t)
	ctx := context.Background()
	st.ReplaceTrending([]core.Meme{meme("m1", 5)})
	st.AppendExplorable([]core.Meme{meme("m1", 5)}, core.CategoryTrending, st.Generation())
	st.SetFocused(meme("m1", 5))

	if liked := st.ToggleLike(ctx, "m1"); !liked {
		t.Fatal("first toggle should like")
	}
	if liked := st.ToggleLike(ctx, "m1"); liked {
		t.Fatal("second toggle should unlike")
	}

	if st.IsLiked("m1") {
		t.Error("double toggle must leave the id unliked")
	}
	if got := st.Trending()[0].LikeCount; got != 5 {
		t.Errorf("trending like count must return to 5, got %d", got)
	}
	if got := st.Explorable()[0].LikeCount; got != 5 {
		t.Errorf("explorable like count must return to 5, got %d", got)
	}
	if focused, _ := st.Focused(); focused.LikeCount != 5 {
		t.Errorf("focused like count must return to 5, got %d", focused.LikeCount)
	}

	var persisted []string
	if err := json.Unmarshal([]byte(prefs.values[core.LikedMemesKey]), &persisted); err != nil {
		t.Fatalf("persisted liked set is not valid JSON: %v", err)
	}
	if len(persisted) != 0 {
		t.Errorf("persisted liked set must be empty after double toggle, got %v", persisted)
	}
}

func TestToggleLike_FansOutToEveryCopy(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	st.ReplaceTrending([]core.Meme{meme("m1", 10)})
	st.AppendExplorable([]core.Meme{meme("m1", 10), meme("other", 3)}, core.CategoryTrending, st.Generation())
	st.SetFocused(meme("m1", 10))

	st.ToggleLike(ctx, "m1")

	if got := st.Trending()[0].LikeCount; got != 11 {
		t.Errorf("trending copy: got %d, want 11", got)
	}
	if got := st.Explorable()[0].LikeCount; got != 11 {
		t.Errorf("explorable copy: got %d, want 11", got)
	}
	if got := st.Explorable()[1].LikeCount; got != 3 {
		t.Errorf("unrelated record must not change, got %d", got)
	}
	if focused, _ := st.Focused(); focused.LikeCount != 11 {
		t.Errorf("focused copy: got %d, want 11", focused.LikeCount)
	}
}

func TestToggleLike_PersistsWriteThrough(t *testing.T) {
	st, prefs := newTestStore(t)
	ctx := context.Background()

	st.ToggleLike(ctx, "x")

	var persisted []string
	if err := json.Unmarshal([]byte(prefs.values[core.LikedMemesKey]), &persisted); err != nil {
		t.Fatalf("persisted liked set is not valid JSON: %v", err)
	}
	if len(persisted) != 1 || persisted[0] != "x" {
		t.Errorf("persisted set: got %v, want [x]", persisted)
	}

	st.ToggleLike(ctx, "x")
	if err := json.Unmarshal([]byte(prefs.values[core.LikedMemesKey]), &persisted); err != nil {
		t.Fatalf("persisted liked set is not valid JSON: %v", err)
	}
	if len(persisted) != 0 {
		t.Errorf("persisted set after unlike: got %v, want empty", persisted)
	}
}

func TestToggleLike_SurvivesPersistenceFailure(t *testing.T) {
	prefs := newMockPrefs()
	prefs.setErr = fmt.Errorf("disk full")
	st := New(context.Background(), prefs)

	if liked := st.ToggleLike(context.Background(), "m1"); !liked {
		t.Error("toggle must apply in memory even when persistence fails")
	}
	if !st.IsLiked("m1") {
		t.Error("in-memory liked set must hold the id")
	}
}

func TestAddComment_FansOut(t *testing.T) {
	st, _ := newTestStore(t)
	st.ReplaceTrending([]core.Meme{meme("m1", 1)})
	st.AppendExplorable([]core.Meme{meme("m1", 1)}, core.CategoryTrending, st.Generation())
	st.SetFocused(meme("m1", 1))

	c := core.Comment{ID: "c1", Text: "nice", Author: "tester", CreatedAt: "2025-01-01T00:00:00Z"}
	st.AddComment("m1", c)

	checkLast := func(name string, comments []core.Comment) {
		t.Helper()
		if len(comments) == 0 || comments[len(comments)-1].ID != "c1" {
			t.Errorf("%s copy is missing the comment: %v", name, comments)
		}
	}
	checkLast("trending", st.Trending()[0].Comments)
	checkLast("explorable", st.Explorable()[0].Comments)
	focused, _ := st.Focused()
	checkLast("focused", focused.Comments)
}

func TestAddComment_CopiesAreIndependent(t *testing.T) {
	st, _ := newTestStore(t)
	st.ReplaceTrending([]core.Meme{meme("m1", 1)})
	st.AppendExplorable([]core.Meme{meme("m1", 1)}, core.CategoryTrending, st.Generation())

	st.AddComment("m1", core.Comment{ID: "c1", Text: "first"})

	// Mutating one snapshot's comment slice must not leak into another.
	trending := st.Trending()
	trending[0].Comments[0].Text = "tampered"

	if got := st.Explorable()[0].Comments[0].Text; got != "first" {
		t.Errorf("explorable copy was affected by trending mutation: %q", got)
	}
	if got := st.Trending()[0].Comments[0].Text; got != "first" {
		t.Errorf("store-held trending copy was affected by snapshot mutation: %q", got)
	}
}

func TestAddComment_UnknownIDIsNoOp(t *testing.T) {
	st, _ := newTestStore(t)
	st.ReplaceTrending([]core.Meme{meme("m1", 1)})

	st.AddComment("missing", core.Comment{ID: "c1", Text: "void"})

	if got := st.Trending()[0].Comments; len(got) != 0 {
		t.Errorf("unrelated record must not gain comments, got %v", got)
	}
}

func TestAddUserMeme_PrependsNewestFirst(t *testing.T) {
	st, _ := newTestStore(t)

	st.AddUserMeme(meme("first", 1))
	st.AddUserMeme(meme("second", 1))

	got := ids(st.UserOwned())
	if got[0] != "second" || got[1] != "first" {
		t.Errorf("userOwned order: got %v, want [second first]", got)
	}
}

func TestAddUserMeme_PrependsToExplorableInNewCategory(t *testing.T) {
	st, _ := newTestStore(t)
	st.SetCategory(core.CategoryNew)
	st.AppendExplorable([]core.Meme{meme("existing", 1)}, core.CategoryNew, st.Generation())

	st.AddUserMeme(meme("fresh", 1))

	got := ids(st.Explorable())
	if got[0] != "fresh" {
		t.Errorf("fresh upload should lead explorable in the new category, got %v", got)
	}
}

func TestAddUserMeme_SkipsExplorableInOtherCategories(t *testing.T) {
	st, _ := newTestStore(t)
	st.SetCategory(core.CategoryClassic)

	st.AddUserMeme(meme("fresh", 1))

	if got := st.Explorable(); len(got) != 0 {
		t.Errorf("upload must not enter explorable outside the new category, got %v", got)
	}
}

func TestIncrementPage(t *testing.T) {
	st, _ := newTestStore(t)

	if got := st.IncrementPage(); got != 2 {
		t.Errorf("IncrementPage: got %d, want 2", got)
	}
	if got := st.Query().CurrentPage; got != 2 {
		t.Errorf("currentPage: got %d, want 2", got)
	}
}

func TestFindByID_PrefersUserOwned(t *testing.T) {
	st, _ := newTestStore(t)
	st.ReplaceTrending([]core.Meme{meme("m1", 5)})
	owned := meme("m1", 99)
	owned.Author = "me"
	st.AddUserMeme(owned)

	got, ok := st.FindByID("m1")
	if !ok {
		t.Fatal("FindByID should find the record")
	}
	if got.Author != "me" {
		t.Errorf("user-owned copy should win, got author %q", got.Author)
	}
}

func TestFindByID_Missing(t *testing.T) {
	st, _ := newTestStore(t)

	if _, ok := st.FindByID("nope"); ok {
		t.Error("FindByID must report missing ids")
	}
}

func TestSetFocused_IndependentCopy(t *testing.T) {
	st, _ := newTestStore(t)
	m := meme("m1", 5)
	m.Comments = []core.Comment{{ID: "c1", Text: "original"}}

	st.SetFocused(m)
	m.Comments[0].Text = "tampered"

	focused, ok := st.Focused()
	if !ok {
		t.Fatal("focused record should be set")
	}
	if focused.Comments[0].Text != "original" {
		t.Errorf("focused record must be an independent copy, got %q", focused.Comments[0].Text)
	}
}

func ids(memes []core.Meme) []string {
	out := make([]string, len(memes))
	for i, m := range memes {
		out[i] = m.ID
	}
	return out
}
