package listcache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/gateway"
	"resumeBuilder/internal/resume"
)

type listGateway struct {
	gateway.Gateway
	recs []gateway.Record
	err  error

	// started/gate 让测试在 List 返回前插入补丁
	started chan struct{}
	gate    chan struct{}
}

func (g *listGateway) List(_ context.Context, _, _ string) ([]gateway.Record, error) {
	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.gate != nil {
		<-g.gate
	}
	return g.recs, g.err
}

type memSnapshot struct {
	items map[string][]resume.ListItem
	saves int
	err   error
}

func (s *memSnapshot) Save(_ context.Context, owner string, items []resume.ListItem) error {
	s.saves++
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = map[string][]resume.ListItem{}
	}
	s.items[owner] = items
	return nil
}

func (s *memSnapshot) Load(_ context.Context, owner string) ([]resume.ListItem, error) {
	items, ok := s.items[owner]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return items, nil
}

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func record(t *testing.T, id, title string, updated time.Time) gateway.Record {
	t.Helper()
	doc := resume.NewDocument()
	doc.Title = title
	body, err := resume.EncodeBody(doc)
	require.NoError(t, err)
	return gateway.Record{ID: id, Body: body, CreatedAt: updated, LastUpdated: updated}
}

func item(id, title string, updated time.Time) resume.ListItem {
	return resume.ListItem{ID: id, Title: title, LastUpdated: updated}
}

func TestLoad_ReplacesItems(t *testing.T) {
	gw := &listGateway{recs: []gateway.Record{
		record(t, "a", "Alpha", base),
		{ID: "broken", Body: json.RawMessage(`not json`)},
		record(t, "b", "Beta", base.Add(time.Hour)),
	}}
	c := New(gw, "users/u1/resumes", "u1", Options{})

	require.NoError(t, c.Load(context.Background()))

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "Beta", items[1].Title)
	assert.Equal(t, base.Add(time.Hour), items[1].LastUpdated)
	assert.True(t, c.Loaded())
}

func TestLoad_FailureKeepsCachedItems(t *testing.T) {
	gw := &listGateway{recs: []gateway.Record{record(t, "a", "Alpha", base)}}
	c := New(gw, "c", "u1", Options{})
	require.NoError(t, c.Load(context.Background()))

	gw.err = errors.New("unavailable")
	err := c.Load(context.Background())

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.True(t, loadErr.Retryable())
	assert.Len(t, c.Items(), 1)
}

func TestLoad_ColdFailureHydratesFromSnapshot(t *testing.T) {
	snap := &memSnapshot{items: map[string][]resume.ListItem{"u1": {item("s", "Snap", base)}}}
	gw := &listGateway{err: errors.New("unavailable")}
	c := New(gw, "c", "u1", Options{Snapshot: snap})

	err := c.Load(context.Background())

	assert.Error(t, err)
	require.Len(t, c.Items(), 1)
	assert.Equal(t, "s", c.Items()[0].ID)
	assert.True(t, c.Loaded())
}

func TestLoad_WritesSnapshot(t *testing.T) {
	snap := &memSnapshot{}
	gw := &listGateway{recs: []gateway.Record{record(t, "a", "Alpha", base)}}
	c := New(gw, "c", "u1", Options{Snapshot: snap})

	require.NoError(t, c.Load(context.Background()))
	assert.Len(t, snap.items["u1"], 1)
	assert.Equal(t, 1, snap.saves)

	// nothing changed since
	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, 1, snap.saves)

	c.Remove("a")
	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, 2, snap.saves)
	assert.Empty(t, snap.items["u1"])
}

func TestLoad_KeepsPatchesAppliedDuringListing(t *testing.T) {
	gw := &listGateway{
		recs: []gateway.Record{
			record(t, "a", "Alpha", base),
			record(t, "gone", "Deleted", base),
			record(t, "fav", "Fav", base),
		},
		started: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	c := New(gw, "c", "u1", Options{})

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()
	<-gw.started

	c.Insert(item("new-doc", "Fresh", base.Add(time.Hour)))
	c.Replace(item("a", "Alpha v2", base.Add(time.Hour)))
	c.Remove("gone")
	c.SetFavorite("fav", true)
	close(gw.gate)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"new-doc", "a", "fav"}, ids(c.Items()))
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "Alpha v2", got.Title)
	got, _ = c.Get("fav")
	assert.True(t, got.Favorite)

	// the journal only lives for the load
	gw.started, gw.gate = nil, nil
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, []string{"a", "gone", "fav"}, ids(c.Items()))
}

func TestLoad_ColdFailureKeepsPatchedItems(t *testing.T) {
	snap := &memSnapshot{items: map[string][]resume.ListItem{"u1": {item("s", "Snap", base)}}}
	gw := &listGateway{err: errors.New("unavailable")}
	c := New(gw, "c", "u1", Options{Snapshot: snap})
	c.Insert(item("new-doc", "Fresh", base))

	assert.Error(t, c.Load(context.Background()))
	assert.Equal(t, []string{"new-doc", "s"}, ids(c.Items()))
}

func TestFlush_FailureKeepsDirty(t *testing.T) {
	snap := &memSnapshot{err: errors.New("redis down")}
	gw := &listGateway{}
	c := New(gw, "c", "u1", Options{Snapshot: snap})
	require.NoError(t, c.Load(context.Background()))
	require.Equal(t, 1, snap.saves)

	assert.Error(t, c.Flush(context.Background()))
	assert.Equal(t, 2, snap.saves)
}

func TestPatchOperations(t *testing.T) {
	c := New(&listGateway{}, "c", "u1", Options{})

	c.Insert(item("a", "A", base))
	c.Insert(item("b", "B", base))
	assert.Equal(t, []string{"b", "a"}, ids(c.Items()))

	c.Replace(item("a", "A2", base.Add(time.Minute)))
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A2", got.Title)
	assert.Len(t, c.Items(), 2)

	c.Replace(item("c", "C", base))
	assert.Equal(t, []string{"c", "b", "a"}, ids(c.Items()))

	assert.True(t, c.SetFavorite("b", true))
	assert.False(t, c.SetFavorite("zzz", true))

	assert.True(t, c.Remove("c"))
	assert.False(t, c.Remove("c"))
	assert.Equal(t, []string{"b", "a"}, ids(c.Items()))
	assert.False(t, c.Loaded())
}

func TestView(t *testing.T) {
	c := New(&listGateway{}, "c", "u1", Options{})
	now := base
	c.Insert(item("old", "zeta", now.Add(-30*24*time.Hour)))
	c.Insert(item("new", "Alpha", now.Add(-time.Hour)))
	fav := item("fav", "beta", now.Add(-8*24*time.Hour))
	fav.Favorite = true
	c.Insert(fav)

	assert.Equal(t, []string{"new", "fav", "old"}, ids(c.View(SortByDate, FilterAll, now)))
	assert.Equal(t, []string{"new", "fav", "old"}, ids(c.View(SortByName, FilterAll, now)))
	assert.Equal(t, []string{"new"}, ids(c.View(SortByDate, FilterRecent, now)))
	assert.Equal(t, []string{"fav"}, ids(c.View(SortByDate, FilterFavorites, now)))

	// view is derived, the cache order is untouched
	assert.Equal(t, []string{"fav", "new", "old"}, ids(c.Items()))
}

func TestView_CustomRecentWindow(t *testing.T) {
	c := New(&listGateway{}, "c", "u1", Options{RecentWindow: 10 * 24 * time.Hour})
	c.Insert(item("a", "A", base.Add(-8*24*time.Hour)))

	assert.Len(t, c.View(SortByDate, FilterRecent, base), 1)
}

func TestParseSortAndFilter(t *testing.T) {
	s, err := ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, SortByDate, s)
	s, err = ParseSort("NAME")
	require.NoError(t, err)
	assert.Equal(t, SortByName, s)
	_, err = ParseSort("size")
	assert.Error(t, err)

	f, err := ParseFilter("favorites")
	require.NoError(t, err)
	assert.Equal(t, FilterFavorites, f)
	_, err = ParseFilter("archived")
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	c := New(&listGateway{}, "c", "u1", Options{})
	a := item("a", "Backend CV", base)
	a.Personal.JobTitle = "Go Engineer"
	b := item("b", "Design", base.Add(time.Hour))
	b.Personal.FirstName, b.Personal.LastName = "Jane", "Doe"
	c.Insert(a)
	c.Insert(b)

	assert.Equal(t, []string{"a"}, ids(c.Search("go eng")))
	assert.Equal(t, []string{"b"}, ids(c.Search("jane doe")))
	assert.Equal(t, []string{"a"}, ids(c.Search("backend")))
	assert.Equal(t, []string{"b", "a"}, ids(c.Search("  ")))
	assert.Empty(t, c.Search("nothing"))
}

func TestStats(t *testing.T) {
	c := New(&listGateway{}, "c", "u1", Options{})
	assert.Equal(t, Stats{}, c.Stats())

	for i, theme := range []string{"#fff", "#000", "#000", "#fff", "#aaa"} {
		it := item(string(rune('a'+i)), "T", base.Add(time.Duration(i)*time.Hour))
		it.ThemeColor = theme
		it.Favorite = i == 0
		c.Insert(it)
	}

	st := c.Stats()
	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 1, st.Favorites)
	assert.Equal(t, base.Add(4*time.Hour), st.LastUpdated)
	assert.Equal(t, "#000", st.MostUsedTheme)
	assert.Len(t, c.Titles(), 5)
}

type fakeKV struct {
	data map[string]string
	ttl  time.Duration
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttl = ttl
	return redis.NewStatusResult("OK", nil)
}

func TestRedisSnapshot(t *testing.T) {
	kv := &fakeKV{data: map[string]string{}}
	s := NewRedisSnapshot(kv, time.Minute)
	ctx := context.Background()

	_, err := s.Load(ctx, "u1")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, s.Save(ctx, "u1", []resume.ListItem{item("a", "A", base)}))
	assert.Equal(t, time.Minute, kv.ttl)
	assert.Contains(t, kv.data, "resume_list:u1")

	items, err := s.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Title)
	assert.True(t, base.Equal(items[0].LastUpdated))

	kv.data["resume_list:u2"] = "{"
	_, err = s.Load(ctx, "u2")
	assert.ErrorContains(t, err, "decode snapshot")
}

func ids(items []resume.ListItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
