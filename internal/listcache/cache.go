// Package listcache keeps the dashboard's summaries of one owner's resumes.
package listcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"resumeBuilder/internal/gateway"
	"resumeBuilder/internal/resume"
)

// DefaultRecentWindow 是 "recent" 过滤器的默认时间窗口。
const DefaultRecentWindow = 7 * 24 * time.Hour

// LoadError wraps a failed refresh. Cached items are kept and the caller may
// retry.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string   { return "load resume list: " + e.Err.Error() }
func (e *LoadError) Unwrap() error   { return e.Err }
func (e *LoadError) Retryable() bool { return true }

// Snapshotter persists the list between processes for fast hydration.
type Snapshotter interface {
	Save(ctx context.Context, ownerID string, items []resume.ListItem) error
	Load(ctx context.Context, ownerID string) ([]resume.ListItem, error)
}

// ErrNoSnapshot is returned by a Snapshotter with nothing stored.
var ErrNoSnapshot = errors.New("no list snapshot")

// Options 配置 Cache。
type Options struct {
	RecentWindow time.Duration
	Snapshot     Snapshotter
	Logger       *slog.Logger
}

// Cache 保存某个用户全部简历的摘要，所有修改都通过补丁操作完成。
type Cache struct {
	gw         gateway.Gateway
	collection string
	ownerID    string
	window     time.Duration
	snapshot   Snapshotter
	logger     *slog.Logger

	mu     sync.RWMutex
	items  []resume.ListItem
	loaded bool
	dirty  bool

	// seq 给每个补丁编号；加载期间的补丁记入 journal，加载结束后重放。
	seq     uint64
	loading int
	journal []journalEntry
}

type journalEntry struct {
	seq   uint64
	apply func()
}

// New 构造 Cache。
func New(gw gateway.Gateway, collection, ownerID string, opts Options) *Cache {
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = DefaultRecentWindow
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Cache{
		gw:         gw,
		collection: collection,
		ownerID:    ownerID,
		window:     opts.RecentWindow,
		snapshot:   opts.Snapshot,
		logger:     opts.Logger.With(slog.String("owner_id", ownerID)),
	}
}

// Load replaces the cached set with a full listing from the gateway. Patches
// applied while the listing is in flight are replayed on top of it. On
// failure the cached items stay untouched; a cold cache is hydrated from the
// snapshot when one exists.
func (c *Cache) Load(ctx context.Context) error {
	c.mu.Lock()
	c.loading++
	start := c.seq
	c.mu.Unlock()

	recs, err := c.gw.List(ctx, c.collection, c.ownerID)
	if err != nil {
		c.hydrate(ctx, start)
		c.mu.Lock()
		c.endLoadLocked()
		c.mu.Unlock()
		return &LoadError{Err: err}
	}

	items := make([]resume.ListItem, 0, len(recs))
	for _, rec := range recs {
		doc, err := resume.DecodeBody(rec.Body, rec.ID, rec.CreatedAt, rec.LastUpdated)
		if err != nil {
			c.logger.Warn("skip undecodable resume", slog.String("resume_id", rec.ID), slog.Any("error", err))
			continue
		}
		items = append(items, resume.ToListItem(doc))
	}

	c.mu.Lock()
	c.items = items
	c.replayLocked(start)
	c.loaded = true
	c.dirty = true
	c.endLoadLocked()
	c.mu.Unlock()

	if err := c.Flush(ctx); err != nil {
		c.logger.Warn("save list snapshot failed", slog.Any("error", err))
	}
	return nil
}

func (c *Cache) replayLocked(after uint64) {
	for _, e := range c.journal {
		if e.seq > after {
			e.apply()
		}
	}
}

func (c *Cache) endLoadLocked() {
	c.loading--
	if c.loading == 0 {
		c.journal = nil
	}
}

func (c *Cache) hydrate(ctx context.Context, start uint64) {
	if c.snapshot == nil {
		return
	}
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return
	}

	items, err := c.snapshot.Load(ctx, c.ownerID)
	if err != nil {
		if !errors.Is(err, ErrNoSnapshot) {
			c.logger.Warn("load list snapshot failed", slog.Any("error", err))
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}
	// 冷缓存里只有补丁写入的条目，叠加到快照之上
	local := c.items
	c.items = items
	for i := len(local) - 1; i >= 0; i-- {
		c.upsertLocked(local[i])
	}
	c.replayLocked(start)
	c.loaded = true
}

// Loaded reports whether the cache holds a listing.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Items returns a copy of the cached set in cache order.
func (c *Cache) Items() []resume.ListItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

// Get 返回指定 ID 的摘要。
func (c *Cache) Get(id string) (resume.ListItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	return resume.ListItem{}, false
}

// Insert puts item at the front. An existing entry with the same id is
// replaced in place.
func (c *Cache) Insert(item resume.ListItem) {
	c.upsert(item)
}

// Replace swaps the entry with the same id, inserting it when absent.
func (c *Cache) Replace(item resume.ListItem) {
	c.upsert(item)
}

func (c *Cache) upsert(item resume.ListItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patchLocked(func() bool { return c.upsertLocked(item) })
}

func (c *Cache) upsertLocked(item resume.ListItem) bool {
	if i := c.index(item.ID); i >= 0 {
		c.items[i] = item
	} else {
		c.items = slices.Insert(c.items, 0, item)
	}
	return true
}

// Remove drops the entry with id and reports whether it existed.
func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.patchLocked(func() bool {
		i := c.index(id)
		if i < 0 {
			return false
		}
		c.items = slices.Delete(c.items, i, i+1)
		return true
	})
}

// SetFavorite 修改收藏标记，条目不存在时返回 false。
func (c *Cache) SetFavorite(id string, favorite bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.patchLocked(func() bool {
		i := c.index(id)
		if i < 0 {
			return false
		}
		c.items[i].Favorite = favorite
		return true
	})
}

// patchLocked applies fn and journals it while a load is in flight. A patch
// that found nothing to change is still journaled: the entry may only exist in
// the listing being fetched.
func (c *Cache) patchLocked(fn func() bool) bool {
	changed := fn()
	c.seq++
	if changed {
		c.dirty = true
	}
	if c.loading > 0 {
		c.journal = append(c.journal, journalEntry{seq: c.seq, apply: func() { fn() }})
	}
	return changed
}

// Flush writes the snapshot when patches were applied since the last write.
func (c *Cache) Flush(ctx context.Context) error {
	if c.snapshot == nil {
		return nil
	}
	c.mu.Lock()
	if !c.dirty || !c.loaded {
		c.mu.Unlock()
		return nil
	}
	items := slices.Clone(c.items)
	c.dirty = false
	c.mu.Unlock()

	if err := c.snapshot.Save(ctx, c.ownerID, items); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// index must be called with mu held.
func (c *Cache) index(id string) int {
	return slices.IndexFunc(c.items, func(it resume.ListItem) bool { return it.ID == id })
}
