package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedGateway keeps recently read documents in process memory. Every write
// through it refreshes or evicts the cached entry.
type CachedGateway struct {
	next  Gateway
	cache *cache.Cache
}

// NewCachedGateway wraps next with a read-through cache. A non-positive ttl
// disables caching.
func NewCachedGateway(next Gateway, ttl time.Duration) *CachedGateway {
	g := &CachedGateway{next: next}
	if ttl > 0 {
		g.cache = cache.New(ttl, 2*ttl)
	}
	return g
}

func cacheKey(collection, id string) string {
	return collection + "/" + id
}

func (g *CachedGateway) Get(ctx context.Context, collection, id string) (Record, error) {
	if g.cache != nil {
		if v, ok := g.cache.Get(cacheKey(collection, id)); ok {
			return cloneRecord(v.(Record)), nil
		}
	}
	rec, err := g.next.Get(ctx, collection, id)
	if err != nil {
		return Record{}, err
	}
	g.store(rec)
	return rec, nil
}

func (g *CachedGateway) Create(ctx context.Context, collection, ownerID string, body json.RawMessage) (Record, error) {
	rec, err := g.next.Create(ctx, collection, ownerID, body)
	if err != nil {
		return Record{}, err
	}
	g.store(rec)
	return rec, nil
}

func (g *CachedGateway) Update(ctx context.Context, collection, id string, patch json.RawMessage) (Record, error) {
	rec, err := g.next.Update(ctx, collection, id, patch)
	if err != nil {
		g.evict(collection, id)
		return Record{}, err
	}
	g.store(rec)
	return rec, nil
}

func (g *CachedGateway) Delete(ctx context.Context, collection, id string) error {
	err := g.next.Delete(ctx, collection, id)
	if err == nil || errors.Is(err, ErrNotFound) {
		g.evict(collection, id)
	}
	return err
}

func (g *CachedGateway) List(ctx context.Context, collection, ownerID string) ([]Record, error) {
	return g.next.List(ctx, collection, ownerID)
}

func (g *CachedGateway) store(rec Record) {
	if g.cache == nil {
		return
	}
	g.cache.Set(cacheKey(rec.Collection, rec.ID), cloneRecord(rec), cache.DefaultExpiration)
}

func (g *CachedGateway) evict(collection, id string) {
	if g.cache == nil {
		return
	}
	g.cache.Delete(cacheKey(collection, id))
}

func cloneRecord(rec Record) Record {
	rec.Body = append(json.RawMessage(nil), rec.Body...)
	return rec
}
