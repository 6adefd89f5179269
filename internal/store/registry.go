package store

import (
	"log/slog"
	"sync"
	"time"

	"resumeBuilder/internal/gateway"
	"resumeBuilder/internal/listcache"
)

// Session bundles the draft store and the list cache of one owner.
type Session struct {
	OwnerID string
	Store   *Store
	List    *listcache.Cache
}

// RegistryConfig 配置 Registry 创建的会话。
type RegistryConfig struct {
	// CollectionFor maps an owner id to its document collection.
	CollectionFor func(ownerID string) string
	Fallback      FallbackPolicy
	RecentWindow  time.Duration
	Snapshot      listcache.Snapshotter
	Metrics       Recorder
	Logger        *slog.Logger
}

// Registry hands out one isolated Session per owner. It replaces a process
// wide draft so handlers and tests can build their own instances.
type Registry struct {
	gw  gateway.Gateway
	cfg RegistryConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry 构造 Registry。
func NewRegistry(gw gateway.Gateway, cfg RegistryConfig) *Registry {
	if cfg.CollectionFor == nil {
		cfg.CollectionFor = func(ownerID string) string { return "users/" + ownerID + "/resumes" }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{gw: gw, cfg: cfg, sessions: map[string]*Session{}}
}

// For returns the session of ownerID, creating it on first use.
func (r *Registry) For(ownerID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[ownerID]; ok {
		return s
	}

	collection := r.cfg.CollectionFor(ownerID)
	list := listcache.New(r.gw, collection, ownerID, listcache.Options{
		RecentWindow: r.cfg.RecentWindow,
		Snapshot:     r.cfg.Snapshot,
		Logger:       r.cfg.Logger,
	})
	s := &Session{
		OwnerID: ownerID,
		List:    list,
		Store: New(r.gw, collection, ownerID, Options{
			Fallback: r.cfg.Fallback,
			List:     list,
			Metrics:  r.cfg.Metrics,
			Logger:   r.cfg.Logger,
		}),
	}
	r.sessions[ownerID] = s
	return s
}

// Forget drops the session of ownerID; its unsaved draft is discarded.
func (r *Registry) Forget(ownerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, ownerID)
}

// Collection returns the collection path used for ownerID.
func (r *Registry) Collection(ownerID string) string {
	return r.cfg.CollectionFor(ownerID)
}
