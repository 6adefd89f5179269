// Package store owns the in-memory resume draft and keeps it in step with the
// remote document store.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"resumeBuilder/internal/completion"
	"resumeBuilder/internal/gateway"
	"resumeBuilder/internal/resume"
)

// FallbackPolicy decides which update failures are recovered by creating the
// document again.
type FallbackPolicy string

const (
	// FallbackNotFound only recreates when the remote document is missing.
	FallbackNotFound FallbackPolicy = "not_found"
	// FallbackAny recreates on every update failure.
	FallbackAny FallbackPolicy = "any"
)

// Outcome 描述一次保存的结果。
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeRecreated Outcome = "recreated"
	OutcomeFailed    Outcome = "failed"
)

// Result is returned by Save.
type Result struct {
	Document resume.Document
	Outcome  Outcome
	// PreviousID is the stale id replaced by a fallback create.
	PreviousID string
}

// ListPatcher receives list patches after each successful mutation.
type ListPatcher interface {
	Insert(item resume.ListItem)
	Replace(item resume.ListItem)
	Remove(id string) bool
	Flush(ctx context.Context) error
}

// Recorder collects store metrics.
type Recorder interface {
	SaveObserved(outcome string, d time.Duration)
	FallbackTriggered(policy string)
	CreateJoined()
}

// Options 配置 Store。
type Options struct {
	Fallback FallbackPolicy
	List     ListPatcher
	Metrics  Recorder
	Logger   *slog.Logger
}

// Store holds one draft plus the remote id known to be authoritative for it.
// All methods are safe for concurrent use. Local edits never wait on I/O and
// every save persists the draft as it is when the save starts.
type Store struct {
	gw         gateway.Gateway
	collection string
	ownerID    string
	fallback   FallbackPolicy
	list       ListPatcher
	metrics    Recorder
	logger     *slog.Logger

	flight singleflight.Group

	mu       sync.Mutex
	draft    resume.Document
	hasDraft bool
	remoteID string
	// creating is set while a create for draft generation creatingGen runs.
	creating    bool
	creatingGen uint64
	// gen changes whenever the draft is replaced by another document.
	gen uint64
	// revision counts local edits; saved is the revision last persisted.
	revision uint64
	saved    uint64
}

// New 构造 Store。
func New(gw gateway.Gateway, collection, ownerID string, opts Options) *Store {
	if opts.Fallback == "" {
		opts.Fallback = FallbackNotFound
	}
	if opts.List == nil {
		opts.List = nopList{}
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		gw:         gw,
		collection: collection,
		ownerID:    ownerID,
		fallback:   opts.Fallback,
		list:       opts.List,
		metrics:    opts.Metrics,
		logger:     opts.Logger.With(slog.String("owner_id", ownerID)),
	}
}

// NewDraft replaces the current draft with an empty, never persisted one.
func (s *Store) NewDraft() resume.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(resume.NewDocument(), "")
	return s.draft.Clone()
}

// Discard drops the draft without any durable side effect.
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = resume.Document{}
	s.hasDraft = false
	s.remoteID = ""
	s.gen++
	s.revision, s.saved = 0, 0
}

// Current 返回当前草稿的副本。
func (s *Store) Current() (resume.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasDraft {
		return resume.Document{}, false
	}
	return s.draft.Clone(), true
}

// KnownRemoteID returns the authoritative remote id, empty before the first
// successful create.
func (s *Store) KnownRemoteID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteID
}

// IsDirty reports whether the draft has local edits not yet persisted.
func (s *Store) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasDraft && s.revision != s.saved
}

// UpdateResumeLocal replaces the draft's content without I/O. Identity and
// server timestamps stay owned by the store.
func (s *Store) UpdateResumeLocal(doc resume.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setContentLocked(doc)
}

// MutateLocal applies fn to a copy of the draft and keeps the result. It
// starts a new draft when none exists.
func (s *Store) MutateLocal(fn func(doc *resume.Document)) resume.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasDraft {
		s.replaceLocked(resume.NewDocument(), "")
	}
	next := s.draft.Clone()
	fn(&next)
	s.setContentLocked(next)
	return s.draft.Clone()
}

func (s *Store) setContentLocked(doc resume.Document) {
	next := doc.Clone()
	if s.hasDraft {
		next.ID = s.draft.ID
		next.CreatedAt = s.draft.CreatedAt
		next.LastUpdated = s.draft.LastUpdated
	} else {
		next.ID = ""
		next.CreatedAt = time.Time{}
		next.LastUpdated = time.Time{}
		s.hasDraft = true
		s.gen++
	}
	s.draft = next
	s.revision++
}

func (s *Store) replaceLocked(doc resume.Document, remoteID string) {
	s.draft = doc
	s.hasDraft = true
	s.remoteID = remoteID
	s.gen++
	s.revision++
	s.saved = s.revision
}

// AddSkill adds a skill to the draft. A rejected skill leaves the draft as is.
func (s *Store) AddSkill(skill resume.Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasDraft {
		return ErrNoDraft
	}
	next := s.draft.Clone()
	if err := next.AddSkill(skill); err != nil {
		return err
	}
	s.draft = next
	s.revision++
	return nil
}

// RemoveSkill removes a skill by name from the draft.
func (s *Store) RemoveSkill(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasDraft {
		return false
	}
	next := s.draft.Clone()
	if !next.RemoveSkill(name) {
		return false
	}
	s.draft = next
	s.revision++
	return true
}

// ApplySkillSuggestions adds every suggested skill not yet present and returns
// the names that were added.
func (s *Store) ApplySkillSuggestions(names []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasDraft {
		return nil, ErrNoDraft
	}
	next := s.draft.Clone()
	var added []string
	for _, n := range names {
		if err := next.AddSkill(resume.Skill{Name: n}); err != nil {
			continue
		}
		added = append(added, n)
	}
	if len(added) > 0 {
		s.draft = next
		s.revision++
	}
	return added, nil
}

// Validate returns the field errors of the draft.
func (s *Store) Validate() resume.ValidationErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return resume.Validate(s.draft)
}

// Completion evaluates the draft.
func (s *Store) Completion() completion.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return completion.Evaluate(s.draft)
}

// CreateResume merges partial over the empty defaults, makes it the draft and
// creates it remotely. While a create of the current draft is in flight further
// calls join it instead of issuing a second create; their partial is ignored.
// A create still running for a replaced draft is not joined.
func (s *Store) CreateResume(ctx context.Context, partial resume.Partial) (resume.Document, error) {
	s.mu.Lock()
	if s.remoteID != "" {
		s.mu.Unlock()
		return resume.Document{}, ErrAlreadyPersisted
	}
	if !s.creatingLocked() {
		s.replaceLocked(resume.MergeDefaults(partial), "")
		s.revision++
		s.markCreatingLocked()
	}
	gen := s.gen
	s.mu.Unlock()

	start := time.Now()
	doc, err := s.create(ctx, gen)
	s.observe(OutcomeCreated, err, start)
	return doc, err
}

// UpdateResume replaces the draft's content with doc and persists it with a
// merge-style update. It needs a known remote id.
func (s *Store) UpdateResume(ctx context.Context, doc resume.Document) (resume.Document, error) {
	s.mu.Lock()
	if s.remoteID == "" {
		s.mu.Unlock()
		return resume.Document{}, ErrNoRemoteID
	}
	s.setContentLocked(doc)
	s.mu.Unlock()

	start := time.Now()
	res, err := s.update(ctx)
	s.observe(res.Outcome, err, start)
	return res.Document, err
}

// Save persists the current draft: create when no remote id is known,
// otherwise update with create fallback.
func (s *Store) Save(ctx context.Context) (Result, error) {
	start := time.Now()

	s.mu.Lock()
	if !s.hasDraft {
		s.mu.Unlock()
		return Result{}, ErrNoDraft
	}
	if s.remoteID == "" {
		s.markCreatingLocked()
		gen := s.gen
		s.mu.Unlock()

		doc, err := s.create(ctx, gen)
		s.observe(OutcomeCreated, err, start)
		if err != nil {
			return Result{Outcome: OutcomeFailed}, err
		}
		return Result{Document: doc, Outcome: OutcomeCreated}, nil
	}
	s.mu.Unlock()

	res, err := s.update(ctx)
	s.observe(res.Outcome, err, start)
	return res, err
}

// SaveValidated saves only when the draft has no blocking field errors.
func (s *Store) SaveValidated(ctx context.Context) (Result, error) {
	if errs := s.Validate().Blocking(); len(errs) > 0 {
		return Result{}, errs
	}
	return s.Save(ctx)
}

func (s *Store) observe(outcome Outcome, err error, start time.Time) {
	if err != nil {
		outcome = OutcomeFailed
	}
	s.metrics.SaveObserved(string(outcome), time.Since(start))
}

func (s *Store) creatingLocked() bool {
	return s.creating && s.creatingGen == s.gen
}

func (s *Store) markCreatingLocked() {
	s.creating = true
	s.creatingGen = s.gen
}

// create runs at most one gateway create per draft generation. Callers saving
// the same draft share it; a replaced draft never shares the create of its
// predecessor. The caller must have marked gen as creating under mu.
func (s *Store) create(ctx context.Context, gen uint64) (resume.Document, error) {
	v, err, shared := s.flight.Do(fmt.Sprintf("create:%d", gen), func() (any, error) {
		return s.doCreate(ctx, gen)
	})
	if shared {
		s.metrics.CreateJoined()
	}
	if err != nil {
		return resume.Document{}, err
	}
	return v.(resume.Document), nil
}

func (s *Store) doCreate(ctx context.Context, gen uint64) (resume.Document, error) {
	s.mu.Lock()
	if s.gen != gen || !s.hasDraft {
		s.clearCreatingLocked(gen)
		s.mu.Unlock()
		return resume.Document{}, &SaveError{Op: "create", Err: ErrSuperseded}
	}
	if s.remoteID != "" {
		// a create that finished just before this one already holds the id
		s.clearCreatingLocked(gen)
		doc := s.draft.Clone()
		s.mu.Unlock()
		return doc, nil
	}
	rev := s.revision
	body := resume.Clean(s.draft)
	s.mu.Unlock()

	rec, err := s.createRemote(ctx, body)

	s.mu.Lock()
	s.clearCreatingLocked(gen)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("create resume failed", slog.String("operation", "create"), slog.Any("error", err))
		return resume.Document{}, &SaveError{Op: "create", Err: err}
	}

	persisted := body
	persisted.ID = rec.ID
	persisted.CreatedAt = rec.CreatedAt
	persisted.LastUpdated = rec.LastUpdated

	result := persisted
	if s.gen == gen && s.hasDraft {
		s.remoteID = rec.ID
		s.draft.ID = rec.ID
		s.applyMetaLocked(rec)
		if s.revision == rev {
			s.saved = rev
		}
		result = s.draft.Clone()
	}
	s.mu.Unlock()

	s.logger.Info("resume created", slog.String("operation", "create"), slog.String("resume_id", rec.ID))
	s.list.Insert(resume.ToListItem(persisted))
	s.flushList(ctx)
	return result, nil
}

func (s *Store) clearCreatingLocked(gen uint64) {
	if s.creatingGen == gen {
		s.creating = false
	}
}

func (s *Store) createRemote(ctx context.Context, doc resume.Document) (gateway.Record, error) {
	body, err := resume.EncodeBody(doc)
	if err != nil {
		return gateway.Record{}, err
	}
	return s.gw.Create(ctx, s.collection, s.ownerID, body)
}

func (s *Store) update(ctx context.Context) (Result, error) {
	s.mu.Lock()
	id, gen, rev := s.remoteID, s.gen, s.revision
	if id == "" {
		s.mu.Unlock()
		return Result{Outcome: OutcomeFailed}, ErrNoRemoteID
	}
	body := resume.Clean(s.draft)
	s.mu.Unlock()

	log := s.logger.With(slog.String("operation", "update"), slog.String("resume_id", id))

	patch, err := resume.EncodeBody(body)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, &SaveError{Op: "update", ResumeID: id, Err: err}
	}
	rec, err := s.gw.Update(ctx, s.collection, id, patch)
	if err != nil {
		if !s.shouldFallback(err) {
			log.Error("update resume failed", slog.Any("error", err))
			return Result{Outcome: OutcomeFailed}, &SaveError{Op: "update", ResumeID: id, Err: err}
		}
		log.Warn("update resume failed, creating it again", slog.String("policy", string(s.fallback)), slog.Any("error", err))
		s.metrics.FallbackTriggered(string(s.fallback))
		return s.recreate(ctx, id, gen)
	}

	persisted := body
	persisted.ID = id
	persisted.CreatedAt = rec.CreatedAt
	persisted.LastUpdated = rec.LastUpdated

	s.mu.Lock()
	result := persisted
	if s.gen == gen && s.remoteID == id {
		s.applyMetaLocked(rec)
		if s.revision == rev {
			s.saved = rev
		}
		result = s.draft.Clone()
	}
	s.mu.Unlock()

	s.list.Replace(resume.ToListItem(persisted))
	s.flushList(ctx)
	return Result{Document: result, Outcome: OutcomeUpdated}, nil
}

// recreate drops the stale id and creates the draft as a new document.
func (s *Store) recreate(ctx context.Context, staleID string, gen uint64) (Result, error) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return Result{Outcome: OutcomeFailed}, &SaveError{Op: "update", ResumeID: staleID, Err: ErrSuperseded}
	}
	if s.remoteID == staleID {
		s.remoteID = ""
		s.draft.ID = ""
	}
	s.markCreatingLocked()
	s.mu.Unlock()

	if s.list.Remove(staleID) {
		s.flushList(ctx)
	}

	doc, err := s.create(ctx, gen)
	if err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}
	return Result{Document: doc, Outcome: OutcomeRecreated, PreviousID: staleID}, nil
}

func (s *Store) shouldFallback(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch s.fallback {
	case FallbackAny:
		return true
	default:
		return errors.Is(err, gateway.ErrNotFound)
	}
}

// applyMetaLocked copies persistence metadata from rec. Field values are never
// taken from a response, and lastUpdated never moves backwards.
func (s *Store) applyMetaLocked(rec gateway.Record) {
	if s.draft.CreatedAt.IsZero() || s.draft.ID != rec.ID {
		s.draft.CreatedAt = rec.CreatedAt
	}
	if rec.LastUpdated.After(s.draft.LastUpdated) {
		s.draft.LastUpdated = rec.LastUpdated
	}
}

// LoadResume fetches id and makes it the current draft.
func (s *Store) LoadResume(ctx context.Context, id string) (resume.Document, error) {
	doc, err := s.fetch(ctx, id)
	if err != nil {
		return resume.Document{}, err
	}

	s.mu.Lock()
	s.replaceLocked(doc, doc.ID)
	s.mu.Unlock()

	s.list.Replace(resume.ToListItem(doc))
	return doc.Clone(), nil
}

// Get fetches id without touching the draft.
func (s *Store) Get(ctx context.Context, id string) (resume.Document, error) {
	return s.fetch(ctx, id)
}

func (s *Store) fetch(ctx context.Context, id string) (resume.Document, error) {
	rec, err := s.gw.Get(ctx, s.collection, id)
	if err != nil {
		return resume.Document{}, fmt.Errorf("load resume %s: %w", id, err)
	}
	return resume.DecodeBody(rec.Body, rec.ID, rec.CreatedAt, rec.LastUpdated)
}

// DeleteResume removes id remotely and drops its list entry. Deleting a
// document that is already gone succeeds. The draft is discarded when it was
// the deleted document.
func (s *Store) DeleteResume(ctx context.Context, id string) error {
	err := s.gw.Delete(ctx, s.collection, id)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		s.logger.Error("delete resume failed", slog.String("resume_id", id), slog.Any("error", err))
		return &SaveError{Op: "delete", ResumeID: id, Err: err}
	}

	s.mu.Lock()
	if s.remoteID == id {
		s.draft = resume.Document{}
		s.hasDraft = false
		s.remoteID = ""
		s.gen++
	}
	s.mu.Unlock()

	s.list.Remove(id)
	s.flushList(ctx)
	s.logger.Info("resume deleted", slog.String("resume_id", id))
	return nil
}

// DuplicateResume copies id into a new document titled newTitle, or
// "<title> (Copy)" when newTitle is empty. The current draft is untouched.
func (s *Store) DuplicateResume(ctx context.Context, id, newTitle string) (resume.Document, error) {
	src, err := s.fetch(ctx, id)
	if err != nil {
		return resume.Document{}, err
	}

	cp := src.Clone()
	cp.ID = ""
	cp.CreatedAt = time.Time{}
	cp.LastUpdated = time.Time{}
	cp.Favorite = false
	cp.Title = newTitle
	if cp.Title == "" {
		cp.Title = resume.CopyTitle(src.Title)
	}
	cp = resume.Clean(cp)

	rec, err := s.createRemote(ctx, cp)
	if err != nil {
		return resume.Document{}, &SaveError{Op: "duplicate", ResumeID: id, Err: err}
	}
	cp.ID = rec.ID
	cp.CreatedAt = rec.CreatedAt
	cp.LastUpdated = rec.LastUpdated

	s.list.Insert(resume.ToListItem(cp))
	s.flushList(ctx)
	s.logger.Info("resume duplicated", slog.String("resume_id", id), slog.String("copy_id", rec.ID))
	return cp, nil
}

// ImportResume creates a new document from an exported JSON body without
// touching the current draft. A non-blank title replaces the imported one.
func (s *Store) ImportResume(ctx context.Context, data []byte, title string) (resume.Document, error) {
	doc, err := resume.ImportJSON(data, title)
	if err != nil {
		return resume.Document{}, err
	}
	doc = resume.Clean(doc)
	rec, err := s.createRemote(ctx, doc)
	if err != nil {
		return resume.Document{}, &SaveError{Op: "import", Err: err}
	}
	doc.ID = rec.ID
	doc.CreatedAt = rec.CreatedAt
	doc.LastUpdated = rec.LastUpdated

	s.list.Insert(resume.ToListItem(doc))
	s.flushList(ctx)
	return doc, nil
}

// SetFavorite toggles the favorite flag of id remotely.
func (s *Store) SetFavorite(ctx context.Context, id string, favorite bool) (resume.Document, error) {
	patch := []byte(`{"favorite":false}`)
	if favorite {
		patch = []byte(`{"favorite":true}`)
	}
	rec, err := s.gw.Update(ctx, s.collection, id, patch)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return resume.Document{}, fmt.Errorf("favorite resume %s: %w", id, err)
		}
		return resume.Document{}, &SaveError{Op: "favorite", ResumeID: id, Err: err}
	}
	doc, err := resume.DecodeBody(rec.Body, rec.ID, rec.CreatedAt, rec.LastUpdated)
	if err != nil {
		return resume.Document{}, err
	}

	s.mu.Lock()
	if s.remoteID == id {
		s.draft.Favorite = favorite
		s.applyMetaLocked(rec)
	}
	s.mu.Unlock()

	s.list.Replace(resume.ToListItem(doc))
	s.flushList(ctx)
	return doc, nil
}

func (s *Store) flushList(ctx context.Context) {
	if err := s.list.Flush(ctx); err != nil {
		s.logger.Warn("flush resume list failed", slog.Any("error", err))
	}
}

type nopList struct{}

func (nopList) Insert(resume.ListItem)      {}
func (nopList) Replace(resume.ListItem)     {}
func (nopList) Remove(string) bool          { return false }
func (nopList) Flush(context.Context) error { return nil }

type nopRecorder struct{}

func (nopRecorder) SaveObserved(string, time.Duration) {}
func (nopRecorder) FallbackTriggered(string)           {}
func (nopRecorder) CreateJoined()                      {}
