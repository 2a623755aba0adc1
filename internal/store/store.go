// Package store owns the script collection. Every mutation rebuilds the full
// collection and hands it to a Persister before it becomes visible.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/scriptyard/internal/models"
)

// Options configures a Store.
type Options struct {
	// Seed builds the collection shown when nothing has been saved yet. It is
	// not persisted until the first mutation.
	Seed func(now time.Time) []models.Script

	// Now defaults to time.Now.
	Now func() time.Time

	// NewID defaults to a random UUID.
	NewID func() string

	Logger *slog.Logger
}

// ChangeKind identifies the mutation that produced a Change.
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// Change is delivered to subscribers after a mutation has been persisted.
type Change struct {
	Kind ChangeKind
	// Version increases by one per mutation; subscribers can use it to drop
	// snapshots that arrive out of order.
	Version uint64
	Script  models.Script
	Scripts []models.Script
}

// Patch lists the fields to merge into an existing script. Nil fields are
// left unchanged. ID and CreatedAt can never be patched.
type Patch struct {
	Name          *string
	Description   *string
	Code          *string
	LastRun       *time.Time
	LastRunStatus *models.RunStatus
	RunCount      *int
	IsRunning     *bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

func (p Patch) apply(s *models.Script) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Code != nil {
		s.Code = *p.Code
	}
	if p.LastRun != nil {
		t := *p.LastRun
		s.LastRun = &t
	}
	if p.LastRunStatus != nil {
		s.LastRunStatus = *p.LastRunStatus
	}
	if p.RunCount != nil {
		s.RunCount = *p.RunCount
	}
	if p.IsRunning != nil {
		s.IsRunning = *p.IsRunning
	}
}

// Store is the single owner of the script collection for a session.
type Store struct {
	persister Persister
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger

	mu      sync.Mutex
	scripts []models.Script
	version uint64
	seeded  bool

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

// Open loads the collection from p. When nothing has been saved yet, or the
// saved value is corrupt, the Seed collection is used instead.
func Open(ctx context.Context, p Persister, opts Options) (*Store, error) {
	s := &Store{
		persister: p,
		now:       opts.Now,
		newID:     opts.NewID,
		logger:    opts.Logger,
		subs:      make(map[int]func(Change)),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	scripts, err := p.Load(ctx)
	switch {
	case err == nil:
		for i := range scripts {
			if scripts[i].IsRunning {
				s.logger.Warn("reset interrupted run", "id", scripts[i].ID, "name", scripts[i].Name)
				scripts[i].IsRunning = false
			}
			if scripts[i].LastRunStatus == "" {
				scripts[i].LastRunStatus = models.StatusNotRun
			}
		}
		s.scripts = scripts
	case errors.Is(err, ErrNotFound):
		s.scripts = s.seed(opts.Seed)
		s.seeded = true
	case errors.Is(err, ErrCorrupt):
		s.logger.Warn("saved collection unreadable, using seed data", "err", err)
		s.scripts = s.seed(opts.Seed)
		s.seeded = true
	default:
		return nil, fmt.Errorf("store: load: %w", err)
	}
	return s, nil
}

func (s *Store) seed(fn func(time.Time) []models.Script) []models.Script {
	if fn == nil {
		return []models.Script{}
	}
	return clone(fn(s.now()))
}

// Seeded reports whether the collection came from seed data rather than from
// the persister.
func (s *Store) Seeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeded
}

// List returns a copy of the collection in insertion order.
func (s *Store) List() []models.Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.scripts)
}

// Get returns the script with the given id.
func (s *Store) Get(id string) (models.Script, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.Script{}, false
	}
	return s.scripts[i], true
}

// Add creates a script in the not_run state and appends it to the collection.
func (s *Store) Add(ctx context.Context, name, description, code string) (models.Script, error) {
	s.mu.Lock()
	now := s.now()
	script := models.Script{
		ID:            s.uniqueID(),
		Name:          name,
		Description:   description,
		Code:          code,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastRunStatus: models.StatusNotRun,
	}
	next := append(clone(s.scripts), script)
	change, err := s.commit(ctx, ChangeAdded, script, next)
	s.mu.Unlock()
	if err != nil {
		return models.Script{}, err
	}
	s.publish(change)
	return script, nil
}

// Update merges patch into the script with the given id. ok is false, and
// nothing is written, when no such script exists.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (models.Script, bool, error) {
	return s.Mutate(ctx, id, patch.apply)
}

// Mutate applies fn to a copy of the script with the given id and persists
// the result. fn runs under the store lock, so read-modify-write sequences
// such as incrementing RunCount are not lost to concurrent writers.
func (s *Store) Mutate(ctx context.Context, id string, fn func(*models.Script)) (models.Script, bool, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Script{}, false, nil
	}

	prev := s.scripts[i]
	script := prev
	fn(&script)
	script.ID = prev.ID
	script.CreatedAt = prev.CreatedAt
	script.UpdatedAt = s.now()
	if script.UpdatedAt.Before(prev.UpdatedAt) {
		script.UpdatedAt = prev.UpdatedAt
	}

	next := clone(s.scripts)
	next[i] = script
	change, err := s.commit(ctx, ChangeUpdated, script, next)
	s.mu.Unlock()
	if err != nil {
		return models.Script{}, true, err
	}
	s.publish(change)
	return script, true, nil
}

// Delete removes the script with the given id. ok is false when no such
// script exists.
func (s *Store) Delete(ctx context.Context, id string) (models.Script, bool, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Script{}, false, nil
	}
	removed := s.scripts[i]
	next := make([]models.Script, 0, len(s.scripts)-1)
	next = append(next, s.scripts[:i]...)
	next = append(next, s.scripts[i+1:]...)
	change, err := s.commit(ctx, ChangeDeleted, removed, next)
	s.mu.Unlock()
	if err != nil {
		return models.Script{}, true, err
	}
	s.publish(change)
	return removed, true, nil
}

// Subscribe registers fn to be called after every persisted mutation. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Close closes the persister.
func (s *Store) Close() error {
	return s.persister.Close()
}

// commit persists next and swaps it in. Caller holds s.mu.
func (s *Store) commit(ctx context.Context, kind ChangeKind, script models.Script, next []models.Script) (Change, error) {
	if err := s.persister.Save(ctx, next); err != nil {
		return Change{}, fmt.Errorf("store: save: %w", err)
	}
	s.scripts = next
	s.seeded = false
	s.version++
	return Change{Kind: kind, Version: s.version, Script: script, Scripts: clone(next)}, nil
}

func (s *Store) publish(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// indexOf returns the position of id, or -1. Caller holds s.mu.
func (s *Store) indexOf(id string) int {
	for i := range s.scripts {
		if s.scripts[i].ID == id {
			return i
		}
	}
	return -1
}

// uniqueID draws ids until one is unused. Caller holds s.mu.
func (s *Store) uniqueID() string {
	for {
		id := s.newID()
		if s.indexOf(id) < 0 {
			return id
		}
	}
}

func clone(scripts []models.Script) []models.Script {
	out := make([]models.Script, len(scripts))
	copy(out, scripts)
	return out
}
