// Package usersync keeps an authenticated user's profile document cached in
// memory, live via the store's change subscription, and is the single
// authority for every mutation of that document.
package usersync

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/growme/backend/internal/models"
	"github.com/growme/backend/internal/store"
)

var (
	ErrNoProfile    = errors.New("no profile loaded")
	ErrGoalNotFound = errors.New("goal not found")
	ErrUnknownDay   = errors.New("unknown weekday")
	ErrDisposed     = errors.New("cache disposed")
)

// Observer receives a profile snapshot on every replacement. Snapshots are
// deep copies; observers may keep or mutate them freely.
type Observer func(*models.Profile)

type observerEntry struct {
	id int
	fn Observer
}

// Cache is the per-user synchronization cache: last-known profile, ordered
// observer list, and a live subscription that replaces the profile
// wholesale on every server push.
//
// Mutators apply the change to the in-memory document and then persist the
// whole document. Two concurrent mutators race at document granularity and
// the later write wins; there is no per-field merge.
type Cache struct {
	uid   string
	store store.ProfileStore
	log   *zap.Logger

	mu        sync.Mutex
	profile   *models.Profile
	observers []observerEntry
	nextObsID int
	cancel    context.CancelFunc
	disposed  bool
}

func NewCache(uid string, st store.ProfileStore, log *zap.Logger) *Cache {
	return &Cache{uid: uid, store: st, log: log}
}

// Start loads the profile and begins the live subscription. Loading adopts
// the stored document, runs the migrate-on-read normalization (persisting
// it exactly once when it changed anything), or synthesizes and persists a
// default document when none exists. Observers registered before Start see
// the first snapshot once loading completes.
func (c *Cache) Start(ctx context.Context) error {
	prof, err := c.store.Get(ctx, c.uid)
	switch {
	case err == nil:
		if prof.Normalize() {
			if err := c.store.Replace(ctx, prof); err != nil {
				c.log.Warn("failed to persist normalized profile",
					zap.String("uid", c.uid), zap.Error(err))
			}
		}
	case errors.Is(err, store.ErrNotFound):
		prof = models.DefaultProfile(c.uid, "", "", "")
		if err := c.store.Create(ctx, prof); err != nil {
			return err
		}
	default:
		return err
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.profile = prof
	c.mu.Unlock()
	c.notify()

	return c.subscribe()
}

// subscribe opens the live subscription. The watch outlives the request
// that created the cache, so it runs on its own context, cancelled only by
// Dispose.
func (c *Cache) subscribe() error {
	watchCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		cancel()
		return ErrDisposed
	}
	c.cancel = cancel
	c.mu.Unlock()

	ch, err := c.store.Watch(watchCtx, c.uid)
	if err != nil {
		cancel()
		return err
	}

	go func() {
		for snap := range ch {
			snap.Normalize()
			c.mu.Lock()
			c.profile = snap
			c.mu.Unlock()
			c.notify()
		}
	}()
	return nil
}

// AddObserver registers fn and returns its removal function. If a profile
// is already cached, fn is invoked immediately with it, so late observers
// never miss the current state.
func (c *Cache) AddObserver(fn Observer) (remove func()) {
	c.mu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers = append(c.observers, observerEntry{id: id, fn: fn})
	current := c.profile.Clone()
	c.mu.Unlock()

	if current != nil {
		fn(current)
	}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, entry := range c.observers {
			if entry.id == id {
				c.observers = append(c.observers[:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

// notify calls every observer, in registration order, with a snapshot of
// the current profile.
func (c *Cache) notify() {
	c.mu.Lock()
	snapshot := c.profile.Clone()
	observers := append([]observerEntry(nil), c.observers...)
	c.mu.Unlock()

	for _, entry := range observers {
		entry.fn(snapshot)
	}
}

// Snapshot returns a copy of the cached profile, or nil before the first
// load completes.
func (c *Cache) Snapshot() *models.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile.Clone()
}

// Persist writes the entire in-memory profile back to the store,
// overwriting server state. On failure the optimistic local state is kept;
// the next successful persist or subscription push reconciles.
func (c *Cache) Persist(ctx context.Context) error {
	c.mu.Lock()
	if c.profile == nil {
		c.mu.Unlock()
		return ErrNoProfile
	}
	snapshot := c.profile.Clone()
	c.mu.Unlock()

	if err := c.store.Replace(ctx, snapshot); err != nil {
		c.log.Error("persist failed", zap.String("uid", c.uid), zap.Error(err))
		return err
	}
	return nil
}

// Dispose cancels the live subscription. Idempotent; must be called when
// the owning session ends.
func (c *Cache) Dispose() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.disposed = true
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// mutate applies fn to the in-memory profile and persists. fn runs under
// the lock; it must not block.
func (c *Cache) mutate(ctx context.Context, fn func(p *models.Profile) error) error {
	c.mu.Lock()
	if c.profile == nil {
		c.mu.Unlock()
		return ErrNoProfile
	}
	if err := fn(c.profile); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	return c.Persist(ctx)
}

func (c *Cache) SetDisplayName(ctx context.Context, name string) error {
	return c.mutate(ctx, func(p *models.Profile) error {
		p.DisplayName = name
		return nil
	})
}

// PetUpdate carries partial pet fields; nil fields are left unchanged.
type PetUpdate struct {
	Name   *string `json:"name"`
	Level  *int    `json:"level"`
	Points *int    `json:"points"`
}

func (c *Cache) SetPet(ctx context.Context, upd PetUpdate) error {
	return c.mutate(ctx, func(p *models.Profile) error {
		if p.Pet == nil {
			p.Pet = models.DefaultPet()
		}
		if upd.Name != nil {
			p.Pet.Name = *upd.Name
		}
		if upd.Level != nil {
			p.Pet.Level = *upd.Level
		}
		if upd.Points != nil {
			p.Pet.Points = *upd.Points
		}
		return nil
	})
}

func (c *Cache) SetPetName(ctx context.Context, name string) error {
	return c.SetPet(ctx, PetUpdate{Name: &name})
}

// SetGoals replaces the whole weekday structure.
func (c *Cache) SetGoals(ctx context.Context, goals map[string][]models.Goal) error {
	return c.mutate(ctx, func(p *models.Profile) error {
		p.Goals = goals
		p.Normalize()
		return nil
	})
}

// RecordGoalCreated bumps the lifetime created counter.
func (c *Cache) RecordGoalCreated(ctx context.Context) error {
	return c.mutate(ctx, func(p *models.Profile) error {
		p.GoalHistory.TotalCreated++
		return nil
	})
}

// RecordGoalCompleted bumps the lifetime completed counter and re-mirrors
// pet points.
func (c *Cache) RecordGoalCompleted(ctx context.Context) error {
	return c.mutate(ctx, func(p *models.Profile) error {
		p.GoalHistory.TotalCompleted++
		p.Pet.Points = p.GoalHistory.TotalCompleted
		return nil
	})
}

// AddGoal appends a new goal to the given weekday and bumps the lifetime
// created counter, in one persisted write.
func (c *Cache) AddGoal(ctx context.Context, day, text string) (*models.Goal, error) {
	if !models.IsWeekday(day) {
		return nil, ErrUnknownDay
	}

	goal := models.Goal{
		ID:        models.NewGoalID(),
		Text:      text,
		Completed: false,
		CreatedAt: time.Now().UTC(),
	}

	err := c.mutate(ctx, func(p *models.Profile) error {
		p.Goals[day] = append(p.Goals[day], goal)
		p.GoalHistory.TotalCreated++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

// ToggleGoal flips a goal's completed flag. The lifetime completed counter
// increments only the first time a goal is completed and never decrements;
// unchecking affects only the visible goal, not the ledger.
func (c *Cache) ToggleGoal(ctx context.Context, day, goalID string) (completed bool, err error) {
	if !models.IsWeekday(day) {
		return false, ErrUnknownDay
	}

	err = c.mutate(ctx, func(p *models.Profile) error {
		goals := p.Goals[day]
		for i := range goals {
			if goals[i].ID != goalID {
				continue
			}
			goals[i].Completed = !goals[i].Completed
			completed = goals[i].Completed
			if completed && !goals[i].Rewarded {
				goals[i].Rewarded = true
				p.GoalHistory.TotalCompleted++
				p.Pet.Points = p.GoalHistory.TotalCompleted
			}
			return nil
		}
		return ErrGoalNotFound
	})
	return completed, err
}

// RemoveGoal deletes a goal from the weekday list. Removal is a view-level
// operation: the lifetime ledger is never decremented.
func (c *Cache) RemoveGoal(ctx context.Context, day, goalID string) error {
	if !models.IsWeekday(day) {
		return ErrUnknownDay
	}

	return c.mutate(ctx, func(p *models.Profile) error {
		goals := p.Goals[day]
		for i := range goals {
			if goals[i].ID == goalID {
				p.Goals[day] = append(goals[:i], goals[i+1:]...)
				return nil
			}
		}
		return ErrGoalNotFound
	})
}
