// Package storetest provides an in-memory ProfileStore for tests.
package storetest

import (
	"context"
	"sync"

	"github.com/growme/backend/internal/models"
	"github.com/growme/backend/internal/store"
)

// Fake implements store.ProfileStore in memory. Every successful write is
// broadcast to active watchers, mimicking the server-push subscription.
type Fake struct {
	mu       sync.Mutex
	docs     map[string]*models.Profile
	watchers map[string][]chan *models.Profile

	// Write counters and history for asserting on persistence behavior.
	CreateCalls  int
	ReplaceCalls int
	PatchCalls   int
	Replaced     []*models.Profile

	// FailWrites makes Create/Replace/PatchGoals return this error.
	FailWrites error
}

func New() *Fake {
	return &Fake{
		docs:     make(map[string]*models.Profile),
		watchers: make(map[string][]chan *models.Profile),
	}
}

// Seed stores a document without counting it as a write or notifying
// watchers.
func (f *Fake) Seed(p *models.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[p.UID] = p.Clone()
}

// Stored returns a copy of the current document, or nil.
func (f *Fake) Stored(uid string) *models.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[uid].Clone()
}

// Writes returns the total number of write operations performed.
func (f *Fake) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CreateCalls + f.ReplaceCalls + f.PatchCalls
}

func (f *Fake) Get(ctx context.Context, uid string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.docs[uid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p.Clone(), nil
}

func (f *Fake) Create(ctx context.Context, p *models.Profile) error {
	f.mu.Lock()
	if f.FailWrites != nil {
		f.mu.Unlock()
		return f.FailWrites
	}
	f.CreateCalls++
	f.docs[p.UID] = p.Clone()
	f.mu.Unlock()

	f.broadcast(p)
	return nil
}

func (f *Fake) Replace(ctx context.Context, p *models.Profile) error {
	f.mu.Lock()
	if f.FailWrites != nil {
		f.mu.Unlock()
		return f.FailWrites
	}
	f.ReplaceCalls++
	f.Replaced = append(f.Replaced, p.Clone())
	f.docs[p.UID] = p.Clone()
	f.mu.Unlock()

	f.broadcast(p)
	return nil
}

func (f *Fake) PatchGoals(ctx context.Context, uid string, goals map[string][]models.Goal) error {
	f.mu.Lock()
	if f.FailWrites != nil {
		f.mu.Unlock()
		return f.FailWrites
	}
	f.PatchCalls++
	p, ok := f.docs[uid]
	if !ok {
		f.mu.Unlock()
		return store.ErrNotFound
	}
	p.Goals = goals
	snapshot := p.Clone()
	f.mu.Unlock()

	f.broadcast(snapshot)
	return nil
}

func (f *Fake) Watch(ctx context.Context, uid string) (<-chan *models.Profile, error) {
	ch := make(chan *models.Profile, 16)

	f.mu.Lock()
	f.watchers[uid] = append(f.watchers[uid], ch)
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		chans := f.watchers[uid]
		for i, c := range chans {
			if c == ch {
				f.watchers[uid] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		f.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// broadcast delivers under the lock so a channel can never be closed while
// a send to it is in flight. Sends never block: channels are buffered and
// slow watchers drop intermediate snapshots.
func (f *Fake) broadcast(p *models.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.watchers[p.UID] {
		select {
		case ch <- p.Clone():
		default:
		}
	}
}
