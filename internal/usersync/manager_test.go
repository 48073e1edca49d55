package usersync

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/growme/backend/internal/models"
	"github.com/growme/backend/internal/store/storetest"
)

func TestAcquireSharesOneCachePerSubject(t *testing.T) {
	fake := storetest.New()
	fake.Seed(models.DefaultProfile("uid-1", "Ana", "ana@example.com", ""))
	m := NewManager(fake, zaptest.NewLogger(t))
	defer m.Shutdown()

	c1, release1, err := m.Acquire(context.Background(), "uid-1")
	if err != nil {
		t.Fatal(err)
	}
	c2, release2, err := m.Acquire(context.Background(), "uid-1")
	if err != nil {
		t.Fatal(err)
	}
	if c1 != c2 {
		t.Error("same subject should share one cache")
	}

	release1()
	// Still held by the second acquisition.
	if err := c2.SetDisplayName(context.Background(), "still alive"); err != nil {
		t.Errorf("cache disposed too early: %v", err)
	}
	release2()
	release2() // safe to call the same release twice
}

func TestAcquireDistinctSubjects(t *testing.T) {
	fake := storetest.New()
	fake.Seed(models.DefaultProfile("uid-1", "Ana", "", ""))
	fake.Seed(models.DefaultProfile("uid-2", "Bea", "", ""))
	m := NewManager(fake, zaptest.NewLogger(t))
	defer m.Shutdown()

	c1, release1, err := m.Acquire(context.Background(), "uid-1")
	if err != nil {
		t.Fatal(err)
	}
	defer release1()
	c2, release2, err := m.Acquire(context.Background(), "uid-2")
	if err != nil {
		t.Fatal(err)
	}
	defer release2()

	if c1 == c2 {
		t.Error("distinct subjects must not share a cache")
	}
	if c1.Snapshot().UID != "uid-1" || c2.Snapshot().UID != "uid-2" {
		t.Error("caches bound to wrong subjects")
	}
}

func TestReacquireAfterLastRelease(t *testing.T) {
	fake := storetest.New()
	fake.Seed(models.DefaultProfile("uid-1", "Ana", "", ""))
	m := NewManager(fake, zaptest.NewLogger(t))
	defer m.Shutdown()

	c1, release, err := m.Acquire(context.Background(), "uid-1")
	if err != nil {
		t.Fatal(err)
	}
	release()

	c2, release2, err := m.Acquire(context.Background(), "uid-1")
	if err != nil {
		t.Fatal(err)
	}
	defer release2()

	if c1 == c2 {
		t.Error("a fresh cache should be started after full release")
	}
	if c2.Snapshot() == nil {
		t.Error("reacquired cache not loaded")
	}
}
