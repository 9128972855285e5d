package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/manyvis/internal/diagram"
	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
	"git.home.luguber.info/inful/manyvis/internal/manycore"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := NewStore(opts...)
	require.NoError(t, err)
	return s
}

// holdSystemAndDiagram keeps the system and diagram locks until the
// returned func is called.
func holdSystemAndDiagram(t *testing.T, s *Store) func() {
	t.Helper()
	held := make(chan struct{})
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_ = s.WithSystemAndDiagram(context.Background(), Blocking, func(*Slot[*manycore.System], *Slot[*diagram.Diagram]) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held
	return func() {
		close(done)
		<-finished
	}
}

func TestSlot(t *testing.T) {
	var slot Slot[int]
	_, ok := slot.Get()
	assert.False(t, ok)

	slot.Replace(7)
	v, ok := slot.Get()
	assert.True(t, ok)
	assert.Equal(t, 7, v)

	slot.Clear()
	v, ok = slot.Get()
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestNewStoreSeedsFont(t *testing.T) {
	s := newTestStore(t)
	err := s.WithFont(t.Context(), NonBlocking, func(font *FontResource) error {
		require.NotNil(t, font)
		assert.NotEmpty(t, font.Name())
		return nil
	})
	require.NoError(t, err)
}

func TestNewStoreStartsEmpty(t *testing.T) {
	s := newTestStore(t)
	err := s.WithSystemAndDiagram(t.Context(), NonBlocking, func(sys *Slot[*manycore.System], d *Slot[*diagram.Diagram]) error {
		_, ok := sys.Get()
		assert.False(t, ok)
		_, ok = d.Get()
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestNonBlockingContention(t *testing.T) {
	var (
		mu        sync.Mutex
		contended []Resource
	)
	s := newTestStore(t, WithContentionObserver(func(r Resource) {
		mu.Lock()
		defer mu.Unlock()
		contended = append(contended, r)
	}))

	release := holdSystemAndDiagram(t, s)

	called := false
	err := s.WithSystem(t.Context(), NonBlocking, func(*Slot[*manycore.System]) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryLockContention))
	ce, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	resource, _ := ce.Context().GetString("resource")
	assert.Equal(t, "system", resource)

	// The diagram is busy too, but the font is not.
	err = s.WithDiagramAndFont(t.Context(), NonBlocking, func(*Slot[*diagram.Diagram], *FontResource) error { return nil })
	require.Error(t, err)
	require.NoError(t, s.WithFont(t.Context(), NonBlocking, func(*FontResource) error { return nil }))

	release()

	require.NoError(t, s.WithAll(t.Context(), NonBlocking, func(*Slot[*manycore.System], *Slot[*diagram.Diagram], *FontResource) error {
		return nil
	}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Resource{ResourceSystem, ResourceDiagram}, contended)
}

func TestFailedAcquisitionReleasesEarlierLocks(t *testing.T) {
	s := newTestStore(t)

	held := make(chan struct{})
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_ = s.WithDiagram(context.Background(), Blocking, func(*Slot[*diagram.Diagram]) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	// System is taken first and must be given back when diagram fails.
	err := s.WithSystemAndDiagram(t.Context(), NonBlocking, func(*Slot[*manycore.System], *Slot[*diagram.Diagram]) error { return nil })
	require.Error(t, err)
	require.NoError(t, s.WithSystem(t.Context(), NonBlocking, func(*Slot[*manycore.System]) error { return nil }))

	close(done)
	<-finished
}

func TestBlockingWaitsForRelease(t *testing.T) {
	s := newTestStore(t)
	sys := &manycore.System{Rows: 1, Columns: 1}

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.WithSystem(context.Background(), Blocking, func(slot *Slot[*manycore.System]) error {
			close(held)
			<-done
			slot.Replace(sys)
			return nil
		})
	}()
	<-held

	result := make(chan *manycore.System, 1)
	go func() {
		_ = s.WithSystem(context.Background(), Blocking, func(slot *Slot[*manycore.System]) error {
			got, _ := slot.Get()
			result <- got
			return nil
		})
	}()

	select {
	case <-result:
		t.Fatal("blocking scope ran while the lock was held")
	case <-time.After(20 * time.Millisecond):
	}

	close(done)
	select {
	case got := <-result:
		assert.Same(t, sys, got)
	case <-time.After(time.Second):
		t.Fatal("blocking scope never ran")
	}
}

func TestBlockingHonoursContext(t *testing.T) {
	s := newTestStore(t)
	release := holdSystemAndDiagram(t, s)
	defer release()

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	err := s.WithSystem(ctx, Blocking, func(*Slot[*manycore.System]) error { return nil })
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryLockContention))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCancelledContextFailsEvenWhenFree(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := s.WithFont(ctx, Blocking, func(*FontResource) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPanicReleasesLocks(t *testing.T) {
	s := newTestStore(t)

	assert.Panics(t, func() {
		_ = s.WithAll(t.Context(), Blocking, func(*Slot[*manycore.System], *Slot[*diagram.Diagram], *FontResource) error {
			panic("boom")
		})
	})

	require.NoError(t, s.WithAll(t.Context(), NonBlocking, func(*Slot[*manycore.System], *Slot[*diagram.Diagram], *FontResource) error {
		return nil
	}))
}

func TestScopeReturnsCallbackError(t *testing.T) {
	s := newTestStore(t)
	want := ferrors.ValidationError("bad").Build()
	err := s.WithDiagram(t.Context(), NonBlocking, func(*Slot[*diagram.Diagram]) error { return want })
	assert.Same(t, want, err)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "blocking", Blocking.String())
	assert.Equal(t, "non-blocking", NonBlocking.String())
}
