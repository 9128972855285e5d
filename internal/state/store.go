package state

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"git.home.luguber.info/inful/manyvis/internal/diagram"
	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
	"git.home.luguber.info/inful/manyvis/internal/logfields"
	"git.home.luguber.info/inful/manyvis/internal/manycore"
)

// Resource names one of the independently lockable resources.
type Resource string

const (
	ResourceSystem  Resource = "system"
	ResourceDiagram Resource = "diagram"
	ResourceFont    Resource = "font"
)

// Mode selects how a scope acquires its locks.
type Mode int

const (
	// Blocking waits for each lock until it is free or ctx is done.
	Blocking Mode = iota
	// NonBlocking fails immediately when any lock is held elsewhere.
	NonBlocking
)

func (m Mode) String() string {
	if m == NonBlocking {
		return "non-blocking"
	}
	return "blocking"
}

// Slot holds an optional value. It is only reachable inside a scope, so
// Get/Replace/Clear are atomic with respect to other scopes.
type Slot[T any] struct {
	value T
	set   bool
}

// Get returns the value and whether one is present.
func (s *Slot[T]) Get() (T, bool) { return s.value, s.set }

// Replace stores v, dropping any previous value.
func (s *Slot[T]) Replace(v T) {
	s.value = v
	s.set = true
}

// Clear empties the slot.
func (s *Slot[T]) Clear() {
	var zero T
	s.value = zero
	s.set = false
}

type lock struct {
	name Resource
	sem  *semaphore.Weighted
}

func newLock(name Resource) *lock {
	return &lock{name: name, sem: semaphore.NewWeighted(1)}
}

// Store is the single owner of the session resources.
type Store struct {
	systemLock, diagramLock, fontLock *lock

	system  Slot[*manycore.System]
	diagram Slot[*diagram.Diagram]
	font    *FontResource

	onContention func(Resource)
}

// Option configures a Store.
type Option func(*Store)

// WithFontResource seeds the store with f instead of the bundled font.
func WithFontResource(f *FontResource) Option {
	return func(s *Store) { s.font = f }
}

// WithContentionObserver is called with the resource whenever an
// acquisition fails.
func WithContentionObserver(fn func(Resource)) Option {
	return func(s *Store) { s.onContention = fn }
}

// NewStore creates an empty store seeded with the font resource.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		systemLock:  newLock(ResourceSystem),
		diagramLock: newLock(ResourceDiagram),
		fontLock:    newLock(ResourceFont),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.font == nil {
		font, err := DefaultFont()
		if err != nil {
			return nil, err
		}
		s.font = font
	}
	return s, nil
}

// acquire takes locks in the order given and returns a release func that
// frees exactly the locks taken. Callers always pass system, diagram, font
// in that order.
func (s *Store) acquire(ctx context.Context, mode Mode, locks ...*lock) (func(), error) {
	held := make([]*lock, 0, len(locks))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].sem.Release(1)
		}
	}
	for _, l := range locks {
		if err := s.take(ctx, mode, l); err != nil {
			release()
			return nil, err
		}
		held = append(held, l)
	}
	return release, nil
}

func (s *Store) take(ctx context.Context, mode Mode, l *lock) error {
	var cause error
	switch mode {
	case NonBlocking:
		if l.sem.TryAcquire(1) {
			return nil
		}
		cause = fmt.Errorf("%s is held elsewhere", l.name)
	default:
		// Acquire may succeed on a done context; cancellation wins.
		if cause = ctx.Err(); cause == nil {
			if cause = l.sem.Acquire(ctx, 1); cause == nil {
				return nil
			}
		}
	}
	if s.onContention != nil {
		s.onContention(l.name)
	}
	slog.Debug("Lock acquisition failed", logfields.Resource(string(l.name)), "mode", mode.String(), logfields.Error(cause))
	return ferrors.WrapError(cause, ferrors.CategoryLockContention, "Could not access the "+string(l.name)+", please try again.").
		Warning().
		WithRetry(ferrors.RetryImmediate).
		WithContext("resource", string(l.name)).
		WithContext("mode", mode.String()).
		Build()
}

// WithSystem runs fn holding the system lock.
func (s *Store) WithSystem(ctx context.Context, mode Mode, fn func(system *Slot[*manycore.System]) error) error {
	release, err := s.acquire(ctx, mode, s.systemLock)
	if err != nil {
		return err
	}
	defer release()
	return fn(&s.system)
}

// WithDiagram runs fn holding the diagram lock.
func (s *Store) WithDiagram(ctx context.Context, mode Mode, fn func(d *Slot[*diagram.Diagram]) error) error {
	release, err := s.acquire(ctx, mode, s.diagramLock)
	if err != nil {
		return err
	}
	defer release()
	return fn(&s.diagram)
}

// WithFont runs fn holding the font lock.
func (s *Store) WithFont(ctx context.Context, mode Mode, fn func(font *FontResource) error) error {
	release, err := s.acquire(ctx, mode, s.fontLock)
	if err != nil {
		return err
	}
	defer release()
	return fn(s.font)
}

// WithSystemAndDiagram runs fn holding the system then diagram locks.
func (s *Store) WithSystemAndDiagram(ctx context.Context, mode Mode, fn func(system *Slot[*manycore.System], d *Slot[*diagram.Diagram]) error) error {
	release, err := s.acquire(ctx, mode, s.systemLock, s.diagramLock)
	if err != nil {
		return err
	}
	defer release()
	return fn(&s.system, &s.diagram)
}

// WithDiagramAndFont runs fn holding the diagram then font locks.
func (s *Store) WithDiagramAndFont(ctx context.Context, mode Mode, fn func(d *Slot[*diagram.Diagram], font *FontResource) error) error {
	release, err := s.acquire(ctx, mode, s.diagramLock, s.fontLock)
	if err != nil {
		return err
	}
	defer release()
	return fn(&s.diagram, s.font)
}

// WithAll runs fn holding every lock.
func (s *Store) WithAll(ctx context.Context, mode Mode, fn func(system *Slot[*manycore.System], d *Slot[*diagram.Diagram], font *FontResource) error) error {
	release, err := s.acquire(ctx, mode, s.systemLock, s.diagramLock, s.fontLock)
	if err != nil {
		return err
	}
	defer release()
	return fn(&s.system, &s.diagram, s.font)
}
