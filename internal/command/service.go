package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// LoaderIssue records a loader failure during a reload. Failures caused
// by the reload's own cancellation are filtered out before recording.
type LoaderIssue struct {
	Loader int
	Err    error
}

func (i LoaderIssue) Error() string {
	return fmt.Sprintf("command loader %d: %v", i.Loader, i.Err)
}

// Service aggregates commands from an ordered list of loaders into
// atomically published snapshots. Loader order sets conflict precedence:
// built-in first, then file-defined, then extension-derived.
type Service struct {
	loaders []Loader
	current atomic.Pointer[Snapshot]

	mu         sync.Mutex
	subs       map[int]func(*Snapshot)
	nextSub    int
	generation uint64
	cancel     context.CancelFunc
	issues     []LoaderIssue
}

// NewService creates an aggregator over the given loaders. No snapshot
// exists until the first Reload; queries before that see an empty one.
func NewService(loaders ...Loader) *Service {
	s := &Service{
		loaders: loaders,
		subs:    make(map[int]func(*Snapshot)),
	}
	s.current.Store(emptySnapshot)
	return s
}

// Snapshot returns the current published snapshot.
func (s *Service) Snapshot() *Snapshot {
	return s.current.Load()
}

// Commands returns the current snapshot's top-level commands.
func (s *Service) Commands() []*SlashCommand {
	return s.Snapshot().Commands()
}

// Resolve matches raw input against the current snapshot.
func (s *Service) Resolve(input string) Resolution {
	return s.Snapshot().Resolve(input)
}

// Issues returns the loader failures recorded by the last completed
// reload.
func (s *Service) Issues() []LoaderIssue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LoaderIssue(nil), s.issues...)
}

// Subscribe registers a listener invoked once per published snapshot.
// The returned function removes the subscription.
func (s *Service) Subscribe(fn func(*Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Refresh triggers a reload with an internally owned cancellation
// context, superseding any in-flight internally owned reload. This is
// the hook handed to the extension lifecycle manager.
func (s *Service) Refresh() {
	s.Reload(nil)
}

// Reload invokes every loader concurrently, merges their outputs, and
// publishes a fresh snapshot. A loader failure is recorded and skipped
// rather than aborting the reload, unless it was caused by the reload's
// cancellation, in which case it is silently dropped.
//
// With a nil ctx the service owns the cancellation context and a newer
// Reload(nil) supersedes this one: the superseded call returns
// context.Canceled and publishes nothing. A non-nil ctx bypasses that
// bookkeeping and is honored as-is.
func (s *Service) Reload(ctx context.Context) (*Snapshot, error) {
	internal := ctx == nil
	var gen uint64
	if internal {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(context.Background())
		s.cancel = cancel
		s.generation++
		gen = s.generation
		s.mu.Unlock()
	}

	loaded, issues := s.invokeLoaders(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := buildSnapshot(loaded)

	s.mu.Lock()
	if internal && gen != s.generation {
		s.mu.Unlock()
		return nil, context.Canceled
	}
	s.issues = issues
	listeners := make([]func(*Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.current.Store(snap)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return snap, nil
}

// invokeLoaders runs every loader in parallel and collects results in
// loader order.
func (s *Service) invokeLoaders(ctx context.Context) ([][]*SlashCommand, []LoaderIssue) {
	loaded := make([][]*SlashCommand, len(s.loaders))
	errs := make([]error, len(s.loaders))

	var wg sync.WaitGroup
	for i, loader := range s.loaders {
		wg.Add(1)
		go func(i int, loader Loader) {
			defer wg.Done()
			cmds, err := loader.LoadCommands(ctx)
			if err != nil {
				errs[i] = err
				return
			}
			loaded[i] = cmds
		}(i, loader)
	}
	wg.Wait()

	// Only failures caused by this reload's own signal are dropped; a
	// loader failing with a cancellation flavor of its own is a real
	// failure and gets recorded.
	reloadCancelled := ctx.Err() != nil
	var issues []LoaderIssue
	for i, err := range errs {
		if err == nil {
			continue
		}
		if reloadCancelled && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			continue
		}
		issues = append(issues, LoaderIssue{Loader: i, Err: err})
	}
	return loaded, issues
}
