package service

import (
	"context"
	"sync"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/confscope/pkg/domain"
	"github.com/umputun/confscope/pkg/loader"
	"github.com/umputun/confscope/pkg/poller"
	"github.com/umputun/confscope/pkg/seen"
	"github.com/umputun/confscope/pkg/state"
)

// Service ties the loader, poller, tracker and assembler together and is the
// single entry point for the presentation layer. It keeps the most recently
// completed definition list; a load finishing later simply overwrites it,
// in-flight loads are never cancelled.
type Service struct {
	loader    *loader.Loader
	poller    *poller.Poller
	tracker   *seen.Tracker
	assembler *state.Assembler

	mu   sync.RWMutex
	defs []domain.SettingDefinition
	last domain.LoadResult
}

// New creates a service
func New(ldr *loader.Loader, pl *poller.Poller, tracker *seen.Tracker, assembler *state.Assembler) *Service {
	return &Service{loader: ldr, poller: pl, tracker: tracker, assembler: assembler}
}

// LoadConfiguration performs a full load, initializes seen tracking on the
// first call and records newly appeared settings afterwards.
func (s *Service) LoadConfiguration(ctx context.Context) domain.LoadResult {
	result := s.loader.Load(ctx)

	keys := definitionKeys(result.Definitions)
	s.tracker.Initialize(ctx, keys)
	if fresh := s.tracker.DetectNew(ctx, keys); len(fresh) > 0 {
		lgr.Printf("[INFO] detected %d new settings", len(fresh))
	}

	s.mu.Lock()
	s.defs = result.Definitions
	s.last = result
	s.mu.Unlock()

	return result
}

// RefreshConfiguration clears the pending flag and stored snapshot, then
// triggers a full load.
func (s *Service) RefreshConfiguration(ctx context.Context) domain.LoadResult {
	s.poller.Reset(ctx)
	return s.LoadConfiguration(ctx)
}

// CheckForRemoteUpdates runs one poller check on demand
func (s *Service) CheckForRemoteUpdates(ctx context.Context) (bool, error) {
	return s.poller.CheckNow(ctx)
}

// StartPolling launches the background poller
func (s *Service) StartPolling(ctx context.Context) {
	s.poller.Start(ctx)
}

// StopPolling cancels the poller timer
func (s *Service) StopPolling() {
	s.poller.Stop()
}

// BuildState assembles the consolidated snapshot from the last completed
// load. Pure and synchronous given current live values.
func (s *Service) BuildState(ctx context.Context) domain.SettingsState {
	s.mu.RLock()
	defs := s.defs
	s.mu.RUnlock()

	return s.assembler.Build(ctx, defs)
}

// MarkSeen records the given keys as seen
func (s *Service) MarkSeen(ctx context.Context, keys []string) {
	s.tracker.MarkSeen(ctx, keys)
}

// MarkAllSeen records every currently loaded setting as seen
func (s *Service) MarkAllSeen(ctx context.Context) {
	s.mu.RLock()
	keys := definitionKeys(s.defs)
	s.mu.RUnlock()

	s.tracker.MarkAllSeen(ctx, keys)
}

// Subscribe exposes the loader's change notifications
func (s *Service) Subscribe() (<-chan domain.LoadResult, func()) {
	return s.loader.Subscribe()
}

// LastResult returns the most recently completed load result
func (s *Service) LastResult() domain.LoadResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func definitionKeys(defs []domain.SettingDefinition) []string {
	keys := make([]string, 0, len(defs))
	for _, d := range defs {
		keys = append(keys, d.Key)
	}
	return keys
}
