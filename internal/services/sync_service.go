package services

import (
	"context"
	"fmt"

	"github.com/Dias221467/agency-portal/internal/repository"
	"github.com/Dias221467/agency-portal/internal/state"
	"github.com/sirupsen/logrus"
)

// SyncService refreshes the whole local state from the remote tables.
type SyncService struct {
	remote *repository.Remote
	store  *state.Store
}

func NewSyncService(remote *repository.Remote, store *state.Store) *SyncService {
	return &SyncService{remote: remote, store: store}
}

// Reload bulk-fetches every table and replaces the state. Writes merged while
// the fetch runs survive the reload. On failure the current state is kept.
func (s *SyncService) Reload(ctx context.Context) error {
	err := s.store.Reload(func() (state.State, error) {
		return s.remote.Snapshot(ctx)
	})
	if err != nil {
		logrus.WithError(err).Error("State reload failed")
		return fmt.Errorf("failed to reload state: %w", err)
	}
	return nil
}
