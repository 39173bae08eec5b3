package server

import (
	"context"
	"time"

	"ansible-webui/internal/reposync"
)

// runSync performs one repository sync and records its result.
func (s *Server) runSync(ctx context.Context) (reposync.Result, error) {
	if s.Syncer == nil || !s.Syncer.Configured() {
		return reposync.Result{}, reposync.ErrNotConfigured
	}

	result, err := s.Syncer.Sync(ctx)
	if err != nil {
		s.Metrics.ObserveSync("error")
		return result, err
	}
	s.Metrics.ObserveSync(result.Action)
	return result, nil
}

// StartRepoSync syncs the playbook repository once, then every configured
// interval until ctx is cancelled. It does nothing when no repository is
// configured.
func (s *Server) StartRepoSync(ctx context.Context) {
	if s.Syncer == nil || !s.Syncer.Configured() {
		return
	}
	interval := time.Duration(s.Config.SyncIntervalMinutes) * time.Minute
	logger := s.Logger.With().Str("component", "reposync").Logger()

	go func() {
		// Run first sync immediately
		if _, err := s.runSync(ctx); err != nil {
			logger.Warn().Err(err).Msg("Initial playbook repository sync failed")
		}
		if interval <= 0 {
			return
		}

		logger.Info().Dur("interval", interval).Msg("Starting periodic playbook repository sync")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.runSync(ctx); err != nil {
					logger.Warn().Err(err).Msg("Periodic playbook repository sync failed")
				}
			}
		}
	}()
}
