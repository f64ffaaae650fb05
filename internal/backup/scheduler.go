package backup

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/duskfield/wxengine/internal/config"
)

// Scheduler runs the snapshot-then-rotate sequence on cfg.Backup.Schedule.
// It is a no-op if backups are disabled.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	cfg     config.BackupConfig
	log     zerolog.Logger
}

// NewScheduler builds a Scheduler; call Start to begin running it.
func NewScheduler(service *Service, cfg config.BackupConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		cfg:     cfg,
		log:     log.With().Str("component", "backup_scheduler").Logger(),
	}
}

// Start registers the backup job on cfg.Schedule and starts the cron
// runner. Returns immediately whether or not backups are enabled; when
// disabled, Start does nothing.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.log.Debug().Msg("backups disabled, scheduler not started")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		ctx := context.Background()
		if err := s.service.Run(ctx); err != nil {
			s.log.Error().Err(err).Msg("scheduled backup failed")
			return
		}
		if err := s.service.Rotate(ctx, s.cfg.RetentionDays); err != nil {
			s.log.Error().Err(err).Msg("scheduled backup rotation failed")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Str("schedule", s.cfg.Schedule).Msg("backup scheduler started")
	return nil
}

// Stop halts the cron runner and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
