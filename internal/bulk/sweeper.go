package bulk

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// DefaultCleanupSchedule runs the sweep at the top of every hour
const DefaultCleanupSchedule = "0 * * * *"

// DefaultRetention keeps terminal jobs for seven days
const DefaultRetention = 7 * 24 * time.Hour

// Sweeper periodically removes old terminal jobs
type Sweeper struct {
	service   *Service
	cron      *cron.Cron
	retention time.Duration
	logger    arbor.ILogger
}

// NewSweeper creates a cleanup sweeper for the service
func NewSweeper(service *Service, retention time.Duration, logger arbor.ILogger) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Sweeper{
		service:   service,
		cron:      cron.New(),
		retention: retention,
		logger:    logger,
	}
}

// Start schedules the sweep using a standard five-field cron expression
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}

	if _, err := s.cron.AddFunc(schedule, s.RunNow); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Dur("retention", s.retention).
		Msg("Bulk job cleanup sweeper started")

	return nil
}

// Stop stops the sweeper and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Bulk job cleanup sweeper stopped")
}

// RunNow performs one sweep immediately
func (s *Sweeper) RunNow() {
	removed := s.service.CleanupOldJobs(s.retention)
	s.logger.Debug().Int("removed", removed).Msg("Bulk job cleanup sweep completed")
}
