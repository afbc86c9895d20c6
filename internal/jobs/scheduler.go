package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Scheduler struct {
	cron    *cron.Cron
	sweeper *TempSweeper
	spec    string
	log     zerolog.Logger
}

// NewScheduler runs the temp sweeper on spec, a six-field cron expression
// with seconds.
func NewScheduler(sweeper *TempSweeper, spec string, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:    c,
		sweeper: sweeper,
		spec:    spec,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if s.sweeper == nil || s.spec == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.sweepTemp); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling. The returned context is done once a running sweep
// has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) sweepTemp() {
	removed, err := s.sweeper.Sweep(time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("temp sweep failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("temp sweep removed stale uploads")
	}
}
