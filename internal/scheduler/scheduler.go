package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Refresher rebuilds some derived state, e.g. a provider's symbol directory.
type Refresher interface {
	Name() string
	Refresh(ctx context.Context) error
}

// Scheduler runs periodic refresh jobs. Specs include a seconds field.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	log  logrus.FieldLogger
}

func New(ctx context.Context, log logrus.FieldLogger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{cron: cron.New(cron.WithSeconds()), ctx: ctx, log: log}
}

// Register adds a job calling r.Refresh on spec. A failed refresh is logged;
// r keeps serving its previous state.
func (s *Scheduler) Register(spec string, r Refresher) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run(r) }); err != nil {
		return fmt.Errorf("register %s refresh: %w", r.Name(), err)
	}
	s.log.WithFields(logrus.Fields{"job": r.Name(), "spec": spec}).Info("refresh job registered")
	return nil
}

func (s *Scheduler) run(r Refresher) {
	log := s.log.WithField("job", r.Name())
	if err := r.Refresh(s.ctx); err != nil {
		log.WithError(err).Error("refresh failed")
		return
	}
	log.Info("refresh done")
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
