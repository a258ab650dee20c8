// Package scheduler triggers pipeline runs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/rdallagnolo/repo-fad-tracking/internal/pipeline"
)

// Trigger starts one run
type Trigger interface {
	TryRun(ctx context.Context) (*pipeline.Result, error)
}

// Scheduler runs the trigger on a standard five-field cron schedule
type Scheduler struct {
	cron    *cron.Cron
	trigger Trigger
}

// New validates the cron expression and registers the job. The scheduler is not started.
func New(schedule string, trigger Trigger) (*Scheduler, error) {
	s := &Scheduler{cron: cron.New(), trigger: trigger}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	log.Println("CronJob: pipeline run starting")
	res, err := s.trigger.TryRun(context.Background())
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		log.Println("[info] CronJob: previous run still in progress, skipping")
	case err != nil:
		log.Printf("[warning] CronJob: run failed: %v", err)
	default:
		log.Printf("CronJob: run %s finished, %d active buoy(s)", res.Summary.RunID, res.Summary.ActiveBuoys)
	}
}

// Start begins firing in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
