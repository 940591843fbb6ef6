// Package task schedules the service's background jobs.
package task

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// Task is a job that runs on a fixed interval.
type Task struct {
	// Name identifies the job in logs.
	Name string
	// Duration is the duration between each run of the task.
	Duration time.Duration
	// Task is the function that is run when the task is scheduled.
	Task func(ctx context.Context) error
}

// Start registers tasks on a new scheduler and starts it. Runs of one task
// never overlap; a run still in progress when the next is due is skipped.
func Start(ctx context.Context, tasks []Task) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("task: create scheduler: %w", err)
	}
	for _, t := range tasks {
		t := t
		if t.Task == nil || t.Duration <= 0 {
			continue
		}
		_, errJob := scheduler.NewJob(
			gocron.DurationJob(t.Duration),
			gocron.NewTask(func() { run(ctx, t) }),
			gocron.WithName(t.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if errJob != nil {
			_ = scheduler.Shutdown()
			return nil, fmt.Errorf("task: schedule %s: %w", t.Name, errJob)
		}
	}
	scheduler.Start()
	return scheduler, nil
}

func run(ctx context.Context, t Task) {
	if errRun := t.Task(ctx); errRun != nil {
		log.WithError(errRun).WithField("task", t.Name).Warn("task run failed")
	}
}
