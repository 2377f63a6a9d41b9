// Package scheduler runs the periodic jobs of the service.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const jobTimeout = 5 * time.Minute

// Job is one periodic task. Spec uses the standard five-field cron syntax or
// descriptors such as "@every 5m".
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Start schedules jobs and starts the cron runner. Stop it with Stop, which
// waits for running jobs. A run is skipped while the previous one of the
// same job is still going.
func Start(jobs ...Job) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	for _, job := range jobs {
		job := job
		if _, err := c.AddFunc(job.Spec, func() { run(job) }); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
		logrus.WithFields(logrus.Fields{"job": job.Name, "spec": job.Spec}).Info("Job scheduled")
	}

	c.Start()
	return c, nil
}

func run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		logrus.WithError(err).WithField("job", job.Name).Error("Scheduled job failed")
		return
	}
	logrus.WithFields(logrus.Fields{
		"job":      job.Name,
		"duration": time.Since(start).String(),
	}).Debug("Scheduled job finished")
}
