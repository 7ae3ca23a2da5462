package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// scheduleParser accepts standard 5-field cron expressions (minute, hour, dom, month, dow)
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseSchedule validates a 5-field cron expression
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := scheduleParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// ScheduledJob runs one named task every time its cron schedule fires.
// Runs never overlap: the next fire time is computed after a run returns.
type ScheduledJob struct {
	name     string
	schedule cron.Schedule
	run      func(context.Context) error
	now      func() time.Time
}

// NewScheduledJob creates a job for an already parsed schedule
func NewScheduledJob(name string, schedule cron.Schedule, run func(context.Context) error) *ScheduledJob {
	return &ScheduledJob{
		name:     name,
		schedule: schedule,
		run:      run,
		now:      time.Now,
	}
}

// Start blocks until ctx is cancelled
func (j *ScheduledJob) Start(ctx context.Context) {
	timer := time.NewTimer(j.untilNext())
	defer timer.Stop()

	log.Info().Str("job", j.name).Time("next_run", j.now().Add(j.untilNext())).Msg("Scheduled job started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("job", j.name).Msg("Scheduled job stopped")
			return
		case <-timer.C:
			start := j.now()
			if err := j.run(ctx); err != nil {
				log.Error().Err(err).Str("job", j.name).Msg("Scheduled run failed")
			} else {
				log.Info().Str("job", j.name).Dur("duration", j.now().Sub(start)).Msg("Scheduled run complete")
			}
			timer.Reset(j.untilNext())
		}
	}
}

func (j *ScheduledJob) untilNext() time.Duration {
	now := j.now()
	d := j.schedule.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
