// Package scheduler fires the poll cycle on a cron trigger.
//
// One scheduler holds exactly one named job. The job body runs in its own
// goroutine so blocking transport I/O never stalls the trigger clock, and
// runs are chained with DelayIfStillRunning: a slow poll delays the next
// fire, it does not stack.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a single-job cron instance with idempotent start/stop.
type Scheduler struct {
	jobName string
	spec    string
	job     func()
	loc     *time.Location
	log     *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	running bool
}

// DailySpec returns a cron spec firing once a day at the given wall-clock
// time, e.g. DailySpec(6, 15) fires at 06:15 local.
func DailySpec(hour, minute int) string {
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

// HourlySpec fires at the top of every hour.
func HourlySpec() string {
	return "0 * * * *"
}

// New validates the cron spec and returns a stopped Scheduler. The job
// fires in loc's wall-clock time (nil means the system zone).
func New(jobName, spec string, loc *time.Location, job func(), log *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		jobName: jobName,
		spec:    spec,
		job:     job,
		loc:     loc,
		log:     log.With("component", "scheduler", "job", jobName),
	}, nil
}

// Start arms the trigger. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.DelayIfStillRunning(cronLogger{s.log})),
	)
	id, err := c.AddFunc(s.spec, s.job)
	if err != nil {
		return fmt.Errorf("adding job %q: %w", s.jobName, err)
	}
	c.Start()

	s.cron = c
	s.entryID = id
	s.running = true
	s.log.Info("scheduler started", "spec", s.spec, "next", c.Entry(id).Next)
	return nil
}

// Stop disarms the trigger, letting any in-flight run finish. Stopping a
// stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.running = false
	s.log.Info("scheduler stopped")
}

// Running reports whether the trigger is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next fire time, or the zero time when stopped.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// JobName returns the held job's name.
func (s *Scheduler) JobName() string { return s.jobName }

// cronLogger adapts slog to the cron library's logger interface.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
