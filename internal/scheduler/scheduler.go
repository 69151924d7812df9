package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/kwentura-service/internal/redis"
)

const (
	defaultJobTimeout = 9 * time.Minute
	// runLockTTL is shorter than the finest cron granularity so the next
	// tick is never blocked by a previous one
	runLockTTL = 55 * time.Second
)

// Job is one scheduled background task
type Job struct {
	Name     string
	Schedule string // 5-field cron, or 6-field with seconds
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// jobState tracks one job's run history
type jobState struct {
	job       Job
	entryID   cron.EntryID
	runs      int
	failures  int
	skipped   int
	lastRun   time.Time
	lastError string
	running   bool
}

// Scheduler runs background jobs on cron schedules in a fixed timezone.
// With a shared locker only one replica executes each tick.
type Scheduler struct {
	location *time.Location
	locker   redis.Locker
	logger   *logrus.Logger
	cron     *cron.Cron
	jobs     map[string]*jobState
	order    []string
	mu       sync.Mutex
	started  bool
}

// NewScheduler creates a scheduler. locker may be nil.
func NewScheduler(location *time.Location, locker redis.Locker, logger *logrus.Logger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{
		location: location,
		locker:   locker,
		logger:   logger,
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(location)),
		jobs:     make(map[string]*jobState),
	}
}

// normalizeSchedule converts 5-field cron to 6-field by adding a seconds field
func normalizeSchedule(schedule string) string {
	if len(strings.Fields(schedule)) == 5 {
		return "0 " + schedule
	}
	return schedule
}

// Add registers a job. Must be called before Start.
func (s *Scheduler) Add(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.Name == "" || job.Run == nil {
		return errors.New("job name and run function are required")
	}
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %s already registered", job.Name)
	}
	if job.Timeout <= 0 {
		job.Timeout = defaultJobTimeout
	}

	state := &jobState{job: job}
	id, err := s.cron.AddFunc(normalizeSchedule(job.Schedule), func() { s.execute(state) })
	if err != nil {
		s.logger.WithError(err).WithField("job", job.Name).Error("Failed to schedule job")
		return fmt.Errorf("invalid schedule %q for job %s: %w", job.Schedule, job.Name, err)
	}
	state.entryID = id
	s.jobs[job.Name] = state
	s.order = append(s.order, job.Name)

	s.logger.WithFields(logrus.Fields{
		"job":      job.Name,
		"schedule": job.Schedule,
		"timezone": s.location.String(),
	}).Info("Job scheduled")
	return nil
}

// Start begins firing scheduled jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
	s.logger.WithField("jobs", len(s.jobs)).Info("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// RunNow executes a registered job immediately and synchronously
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	state, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not registered", name)
	}
	return s.execute(state)
}

func (s *Scheduler) execute(state *jobState) error {
	log := s.logger.WithField("job", state.job.Name)

	s.mu.Lock()
	if state.running {
		state.skipped++
		s.mu.Unlock()
		log.Warn("Previous run still in progress, skipping")
		return nil
	}
	state.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		state.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), state.job.Timeout)
	defer cancel()

	if s.locker != nil {
		// held until expiry so replicas firing on the same tick skip
		if _, err := s.locker.Acquire(ctx, "job:"+state.job.Name, runLockTTL, 0); err != nil {
			s.mu.Lock()
			state.skipped++
			s.mu.Unlock()
			if errors.Is(err, redis.ErrLockNotAcquired) {
				log.Debug("Another replica owns this run, skipping")
				return nil
			}
			log.WithError(err).Warn("Failed to acquire job lock, skipping")
			return err
		}
	}

	start := time.Now()
	log.Info("Starting scheduled job")
	err := state.job.Run(ctx)

	s.mu.Lock()
	state.runs++
	state.lastRun = start
	state.lastError = ""
	if err != nil {
		state.failures++
		state.lastError = err.Error()
	}
	s.mu.Unlock()

	entry := log.WithField("duration", time.Since(start).String())
	if err != nil {
		entry.WithError(err).Error("Scheduled job failed")
		return err
	}
	entry.Info("Completed scheduled job")
	return nil
}

// GetStats returns scheduler statistics
func (s *Scheduler) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make(map[string]interface{}, len(s.jobs))
	for _, name := range s.order {
		state := s.jobs[name]
		stats := map[string]interface{}{
			"schedule": state.job.Schedule,
			"runs":     state.runs,
			"failures": state.failures,
			"skipped":  state.skipped,
			"running":  state.running,
		}
		if !state.lastRun.IsZero() {
			stats["last_run"] = state.lastRun.Format(time.RFC3339)
		}
		if state.lastError != "" {
			stats["last_error"] = state.lastError
		}
		if s.started {
			if next := s.cron.Entry(state.entryID).Next; !next.IsZero() {
				stats["next_run"] = next.Format(time.RFC3339)
			}
		}
		jobs[name] = stats
	}

	return map[string]interface{}{
		"running":  s.started,
		"timezone": s.location.String(),
		"jobs":     jobs,
	}
}
