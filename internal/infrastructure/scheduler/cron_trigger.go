package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobSubmitter queues jobs. *Scheduler implements it.
type JobSubmitter interface {
	Schedule(jobType JobType) (*Job, error)
}

// CronTriggerConfig holds configuration for the cron trigger
type CronTriggerConfig struct {
	// OverdueSweepHour and OverdueSweepMinute set the daily sweep time (24h, local time)
	OverdueSweepHour   int
	OverdueSweepMinute int

	// BacklogInterval is the time between payment backlog passes. Zero disables them.
	BacklogInterval time.Duration

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		OverdueSweepHour:   1, // 1am
		OverdueSweepMinute: 0,
		BacklogInterval:    15 * time.Minute,
		CheckInterval:      time.Minute,
	}
}

// ParseDailySchedule reads the minute and hour fields of a cron expression
// such as "30 1 * * *". The remaining fields are ignored. An empty expression
// yields the default of 01:00.
func ParseDailySchedule(cronExpr string) (hour, minute int, err error) {
	defaults := DefaultCronTriggerConfig()
	parts := strings.Fields(cronExpr)
	if len(parts) == 0 {
		return defaults.OverdueSweepHour, defaults.OverdueSweepMinute, nil
	}
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: cron expression %q needs minute and hour fields", ErrInvalidConfig, cronExpr)
	}

	if minute, err = strconv.Atoi(parts[0]); err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: minute must be 0-59, got %q", ErrInvalidConfig, parts[0])
	}
	if hour, err = strconv.Atoi(parts[1]); err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: hour must be 0-23, got %q", ErrInvalidConfig, parts[1])
	}
	return hour, minute, nil
}

// CronTrigger submits the daily overdue sweep and the periodic payment backlog pass
type CronTrigger struct {
	config    CronTriggerConfig
	submitter JobSubmitter
	logger    *zap.Logger

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string // date of the last overdue sweep
	lastBacklog time.Time
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(config CronTriggerConfig, submitter JobSubmitter, logger *zap.Logger) *CronTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		config:    config,
		submitter: submitter,
		logger:    logger,
	}
}

// Start starts the cron trigger
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return nil
	}
	c.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Cron trigger started",
		zap.Int("overdue_sweep_hour", c.config.OverdueSweepHour),
		zap.Int("overdue_sweep_minute", c.config.OverdueSweepMinute),
		zap.Duration("backlog_interval", c.config.BacklogInterval),
		zap.Duration("check_interval", c.config.CheckInterval),
	)
	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.cancel()
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop checks periodically if it's time to submit jobs
func (c *CronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.checkAndTrigger(now)
		}
	}
}

// checkAndTrigger submits whatever is due at now
func (c *CronTrigger) checkAndTrigger(now time.Time) {
	if c.sweepDue(now) {
		c.submit(JobTypeOverdueSweep)
	}
	if c.backlogDue(now) {
		c.submit(JobTypePaymentBacklog)
	}
}

// sweepDue reports whether the daily sweep time has been reached and the
// sweep has not run today
func (c *CronTrigger) sweepDue(now time.Time) bool {
	currentDate := now.Format("2006-01-02")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastRunDate == currentDate {
		return false
	}
	if now.Hour() < c.config.OverdueSweepHour ||
		(now.Hour() == c.config.OverdueSweepHour && now.Minute() < c.config.OverdueSweepMinute) {
		return false
	}
	c.lastRunDate = currentDate
	return true
}

func (c *CronTrigger) backlogDue(now time.Time) bool {
	if c.config.BacklogInterval <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lastBacklog.IsZero() && now.Sub(c.lastBacklog) < c.config.BacklogInterval {
		return false
	}
	c.lastBacklog = now
	return true
}

func (c *CronTrigger) submit(jobType JobType) {
	job, err := c.submitter.Schedule(jobType)
	if err != nil {
		c.logger.Error("Failed to schedule job",
			zap.String("job_type", string(jobType)),
			zap.Error(err),
		)
		return
	}
	c.logger.Info("Scheduled job",
		zap.String("job_type", string(jobType)),
		zap.String("job_id", job.ID.String()),
	)
}

// TriggerNow submits a job outside the schedule
func (c *CronTrigger) TriggerNow(jobType JobType) (*Job, error) {
	return c.submitter.Schedule(jobType)
}
