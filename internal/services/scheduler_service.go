package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const insightsLockKey = "lock:insights-batch"

// activeUserSource is the slice of LearningService the batch job needs.
type activeUserSource interface {
	ActiveUsers(ctx context.Context, since time.Time) ([]string, error)
}

// SchedulerService runs the nightly insights batch. With Redis configured
// the run is guarded by a distributed lock so only one instance of the
// service does the work.
type SchedulerService struct {
	scheduler  gocron.Scheduler
	insights   *InsightsService
	users      activeUserSource
	redis      *RedisService
	cronExpr   string
	activeSpan time.Duration
	instanceID string
}

// NewSchedulerService validates the cron expression up front so a bad
// INSIGHTS_CRON fails at startup, not at 3am.
func NewSchedulerService(
	insights *InsightsService,
	users activeUserSource,
	redis *RedisService,
	cronExpr string,
) (*SchedulerService, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(cronExpr); err != nil {
		return nil, fmt.Errorf("invalid insights cron expression %q: %w", cronExpr, err)
	}

	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &SchedulerService{
		scheduler:  scheduler,
		insights:   insights,
		users:      users,
		redis:      redis,
		cronExpr:   cronExpr,
		activeSpan: 48 * time.Hour,
		instanceID: uuid.New().String(),
	}, nil
}

// Start registers the batch job and starts the scheduler.
func (s *SchedulerService) Start() error {
	log.Println("⏰ Starting insights scheduler...")

	_, err := s.scheduler.NewJob(
		gocron.CronJob(s.cronExpr, false),
		gocron.NewTask(func() {
			s.runBatch(context.Background())
		}),
		gocron.WithName("insights-batch"),
	)
	if err != nil {
		return fmt.Errorf("failed to register insights job: %w", err)
	}

	s.scheduler.Start()
	log.Printf("✅ Insights scheduler started (cron %q)", s.cronExpr)
	return nil
}

// Stop shuts the scheduler down, waiting for a running batch to finish.
func (s *SchedulerService) Stop() error {
	log.Println("⏹️ Stopping insights scheduler...")
	return s.scheduler.Shutdown()
}

// RunNow triggers one batch outside the schedule, for manual warmups.
func (s *SchedulerService) RunNow(ctx context.Context) {
	s.runBatch(ctx)
}

func (s *SchedulerService) runBatch(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if s.redis != nil {
		acquired, err := s.redis.AcquireLock(ctx, insightsLockKey, s.instanceID, 5*time.Minute)
		if err != nil {
			log.Printf("⚠️ [SCHEDULER] Lock check failed, running unguarded: %v", err)
		} else if !acquired {
			log.Println("⏭️ [SCHEDULER] Another instance holds the insights lock, skipping run")
			return
		} else {
			defer func() {
				if _, err := s.redis.ReleaseLock(context.Background(), insightsLockKey, s.instanceID); err != nil {
					log.Printf("⚠️ [SCHEDULER] Failed to release insights lock: %v", err)
				}
			}()
		}
	}

	started := time.Now()
	userIDs, err := s.users.ActiveUsers(ctx, time.Now().Add(-s.activeSpan))
	if err != nil {
		log.Printf("❌ [SCHEDULER] Failed to list active users: %v", err)
		return
	}
	if len(userIDs) == 0 {
		log.Println("ℹ️ [SCHEDULER] No recently active users, nothing to warm")
		return
	}

	s.insights.WarmUsers(ctx, userIDs)
	log.Printf("✅ [SCHEDULER] Insights batch done: %d users in %v", len(userIDs), time.Since(started))
}
