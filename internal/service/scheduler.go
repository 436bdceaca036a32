package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/datatypes"

	"market-advisor/config"
	"market-advisor/internal/dto"
	"market-advisor/internal/model"
	"market-advisor/internal/repository"
	"market-advisor/pkg/logger"
	"market-advisor/pkg/notify"
	"market-advisor/pkg/utils"
)

// SchedulerService is the polling loop that fires due schedules and the
// entry point for manual runs.
type SchedulerService interface {
	Start(ctx context.Context)
	Stop()
	RunScheduleNow(ctx context.Context, id uint) (*model.ScheduleRun, error)
	Status(ctx context.Context) (*dto.SchedulerStatus, error)
}

type scheduler struct {
	cfg          *config.Config
	log          *logger.Logger
	scheduleRepo repository.ScheduleRepository
	scheduleSvc  ScheduleService
	batch        BatchService
	notifier     notify.Notifier

	running atomic.Bool
	locks   sync.Map
	stopCh  chan struct{}
	stopped sync.Once
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	scheduleRepo repository.ScheduleRepository,
	scheduleSvc ScheduleService,
	batch BatchService,
	notifier notify.Notifier,
) SchedulerService {
	return &scheduler{
		cfg:          cfg,
		log:          log,
		scheduleRepo: scheduleRepo,
		scheduleSvc:  scheduleSvc,
		batch:        batch,
		notifier:     notifier,
		stopCh:       make(chan struct{}),
	}
}

// Start blocks polling for due schedules until the context is cancelled or
// Stop is called.
func (s *scheduler) Start(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.WarnContext(ctx, "Scheduler already running")
		return
	}
	defer s.running.Store(false)

	s.log.InfoContext(ctx, "Scheduler started",
		logger.StringField("poll_interval", s.cfg.Scheduler.PollInterval.String()),
	)

	ticker := time.NewTicker(s.cfg.Scheduler.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoContext(ctx, "Scheduler stopped")
			return
		case <-s.stopCh:
			s.log.InfoContext(ctx, "Scheduler stopped")
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *scheduler) Stop() {
	s.stopped.Do(func() {
		close(s.stopCh)
	})
}

func (s *scheduler) poll(ctx context.Context) {
	due, err := s.scheduleRepo.ListDue(ctx, time.Now())
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to list due schedules", logger.ErrorField(err))
		return
	}

	for _, schedule := range due {
		if !utils.ShouldContinue(ctx, s.log) {
			return
		}
		if _, err := s.executeSchedule(ctx, schedule.ID, model.RunTriggerScheduled); err != nil {
			s.log.ErrorContext(ctx, "Scheduled run failed",
				logger.IntField("schedule_id", int(schedule.ID)),
				logger.ErrorField(err),
			)
		}
	}
}

// RunScheduleNow triggers one immediate execution without altering the
// schedule's next planned run. It blocks until the run completes.
func (s *scheduler) RunScheduleNow(ctx context.Context, id uint) (*model.ScheduleRun, error) {
	return s.executeSchedule(ctx, id, model.RunTriggerManual)
}

func (s *scheduler) Status(ctx context.Context) (*dto.SchedulerStatus, error) {
	total, err := s.scheduleRepo.Count(ctx, nil)
	if err != nil {
		return nil, err
	}
	enabled, err := s.scheduleRepo.Count(ctx, utils.ToPointer(true))
	if err != nil {
		return nil, err
	}
	nextRun, err := s.scheduleRepo.NextScheduledRun(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SchedulerStatus{
		Running:          s.running.Load(),
		TotalSchedules:   total,
		EnabledSchedules: enabled,
		NextScheduledRun: nextRun,
	}, nil
}

// executeSchedule runs one schedule end to end under its execution lock, so a
// manual trigger and the poll loop never run the same schedule concurrently.
func (s *scheduler) executeSchedule(ctx context.Context, id uint, trigger model.RunTrigger) (*model.ScheduleRun, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()
	run := &model.ScheduleRun{
		ScheduleID: schedule.ID,
		Trigger:    trigger,
		Status:     model.RunStatusRunning,
		StartedAt:  startedAt,
	}
	if err := s.scheduleRepo.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Executing schedule",
		logger.IntField("schedule_id", int(schedule.ID)),
		logger.StringField("name", schedule.Name),
		logger.StringField("trigger", string(trigger)),
	)

	batch, batchErr := s.runBatch(ctx, schedule)
	s.finishRun(ctx, run, batch, batchErr)
	s.advanceSchedule(ctx, schedule, trigger, startedAt, batch)

	if batchErr == nil && batch != nil && batch.MarketSummary != nil && schedule.SendEmail {
		s.notifySummary(ctx, schedule, batch)
	}

	if batchErr != nil {
		return run, batchErr
	}
	return run, nil
}

func (s *scheduler) runBatch(ctx context.Context, schedule *model.Schedule) (*dto.BatchResult, error) {
	var assets []string
	if err := json.Unmarshal(schedule.Assets, &assets); err != nil {
		return nil, fmt.Errorf("%w: %v", dto.ErrInvalidScheduleDefinition, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Scheduler.TimeoutDuration)
	defer cancel()

	return s.batch.AnalyzeMany(runCtx, assets, schedule.TimeframeDays, schedule.RiskTolerance)
}

func (s *scheduler) finishRun(ctx context.Context, run *model.ScheduleRun, batch *dto.BatchResult, batchErr error) {
	run.CompletedAt = utils.ToPointer(time.Now())

	if batchErr != nil {
		run.Status = model.RunStatusFailed
		run.ErrorMessage = utils.ToPointer(batchErr.Error())
	} else {
		run.Status = model.RunStatusCompleted
		run.AssetCount = len(batch.Successful) + len(batch.Failed)
		run.SuccessCount = len(batch.Successful)
		run.FailureCount = len(batch.Failed)
		if output, err := json.Marshal(batch); err == nil {
			run.Output = datatypes.JSON(output)
		}
	}

	if err := s.scheduleRepo.UpdateRun(ctx, run); err != nil {
		s.log.ErrorContext(ctx, "Failed to update schedule run", logger.ErrorField(err))
	}
}

// advanceSchedule updates run-state counters after an attempt. Manual runs
// leave next_run untouched; scheduled runs advance it past now even when the
// run failed, so a broken schedule cannot hot-loop.
func (s *scheduler) advanceSchedule(ctx context.Context, schedule *model.Schedule, trigger model.RunTrigger, startedAt time.Time, batch *dto.BatchResult) {
	schedule.LastRun = &startedAt
	schedule.RunCount++
	if batch != nil && len(batch.Successful) > 0 {
		schedule.SuccessCount++
	}

	if trigger == model.RunTriggerScheduled {
		nextRun, err := s.scheduleSvc.NextRunAfter(schedule.Frequency, schedule.TimeOfDay, time.Now())
		if err != nil {
			s.log.ErrorContext(ctx, "Failed to compute next run",
				logger.IntField("schedule_id", int(schedule.ID)),
				logger.ErrorField(err),
			)
			schedule.NextRun = nil
		} else {
			schedule.NextRun = &nextRun
		}
	}

	if err := s.scheduleRepo.UpdateRunState(ctx, schedule); err != nil {
		s.log.ErrorContext(ctx, "Failed to update schedule run state", logger.ErrorField(err))
	}
}

func (s *scheduler) notifySummary(ctx context.Context, schedule *model.Schedule, batch *dto.BatchResult) {
	if s.notifier == nil {
		return
	}
	message := formatSummaryMessage(schedule, batch)
	if err := s.notifier.Send(ctx, message); err != nil {
		s.log.ErrorContext(ctx, "Failed to send run summary notification",
			logger.IntField("schedule_id", int(schedule.ID)),
			logger.ErrorField(err),
		)
	}
}

func (s *scheduler) lockFor(id uint) *sync.Mutex {
	actual, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func formatSummaryMessage(schedule *model.Schedule, batch *dto.BatchResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>📊 %s</b>\n", schedule.Name))
	summary := batch.MarketSummary
	sb.WriteString(fmt.Sprintf("Market: <b>%s</b> (confidence %.0f%%)\n", summary.OverallSentiment, summary.MarketConfidence*100))
	sb.WriteString(fmt.Sprintf("Analyzed: %d | Failed: %d\n", summary.AssetsAnalyzed, len(batch.Failed)))
	if len(summary.TopOpportunities) > 0 {
		sb.WriteString(fmt.Sprintf("🟢 Opportunities: %s\n", strings.Join(summary.TopOpportunities, ", ")))
	}
	if len(summary.TopRisks) > 0 {
		sb.WriteString(fmt.Sprintf("🔴 Risks: %s\n", strings.Join(summary.TopRisks, ", ")))
	}
	for _, r := range batch.Successful {
		sb.WriteString(fmt.Sprintf("• %s: <b>%s</b> (%.0f%%, %s risk)\n", r.Asset, r.Decision, r.Confidence*100, r.RiskLevel))
	}
	return sb.String()
}
