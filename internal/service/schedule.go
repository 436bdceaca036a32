package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"

	"market-advisor/config"
	"market-advisor/internal/dto"
	"market-advisor/internal/model"
	"market-advisor/internal/repository"
	"market-advisor/pkg/logger"
	"market-advisor/pkg/utils"
)

// ScheduleService manages recurring analysis job definitions and owns the
// next-run calculation.
type ScheduleService interface {
	Create(ctx context.Context, req *dto.CreateScheduleRequest) (*model.Schedule, error)
	Update(ctx context.Context, id uint, req *dto.UpdateScheduleRequest) (*model.Schedule, error)
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*model.Schedule, error)
	List(ctx context.Context, param *model.GetScheduleParam) ([]model.Schedule, error)
	NextRunAfter(frequency string, timeOfDay string, after time.Time) (time.Time, error)
}

type scheduleService struct {
	cfg          *config.Config
	log          *logger.Logger
	scheduleRepo repository.ScheduleRepository
	cronParser   cron.Parser
}

func NewScheduleService(cfg *config.Config, log *logger.Logger, scheduleRepo repository.ScheduleRepository) ScheduleService {
	return &scheduleService{
		cfg:          cfg,
		log:          log,
		scheduleRepo: scheduleRepo,
		cronParser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
}

func (s *scheduleService) Create(ctx context.Context, req *dto.CreateScheduleRequest) (*model.Schedule, error) {
	if err := validateDefinition(req.Assets, req.Frequency, req.TimeOfDay); err != nil {
		return nil, err
	}

	assetsJSON, err := json.Marshal(dedupeAssets(req.Assets))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dto.ErrInvalidScheduleDefinition, err)
	}

	schedule := &model.Schedule{
		Name:          req.Name,
		Assets:        datatypes.JSON(assetsJSON),
		TimeframeDays: req.TimeframeDays,
		Frequency:     req.Frequency,
		TimeOfDay:     req.TimeOfDay,
		RiskTolerance: req.RiskTolerance,
		SendEmail:     req.SendEmail,
		Enabled:       true,
	}
	if schedule.TimeframeDays <= 0 {
		schedule.TimeframeDays = 30
	}
	if schedule.RiskTolerance == "" {
		schedule.RiskTolerance = dto.RiskToleranceModerate
	}
	if req.Enabled != nil {
		schedule.Enabled = *req.Enabled
	}

	if schedule.Enabled {
		nextRun, err := s.NextRunAfter(schedule.Frequency, schedule.TimeOfDay, time.Now())
		if err != nil {
			return nil, err
		}
		schedule.NextRun = &nextRun
	}

	if err := s.scheduleRepo.Create(ctx, schedule); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Schedule created",
		logger.IntField("schedule_id", int(schedule.ID)),
		logger.StringField("name", schedule.Name),
		logger.StringField("frequency", schedule.Frequency),
	)

	return schedule, nil
}

func (s *scheduleService) Update(ctx context.Context, id uint, req *dto.UpdateScheduleRequest) (*model.Schedule, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cadenceChanged := false
	wasEnabled := schedule.Enabled

	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if len(req.Assets) > 0 {
		assetsJSON, err := json.Marshal(dedupeAssets(req.Assets))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dto.ErrInvalidScheduleDefinition, err)
		}
		schedule.Assets = datatypes.JSON(assetsJSON)
	}
	if req.TimeframeDays != nil {
		schedule.TimeframeDays = *req.TimeframeDays
	}
	if req.Frequency != nil && *req.Frequency != schedule.Frequency {
		schedule.Frequency = *req.Frequency
		cadenceChanged = true
	}
	if req.TimeOfDay != nil && *req.TimeOfDay != schedule.TimeOfDay {
		schedule.TimeOfDay = *req.TimeOfDay
		cadenceChanged = true
	}
	if req.RiskTolerance != nil {
		schedule.RiskTolerance = *req.RiskTolerance
	}
	if req.SendEmail != nil {
		schedule.SendEmail = *req.SendEmail
	}
	if req.Enabled != nil {
		schedule.Enabled = *req.Enabled
	}

	var assets []string
	if err := json.Unmarshal(schedule.Assets, &assets); err != nil {
		return nil, fmt.Errorf("%w: %v", dto.ErrInvalidScheduleDefinition, err)
	}
	if err := validateDefinition(assets, schedule.Frequency, schedule.TimeOfDay); err != nil {
		return nil, err
	}

	includeNextRun := false
	switch {
	case !schedule.Enabled:
		// Disabled schedules carry no next run.
		schedule.NextRun = nil
		includeNextRun = true
	case !wasEnabled || cadenceChanged || schedule.NextRun == nil:
		nextRun, err := s.NextRunAfter(schedule.Frequency, schedule.TimeOfDay, time.Now())
		if err != nil {
			return nil, err
		}
		schedule.NextRun = &nextRun
		includeNextRun = true
	}

	if err := s.scheduleRepo.UpdateDefinition(ctx, schedule, includeNextRun); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Schedule updated", logger.IntField("schedule_id", int(schedule.ID)))

	return schedule, nil
}

func (s *scheduleService) Delete(ctx context.Context, id uint) error {
	if err := s.scheduleRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Schedule deleted", logger.IntField("schedule_id", int(id)))
	return nil
}

func (s *scheduleService) GetByID(ctx context.Context, id uint) (*model.Schedule, error) {
	return s.scheduleRepo.FindByID(ctx, id)
}

func (s *scheduleService) List(ctx context.Context, param *model.GetScheduleParam) ([]model.Schedule, error) {
	return s.scheduleRepo.Get(ctx, param)
}

// NextRunAfter returns the first execution time strictly after the given
// instant. Daily cadence fires every day at the configured time, weekly
// cadence fires on Mondays.
func (s *scheduleService) NextRunAfter(frequency string, timeOfDay string, after time.Time) (time.Time, error) {
	spec, err := cronSpecFor(frequency, timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	cronSchedule, err := s.cronParser.Parse(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", dto.ErrInvalidScheduleDefinition, err)
	}
	return cronSchedule.Next(after), nil
}

func cronSpecFor(frequency string, timeOfDay string) (string, error) {
	hour, minute, err := utils.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return "", fmt.Errorf("%w: %v", dto.ErrInvalidScheduleDefinition, err)
	}
	switch frequency {
	case dto.FrequencyDaily:
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case dto.FrequencyWeekly:
		return fmt.Sprintf("%d %d * * 1", minute, hour), nil
	default:
		return "", fmt.Errorf("%w: unsupported frequency %q", dto.ErrInvalidScheduleDefinition, frequency)
	}
}

func validateDefinition(assets []string, frequency string, timeOfDay string) error {
	if len(dedupeAssets(assets)) == 0 {
		return fmt.Errorf("%w: asset list is empty", dto.ErrInvalidScheduleDefinition)
	}
	if _, err := cronSpecFor(frequency, timeOfDay); err != nil {
		return err
	}
	return nil
}
