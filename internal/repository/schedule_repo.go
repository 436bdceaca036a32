package repository

import (
	"context"
	"errors"
	"time"

	"market-advisor/internal/dto"
	"market-advisor/internal/model"
	"market-advisor/pkg/utils"

	"gorm.io/gorm"
)

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *model.Schedule, opts ...utils.DBOption) error
	UpdateDefinition(ctx context.Context, schedule *model.Schedule, includeNextRun bool, opts ...utils.DBOption) error
	UpdateRunState(ctx context.Context, schedule *model.Schedule, opts ...utils.DBOption) error
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
	FindByID(ctx context.Context, id uint) (*model.Schedule, error)
	Get(ctx context.Context, param *model.GetScheduleParam, opts ...utils.DBOption) ([]model.Schedule, error)
	ListDue(ctx context.Context, now time.Time) ([]model.Schedule, error)
	Count(ctx context.Context, enabled *bool) (int64, error)
	NextScheduledRun(ctx context.Context) (*time.Time, error)
	CreateRun(ctx context.Context, run *model.ScheduleRun, opts ...utils.DBOption) error
	UpdateRun(ctx context.Context, run *model.ScheduleRun, opts ...utils.DBOption) error
}

type scheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, schedule *model.Schedule, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(schedule).Error
}

// UpdateDefinition persists the user-editable columns only. Run-state columns
// stay untouched so an edit cannot clobber a run completing concurrently;
// next_run is written only when the edit recomputed or cleared it.
func (r *scheduleRepository) UpdateDefinition(ctx context.Context, schedule *model.Schedule, includeNextRun bool, opts ...utils.DBOption) error {
	updates := map[string]interface{}{
		"name":           schedule.Name,
		"assets":         schedule.Assets,
		"timeframe_days": schedule.TimeframeDays,
		"frequency":      schedule.Frequency,
		"time_of_day":    schedule.TimeOfDay,
		"risk_tolerance": schedule.RiskTolerance,
		"send_email":     schedule.SendEmail,
		"enabled":        schedule.Enabled,
	}
	if includeNextRun {
		updates["next_run"] = schedule.NextRun
	}
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Schedule{}).
		Where("id = ?", schedule.ID).
		Updates(updates).Error
}

// UpdateRunState persists only the run-state columns. Callers must hold the
// schedule's execution lock.
func (r *scheduleRepository) UpdateRunState(ctx context.Context, schedule *model.Schedule, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Schedule{}).
		Where("id = ?", schedule.ID).
		Select("last_run", "next_run", "run_count", "success_count").
		Updates(map[string]interface{}{
			"last_run":      schedule.LastRun,
			"next_run":      schedule.NextRun,
			"run_count":     schedule.RunCount,
			"success_count": schedule.SuccessCount,
		}).Error
}

func (r *scheduleRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("schedule_id = ?", id).Delete(&model.ScheduleRun{})
	if result.Error != nil {
		return result.Error
	}

	result = utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.Schedule{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return dto.ErrScheduleNotFound
	}
	return nil
}

func (r *scheduleRepository) FindByID(ctx context.Context, id uint) (*model.Schedule, error) {
	var schedule model.Schedule
	if err := r.db.WithContext(ctx).First(&schedule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dto.ErrScheduleNotFound
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepository) Get(ctx context.Context, param *model.GetScheduleParam, opts ...utils.DBOption) ([]model.Schedule, error) {
	var schedules []model.Schedule
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...).Model(&model.Schedule{})

	if len(param.IDs) > 0 {
		db = db.Where("id IN ?", param.IDs)
	}
	if param.Enabled != nil {
		db = db.Where("enabled = ?", *param.Enabled)
	}
	if param.Limit != nil {
		db = db.Limit(*param.Limit)
	}
	if param.WithRuns != nil {
		limit := *param.WithRuns
		db = db.Preload("Runs", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Limit(limit)
		})
	}

	if err := db.Order("id ASC").Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// ListDue returns enabled schedules whose next_run has arrived, earliest first.
func (r *scheduleRepository) ListDue(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := r.db.WithContext(ctx).
		Where("enabled = ? AND next_run IS NOT NULL AND next_run <= ?", true, now).
		Order("next_run ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *scheduleRepository) Count(ctx context.Context, enabled *bool) (int64, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.Schedule{})
	if enabled != nil {
		db = db.Where("enabled = ?", *enabled)
	}
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *scheduleRepository) NextScheduledRun(ctx context.Context) (*time.Time, error) {
	var schedule model.Schedule
	err := r.db.WithContext(ctx).
		Where("enabled = ? AND next_run IS NOT NULL", true).
		Order("next_run ASC").
		First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return schedule.NextRun, nil
}

func (r *scheduleRepository) CreateRun(ctx context.Context, run *model.ScheduleRun, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(run).Error
}

func (r *scheduleRepository) UpdateRun(ctx context.Context, run *model.ScheduleRun, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Updates(run).Error
}
