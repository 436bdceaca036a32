package service

import (
	"context"
	"sync"
	"time"

	"market-advisor/config"
	"market-advisor/internal/dto"
	"market-advisor/internal/model"
	"market-advisor/pkg/logger"
	"market-advisor/pkg/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.Scheduler{
			PollInterval:    10 * time.Millisecond,
			TimeoutDuration: time.Minute,
		},
		Analyzer: config.Analyzer{
			MaxConcurrency: 3,
			StageTimeout:   time.Second,
		},
	}
}

type fakePriceRepo struct {
	history map[string][]dto.PricePoint
	err     error
}

func (f *fakePriceRepo) GetHistory(ctx context.Context, symbol string, timeframeDays int) ([]dto.PricePoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history[symbol], nil
}

type fakeSentimentRepo struct {
	snapshot *dto.SentimentSnapshot
	err      error
}

func (f *fakeSentimentRepo) GetSentiment(ctx context.Context, asset string, timeframeDays int) (*dto.SentimentSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

type fakeAIRepo struct {
	decision *dto.DecisionOutput
	err      error
	lastIn   dto.DecisionInput
}

func (f *fakeAIRepo) SynthesizeDecision(ctx context.Context, input dto.DecisionInput) (*dto.DecisionOutput, error) {
	f.lastIn = input
	if f.err != nil {
		return nil, f.err
	}
	return f.decision, nil
}

type fakeAnalysisRepo struct {
	mu      sync.Mutex
	records []model.AnalysisRecord
	err     error
}

func (f *fakeAnalysisRepo) CreateBulk(ctx context.Context, records []model.AnalysisRecord, opts ...utils.DBOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeAnalysisRepo) FindRecent(ctx context.Context, asset string, limit int) ([]model.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.AnalysisRecord, 0, limit)
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if asset == "" || f.records[i].Asset == asset {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

// stubAnalyzer routes each asset through the configured function.
type stubAnalyzer struct {
	fn func(ctx context.Context, asset string, timeframeDays int, riskTolerance string) (*dto.AssetResult, error)
}

func (s *stubAnalyzer) Analyze(ctx context.Context, asset string, timeframeDays int, riskTolerance string) (*dto.AssetResult, error) {
	return s.fn(ctx, asset, timeframeDays, riskTolerance)
}

// stubBatch is the batch service seen by the scheduler under test.
type stubBatch struct {
	mu     sync.Mutex
	calls  int
	active int
	peak   int
	delay  time.Duration
	result *dto.BatchResult
	err    error
}

func (s *stubBatch) AnalyzeMany(ctx context.Context, assets []string, timeframeDays int, riskTolerance string) (*dto.BatchResult, error) {
	s.mu.Lock()
	s.calls++
	s.active++
	if s.active > s.peak {
		s.peak = s.active
	}
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	s.active--
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubBatch) RecentAnalyses(ctx context.Context, asset string, limit int) ([]model.AnalysisRecord, error) {
	return nil, nil
}

func (s *stubBatch) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubBatch) peakActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// memScheduleRepo is an in-memory ScheduleRepository for service tests.
// beforeUpdateDefinition, when set, runs just before a definition write is
// applied so a test can interleave concurrent run-state changes.
type memScheduleRepo struct {
	mu                     sync.Mutex
	nextID                 uint
	nextRunID              uint
	schedules              map[uint]model.Schedule
	runs                   map[uint]model.ScheduleRun
	beforeUpdateDefinition func()
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{
		schedules: make(map[uint]model.Schedule),
		runs:      make(map[uint]model.ScheduleRun),
	}
}

func (m *memScheduleRepo) Create(ctx context.Context, schedule *model.Schedule, opts ...utils.DBOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	schedule.ID = m.nextID
	schedule.CreatedAt = time.Now()
	m.schedules[schedule.ID] = *schedule
	return nil
}

// Save replaces the whole stored row. Tests use it to seed run-state directly.
func (m *memScheduleRepo) Save(ctx context.Context, schedule *model.Schedule, opts ...utils.DBOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[schedule.ID]; !ok {
		return dto.ErrScheduleNotFound
	}
	m.schedules[schedule.ID] = *schedule
	return nil
}

func (m *memScheduleRepo) UpdateDefinition(ctx context.Context, schedule *model.Schedule, includeNextRun bool, opts ...utils.DBOption) error {
	if m.beforeUpdateDefinition != nil {
		m.beforeUpdateDefinition()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.schedules[schedule.ID]
	if !ok {
		return dto.ErrScheduleNotFound
	}
	stored.Name = schedule.Name
	stored.Assets = schedule.Assets
	stored.TimeframeDays = schedule.TimeframeDays
	stored.Frequency = schedule.Frequency
	stored.TimeOfDay = schedule.TimeOfDay
	stored.RiskTolerance = schedule.RiskTolerance
	stored.SendEmail = schedule.SendEmail
	stored.Enabled = schedule.Enabled
	if includeNextRun {
		stored.NextRun = schedule.NextRun
	}
	m.schedules[schedule.ID] = stored
	return nil
}

func (m *memScheduleRepo) UpdateRunState(ctx context.Context, schedule *model.Schedule, opts ...utils.DBOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.schedules[schedule.ID]
	if !ok {
		return dto.ErrScheduleNotFound
	}
	stored.LastRun = schedule.LastRun
	stored.NextRun = schedule.NextRun
	stored.RunCount = schedule.RunCount
	stored.SuccessCount = schedule.SuccessCount
	m.schedules[schedule.ID] = stored
	return nil
}

func (m *memScheduleRepo) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return dto.ErrScheduleNotFound
	}
	delete(m.schedules, id)
	for runID, run := range m.runs {
		if run.ScheduleID == id {
			delete(m.runs, runID)
		}
	}
	return nil
}

func (m *memScheduleRepo) FindByID(ctx context.Context, id uint) (*model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	schedule, ok := m.schedules[id]
	if !ok {
		return nil, dto.ErrScheduleNotFound
	}
	return &schedule, nil
}

func (m *memScheduleRepo) Get(ctx context.Context, param *model.GetScheduleParam, opts ...utils.DBOption) ([]model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Schedule
	for id := uint(1); id <= m.nextID; id++ {
		schedule, ok := m.schedules[id]
		if !ok {
			continue
		}
		if param.Enabled != nil && schedule.Enabled != *param.Enabled {
			continue
		}
		if len(param.IDs) > 0 {
			matched := false
			for _, want := range param.IDs {
				if want == id {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		out = append(out, schedule)
	}
	return out, nil
}

func (m *memScheduleRepo) ListDue(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Schedule
	for id := uint(1); id <= m.nextID; id++ {
		schedule, ok := m.schedules[id]
		if !ok {
			continue
		}
		if schedule.Enabled && schedule.NextRun != nil && !schedule.NextRun.After(now) {
			out = append(out, schedule)
		}
	}
	return out, nil
}

func (m *memScheduleRepo) Count(ctx context.Context, enabled *bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, schedule := range m.schedules {
		if enabled != nil && schedule.Enabled != *enabled {
			continue
		}
		count++
	}
	return count, nil
}

func (m *memScheduleRepo) NextScheduledRun(ctx context.Context) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var next *time.Time
	for _, schedule := range m.schedules {
		if !schedule.Enabled || schedule.NextRun == nil {
			continue
		}
		at := *schedule.NextRun
		if next == nil || at.Before(*next) {
			next = &at
		}
	}
	return next, nil
}

func (m *memScheduleRepo) CreateRun(ctx context.Context, run *model.ScheduleRun, opts ...utils.DBOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRunID++
	run.ID = m.nextRunID
	run.CreatedAt = time.Now()
	m.runs[run.ID] = *run
	return nil
}

func (m *memScheduleRepo) UpdateRun(ctx context.Context, run *model.ScheduleRun, opts ...utils.DBOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
	return nil
}

func (m *memScheduleRepo) storedSchedule(id uint) model.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schedules[id]
}

func (m *memScheduleRepo) storedRuns(scheduleID uint) []model.ScheduleRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ScheduleRun
	for id := uint(1); id <= m.nextRunID; id++ {
		run, ok := m.runs[id]
		if ok && run.ScheduleID == scheduleID {
			out = append(out, run)
		}
	}
	return out
}

// recordingNotifier captures messages sent by the scheduler.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (r *recordingNotifier) Send(ctx context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, message)
	return nil
}

func (r *recordingNotifier) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func testLogger() *logger.Logger {
	return logger.NewNop()
}
