package application_test

import (
	"context"
	"time"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockCredentialStore struct {
	creds   map[model.Provider]*model.Credential
	getErr  error
	saveErr error

	saves   []model.Provider
	deletes []model.Provider
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{creds: make(map[model.Provider]*model.Credential)}
}

func (m *mockCredentialStore) Get(_ context.Context, provider model.Provider) (*model.Credential, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	cred, ok := m.creds[provider]
	if !ok {
		return nil, nil
	}
	copied := *cred
	return &copied, nil
}

func (m *mockCredentialStore) Save(_ context.Context, provider model.Provider, update driven.TokenUpdate) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves = append(m.saves, provider)
	m.creds[provider] = &model.Credential{
		Provider:     provider,
		AccessToken:  update.AccessToken,
		RefreshToken: update.RefreshToken,
		ExpiresAt:    update.ExpiresAt,
	}
	return nil
}

func (m *mockCredentialStore) Delete(_ context.Context, provider model.Provider) error {
	m.deletes = append(m.deletes, provider)
	delete(m.creds, provider)
	return nil
}

type upsertLogCall struct {
	PlanID int64
	Update driven.DailyLogUpdate
}

type mockPlanStore struct {
	plan      *model.Plan
	planErr   error
	checklist []model.ChecklistItem
	items     map[int64]*model.ChecklistItem
	dailyLog  *model.DailyLog
	weeks     []model.WeekPlan
	progress  model.Progress

	upserts  []upsertLogCall
	setCalls []int64
}

func (m *mockPlanStore) GetPlan(_ context.Context, _ int, _ string) (*model.Plan, error) {
	if m.planErr != nil {
		return nil, m.planErr
	}
	if m.plan == nil {
		return nil, driven.ErrPlanNotFound
	}
	return m.plan, nil
}

func (m *mockPlanStore) GetChecklist(_ context.Context, _ int64) ([]model.ChecklistItem, error) {
	return m.checklist, nil
}

func (m *mockPlanStore) SetChecklistItem(_ context.Context, id int64, completed bool) (*model.ChecklistItem, error) {
	m.setCalls = append(m.setCalls, id)
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	item.IsCompleted = completed
	copied := *item
	return &copied, nil
}

func (m *mockPlanStore) GetChecklistItem(_ context.Context, id int64) (*model.ChecklistItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (m *mockPlanStore) GetDailyLog(_ context.Context, _ int64) (*model.DailyLog, error) {
	return m.dailyLog, nil
}

func (m *mockPlanStore) UpsertDailyLog(_ context.Context, planID int64, update driven.DailyLogUpdate) (*model.DailyLog, error) {
	m.upserts = append(m.upserts, upsertLogCall{PlanID: planID, Update: update})
	log := &model.DailyLog{
		ID:               1,
		PlanID:           planID,
		EffortRating:     update.EffortRating,
		RecoveryScore:    update.RecoveryScore,
		StravaActivityID: update.StravaActivityID,
		IsDayComplete:    update.MarkComplete,
	}
	m.dailyLog = log
	return log, nil
}

func (m *mockPlanStore) WeekPlans(_ context.Context, _ int) ([]model.WeekPlan, error) {
	return m.weeks, nil
}

func (m *mockPlanStore) Progress(_ context.Context) (model.Progress, error) {
	return m.progress, nil
}

type mockWhoopClient struct {
	recovery    *model.Recovery
	recoveryErr error
	metrics     *model.DailyMetrics
}

func (m *mockWhoopClient) Profile(_ context.Context) (*model.WhoopProfile, error) {
	return nil, nil
}

func (m *mockWhoopClient) RecoveryRange(_ context.Context, _, _ time.Time) ([]model.Recovery, error) {
	return nil, nil
}

func (m *mockWhoopClient) TodayRecovery(_ context.Context) (*model.Recovery, error) {
	return m.recovery, m.recoveryErr
}

func (m *mockWhoopClient) TodaySleep(_ context.Context) (*model.Sleep, error) {
	return nil, nil
}

func (m *mockWhoopClient) TodayWorkouts(_ context.Context) ([]model.WhoopWorkout, error) {
	return nil, nil
}

func (m *mockWhoopClient) DailyMetrics(_ context.Context) (*model.DailyMetrics, error) {
	return m.metrics, nil
}

type mockWhoopConnector struct {
	client     driven.WhoopClient
	connectErr error
}

func (m *mockWhoopConnector) Connect(_ context.Context) (driven.WhoopClient, error) {
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	return m.client, nil
}

type mockStravaClient struct {
	latest    *model.Run
	latestErr error
	today     []model.Run
	todayErr  error
}

func (m *mockStravaClient) Athlete(_ context.Context) (*model.Athlete, error) {
	return nil, nil
}

func (m *mockStravaClient) Activities(_ context.Context, _ driven.ActivityQuery) ([]model.Run, error) {
	return nil, nil
}

func (m *mockStravaClient) TodayRuns(_ context.Context) ([]model.Run, error) {
	return m.today, m.todayErr
}

func (m *mockStravaClient) LatestRun(_ context.Context) (*model.Run, error) {
	return m.latest, m.latestErr
}

type mockStravaConnector struct {
	client     driven.StravaClient
	connectErr error
}

func (m *mockStravaConnector) Connect(_ context.Context) (driven.StravaClient, error) {
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	return m.client, nil
}

type mockWorkoutLogStore struct {
	saved      []*model.WorkoutLog
	saveErr    error
	history    []model.WorkoutLog
	total      int
	gotFilter  model.WorkoutHistoryFilter
	workout    *model.WorkoutLog
	deleted    []int64
	stats      model.WorkoutStats
	statsStart time.Time
	statsEnd   time.Time
	records    []model.PersonalRecord
	gotDays    int
}

func (m *mockWorkoutLogStore) SaveWorkout(_ context.Context, workout *model.WorkoutLog) (*model.WorkoutLog, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	workout.ID = int64(len(m.saved) + 1)
	m.saved = append(m.saved, workout)
	return workout, nil
}

func (m *mockWorkoutLogStore) History(_ context.Context, filter model.WorkoutHistoryFilter) ([]model.WorkoutLog, int, error) {
	m.gotFilter = filter
	return m.history, m.total, nil
}

func (m *mockWorkoutLogStore) GetWorkout(_ context.Context, _ int64) (*model.WorkoutLog, error) {
	return m.workout, nil
}

func (m *mockWorkoutLogStore) DeleteWorkout(_ context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockWorkoutLogStore) Stats(_ context.Context, start, end time.Time) (model.WorkoutStats, error) {
	m.statsStart = start
	m.statsEnd = end
	return m.stats, nil
}

func (m *mockWorkoutLogStore) PersonalRecords(_ context.Context, _ string) ([]model.PersonalRecord, error) {
	return m.records, nil
}

func (m *mockWorkoutLogStore) RecentPersonalRecords(_ context.Context, days int) ([]model.PersonalRecord, error) {
	m.gotDays = days
	return m.records, nil
}
