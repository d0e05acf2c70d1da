package application

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

// RecoverySection is the Whoop portion of an aggregated view. When the
// provider is unreachable or not authorized, Connected is false and Error
// explains why; the rest of the view is unaffected.
type RecoverySection struct {
	Connected bool
	Error     string
	Recovery  *model.Recovery
}

// StravaSection is the Strava portion of an aggregated view, degraded
// independently the same way as RecoverySection.
type StravaSection struct {
	Connected bool
	Error     string
	LatestRun *model.Run
	TodayRuns []model.Run
}

// DaySummary condenses a plan day for display.
type DaySummary struct {
	Workout        string
	TargetPace     string
	DurationMin    int
	ExercisesDone  int
	ExercisesTotal int
	IsComplete     bool
}

// DayView is the aggregated state of one plan day. The plan itself is
// required; checklist, log, and recovery attach to it.
type DayView struct {
	Plan      *model.Plan
	Checklist []model.ChecklistItem
	DailyLog  *model.DailyLog
	Recovery  RecoverySection
	Summary   DaySummary
}

// SyncResult is a snapshot of both providers' current data, fetched
// concurrently. Either side may be degraded without failing the other.
type SyncResult struct {
	Whoop    RecoverySection
	Strava   StravaSection
	SyncedAt time.Time
}

// DayService aggregates the training plan with live provider data.
type DayService struct {
	plans  driven.PlanStore
	whoop  driven.WhoopConnector
	strava driven.StravaConnector
	logger *slog.Logger
}

// NewDayService creates the aggregator.
func NewDayService(plans driven.PlanStore, whoop driven.WhoopConnector, strava driven.StravaConnector, logger *slog.Logger) *DayService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DayService{plans: plans, whoop: whoop, strava: strava, logger: logger}
}

// Day returns the aggregated view of one plan day. A missing plan is fatal
// (driven.ErrPlanNotFound); every provider failure is confined to its
// section.
func (s *DayService) Day(ctx context.Context, week int, day string) (*DayView, error) {
	plan, err := s.plans.GetPlan(ctx, week, day)
	if err != nil {
		return nil, err
	}

	checklist, err := s.plans.GetChecklist(ctx, plan.ID)
	if err != nil {
		return nil, err
	}

	log, err := s.plans.GetDailyLog(ctx, plan.ID)
	if err != nil {
		return nil, err
	}

	view := &DayView{
		Plan:      plan,
		Checklist: checklist,
		DailyLog:  log,
		Recovery:  s.fetchRecovery(ctx),
	}

	done := 0
	for _, item := range checklist {
		if item.IsCompleted {
			done++
		}
	}
	view.Summary = DaySummary{
		Workout:        plan.WorkoutLabel(),
		TargetPace:     plan.TargetPace,
		DurationMin:    plan.DurationMin,
		ExercisesDone:  done,
		ExercisesTotal: len(checklist),
		IsComplete:     log != nil && log.IsDayComplete,
	}
	return view, nil
}

// Sync fetches both providers concurrently and returns whatever each one
// produced.
func (s *DayService) Sync(ctx context.Context) *SyncResult {
	result := &SyncResult{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.Whoop = s.fetchRecovery(gctx)
		return nil
	})
	g.Go(func() error {
		result.Strava = s.fetchStrava(gctx)
		return nil
	})
	_ = g.Wait()

	result.SyncedAt = time.Now().UTC()
	return result
}

// Plan returns the bare plan row for (week, day).
func (s *DayService) Plan(ctx context.Context, week int, day string) (*model.Plan, error) {
	return s.plans.GetPlan(ctx, week, day)
}

// Week returns every plan day in a week with checklist and log attached.
func (s *DayService) Week(ctx context.Context, week int) ([]model.WeekPlan, error) {
	return s.plans.WeekPlans(ctx, week)
}

// Progress returns overall plan completion.
func (s *DayService) Progress(ctx context.Context) (model.Progress, error) {
	return s.plans.Progress(ctx)
}

// ToggleChecklist sets a checklist item's completion. A nil completed flips
// the current state. Returns (nil, nil) when the item does not exist.
func (s *DayService) ToggleChecklist(ctx context.Context, id int64, completed *bool) (*model.ChecklistItem, error) {
	item, err := s.plans.GetChecklistItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	target := !item.IsCompleted
	if completed != nil {
		target = *completed
	}
	return s.plans.SetChecklistItem(ctx, id, target)
}

// CompleteDay marks a plan day's log complete, recording the effort rating
// when given. The log row is created if the day was never logged.
func (s *DayService) CompleteDay(ctx context.Context, week int, day string, effortRating *int) (*model.DailyLog, error) {
	plan, err := s.plans.GetPlan(ctx, week, day)
	if err != nil {
		return nil, err
	}
	return s.plans.UpsertDailyLog(ctx, plan.ID, driven.DailyLogUpdate{
		EffortRating: effortRating,
		MarkComplete: true,
	})
}

// LinkMetrics attaches external provider data to a plan day's log without
// touching its completion state.
func (s *DayService) LinkMetrics(ctx context.Context, week int, day string, stravaActivityID *int64, recoveryScore *float64) (*model.DailyLog, error) {
	plan, err := s.plans.GetPlan(ctx, week, day)
	if err != nil {
		return nil, err
	}
	return s.plans.UpsertDailyLog(ctx, plan.ID, driven.DailyLogUpdate{
		StravaActivityID: stravaActivityID,
		RecoveryScore:    recoveryScore,
	})
}

func (s *DayService) fetchRecovery(ctx context.Context) RecoverySection {
	client, err := s.whoop.Connect(ctx)
	if err != nil {
		s.logger.Warn("whoop unavailable", "error", err)
		return RecoverySection{Error: err.Error()}
	}

	recovery, err := client.TodayRecovery(ctx)
	if err != nil {
		s.logger.Warn("whoop recovery fetch failed", "error", err)
		return RecoverySection{Error: err.Error()}
	}
	return RecoverySection{Connected: true, Recovery: recovery}
}

func (s *DayService) fetchStrava(ctx context.Context) StravaSection {
	client, err := s.strava.Connect(ctx)
	if err != nil {
		s.logger.Warn("strava unavailable", "error", err)
		return StravaSection{Error: err.Error()}
	}

	section := StravaSection{Connected: true}

	latest, err := client.LatestRun(ctx)
	if err != nil {
		s.logger.Warn("strava latest run fetch failed", "error", err)
		return StravaSection{Error: err.Error()}
	}
	section.LatestRun = latest

	today, err := client.TodayRuns(ctx)
	if err != nil {
		s.logger.Warn("strava today runs fetch failed", "error", err)
		return StravaSection{Error: err.Error()}
	}
	section.TodayRuns = today

	return section
}
