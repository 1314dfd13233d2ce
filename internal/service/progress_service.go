package service

import (
	"context"
	"time"

	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/repository"
	"fitness_tracker_backend/internal/util"
	"fitness_tracker_backend/pkg/tracing"
)

type progressEntryStore interface {
	Create(entry *model.ProgressEntry) error
	Save(entry *model.ProgressEntry) error
	Delete(id uint) error
	FindByID(id uint) (*model.ProgressEntry, error)
	FindLatest(userID uint) (*model.ProgressEntry, error)
	List(filter repository.ProgressFilter) ([]model.ProgressEntry, error)
}

// ProgressService 进度条目编排：校验 → 里程碑判定 → 目标达成重算 → 落库
type ProgressService struct {
	Progress   progressEntryStore
	Users      userStore
	Milestones *MilestoneService
	Goals      *GoalService
	Reports    *ReportService
}

func NewProgressService(
	progress progressEntryStore,
	users userStore,
	milestones *MilestoneService,
	goals *GoalService,
	reports *ReportService,
) *ProgressService {
	return &ProgressService{
		Progress:   progress,
		Users:      users,
		Milestones: milestones,
		Goals:      goals,
		Reports:    reports,
	}
}

// AddEntry 新增进度条目，落库前完成里程碑标记与目标达成判定
func (s *ProgressService) AddEntry(ctx context.Context, entry *model.ProgressEntry) (*model.ProgressEntry, error) {
	ctx, span := tracing.Tracer.Start(ctx, "engine.progress.add-entry")
	defer span.End()

	if err := s.prepare(ctx, entry); err != nil {
		return nil, err
	}
	if err := s.Progress.Create(entry); err != nil {
		return nil, err
	}
	s.Reports.InvalidateUserStats(ctx, entry.UserID)
	return entry, nil
}

// UpdateEntry 更新后重跑里程碑与目标判定（前一条可能已变化）
func (s *ProgressService) UpdateEntry(ctx context.Context, entry *model.ProgressEntry) (*model.ProgressEntry, error) {
	ctx, span := tracing.Tracer.Start(ctx, "engine.progress.update-entry")
	defer span.End()

	if entry.ID == 0 {
		return nil, util.ErrEntryNotFound
	}
	if _, err := s.Progress.FindByID(entry.ID); err != nil {
		return nil, err
	}
	if err := s.prepare(ctx, entry); err != nil {
		return nil, err
	}
	if err := s.Progress.Save(entry); err != nil {
		return nil, err
	}
	s.Reports.InvalidateUserStats(ctx, entry.UserID)
	return entry, nil
}

func (s *ProgressService) DeleteEntry(ctx context.Context, userID, entryID uint) error {
	_, span := tracing.Tracer.Start(ctx, "engine.progress.delete-entry")
	defer span.End()

	entry, err := s.Progress.FindByID(entryID)
	if err != nil {
		return err
	}
	if entry.UserID != userID {
		return util.ErrEntryNotFound
	}
	if err := s.Progress.Delete(entryID); err != nil {
		return err
	}
	s.Reports.InvalidateUserStats(ctx, userID)
	return nil
}

func (s *ProgressService) GetEntry(userID, entryID uint) (*model.ProgressEntry, error) {
	entry, err := s.Progress.FindByID(entryID)
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		return nil, util.ErrEntryNotFound
	}
	return entry, nil
}

func (s *ProgressService) ListEntries(userID uint, start, end *time.Time, limit int) ([]model.ProgressEntry, error) {
	return s.Progress.List(repository.ProgressFilter{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
		Limit:     limit,
	})
}

func (s *ProgressService) ListMilestones(userID uint) ([]model.ProgressEntry, error) {
	return s.Milestones.ListMilestones(userID)
}

// GoalProgress 最新一条进度的目标完成情况，按需重算
func (s *ProgressService) GoalProgress(ctx context.Context, userID uint) ([]model.GoalProgress, error) {
	_, span := tracing.Tracer.Start(ctx, "engine.progress.goal-progress")
	defer span.End()

	latest, err := s.Progress.FindLatest(userID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}
	return s.Goals.Recompute(latest.Goals), nil
}

func (s *ProgressService) prepare(ctx context.Context, entry *model.ProgressEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if _, err := s.Users.FindByID(entry.UserID); err != nil {
		return err
	}
	if entry.Date.IsZero() {
		entry.Date = time.Now()
	}

	if err := s.Milestones.ProcessEntry(ctx, entry); err != nil {
		return err
	}
	s.Goals.Recompute(entry.Goals)
	return nil
}
