package service

import (
	"context"
	"time"

	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/repository"
	"fitness_tracker_backend/internal/util"
	"fitness_tracker_backend/pkg/logger"
	"fitness_tracker_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type workoutLogStore interface {
	Create(log *model.WorkoutLog) error
	Save(log *model.WorkoutLog) error
	Delete(id uint) error
	FindByID(id uint) (*model.WorkoutLog, error)
	List(filter repository.WorkoutLogFilter) ([]model.WorkoutLog, error)
}

// WorkoutLogService 录入训练的编排入口：
// 校验 → 派生汇总 → 热量 → 落库 → PR 检测 → 失效统计缓存
type WorkoutLogService struct {
	Logs      workoutLogStore
	Users     userStore
	Exercises exerciseStore
	Metrics   *MetricsService
	Records   *RecordService
	Reports   *ReportService
}

func NewWorkoutLogService(
	logs workoutLogStore,
	users userStore,
	exercises exerciseStore,
	metrics *MetricsService,
	records *RecordService,
	reports *ReportService,
) *WorkoutLogService {
	return &WorkoutLogService{
		Logs:      logs,
		Users:     users,
		Exercises: exercises,
		Metrics:   metrics,
		Records:   records,
		Reports:   reports,
	}
}

// LogWorkout 创建一条训练记录并跑完整条派生管线。
// PR 检测失败不回滚训练本身，记日志后返回已落库的记录
func (s *WorkoutLogService) LogWorkout(ctx context.Context, log *model.WorkoutLog) (*model.WorkoutLog, error) {
	ctx, span := tracing.Tracer.Start(ctx, "engine.workout-logs.log-workout")
	defer span.End()
	span.SetAttributes(attribute.Int("user_id", int(log.UserID)))

	if err := s.prepare(log); err != nil {
		return nil, err
	}
	if err := s.Logs.Create(log); err != nil {
		return nil, err
	}

	if err := s.detectRecords(ctx, log); err != nil {
		logger.Log.Error("PR detection failed after workout save",
			zap.Uint("workoutLogId", log.ID), zap.Error(err))
	}

	s.Reports.InvalidateUserStats(ctx, log.UserID)
	return log, nil
}

// UpdateWorkoutLog 重跑全部派生字段并重新做 PR 检测
func (s *WorkoutLogService) UpdateWorkoutLog(ctx context.Context, log *model.WorkoutLog) (*model.WorkoutLog, error) {
	ctx, span := tracing.Tracer.Start(ctx, "engine.workout-logs.update-workout-log")
	defer span.End()

	if log.ID == 0 {
		return nil, util.ErrLogNotFound
	}
	if _, err := s.Logs.FindByID(log.ID); err != nil {
		return nil, err
	}

	if err := s.prepare(log); err != nil {
		return nil, err
	}
	if err := s.Logs.Save(log); err != nil {
		return nil, err
	}

	if err := s.detectRecords(ctx, log); err != nil {
		logger.Log.Error("PR detection failed after workout update",
			zap.Uint("workoutLogId", log.ID), zap.Error(err))
	}

	s.Reports.InvalidateUserStats(ctx, log.UserID)
	return log, nil
}

// DeleteWorkoutLog 软删训练记录。已达成的 PR 保留，
// 不做级联回收
func (s *WorkoutLogService) DeleteWorkoutLog(ctx context.Context, userID, logID uint) error {
	_, span := tracing.Tracer.Start(ctx, "engine.workout-logs.delete-workout-log")
	defer span.End()

	log, err := s.Logs.FindByID(logID)
	if err != nil {
		return err
	}
	if log.UserID != userID {
		return util.ErrLogNotFound
	}
	if err := s.Logs.Delete(logID); err != nil {
		return err
	}
	s.Reports.InvalidateUserStats(ctx, userID)
	return nil
}

func (s *WorkoutLogService) GetWorkoutLog(userID, logID uint) (*model.WorkoutLog, error) {
	log, err := s.Logs.FindByID(logID)
	if err != nil {
		return nil, err
	}
	if log.UserID != userID {
		return nil, util.ErrLogNotFound
	}
	return log, nil
}

func (s *WorkoutLogService) ListWorkoutLogs(userID uint, exerciseID uint, start, end *time.Time, limit int) ([]model.WorkoutLog, error) {
	return s.Logs.List(repository.WorkoutLogFilter{
		UserID:     userID,
		ExerciseID: exerciseID,
		StartDate:  start,
		EndDate:    end,
		Limit:      limit,
	})
}

// prepare 校验并填充全部落库前的派生字段
func (s *WorkoutLogService) prepare(log *model.WorkoutLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	user, err := s.Users.FindByID(log.UserID)
	if err != nil {
		return err
	}
	for i := range log.Exercises {
		if _, err := s.Exercises.FindByID(log.Exercises[i].ExerciseID); err != nil {
			return err
		}
	}
	if log.CompletedAt.IsZero() {
		log.CompletedAt = time.Now()
	}
	if log.BodyWeight == nil && user.BodyWeight > 0 {
		bw := user.BodyWeight
		log.BodyWeight = &bw
	}

	s.Metrics.CalculateTotals(log)
	log.CaloriesBurned = s.Metrics.EstimateCalories(log)
	return nil
}

// detectRecords 跑 PR 检测并把标记（组级 PR、isPersonalRecord、摘要）落回库。
// 没触发新纪录时也要保存，编辑可能让旧标记和旧摘要失效
func (s *WorkoutLogService) detectRecords(ctx context.Context, log *model.WorkoutLog) error {
	if _, err := s.Records.ProcessWorkoutLog(ctx, log); err != nil {
		return err
	}
	return s.Logs.Save(log)
}
