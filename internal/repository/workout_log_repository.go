package repository

import (
	"errors"
	"time"

	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/util"

	"gorm.io/gorm"
)

// WorkoutLogFilter 训练记录查询条件
type WorkoutLogFilter struct {
	UserID     uint
	ExerciseID uint
	StartDate  *time.Time
	EndDate    *time.Time
	Limit      int
}

type WorkoutLogRepository struct {
	DB *gorm.DB
}

func NewWorkoutLogRepository(db *gorm.DB) *WorkoutLogRepository {
	return &WorkoutLogRepository{DB: db}
}

// Create 创建训练记录（级联写入动作和组）
func (r *WorkoutLogRepository) Create(log *model.WorkoutLog) error {
	return r.DB.Create(log).Error
}

// Save 保存训练记录及全部关联（派生字段重算后调用）。
// PR 摘要行整体重写：FullSaveAssociations 只会追加新行，
// 不清掉旧行的话每次重检测都会让摘要翻倍累积
func (r *WorkoutLogRepository) Save(log *model.WorkoutLog) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("workout_log_id = ?", log.ID).
			Delete(&model.PRAchievement{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(log).Error
	})
}

// Delete 删除训练记录
func (r *WorkoutLogRepository) Delete(id uint) error {
	return r.DB.Delete(&model.WorkoutLog{}, id).Error
}

// FindByID 根据ID查找训练记录（含动作和组）
func (r *WorkoutLogRepository) FindByID(id uint) (*model.WorkoutLog, error) {
	var log model.WorkoutLog
	err := r.DB.
		Preload("Exercises.Sets").
		Preload("Exercises.Exercise").
		Preload("RecordsAchieved").
		First(&log, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLogNotFound
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// List 按条件列出训练记录，时间倒序
func (r *WorkoutLogRepository) List(filter WorkoutLogFilter) ([]model.WorkoutLog, error) {
	q := r.DB.Where("user_id = ?", filter.UserID)

	if filter.StartDate != nil {
		q = q.Where("completed_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("completed_at <= ?", *filter.EndDate)
	}
	if filter.ExerciseID != 0 {
		q = q.Where("id IN (?)", r.DB.Model(&model.WorkoutExercise{}).
			Select("workout_log_id").
			Where("exercise_id = ?", filter.ExerciseID))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var logs []model.WorkoutLog
	err := q.Preload("Exercises.Sets").Order("completed_at DESC").Find(&logs).Error
	return logs, err
}
