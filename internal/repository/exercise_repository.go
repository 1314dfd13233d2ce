package repository

import (
	"errors"

	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/util"

	"gorm.io/gorm"
)

type ExerciseRepository struct {
	DB *gorm.DB
}

func NewExerciseRepository(db *gorm.DB) *ExerciseRepository {
	return &ExerciseRepository{DB: db}
}

// FindByID 根据ID查找动作
func (r *ExerciseRepository) FindByID(id uint) (*model.Exercise, error) {
	var exercise model.Exercise
	err := r.DB.First(&exercise, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrExerciseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &exercise, nil
}

// FindByName 根据名称查找动作
func (r *ExerciseRepository) FindByName(name string) (*model.Exercise, error) {
	var exercise model.Exercise
	err := r.DB.Where("name = ?", name).First(&exercise).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrExerciseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &exercise, nil
}

// List 获取全部动作
func (r *ExerciseRepository) List() ([]model.Exercise, error) {
	var exercises []model.Exercise
	err := r.DB.Order("name").Find(&exercises).Error
	return exercises, err
}
