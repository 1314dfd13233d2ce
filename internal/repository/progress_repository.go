package repository

import (
	"errors"
	"time"

	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/util"

	"gorm.io/gorm"
)

// ProgressFilter 身体测量记录查询条件
type ProgressFilter struct {
	UserID        uint
	StartDate     *time.Time
	EndDate       *time.Time
	MilestoneOnly bool
	Limit         int
}

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// Create 创建测量记录
func (r *ProgressRepository) Create(entry *model.ProgressEntry) error {
	return r.DB.Create(entry).Error
}

// Save 保存测量记录及目标
func (r *ProgressRepository) Save(entry *model.ProgressEntry) error {
	return r.DB.Session(&gorm.Session{FullSaveAssociations: true}).Save(entry).Error
}

// Delete 删除测量记录
func (r *ProgressRepository) Delete(id uint) error {
	return r.DB.Delete(&model.ProgressEntry{}, id).Error
}

// FindByID 根据ID查找测量记录
func (r *ProgressRepository) FindByID(id uint) (*model.ProgressEntry, error) {
	var entry model.ProgressEntry
	err := r.DB.Preload("Goals").First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindPrevious 取同一用户在指定日期之前最近的一条测量记录，
// 没有更早的记录时返回 (nil, nil)
func (r *ProgressRepository) FindPrevious(userID uint, before time.Time) (*model.ProgressEntry, error) {
	var entry model.ProgressEntry
	err := r.DB.
		Where("user_id = ? AND date < ?", userID, before).
		Order("date DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindLatest 取用户最新一条测量记录，不存在时返回 (nil, nil)
func (r *ProgressRepository) FindLatest(userID uint) (*model.ProgressEntry, error) {
	var entry model.ProgressEntry
	err := r.DB.Preload("Goals").
		Where("user_id = ?", userID).
		Order("date DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// List 按条件列出测量记录，日期升序
func (r *ProgressRepository) List(filter ProgressFilter) ([]model.ProgressEntry, error) {
	q := r.DB.Where("user_id = ?", filter.UserID)

	if filter.StartDate != nil {
		q = q.Where("date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("date <= ?", *filter.EndDate)
	}
	if filter.MilestoneOnly {
		q = q.Where("milestone = ?", true)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var entries []model.ProgressEntry
	err := q.Order("date ASC").Find(&entries).Error
	return entries, err
}
