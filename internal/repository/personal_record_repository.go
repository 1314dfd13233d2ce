package repository

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/util"

	"gorm.io/gorm"
)

// RecordFilter PR 查询条件
type RecordFilter struct {
	UserID     uint
	ExerciseID uint
	RecordType model.RecordType
	Since      *time.Time
	Limit      int
}

// PersonalRecordRepository 实现引擎依赖的 Store 协作者：
// 单键读取强一致，替换通过事务内归档+硬删+创建保证三元组唯一
type PersonalRecordRepository struct {
	DB *gorm.DB
}

func NewPersonalRecordRepository(db *gorm.DB) *PersonalRecordRepository {
	return &PersonalRecordRepository{DB: db}
}

// FindBest 取某三元组当前最优纪录，按类型对应列降序、
// 达成时间降序（同值时取最近一条，保证确定性），不存在时返回 (nil, nil)
func (r *PersonalRecordRepository) FindBest(userID, exerciseID uint, recordType model.RecordType) (*model.PersonalRecord, error) {
	field, ok := model.FieldFor(recordType)
	if !ok {
		return nil, fmt.Errorf("unknown record type: %s", recordType)
	}

	var record model.PersonalRecord
	err := r.DB.
		Where("user_id = ? AND exercise_id = ? AND record_type = ?", userID, exerciseID, recordType).
		Order(fmt.Sprintf("%s DESC, date_achieved DESC", field.Column)).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindBestRepsAtWeight 取负重不超过 maxWeight 的最优次数纪录。
// 次数 PR 只在同等或更大负重下才可比
func (r *PersonalRecordRepository) FindBestRepsAtWeight(userID, exerciseID uint, maxWeight float64) (*model.PersonalRecord, error) {
	var record model.PersonalRecord
	err := r.DB.
		Where("user_id = ? AND exercise_id = ? AND record_type = ? AND weight <= ?",
			userID, exerciseID, model.RecordMaxReps, maxWeight).
		Order("reps DESC, date_achieved DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Replace 原子替换纪录：旧行归档到历史表、硬删、创建新行在同一事务内完成。
// 硬删是必须的，软删行仍占着三元组唯一索引，会挡住新行的创建。
// 纪录行从不原地更新，按 id 删除命中 0 行即说明已被并发替换，
// 返回 ErrRecordConflict 由调用方重试该次比较
func (r *PersonalRecordRepository) Replace(old, record *model.PersonalRecord) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if old != nil {
			res := tx.Unscoped().Where("id = ?", old.ID).Delete(&model.PersonalRecord{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return util.ErrRecordConflict
			}
			archived := old.Archive()
			if err := tx.Create(&archived).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(record).Error; err != nil {
			// 唯一索引冲突说明并发写入者先创建了同三元组的纪录
			if isDuplicateKey(err) {
				return util.ErrRecordConflict
			}
			return err
		}
		return nil
	})
}

// List 按条件列出在用纪录，达成时间倒序
func (r *PersonalRecordRepository) List(filter RecordFilter) ([]model.PersonalRecord, error) {
	q := r.DB.Preload("Exercise")

	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.ExerciseID != 0 {
		q = q.Where("exercise_id = ?", filter.ExerciseID)
	}
	if filter.RecordType != "" {
		q = q.Where("record_type = ?", filter.RecordType)
	}
	if filter.Since != nil {
		q = q.Where("date_achieved >= ?", *filter.Since)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var records []model.PersonalRecord
	err := q.Order("date_achieved DESC").Find(&records).Error
	return records, err
}

// ListTop 某动作某记录类型的排行，按类型对应列降序，同值按达成时间升序
func (r *PersonalRecordRepository) ListTop(exerciseID uint, recordType model.RecordType, limit int) ([]model.PersonalRecord, error) {
	field, ok := model.FieldFor(recordType)
	if !ok {
		return nil, fmt.Errorf("unknown record type: %s", recordType)
	}

	var records []model.PersonalRecord
	err := r.DB.
		Where("exercise_id = ? AND record_type = ?", exerciseID, recordType).
		Order(fmt.Sprintf("%s DESC, date_achieved ASC", field.Column)).
		Limit(limit).
		Find(&records).Error
	return records, err
}

// CountBetter 统计严格优于给定值的纪录数（并列不计入）
func (r *PersonalRecordRepository) CountBetter(exerciseID uint, recordType model.RecordType, value float64) (int64, error) {
	field, ok := model.FieldFor(recordType)
	if !ok {
		return 0, fmt.Errorf("unknown record type: %s", recordType)
	}

	var count int64
	err := r.DB.Model(&model.PersonalRecord{}).
		Where("exercise_id = ? AND record_type = ?", exerciseID, recordType).
		Where(fmt.Sprintf("%s > ?", field.Column), value).
		Count(&count).Error
	return count, err
}

// ListBestImprovements 提升幅度最大的纪录
func (r *PersonalRecordRepository) ListBestImprovements(userID uint, limit int) ([]model.PersonalRecord, error) {
	var records []model.PersonalRecord
	err := r.DB.Preload("Exercise").
		Where("user_id = ? AND improvement > 0", userID).
		Order("improvement DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// History 某三元组的全部历史纪录：归档表里被替换的行加上当前在用行，
// 按达成时间升序
func (r *PersonalRecordRepository) History(userID, exerciseID uint, recordType model.RecordType, since *time.Time) ([]model.PersonalRecord, error) {
	q := r.DB.
		Where("user_id = ? AND exercise_id = ? AND record_type = ?", userID, exerciseID, recordType)
	if since != nil {
		q = q.Where("date_achieved >= ?", *since)
	}

	var archived []model.RecordHistory
	if err := q.Order("date_achieved ASC").Find(&archived).Error; err != nil {
		return nil, err
	}

	records := make([]model.PersonalRecord, 0, len(archived)+1)
	for i := range archived {
		records = append(records, archived[i].Record())
	}

	current, err := r.FindBest(userID, exerciseID, recordType)
	if err != nil {
		return nil, err
	}
	if current != nil && (since == nil || !current.DateAchieved.Before(*since)) {
		records = append(records, *current)
	}

	// 手工登记的纪录可以带过去的达成日期，归档顺序不保证严格单调
	sort.Slice(records, func(i, j int) bool {
		return records[i].DateAchieved.Before(records[j].DateAchieved)
	})
	return records, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}
