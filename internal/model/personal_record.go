package model

import "time"

type RecordType string

const (
	RecordMaxWeight   RecordType = "max_weight"
	RecordMaxReps     RecordType = "max_reps"
	RecordMaxVolume   RecordType = "max_volume"
	RecordOneRepMax   RecordType = "one_rep_max"
	RecordMaxDuration RecordType = "max_duration"
	RecordMaxDistance RecordType = "max_distance"
)

// RecordField 每种记录类型对应的取值函数和排行榜排序列，
// 构造时解析一次，避免在每个调用点重复做字符串分支
type RecordField struct {
	Column string
	Value  func(r *PersonalRecord) float64
}

var recordFields = map[RecordType]RecordField{
	RecordMaxWeight:   {Column: "weight", Value: func(r *PersonalRecord) float64 { return deref(r.Weight) }},
	RecordMaxReps:     {Column: "reps", Value: func(r *PersonalRecord) float64 { return float64(derefInt(r.Reps)) }},
	RecordMaxVolume:   {Column: "volume", Value: func(r *PersonalRecord) float64 { return deref(r.Volume) }},
	RecordOneRepMax:   {Column: "one_rep_max", Value: func(r *PersonalRecord) float64 { return deref(r.OneRepMax) }},
	RecordMaxDuration: {Column: "duration_seconds", Value: func(r *PersonalRecord) float64 { return float64(derefInt(r.DurationSeconds)) }},
	RecordMaxDistance: {Column: "distance_meters", Value: func(r *PersonalRecord) float64 { return deref(r.DistanceMeters) }},
}

// FieldFor 返回记录类型的取值/排序描述，未知类型返回 false
func FieldFor(t RecordType) (RecordField, bool) {
	f, ok := recordFields[t]
	return f, ok
}

func RecordTypes() []RecordType {
	return []RecordType{
		RecordMaxWeight,
		RecordMaxReps,
		RecordMaxVolume,
		RecordOneRepMax,
		RecordMaxDuration,
		RecordMaxDistance,
	}
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

// PersonalRecord 每个 (userId, exerciseId, recordType) 三元组最多一条在用记录。
// 新纪录达标时替换旧纪录（旧行归档到历史表后硬删，唯一索引只约束在用行），
// previousRecord 用于提升幅度展示
type PersonalRecord struct {
	BaseModel
	UserID     uint       `gorm:"uniqueIndex:idx_user_exercise_type;type:bigint unsigned;not null" json:"userId"`
	ExerciseID uint       `gorm:"uniqueIndex:idx_user_exercise_type;type:bigint unsigned;not null" json:"exerciseId"`
	RecordType RecordType `gorm:"uniqueIndex:idx_user_exercise_type;size:30;not null" json:"recordType"`
	Exercise   *Exercise  `gorm:"foreignKey:ExerciseID" json:"exercise,omitempty"`

	Weight          *float64 `json:"weight,omitempty"`
	Reps            *int     `json:"reps,omitempty"`
	DurationSeconds *int     `json:"durationSeconds,omitempty"`
	DistanceMeters  *float64 `json:"distanceMeters,omitempty"`
	Volume          *float64 `json:"volume,omitempty"`
	OneRepMax       *float64 `json:"oneRepMax,omitempty"`

	DateAchieved time.Time `gorm:"index;not null" json:"dateAchieved"`
	WorkoutLogID *uint     `gorm:"type:bigint unsigned" json:"workoutLogId,omitempty"`
	BodyWeight   *float64  `json:"bodyWeight,omitempty"`

	PreviousValue *float64   `json:"previousValue,omitempty"`
	PreviousDate  *time.Time `json:"previousDate,omitempty"`
	Improvement   float64    `gorm:"default:0" json:"improvement"`
	WilksScore    *float64   `json:"wilksScore,omitempty"`
	Notes         string     `gorm:"size:500" json:"notes,omitempty"`
}

func (PersonalRecord) TableName() string {
	return "personal_records"
}

// Value 按记录类型取出用于比较和排名的数值
func (r *PersonalRecord) Value() float64 {
	f, ok := recordFields[r.RecordType]
	if !ok {
		return 0
	}
	return f.Value(r)
}

// Archive 把在用纪录转成归档行，替换时在同一事务内写入
func (r *PersonalRecord) Archive() RecordHistory {
	return RecordHistory{
		UserID:          r.UserID,
		ExerciseID:      r.ExerciseID,
		RecordType:      r.RecordType,
		Weight:          r.Weight,
		Reps:            r.Reps,
		DurationSeconds: r.DurationSeconds,
		DistanceMeters:  r.DistanceMeters,
		Volume:          r.Volume,
		OneRepMax:       r.OneRepMax,
		DateAchieved:    r.DateAchieved,
		WorkoutLogID:    r.WorkoutLogID,
		BodyWeight:      r.BodyWeight,
		PreviousValue:   r.PreviousValue,
		PreviousDate:    r.PreviousDate,
		Improvement:     r.Improvement,
		WilksScore:      r.WilksScore,
		Notes:           r.Notes,
	}
}

// RecordHistory 被替换纪录的归档行。历史不能挂在 personal_records 的
// 软删除上：软删行仍占着三元组唯一索引，会挡住接班纪录的创建
type RecordHistory struct {
	BaseModel
	UserID     uint       `gorm:"index:idx_history_triple;type:bigint unsigned;not null" json:"userId"`
	ExerciseID uint       `gorm:"index:idx_history_triple;type:bigint unsigned;not null" json:"exerciseId"`
	RecordType RecordType `gorm:"index:idx_history_triple;size:30;not null" json:"recordType"`

	Weight          *float64 `json:"weight,omitempty"`
	Reps            *int     `json:"reps,omitempty"`
	DurationSeconds *int     `json:"durationSeconds,omitempty"`
	DistanceMeters  *float64 `json:"distanceMeters,omitempty"`
	Volume          *float64 `json:"volume,omitempty"`
	OneRepMax       *float64 `json:"oneRepMax,omitempty"`

	DateAchieved time.Time `gorm:"index;not null" json:"dateAchieved"`
	WorkoutLogID *uint     `gorm:"type:bigint unsigned" json:"workoutLogId,omitempty"`
	BodyWeight   *float64  `json:"bodyWeight,omitempty"`

	PreviousValue *float64   `json:"previousValue,omitempty"`
	PreviousDate  *time.Time `json:"previousDate,omitempty"`
	Improvement   float64    `gorm:"default:0" json:"improvement"`
	WilksScore    *float64   `json:"wilksScore,omitempty"`
	Notes         string     `gorm:"size:500" json:"notes,omitempty"`
}

func (RecordHistory) TableName() string {
	return "personal_record_history"
}

// Record 还原成纪录视图，供历史查询和在用纪录合并展示
func (h *RecordHistory) Record() PersonalRecord {
	return PersonalRecord{
		UserID:          h.UserID,
		ExerciseID:      h.ExerciseID,
		RecordType:      h.RecordType,
		Weight:          h.Weight,
		Reps:            h.Reps,
		DurationSeconds: h.DurationSeconds,
		DistanceMeters:  h.DistanceMeters,
		Volume:          h.Volume,
		OneRepMax:       h.OneRepMax,
		DateAchieved:    h.DateAchieved,
		WorkoutLogID:    h.WorkoutLogID,
		BodyWeight:      h.BodyWeight,
		PreviousValue:   h.PreviousValue,
		PreviousDate:    h.PreviousDate,
		Improvement:     h.Improvement,
		WilksScore:      h.WilksScore,
		Notes:           h.Notes,
	}
}
