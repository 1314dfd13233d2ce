package model

import (
	"time"

	"fitness_tracker_backend/internal/util"
)

type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityModerate Intensity = "moderate"
	IntensityHigh     Intensity = "high"
	IntensityVeryHigh Intensity = "very_high"
)

// ExerciseSet 一次完成的组。数值字段用指针区分"未填"和 0，
// 记录后不可变，只有显式编辑会触发所有派生字段重算
type ExerciseSet struct {
	BaseModel
	WorkoutExerciseID uint     `gorm:"index;type:bigint unsigned" json:"-"`
	SetNumber         int      `gorm:"not null" json:"setNumber"`
	Reps              *int     `json:"reps,omitempty"`
	Weight            *float64 `json:"weight,omitempty"`
	DurationSeconds   *int     `json:"durationSeconds,omitempty"`
	DistanceMeters    *float64 `json:"distanceMeters,omitempty"`
	RestSeconds       *int     `json:"restSeconds,omitempty"`
	RPE               *float64 `json:"rpe,omitempty"`
	Notes             string   `gorm:"size:200" json:"notes,omitempty"`
	PersonalRecord    bool     `gorm:"default:false" json:"personalRecord"`
}

func (ExerciseSet) TableName() string {
	return "exercise_sets"
}

// Volume 组容量 weight × reps，任一缺失按 0 计
func (s *ExerciseSet) Volume() float64 {
	if s.Weight == nil || s.Reps == nil {
		return 0
	}
	return *s.Weight * float64(*s.Reps)
}

func (s *ExerciseSet) Validate() error {
	if s.Reps != nil && *s.Reps < 0 {
		return util.NewValidationError("reps", "cannot be negative")
	}
	if s.Weight != nil && *s.Weight < 0 {
		return util.NewValidationError("weight", "cannot be negative")
	}
	if s.DurationSeconds != nil && *s.DurationSeconds < 0 {
		return util.NewValidationError("durationSeconds", "cannot be negative")
	}
	if s.DistanceMeters != nil && *s.DistanceMeters < 0 {
		return util.NewValidationError("distanceMeters", "cannot be negative")
	}
	if s.RPE != nil && (*s.RPE < 1 || *s.RPE > 10) {
		return util.NewValidationError("rpe", "must be between 1 and 10")
	}
	return nil
}

// WorkoutExercise 一次训练中单个动作的全部组及其派生小计
type WorkoutExercise struct {
	BaseModel
	WorkoutLogID uint          `gorm:"index;type:bigint unsigned" json:"-"`
	ExerciseID   uint          `gorm:"index;type:bigint unsigned;not null" json:"exerciseId"`
	Exercise     *Exercise     `gorm:"foreignKey:ExerciseID" json:"exercise,omitempty"`
	Sets         []ExerciseSet `gorm:"foreignKey:WorkoutExerciseID" json:"sets"`

	// 派生小计，由 MetricsService 重算，不作为输入可信
	TotalSets   int      `gorm:"default:0" json:"totalSets"`
	TotalReps   int      `gorm:"default:0" json:"totalReps"`
	TotalWeight float64  `gorm:"default:0" json:"totalWeight"`
	TotalVolume float64  `gorm:"default:0" json:"totalVolume"`
	AvgRPE      *float64 `json:"avgRpe,omitempty"`
	Notes       string   `gorm:"size:500" json:"notes,omitempty"`
}

func (WorkoutExercise) TableName() string {
	return "workout_exercises"
}

// PRAchievement 单条训练记录里触发的 PR 摘要
type PRAchievement struct {
	BaseModel
	WorkoutLogID  uint       `gorm:"index;type:bigint unsigned" json:"-"`
	ExerciseID    uint       `gorm:"type:bigint unsigned" json:"exerciseId"`
	RecordType    RecordType `gorm:"size:30" json:"recordType"`
	Value         float64    `json:"value"`
	PreviousValue *float64   `json:"previousValue,omitempty"`
}

func (PRAchievement) TableName() string {
	return "pr_achievements"
}

// WorkoutLog 一次完成的训练
type WorkoutLog struct {
	BaseModel
	UserID          uint              `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	CompletedAt     time.Time         `gorm:"index;not null" json:"completedAt"`
	DurationMinutes int               `gorm:"not null" json:"durationMinutes"`
	Exercises       []WorkoutExercise `gorm:"foreignKey:WorkoutLogID" json:"exercises"`
	BodyWeight      *float64          `json:"bodyWeight,omitempty"`
	WorkoutRating   *float64          `json:"workoutRating,omitempty"`
	Notes           string            `gorm:"size:1000" json:"notes,omitempty"`

	// 派生字段，随组数据变化必须重算
	TotalSets      int     `gorm:"default:0" json:"totalSets"`
	TotalReps      int     `gorm:"default:0" json:"totalReps"`
	TotalWeight    float64 `gorm:"default:0" json:"totalWeight"`
	TotalVolume    float64 `gorm:"default:0" json:"totalVolume"`
	CaloriesBurned int     `gorm:"default:0" json:"caloriesBurned"`

	IsPersonalRecord bool            `gorm:"default:false" json:"isPersonalRecord"`
	RecordsAchieved  []PRAchievement `gorm:"foreignKey:WorkoutLogID" json:"recordsAchieved,omitempty"`
}

func (WorkoutLog) TableName() string {
	return "workout_logs"
}

func (l *WorkoutLog) Validate() error {
	if l.UserID == 0 {
		return util.NewValidationError("userId", "is required")
	}
	if l.DurationMinutes < 1 {
		return util.NewValidationError("durationMinutes", "must be at least 1 minute")
	}
	if l.BodyWeight != nil && (*l.BodyWeight < 20 || *l.BodyWeight > 500) {
		return util.NewValidationError("bodyWeight", "must be realistic")
	}
	if l.WorkoutRating != nil && (*l.WorkoutRating < 1 || *l.WorkoutRating > 5) {
		return util.NewValidationError("workoutRating", "must be between 1 and 5")
	}
	for _, ex := range l.Exercises {
		if ex.ExerciseID == 0 {
			return util.NewValidationError("exerciseId", "is required")
		}
		for i := range ex.Sets {
			if err := ex.Sets[i].Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
