package model

import (
	"time"

	"fitness_tracker_backend/internal/util"
)

type GoalType string

const (
	GoalWeightLoss   GoalType = "weight_loss"
	GoalWeightGain   GoalType = "weight_gain"
	GoalMuscleGain   GoalType = "muscle_gain"
	GoalStrength     GoalType = "strength"
	GoalEndurance    GoalType = "endurance"
	GoalFlexibility  GoalType = "flexibility"
	GoalBodyFat      GoalType = "body_fat"
	GoalMeasurements GoalType = "measurements"
)

// DecreasingTarget 目标值低于当前值才算达成的目标类型（减重、减脂）
func (t GoalType) DecreasingTarget() bool {
	return t == GoalWeightLoss || t == GoalBodyFat
}

// Goal 用户自定义数值目标，achieved 为派生字段，每次读取重算
type Goal struct {
	BaseModel
	ProgressEntryID uint       `gorm:"index;type:bigint unsigned" json:"-"`
	GoalType        GoalType   `gorm:"size:30;not null" json:"goalType"`
	Target          float64    `gorm:"not null" json:"target"`
	Current         float64    `gorm:"not null" json:"current"`
	Unit            string     `gorm:"size:20" json:"unit"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	Achieved        bool       `gorm:"default:false" json:"achieved"`
}

func (Goal) TableName() string {
	return "goals"
}

// BodyMeasurements 围度，单位 cm
type BodyMeasurements struct {
	Chest    *float64 `json:"chest,omitempty"`
	Waist    *float64 `json:"waist,omitempty"`
	Hips     *float64 `json:"hips,omitempty"`
	Biceps   *float64 `json:"biceps,omitempty"`
	Thighs   *float64 `json:"thighs,omitempty"`
	Neck     *float64 `json:"neck,omitempty"`
	Forearms *float64 `json:"forearms,omitempty"`
	Calves   *float64 `json:"calves,omitempty"`
}

// ProgressEntry 一次身体测量快照，milestone 相对同一用户前一条记录计算
type ProgressEntry struct {
	BaseModel
	UserID            uint             `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	Date              time.Time        `gorm:"index;not null" json:"date"`
	Weight            *float64         `json:"weight,omitempty"`
	BodyFatPercentage *float64         `json:"bodyFatPercentage,omitempty"`
	MuscleMass        *float64         `json:"muscleMass,omitempty"`
	Measurements      BodyMeasurements `gorm:"embedded;embeddedPrefix:measurement_" json:"measurements"`
	Goals             []Goal           `gorm:"foreignKey:ProgressEntryID" json:"goals,omitempty"`
	Notes             string           `gorm:"size:1000" json:"notes,omitempty"`
	Milestone         bool             `gorm:"default:false" json:"milestone"`
}

func (ProgressEntry) TableName() string {
	return "progress_entries"
}

func (e *ProgressEntry) Validate() error {
	if e.UserID == 0 {
		return util.NewValidationError("userId", "is required")
	}
	if e.Weight != nil && (*e.Weight < 20 || *e.Weight > 500) {
		return util.NewValidationError("weight", "must be realistic")
	}
	if e.BodyFatPercentage != nil && (*e.BodyFatPercentage < 0 || *e.BodyFatPercentage > 60) {
		return util.NewValidationError("bodyFatPercentage", "must be between 0 and 60")
	}
	if e.MuscleMass != nil && *e.MuscleMass < 0 {
		return util.NewValidationError("muscleMass", "cannot be negative")
	}
	for _, m := range []*float64{
		e.Measurements.Chest, e.Measurements.Waist, e.Measurements.Hips,
		e.Measurements.Biceps, e.Measurements.Thighs, e.Measurements.Neck,
		e.Measurements.Forearms, e.Measurements.Calves,
	} {
		if m != nil && *m < 0 {
			return util.NewValidationError("measurements", "cannot be negative")
		}
	}
	return nil
}
