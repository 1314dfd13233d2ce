package model

type ExerciseCategory string

const (
	CategoryStrength    ExerciseCategory = "strength"
	CategoryCardio      ExerciseCategory = "cardio"
	CategoryFlexibility ExerciseCategory = "flexibility"
)

type Exercise struct {
	BaseModel
	Name        string           `gorm:"size:255;not null;uniqueIndex" json:"name"`
	MuscleGroup string           `gorm:"size:100" json:"muscleGroup"`
	Category    ExerciseCategory `gorm:"size:20;default:'strength'" json:"category"`
	Description string           `gorm:"type:text" json:"description"`
}

func (Exercise) TableName() string {
	return "exercises"
}
