package repository

import (
	"testing"

	"fitness_tracker_backend/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

// newTestDB 内存 sqlite。限制单连接，:memory: 每个连接是一个独立库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         glogger.Default.LogMode(glogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Exercise{},
		&model.WorkoutLog{},
		&model.WorkoutExercise{},
		&model.ExerciseSet{},
		&model.PRAchievement{},
		&model.PersonalRecord{},
		&model.RecordHistory{},
	))
	return db
}
