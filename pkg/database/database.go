package database

import (
	"fmt"
	"log"

	"fitness_tracker_backend/internal/config"
	"fitness_tracker_backend/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, migrate bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if !migrate {
		return db, nil
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Exercise{},
		&model.WorkoutLog{},
		&model.WorkoutExercise{},
		&model.ExerciseSet{},
		&model.PRAchievement{},
		&model.PersonalRecord{},
		&model.RecordHistory{},
		&model.ProgressEntry{},
		&model.Goal{},
	)

	if err != nil {
		return nil, err
	}

	log.Println("Database migration completed")

	// 默认动作库（为空时插入常见动作，力量标准表按名称匹配）
	var count int64
	db.Model(&model.Exercise{}).Count(&count)
	if count == 0 {
		defaultExercises := []model.Exercise{
			{Name: "Bench Press", MuscleGroup: "chest", Category: model.CategoryStrength, Description: "杠铃卧推"},
			{Name: "Squat", MuscleGroup: "legs", Category: model.CategoryStrength, Description: "杠铃深蹲"},
			{Name: "Deadlift", MuscleGroup: "back", Category: model.CategoryStrength, Description: "杠铃硬拉"},
			{Name: "Overhead Press", MuscleGroup: "shoulders", Category: model.CategoryStrength, Description: "站姿推举"},
			{Name: "Pull Up", MuscleGroup: "back", Category: model.CategoryStrength, Description: "引体向上"},
			{Name: "Running", MuscleGroup: "full_body", Category: model.CategoryCardio, Description: "跑步"},
			{Name: "Rowing", MuscleGroup: "full_body", Category: model.CategoryCardio, Description: "划船机"},
			{Name: "Plank", MuscleGroup: "core", Category: model.CategoryStrength, Description: "平板支撑"},
		}
		for _, e := range defaultExercises {
			db.Create(&e)
		}
	}

	return db, nil
}
