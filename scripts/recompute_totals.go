// 手动触发历史训练数据重算脚本
//
// 汇总字段（组数/次数/容量/热量）在写入路径自动派生，
// 此脚本仅用于导入历史数据或派生规则变更后的全量回填，
// 回填后对每条训练重跑一次纪录检测。
//
// 用法: go run scripts/recompute_totals.go

package main

import (
	"context"
	"log"
	"os"

	"fitness_tracker_backend/internal/config"
	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/repository"
	"fitness_tracker_backend/internal/service"
	"fitness_tracker_backend/pkg/database"
	"fitness_tracker_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	exerciseRepo := repository.NewExerciseRepository(db)
	logRepo := repository.NewWorkoutLogRepository(db)
	recordRepo := repository.NewPersonalRecordRepository(db)

	metrics := service.NewMetricsService()
	strength := service.NewStrengthService()
	records := service.NewRecordService(recordRepo, exerciseRepo, userRepo, strength)

	ctx := context.Background()

	var users []model.User
	if err := db.Find(&users).Error; err != nil {
		log.Fatalf("读取用户失败: %v", err)
	}

	log.Println("开始重算历史训练数据...")
	recomputed, flagged := 0, 0

	for _, user := range users {
		logs, err := logRepo.List(repository.WorkoutLogFilter{UserID: user.ID})
		if err != nil {
			log.Fatalf("读取训练记录失败 (user %d): %v", user.ID, err)
		}

		// List 按完成时间倒序，检测要按时间正序跑，否则旧数据会覆盖新纪录
		for i := len(logs) - 1; i >= 0; i-- {
			workout := &logs[i]

			metrics.CalculateTotals(workout)
			workout.CaloriesBurned = metrics.EstimateCalories(workout)

			if _, err := records.ProcessWorkoutLog(ctx, workout); err != nil {
				log.Printf("纪录检测失败 (log %d): %v", workout.ID, err)
			}
			if workout.IsPersonalRecord {
				flagged++
			}

			if err := logRepo.Save(workout); err != nil {
				log.Fatalf("保存失败 (log %d): %v", workout.ID, err)
			}
			recomputed++
		}
	}

	log.Printf("完成！重算 %d 条训练，其中 %d 条包含个人纪录", recomputed, flagged)
}
