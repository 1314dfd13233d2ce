package service

import (
	"math"

	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/util"
)

// MetricsService 从原始组数据计算训练的全部派生字段。
// 所有计算都是幂等的纯函数：同样的组和体重重复计算结果不变
type MetricsService struct{}

func NewMetricsService() *MetricsService {
	return &MetricsService{}
}

// CalculateTotals 重算单次训练的总组数/总次数/总容量和每个动作的小计。
// 容量 = weight × reps，任一缺失该组按 0 计，但仍计入组数
func (s *MetricsService) CalculateTotals(log *model.WorkoutLog) {
	var totalSets, totalReps int
	var totalWeight, totalVolume float64

	for i := range log.Exercises {
		ex := &log.Exercises[i]

		ex.TotalSets = len(ex.Sets)
		ex.TotalReps = 0
		ex.TotalWeight = 0
		ex.TotalVolume = 0

		var rpeSum float64
		var rpeCount int

		for j := range ex.Sets {
			set := &ex.Sets[j]
			if set.Reps != nil {
				ex.TotalReps += *set.Reps
			}
			if set.Weight != nil {
				ex.TotalWeight += *set.Weight
			}
			ex.TotalVolume += set.Volume()

			if set.RPE != nil {
				rpeSum += *set.RPE
				rpeCount++
			}
		}

		// 只对填了 RPE 的组求均值，一组都没填时保持未设置
		if rpeCount > 0 {
			avg := rpeSum / float64(rpeCount)
			ex.AvgRPE = &avg
		} else {
			ex.AvgRPE = nil
		}

		totalSets += ex.TotalSets
		totalReps += ex.TotalReps
		totalWeight += ex.TotalWeight
		totalVolume += ex.TotalVolume
	}

	log.TotalSets = totalSets
	log.TotalReps = totalReps
	log.TotalWeight = totalWeight
	log.TotalVolume = totalVolume
}

// Intensity 由各动作平均 RPE 推训练强度，未填 RPE 的动作按 0 计
func (s *MetricsService) Intensity(log *model.WorkoutLog) model.Intensity {
	if len(log.Exercises) == 0 {
		return model.IntensityModerate
	}

	var totalRPE float64
	for i := range log.Exercises {
		if log.Exercises[i].AvgRPE != nil {
			totalRPE += *log.Exercises[i].AvgRPE
		}
	}
	avgRPE := totalRPE / float64(len(log.Exercises))

	switch {
	case avgRPE <= 4:
		return model.IntensityLow
	case avgRPE <= 6:
		return model.IntensityModerate
	case avgRPE <= 8:
		return model.IntensityHigh
	default:
		return model.IntensityVeryHigh
	}
}

// EstimateCalories 按时长、强度和体重估算消耗，体重未填时返回 0。
// 基准为 70kg 下每分钟 3/5/7/9 kcal
func (s *MetricsService) EstimateCalories(log *model.WorkoutLog) int {
	if log.BodyWeight == nil {
		return 0
	}

	baseCaloriesPerMinute := 5.0
	switch s.Intensity(log) {
	case model.IntensityLow:
		baseCaloriesPerMinute = 3
	case model.IntensityModerate:
		baseCaloriesPerMinute = 5
	case model.IntensityHigh:
		baseCaloriesPerMinute = 7
	case model.IntensityVeryHigh:
		baseCaloriesPerMinute = 9
	}

	weightFactor := *log.BodyWeight / util.ReferenceBodyWeightKg
	estimated := float64(log.DurationMinutes) * baseCaloriesPerMinute * weightFactor

	return int(math.Round(estimated))
}
