package service

import (
	"math"

	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/util"
)

// wilksCoefficients Wilks 公式的五阶多项式系数（公开标准常数）
type wilksCoefficients struct {
	a, b, c, d, e, f float64
}

var wilksByGender = map[model.Gender]wilksCoefficients{
	model.GenderMale: {
		a: -216.0475144,
		b: 16.2606339,
		c: -0.002388645,
		d: -0.00113732,
		e: 7.01863e-06,
		f: -1.291e-08,
	},
	model.GenderFemale: {
		a: -125.4255398,
		b: 13.71219419,
		c: -0.03307250,
		d: -0.0001050400,
		e: 9.38773e-06,
		f: -2.3334e-08,
	},
}

// strengthStandards 动作名 → 性别 → 等级体重比阈值（简化公开标准）
var strengthStandards = map[string]map[model.Gender]map[model.StrengthLevel]float64{
	"Bench Press": {
		model.GenderMale:   {model.LevelUntrained: 0.5, model.LevelNovice: 0.75, model.LevelIntermediate: 1.0, model.LevelAdvanced: 1.25, model.LevelElite: 1.5},
		model.GenderFemale: {model.LevelUntrained: 0.3, model.LevelNovice: 0.5, model.LevelIntermediate: 0.75, model.LevelAdvanced: 1.0, model.LevelElite: 1.25},
	},
	"Squat": {
		model.GenderMale:   {model.LevelUntrained: 0.75, model.LevelNovice: 1.0, model.LevelIntermediate: 1.25, model.LevelAdvanced: 1.5, model.LevelElite: 2.0},
		model.GenderFemale: {model.LevelUntrained: 0.5, model.LevelNovice: 0.75, model.LevelIntermediate: 1.0, model.LevelAdvanced: 1.25, model.LevelElite: 1.5},
	},
	"Deadlift": {
		model.GenderMale:   {model.LevelUntrained: 1.0, model.LevelNovice: 1.25, model.LevelIntermediate: 1.5, model.LevelAdvanced: 1.75, model.LevelElite: 2.25},
		model.GenderFemale: {model.LevelUntrained: 0.75, model.LevelNovice: 1.0, model.LevelIntermediate: 1.25, model.LevelAdvanced: 1.5, model.LevelElite: 1.75},
	},
}

// strengthLevelOrder 从低到高
var strengthLevelOrder = []model.StrengthLevel{
	model.LevelUntrained,
	model.LevelNovice,
	model.LevelIntermediate,
	model.LevelAdvanced,
	model.LevelElite,
}

// StrengthService Epley 1RM 估算、Wilks 相对力量分和力量标准分级
type StrengthService struct{}

func NewStrengthService() *StrengthService {
	return &StrengthService{}
}

// EpleyOneRepMax 估算单次最大重量。
// reps == 1 时就是该重量本身；否则 weight × (1 + reps/30)，保留 1 位小数。
// 重量缺失或非正时返回 0
func (s *StrengthService) EpleyOneRepMax(weight float64, reps int) float64 {
	if weight <= 0 || reps <= 0 {
		return 0
	}
	if reps == 1 {
		return weight
	}
	oneRepMax := weight * (1 + float64(reps)/30)
	return math.Round(oneRepMax*10) / 10
}

// WilksScore 体重归一化的力量分，weight × 500 / poly(bodyWeight)，
// 保留 2 位小数。任一输入非正时不计算，返回 0
func (s *StrengthService) WilksScore(weight, bodyWeight float64, gender model.Gender) float64 {
	if weight <= 0 || bodyWeight <= 0 {
		return 0
	}

	c, ok := wilksByGender[gender]
	if !ok {
		c = wilksByGender[model.GenderMale]
	}

	bw := bodyWeight
	poly := c.a + c.b*bw + c.c*math.Pow(bw, 2) + c.d*math.Pow(bw, 3) + c.e*math.Pow(bw, 4) + c.f*math.Pow(bw, 5)
	score := weight * 500 / poly

	return math.Round(score*100) / 100
}

// Classify 按体重比分级，取比值达到（含相等）的最高等级，并给出升级还差多少
func (s *StrengthService) Classify(exerciseName string, gender model.Gender, ratio float64) (*model.StrengthStandard, error) {
	byGender, ok := strengthStandards[exerciseName]
	if !ok {
		return nil, util.ErrNoStandards
	}
	thresholds, ok := byGender[gender]
	if !ok {
		return nil, util.ErrNoStandards
	}

	level := model.LevelUntrained
	for _, l := range strengthLevelOrder {
		if ratio >= thresholds[l] {
			level = l
		}
	}

	standard := &model.StrengthStandard{
		Level: level,
		Ratio: math.Round(ratio*100) / 100,
	}

	for i, l := range strengthLevelOrder {
		if l == level && i < len(strengthLevelOrder)-1 {
			next := strengthLevelOrder[i+1]
			needed := thresholds[next] - ratio
			if needed < 0 {
				needed = 0
			}
			standard.NextLevel = &model.NextLevel{
				Level:  next,
				Ratio:  thresholds[next],
				Needed: math.Round(needed*100) / 100,
			}
		}
	}

	return standard, nil
}
