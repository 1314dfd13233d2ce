package service

import (
	"math"

	"fitness_tracker_backend/internal/model"
)

// GoalService 目标进度为派生数据，仅由 target/current/goalType 决定，
// 每次读取重算，不落库缓存
type GoalService struct{}

func NewGoalService() *GoalService {
	return &GoalService{}
}

// Progress 计算单个目标的完成情况。
// percentComplete 是 current/target 的原始比值（可超 100），
// progress 是按目标方向归一化并截断到 [0,100] 的展示值
func (s *GoalService) Progress(goal model.Goal) model.GoalProgress {
	p := model.GoalProgress{Goal: goal}

	// target 为 0 无法做比值，current 也为 0 视为达成
	if goal.Target == 0 {
		p.Achieved = goal.Current == 0
		if p.Achieved {
			p.PercentComplete = 100
			p.Progress = 100
		}
		p.Goal.Achieved = p.Achieved
		return p
	}

	p.PercentComplete = roundTo(goal.Current/goal.Target*100, 1)

	if goal.GoalType.DecreasingTarget() {
		p.Achieved = goal.Current <= goal.Target
		if p.Achieved {
			p.Progress = 100
		} else {
			p.Progress = clampPct(goal.Target / goal.Current * 100)
			p.Remaining = roundTo(goal.Current-goal.Target, 1)
		}
	} else {
		p.Achieved = goal.Current >= goal.Target
		if p.Achieved {
			p.Progress = 100
		} else {
			p.Progress = clampPct(goal.Current / goal.Target * 100)
			p.Remaining = roundTo(goal.Target-goal.Current, 1)
		}
	}

	p.Goal.Achieved = p.Achieved
	return p
}

// Recompute 重算条目下挂的全部目标的 achieved 标记
func (s *GoalService) Recompute(goals []model.Goal) []model.GoalProgress {
	out := make([]model.GoalProgress, 0, len(goals))
	for i := range goals {
		progress := s.Progress(goals[i])
		goals[i].Achieved = progress.Achieved
		out = append(out, progress)
	}
	return out
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return roundTo(v, 1)
}

func roundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
