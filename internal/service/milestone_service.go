package service

import (
	"context"
	"math"
	"time"

	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/repository"
	"fitness_tracker_backend/pkg/monitoring"
	"fitness_tracker_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// 里程碑阈值：体重变化 ≥5%，体脂变化 ≥2 个百分点，
// 胸/腰/臀任一维度变化 ≥5cm
const (
	milestoneWeightPct     = 5.0
	milestoneBodyFatPts    = 2.0
	milestoneMeasurementCm = 5.0
)

type progressStore interface {
	FindPrevious(userID uint, before time.Time) (*model.ProgressEntry, error)
	List(filter repository.ProgressFilter) ([]model.ProgressEntry, error)
}

// MilestoneService 判定进度条目是否构成里程碑
type MilestoneService struct {
	Progress progressStore
}

func NewMilestoneService(progress progressStore) *MilestoneService {
	return &MilestoneService{Progress: progress}
}

// ProcessEntry 找到该用户紧邻的上一条条目并评估里程碑标记。
// 没有更早的条目时不可能是里程碑
func (s *MilestoneService) ProcessEntry(ctx context.Context, entry *model.ProgressEntry) error {
	_, span := tracing.Tracer.Start(ctx, "engine.milestones.process-entry")
	defer span.End()

	previous, err := s.Progress.FindPrevious(entry.UserID, entry.Date)
	if err != nil {
		return err
	}

	entry.Milestone = s.Evaluate(entry, previous)
	if entry.Milestone {
		monitoring.MilestonesFlagged.Inc()
	}
	span.SetAttributes(attribute.Bool("milestone", entry.Milestone))
	return nil
}

// Evaluate 任一条件满足即为里程碑，方向不限（增减都算显著变化）。
// 双方都有值才参与比较，缺字段的条件直接不成立
func (s *MilestoneService) Evaluate(entry, previous *model.ProgressEntry) bool {
	if previous == nil {
		return false
	}

	if entry.Weight != nil && previous.Weight != nil && *previous.Weight > 0 {
		changePct := math.Abs(*entry.Weight-*previous.Weight) / *previous.Weight * 100
		if changePct >= milestoneWeightPct {
			return true
		}
	}

	if entry.BodyFatPercentage != nil && previous.BodyFatPercentage != nil {
		if math.Abs(*entry.BodyFatPercentage-*previous.BodyFatPercentage) >= milestoneBodyFatPts {
			return true
		}
	}

	pairs := [][2]*float64{
		{entry.Measurements.Chest, previous.Measurements.Chest},
		{entry.Measurements.Waist, previous.Measurements.Waist},
		{entry.Measurements.Hips, previous.Measurements.Hips},
	}
	for _, p := range pairs {
		if p[0] != nil && p[1] != nil && math.Abs(*p[0]-*p[1]) >= milestoneMeasurementCm {
			return true
		}
	}

	return false
}

// ListMilestones 返回某用户被标记为里程碑的全部条目，按日期升序
func (s *MilestoneService) ListMilestones(userID uint) ([]model.ProgressEntry, error) {
	return s.Progress.List(repository.ProgressFilter{
		UserID:        userID,
		MilestoneOnly: true,
	})
}
