package model

import "time"

// PeriodSummary 时间窗口内的训练汇总，空窗口返回全零而不是 nil
type PeriodSummary struct {
	TotalWorkouts    int     `json:"totalWorkouts"`
	TotalDuration    int     `json:"totalDuration"`
	TotalSets        int     `json:"totalSets"`
	TotalReps        int     `json:"totalReps"`
	TotalVolume      float64 `json:"totalVolume"`
	AvgDuration      float64 `json:"avgDuration"`
	AvgWorkoutRating float64 `json:"avgWorkoutRating"`
	TotalCalories    int     `json:"totalCalories"`
}

// FrequencyBucket 按自然日分组的训练频率
type FrequencyBucket struct {
	Date          string  `json:"date"` // 2006-01-02
	Count         int     `json:"count"`
	TotalDuration int     `json:"totalDuration"`
	AvgRating     float64 `json:"avgRating"`
}

// LeaderboardEntry 某动作某记录类型的排行榜单项
type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	UserID       uint      `json:"userId"`
	UserName     string    `json:"userName"`
	Value        float64   `json:"value"`
	DateAchieved time.Time `json:"dateAchieved"`
}

// Leaderboard 排行榜及当前用户名次（不在榜内时 rank = 严格更优的记录数 + 1）
type Leaderboard struct {
	ExerciseID uint               `json:"exerciseId"`
	RecordType RecordType         `json:"recordType"`
	Entries    []LeaderboardEntry `json:"entries"`
	UserRank   *UserRank          `json:"userRank,omitempty"`
}

type UserRank struct {
	Rank   int             `json:"rank"`
	Record *PersonalRecord `json:"record"`
}

type StrengthLevel string

const (
	LevelUntrained    StrengthLevel = "untrained"
	LevelNovice       StrengthLevel = "novice"
	LevelIntermediate StrengthLevel = "intermediate"
	LevelAdvanced     StrengthLevel = "advanced"
	LevelElite        StrengthLevel = "elite"
)

// StrengthStandard 按体重比分级的力量水平
type StrengthStandard struct {
	Level     StrengthLevel `json:"level"`
	Ratio     float64       `json:"ratio"`
	NextLevel *NextLevel    `json:"nextLevel,omitempty"`
}

// NextLevel 距离下一级还差多少体重比
type NextLevel struct {
	Level  StrengthLevel `json:"level"`
	Ratio  float64       `json:"ratio"`
	Needed float64       `json:"needed"`
}

// GoalProgress 单个目标的完成情况
type GoalProgress struct {
	Goal            Goal    `json:"goal"`
	PercentComplete float64 `json:"percentComplete"`
	Progress        float64 `json:"progress"` // 归一化 [0,100]
	Remaining       float64 `json:"remaining"`
	Achieved        bool    `json:"achieved"`
}

// RecordsSummary 用户 PR 总览
type RecordsSummary struct {
	TotalRecords     int                `json:"totalRecords"`
	RecordsByType    map[RecordType]int `json:"recordsByType"`
	RecentCount      int                `json:"recentCount"`
	BestImprovements []PersonalRecord   `json:"bestImprovements"`
}

// RecordHistoryPoint 某三元组的历史纪录（含被替换的）
type RecordHistoryPoint struct {
	ExerciseID       uint             `json:"exerciseId"`
	RecordType       RecordType       `json:"recordType"`
	Records          []PersonalRecord `json:"records"`
	TotalImprovement float64          `json:"totalImprovement"`
	ImprovementPct   float64          `json:"improvementPct"`
}

// CompositionPoint 身体成分随时间变化的单个数据点
type CompositionPoint struct {
	Date              time.Time `json:"date"`
	Weight            *float64  `json:"weight,omitempty"`
	BodyFatPercentage *float64  `json:"bodyFatPercentage,omitempty"`
	MuscleMass        *float64  `json:"muscleMass,omitempty"`
	FatMass           *float64  `json:"fatMass,omitempty"`
	LeanMass          *float64  `json:"leanMass,omitempty"`
}

// MetricTrend 某项测量指标的首末变化趋势
type MetricTrend struct {
	Change           float64 `json:"change"`
	PercentageChange float64 `json:"percentageChange"`
	Direction        string  `json:"direction"` // up, down, stable
}
