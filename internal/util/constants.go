package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

// 卡路里估算相关常量
const (
	// ReferenceBodyWeightKg 卡路里估算的基准体重
	ReferenceBodyWeightKg = 70.0
)
