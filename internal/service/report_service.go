package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"fitness_tracker_backend/internal/config"
	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/repository"
	"fitness_tracker_backend/internal/util"
	"fitness_tracker_backend/pkg/logger"
	"fitness_tracker_backend/pkg/monitoring"
	"fitness_tracker_backend/pkg/tracing"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	statsKeyPrefix       = "stats:"
	leaderboardKeyPrefix = "leaderboard:"
)

type workoutLogLister interface {
	List(filter repository.WorkoutLogFilter) ([]model.WorkoutLog, error)
}

type recordReader interface {
	FindBest(userID, exerciseID uint, recordType model.RecordType) (*model.PersonalRecord, error)
	List(filter repository.RecordFilter) ([]model.PersonalRecord, error)
	ListTop(exerciseID uint, recordType model.RecordType, limit int) ([]model.PersonalRecord, error)
	CountBetter(exerciseID uint, recordType model.RecordType, value float64) (int64, error)
	ListBestImprovements(userID uint, limit int) ([]model.PersonalRecord, error)
	History(userID, exerciseID uint, recordType model.RecordType, since *time.Time) ([]model.PersonalRecord, error)
}

type progressLister interface {
	List(filter repository.ProgressFilter) ([]model.ProgressEntry, error)
}

// ReportService 聚合报表全部按需计算，不维护落库的累计统计。
// Redis 只作为显式缓存：写路径失效，读路径未命中时重算，
// 缓存故障降级为直接计算
type ReportService struct {
	Logs      workoutLogLister
	Records   recordReader
	Progress  progressLister
	Users     userStore
	Exercises exerciseStore
	Strength  *StrengthService

	Redis    *redis.Client
	CacheCfg config.CacheConfig
}

func NewReportService(
	logs workoutLogLister,
	records recordReader,
	progress progressLister,
	users userStore,
	exercises exerciseStore,
	strength *StrengthService,
	rdb *redis.Client,
	cacheCfg config.CacheConfig,
) *ReportService {
	return &ReportService{
		Logs:      logs,
		Records:   records,
		Progress:  progress,
		Users:     users,
		Exercises: exercises,
		Strength:  strength,
		Redis:     rdb,
		CacheCfg:  cacheCfg,
	}
}

// PeriodSummary 时间窗口内训练汇总，空窗口返回全零。
// avgWorkoutRating 只对填写了评分的训练求平均
func (s *ReportService) PeriodSummary(ctx context.Context, userID uint, start, end *time.Time) (*model.PeriodSummary, error) {
	_, span := tracing.Tracer.Start(ctx, "engine.reports.period-summary")
	defer span.End()

	startedAt := time.Now()
	defer func() {
		monitoring.ProcessDuration.WithLabelValues("period_summary").Observe(time.Since(startedAt).Seconds())
	}()

	cacheKey := statsSummaryKey(userID, start, end)
	var cached model.PeriodSummary
	if s.cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	logs, err := s.Logs.List(repository.WorkoutLogFilter{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return nil, err
	}

	summary := summarize(logs)
	s.cacheSet(ctx, cacheKey, summary, s.CacheCfg.StatsTTL)
	return summary, nil
}

func summarize(logs []model.WorkoutLog) *model.PeriodSummary {
	summary := &model.PeriodSummary{TotalWorkouts: len(logs)}
	rated := 0
	ratingSum := 0.0

	for _, l := range logs {
		summary.TotalDuration += l.DurationMinutes
		summary.TotalSets += l.TotalSets
		summary.TotalReps += l.TotalReps
		summary.TotalVolume += l.TotalVolume
		summary.TotalCalories += l.CaloriesBurned
		if l.WorkoutRating != nil {
			rated++
			ratingSum += *l.WorkoutRating
		}
	}

	if summary.TotalWorkouts > 0 {
		summary.AvgDuration = roundTo(float64(summary.TotalDuration)/float64(summary.TotalWorkouts), 1)
	}
	if rated > 0 {
		summary.AvgWorkoutRating = roundTo(ratingSum/float64(rated), 1)
	}
	summary.TotalVolume = roundTo(summary.TotalVolume, 1)
	return summary
}

// WorkoutFrequency 按自然日分桶（completedAt 的本地日期），日期升序
func (s *ReportService) WorkoutFrequency(ctx context.Context, userID uint, start, end *time.Time) ([]model.FrequencyBucket, error) {
	_, span := tracing.Tracer.Start(ctx, "engine.reports.workout-frequency")
	defer span.End()

	logs, err := s.Logs.List(repository.WorkoutLogFilter{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return nil, err
	}

	type acc struct {
		count     int
		duration  int
		ratingSum float64
		rated     int
	}
	byDay := make(map[string]*acc)
	for _, l := range logs {
		day := l.CompletedAt.Format(util.DateFormat)
		a, ok := byDay[day]
		if !ok {
			a = &acc{}
			byDay[day] = a
		}
		a.count++
		a.duration += l.DurationMinutes
		if l.WorkoutRating != nil {
			a.rated++
			a.ratingSum += *l.WorkoutRating
		}
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	buckets := make([]model.FrequencyBucket, 0, len(days))
	for _, day := range days {
		a := byDay[day]
		b := model.FrequencyBucket{
			Date:          day,
			Count:         a.count,
			TotalDuration: a.duration,
		}
		if a.rated > 0 {
			b.AvgRating = roundTo(a.ratingSum/float64(a.rated), 1)
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}

// Leaderboard 某动作某纪录类型的前 N 名。榜单可缓存；
// 请求用户不在榜内时名次 = 严格更优的纪录数 + 1，名次永远实时算
func (s *ReportService) Leaderboard(ctx context.Context, exerciseID uint, recordType model.RecordType, limit int, userID uint) (*model.Leaderboard, error) {
	_, span := tracing.Tracer.Start(ctx, "engine.reports.leaderboard")
	defer span.End()

	if _, ok := model.FieldFor(recordType); !ok {
		return nil, util.NewValidationError("recordType", fmt.Sprintf("unknown record type %q", recordType))
	}
	if limit <= 0 {
		limit = 10
	}

	board := &model.Leaderboard{ExerciseID: exerciseID, RecordType: recordType}

	cacheKey := leaderboardKey(exerciseID, recordType, limit)
	var entries []model.LeaderboardEntry
	if s.cacheGet(ctx, cacheKey, &entries) {
		board.Entries = entries
	} else {
		top, err := s.Records.ListTop(exerciseID, recordType, limit)
		if err != nil {
			return nil, err
		}
		board.Entries = s.rankEntries(top)
		s.cacheSet(ctx, cacheKey, board.Entries, s.CacheCfg.LeaderboardTTL)
	}

	if userID != 0 {
		rank, err := s.userRank(userID, exerciseID, recordType)
		if err != nil {
			return nil, err
		}
		board.UserRank = rank
	}
	return board, nil
}

func (s *ReportService) rankEntries(records []model.PersonalRecord) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, 0, len(records))
	for i, r := range records {
		e := model.LeaderboardEntry{
			Rank:         i + 1,
			UserID:       r.UserID,
			Value:        r.Value(),
			DateAchieved: r.DateAchieved,
		}
		if user, err := s.Users.FindByID(r.UserID); err == nil {
			e.UserName = user.Name
		}
		entries = append(entries, e)
	}
	return entries
}

func (s *ReportService) userRank(userID, exerciseID uint, recordType model.RecordType) (*model.UserRank, error) {
	record, err := s.Records.FindBest(userID, exerciseID, recordType)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	better, err := s.Records.CountBetter(exerciseID, recordType, record.Value())
	if err != nil {
		return nil, err
	}
	return &model.UserRank{Rank: int(better) + 1, Record: record}, nil
}

// StrengthStandard 用当前 max_weight 纪录对照分级标准。
// 体重优先取纪录达成当日的，缺失时回退用户档案体重
func (s *ReportService) StrengthStandard(ctx context.Context, userID, exerciseID uint) (*model.StrengthStandard, error) {
	_, span := tracing.Tracer.Start(ctx, "engine.reports.strength-standard")
	defer span.End()

	exercise, err := s.Exercises.FindByID(exerciseID)
	if err != nil {
		return nil, err
	}
	user, err := s.Users.FindByID(userID)
	if err != nil {
		return nil, err
	}

	record, err := s.Records.FindBest(userID, exerciseID, model.RecordMaxWeight)
	if err != nil {
		return nil, err
	}
	if record == nil || record.Weight == nil {
		return nil, util.ErrRecordNotFound
	}

	bodyWeight := user.BodyWeight
	if record.BodyWeight != nil && *record.BodyWeight > 0 {
		bodyWeight = *record.BodyWeight
	}
	if bodyWeight <= 0 {
		return nil, util.NewValidationError("bodyWeight", "is required for strength standards")
	}

	ratio := roundTo(*record.Weight/bodyWeight, 2)
	return s.Strength.Classify(exercise.Name, user.Gender, ratio)
}

// RecentRecords 最近 N 天内达成的纪录，精确到天数截断
func (s *ReportService) RecentRecords(userID uint, days, limit int) ([]model.PersonalRecord, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)
	return s.Records.List(repository.RecordFilter{
		UserID: userID,
		Since:  &since,
		Limit:  limit,
	})
}

// RecordsSummary 用户纪录总览：分类型计数、近 30 天新增、提升幅度前五
func (s *ReportService) RecordsSummary(ctx context.Context, userID uint) (*model.RecordsSummary, error) {
	_, span := tracing.Tracer.Start(ctx, "engine.reports.records-summary")
	defer span.End()

	records, err := s.Records.List(repository.RecordFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	summary := &model.RecordsSummary{
		TotalRecords:  len(records),
		RecordsByType: make(map[model.RecordType]int),
	}
	cutoff := time.Now().AddDate(0, 0, -30)
	for _, r := range records {
		summary.RecordsByType[r.RecordType]++
		if r.DateAchieved.After(cutoff) {
			summary.RecentCount++
		}
	}

	best, err := s.Records.ListBestImprovements(userID, 5)
	if err != nil {
		return nil, err
	}
	summary.BestImprovements = best
	return summary, nil
}

// RecordHistory 某三元组含已被替换纪录的完整历史，日期升序，
// 总提升为末条对首条的差值
func (s *ReportService) RecordHistory(ctx context.Context, userID, exerciseID uint, recordType model.RecordType, since *time.Time) (*model.RecordHistoryPoint, error) {
	_, span := tracing.Tracer.Start(ctx, "engine.reports.record-history")
	defer span.End()

	if _, ok := model.FieldFor(recordType); !ok {
		return nil, util.NewValidationError("recordType", fmt.Sprintf("unknown record type %q", recordType))
	}

	records, err := s.Records.History(userID, exerciseID, recordType, since)
	if err != nil {
		return nil, err
	}

	history := &model.RecordHistoryPoint{
		ExerciseID: exerciseID,
		RecordType: recordType,
		Records:    records,
	}
	if len(records) >= 2 {
		first := records[0].Value()
		last := records[len(records)-1].Value()
		history.TotalImprovement = roundTo(last-first, 1)
		if first != 0 {
			history.ImprovementPct = roundTo((last-first)/first*100, 1)
		}
	}
	return history, nil
}

// BodyComposition 进度条目转换为身体成分序列，
// 脂肪量 = 体重 × 体脂率 / 100，瘦体重 = 体重 − 脂肪量
func (s *ReportService) BodyComposition(ctx context.Context, userID uint, start, end *time.Time) ([]model.CompositionPoint, error) {
	_, span := tracing.Tracer.Start(ctx, "engine.reports.body-composition")
	defer span.End()

	entries, err := s.Progress.List(repository.ProgressFilter{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return nil, err
	}

	points := make([]model.CompositionPoint, 0, len(entries))
	for _, e := range entries {
		p := model.CompositionPoint{
			Date:              e.Date,
			Weight:            e.Weight,
			BodyFatPercentage: e.BodyFatPercentage,
			MuscleMass:        e.MuscleMass,
		}
		if e.Weight != nil && e.BodyFatPercentage != nil {
			fat := roundTo(*e.Weight * *e.BodyFatPercentage / 100, 2)
			lean := roundTo(*e.Weight-fat, 2)
			p.FatMass = &fat
			p.LeanMass = &lean
		}
		points = append(points, p)
	}
	return points, nil
}

// Trends 窗口内体重/体脂/肌肉量的首末变化。
// 某指标有值的条目不足两条时不产生该指标的趋势
func (s *ReportService) Trends(ctx context.Context, userID uint, start, end *time.Time) (map[string]model.MetricTrend, error) {
	_, span := tracing.Tracer.Start(ctx, "engine.reports.trends")
	defer span.End()

	entries, err := s.Progress.List(repository.ProgressFilter{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return nil, err
	}

	trends := make(map[string]model.MetricTrend)
	metrics := map[string]func(*model.ProgressEntry) *float64{
		"weight":            func(e *model.ProgressEntry) *float64 { return e.Weight },
		"bodyFatPercentage": func(e *model.ProgressEntry) *float64 { return e.BodyFatPercentage },
		"muscleMass":        func(e *model.ProgressEntry) *float64 { return e.MuscleMass },
	}
	for name, pick := range metrics {
		if trend, ok := metricTrend(entries, pick); ok {
			trends[name] = trend
		}
	}
	return trends, nil
}

func metricTrend(entries []model.ProgressEntry, pick func(*model.ProgressEntry) *float64) (model.MetricTrend, bool) {
	var first, last *float64
	for i := range entries {
		v := pick(&entries[i])
		if v == nil {
			continue
		}
		if first == nil {
			first = v
		}
		last = v
	}
	if first == nil || last == nil || first == last {
		return model.MetricTrend{}, false
	}

	change := roundTo(*last-*first, 1)
	trend := model.MetricTrend{Change: change, Direction: "stable"}
	if *first != 0 {
		trend.PercentageChange = roundTo((*last-*first) / *first * 100, 1)
	}
	switch {
	case change > 0:
		trend.Direction = "up"
	case change < 0:
		trend.Direction = "down"
	}
	return trend, true
}

// InvalidateUserStats 写路径调用，删除该用户全部汇总缓存。
// 失效失败只记日志，TTL 兜底
func (s *ReportService) InvalidateUserStats(ctx context.Context, userID uint) {
	if s.Redis == nil {
		return
	}
	pattern := fmt.Sprintf("%s%d:*", statsKeyPrefix, userID)
	keys, err := s.Redis.Keys(ctx, pattern).Result()
	if err != nil {
		logger.Log.Warn("stats cache invalidation failed", zap.Uint("userId", userID), zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.Redis.Del(ctx, keys...).Err(); err != nil {
		logger.Log.Warn("stats cache invalidation failed", zap.Uint("userId", userID), zap.Error(err))
	}
}

// WarmLeaderboards 后台预热指定动作常用纪录类型的榜单缓存
func (s *ReportService) WarmLeaderboards(ctx context.Context, exerciseIDs []uint, recordTypes []model.RecordType, limit int) {
	for _, exerciseID := range exerciseIDs {
		for _, recordType := range recordTypes {
			if _, err := s.Leaderboard(ctx, exerciseID, recordType, limit, 0); err != nil {
				logger.Log.Warn("leaderboard warmup failed",
					zap.Uint("exerciseId", exerciseID),
					zap.String("recordType", string(recordType)),
					zap.Error(err))
			}
		}
	}
}

func (s *ReportService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.Redis == nil {
		return false
	}
	val, err := s.Redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		logger.Log.Warn("cache read failed, computing fresh", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		logger.Log.Warn("cache entry corrupt, computing fresh", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *ReportService) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func statsSummaryKey(userID uint, start, end *time.Time) string {
	from, to := "all", "all"
	if start != nil {
		from = start.Format(util.DateFormat)
	}
	if end != nil {
		to = end.Format(util.DateFormat)
	}
	return fmt.Sprintf("%s%d:summary:%s:%s", statsKeyPrefix, userID, from, to)
}

func leaderboardKey(exerciseID uint, recordType model.RecordType, limit int) string {
	return fmt.Sprintf("%s%d:%s:%d", leaderboardKeyPrefix, exerciseID, recordType, limit)
}
