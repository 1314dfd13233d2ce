package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"fitness_tracker_backend/internal/config"
	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/repository"
	"fitness_tracker_backend/internal/util"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogLister struct {
	logs  []model.WorkoutLog
	calls int
}

func (f *fakeLogLister) List(filter repository.WorkoutLogFilter) ([]model.WorkoutLog, error) {
	f.calls++
	return f.logs, nil
}

type fakeRecordReader struct {
	best         *model.PersonalRecord
	list         []model.PersonalRecord
	top          []model.PersonalRecord
	better       int64
	improvements []model.PersonalRecord
	history      []model.PersonalRecord
	topCalls     int
}

func (f *fakeRecordReader) FindBest(userID, exerciseID uint, recordType model.RecordType) (*model.PersonalRecord, error) {
	return f.best, nil
}

func (f *fakeRecordReader) List(filter repository.RecordFilter) ([]model.PersonalRecord, error) {
	return f.list, nil
}

func (f *fakeRecordReader) ListTop(exerciseID uint, recordType model.RecordType, limit int) ([]model.PersonalRecord, error) {
	f.topCalls++
	return f.top, nil
}

func (f *fakeRecordReader) CountBetter(exerciseID uint, recordType model.RecordType, value float64) (int64, error) {
	return f.better, nil
}

func (f *fakeRecordReader) ListBestImprovements(userID uint, limit int) ([]model.PersonalRecord, error) {
	return f.improvements, nil
}

func (f *fakeRecordReader) History(userID, exerciseID uint, recordType model.RecordType, since *time.Time) ([]model.PersonalRecord, error) {
	return f.history, nil
}

func newReportFixture(logs *fakeLogLister, records *fakeRecordReader, progress *fakeProgressStore) *ReportService {
	users := &fakeUserStore{users: map[uint]*model.User{
		1: {Name: "lifter", Gender: model.GenderMale, BodyWeight: 80},
		2: {Name: "second", Gender: model.GenderMale},
	}}
	users.users[1].ID = 1
	exercises := &fakeExerciseStore{exercises: map[uint]*model.Exercise{
		1: {Name: "Bench Press", Category: model.CategoryStrength},
	}}
	return NewReportService(logs, records, progress, users, exercises, NewStrengthService(), nil, config.CacheConfig{
		StatsTTL:       10 * time.Minute,
		LeaderboardTTL: 30 * time.Minute,
	})
}

func TestPeriodSummary(t *testing.T) {
	logs := &fakeLogLister{logs: []model.WorkoutLog{
		{DurationMinutes: 60, TotalSets: 10, TotalReps: 80, TotalVolume: 5000, CaloriesBurned: 300, WorkoutRating: f64(4)},
		{DurationMinutes: 30, TotalSets: 5, TotalReps: 40, TotalVolume: 2000, CaloriesBurned: 150},
	}}
	svc := newReportFixture(logs, &fakeRecordReader{}, &fakeProgressStore{})

	summary, err := svc.PeriodSummary(context.Background(), 1, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalWorkouts)
	assert.Equal(t, 90, summary.TotalDuration)
	assert.Equal(t, 15, summary.TotalSets)
	assert.Equal(t, 120, summary.TotalReps)
	assert.Equal(t, 7000.0, summary.TotalVolume)
	assert.Equal(t, 450, summary.TotalCalories)
	assert.Equal(t, 45.0, summary.AvgDuration)
	// 只对填了评分的训练求平均
	assert.Equal(t, 4.0, summary.AvgWorkoutRating)
}

func TestPeriodSummary_EmptyWindow(t *testing.T) {
	svc := newReportFixture(&fakeLogLister{}, &fakeRecordReader{}, &fakeProgressStore{})

	summary, err := svc.PeriodSummary(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Zero(t, summary.TotalWorkouts)
	assert.Zero(t, summary.TotalVolume)
	assert.Zero(t, summary.AvgWorkoutRating)
}

func TestPeriodSummary_UsesCache(t *testing.T) {
	logs := &fakeLogLister{logs: []model.WorkoutLog{{DurationMinutes: 60}}}
	svc := newReportFixture(logs, &fakeRecordReader{}, &fakeProgressStore{})

	rdb, mock := redismock.NewClientMock()
	svc.Redis = rdb

	key := statsSummaryKey(1, nil, nil)
	expected := &model.PeriodSummary{TotalWorkouts: 1, TotalDuration: 60, AvgDuration: 60}
	data, err := json.Marshal(expected)
	require.NoError(t, err)

	// 未命中 → 计算并写缓存
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, data, svc.CacheCfg.StatsTTL).SetVal("OK")
	summary, err := svc.PeriodSummary(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalWorkouts)
	assert.Equal(t, 1, logs.calls)

	// 命中 → 不再查库
	mock.ExpectGet(key).SetVal(string(data))
	summary, err = svc.PeriodSummary(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalWorkouts)
	assert.Equal(t, 1, logs.calls)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkoutFrequency(t *testing.T) {
	day1 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 5, 19, 0, 0, 0, time.UTC)
	logs := &fakeLogLister{logs: []model.WorkoutLog{
		{CompletedAt: day2, DurationMinutes: 40, WorkoutRating: f64(5)},
		{CompletedAt: day1, DurationMinutes: 60, WorkoutRating: f64(3)},
		{CompletedAt: day1.Add(10 * time.Hour), DurationMinutes: 30, WorkoutRating: f64(4)},
	}}
	svc := newReportFixture(logs, &fakeRecordReader{}, &fakeProgressStore{})

	buckets, err := svc.WorkoutFrequency(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	assert.Equal(t, "2026-03-02", buckets[0].Date)
	assert.Equal(t, 2, buckets[0].Count)
	assert.Equal(t, 90, buckets[0].TotalDuration)
	assert.Equal(t, 3.5, buckets[0].AvgRating)

	assert.Equal(t, "2026-03-05", buckets[1].Date)
	assert.Equal(t, 1, buckets[1].Count)
}

func TestLeaderboard(t *testing.T) {
	now := time.Now()
	records := &fakeRecordReader{
		top: []model.PersonalRecord{
			{UserID: 2, RecordType: model.RecordMaxWeight, Weight: f64(120), DateAchieved: now},
			{UserID: 3, RecordType: model.RecordMaxWeight, Weight: f64(110), DateAchieved: now},
			{UserID: 4, RecordType: model.RecordMaxWeight, Weight: f64(100), DateAchieved: now},
		},
		best:   &model.PersonalRecord{UserID: 1, RecordType: model.RecordMaxWeight, Weight: f64(85)},
		better: 4,
	}
	svc := newReportFixture(&fakeLogLister{}, records, &fakeProgressStore{})

	board, err := svc.Leaderboard(context.Background(), 1, model.RecordMaxWeight, 3, 1)
	require.NoError(t, err)

	require.Len(t, board.Entries, 3)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, 120.0, board.Entries[0].Value)
	assert.Equal(t, "second", board.Entries[0].UserName)

	// 榜外用户名次 = 严格更优的纪录数 + 1
	require.NotNil(t, board.UserRank)
	assert.Equal(t, 5, board.UserRank.Rank)
	assert.Equal(t, 85.0, board.UserRank.Record.Value())
}

func TestLeaderboard_UnknownRecordType(t *testing.T) {
	svc := newReportFixture(&fakeLogLister{}, &fakeRecordReader{}, &fakeProgressStore{})
	_, err := svc.Leaderboard(context.Background(), 1, "max_style", 3, 0)
	var verr *util.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestStrengthStandardReport(t *testing.T) {
	t.Run("classifies against profile body weight", func(t *testing.T) {
		records := &fakeRecordReader{
			best: &model.PersonalRecord{UserID: 1, RecordType: model.RecordMaxWeight, Weight: f64(100)},
		}
		svc := newReportFixture(&fakeLogLister{}, records, &fakeProgressStore{})

		standard, err := svc.StrengthStandard(context.Background(), 1, 1)
		require.NoError(t, err)
		assert.Equal(t, model.LevelAdvanced, standard.Level)
		assert.Equal(t, 1.25, standard.Ratio)
	})

	t.Run("record body weight wins over profile", func(t *testing.T) {
		records := &fakeRecordReader{
			best: &model.PersonalRecord{
				UserID: 1, RecordType: model.RecordMaxWeight,
				Weight: f64(100), BodyWeight: f64(100),
			},
		}
		svc := newReportFixture(&fakeLogLister{}, records, &fakeProgressStore{})

		standard, err := svc.StrengthStandard(context.Background(), 1, 1)
		require.NoError(t, err)
		assert.Equal(t, model.LevelIntermediate, standard.Level)
		assert.Equal(t, 1.0, standard.Ratio)
	})

	t.Run("no record", func(t *testing.T) {
		svc := newReportFixture(&fakeLogLister{}, &fakeRecordReader{}, &fakeProgressStore{})
		_, err := svc.StrengthStandard(context.Background(), 1, 1)
		assert.ErrorIs(t, err, util.ErrRecordNotFound)
	})
}

func TestRecordsSummary(t *testing.T) {
	now := time.Now()
	records := &fakeRecordReader{
		list: []model.PersonalRecord{
			{RecordType: model.RecordMaxWeight, DateAchieved: now.AddDate(0, 0, -5)},
			{RecordType: model.RecordMaxWeight, DateAchieved: now.AddDate(0, 0, -60)},
			{RecordType: model.RecordOneRepMax, DateAchieved: now.AddDate(0, 0, -10)},
		},
		improvements: []model.PersonalRecord{{Improvement: 25.0}},
	}
	svc := newReportFixture(&fakeLogLister{}, records, &fakeProgressStore{})

	summary, err := svc.RecordsSummary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalRecords)
	assert.Equal(t, 2, summary.RecordsByType[model.RecordMaxWeight])
	assert.Equal(t, 1, summary.RecordsByType[model.RecordOneRepMax])
	assert.Equal(t, 2, summary.RecentCount)
	require.Len(t, summary.BestImprovements, 1)
}

func TestRecordHistory(t *testing.T) {
	records := &fakeRecordReader{
		history: []model.PersonalRecord{
			{RecordType: model.RecordMaxWeight, Weight: f64(60)},
			{RecordType: model.RecordMaxWeight, Weight: f64(70)},
			{RecordType: model.RecordMaxWeight, Weight: f64(80)},
		},
	}
	svc := newReportFixture(&fakeLogLister{}, records, &fakeProgressStore{})

	history, err := svc.RecordHistory(context.Background(), 1, 1, model.RecordMaxWeight, nil)
	require.NoError(t, err)
	assert.Len(t, history.Records, 3)
	assert.Equal(t, 20.0, history.TotalImprovement)
	assert.Equal(t, 33.3, history.ImprovementPct)
}

func TestBodyComposition(t *testing.T) {
	progress := &fakeProgressStore{entries: []model.ProgressEntry{
		{UserID: 1, Weight: f64(80), BodyFatPercentage: f64(25)},
		{UserID: 1, Weight: f64(78)},
	}}
	svc := newReportFixture(&fakeLogLister{}, &fakeRecordReader{}, progress)

	points, err := svc.BodyComposition(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	require.Len(t, points, 2)

	require.NotNil(t, points[0].FatMass)
	assert.Equal(t, 20.0, *points[0].FatMass)
	assert.Equal(t, 60.0, *points[0].LeanMass)
	assert.Nil(t, points[1].FatMass, "no body fat reading, no derived masses")
}

func TestTrends(t *testing.T) {
	progress := &fakeProgressStore{entries: []model.ProgressEntry{
		{UserID: 1, Weight: f64(80), BodyFatPercentage: f64(22)},
		{UserID: 1},
		{UserID: 1, Weight: f64(75)},
	}}
	svc := newReportFixture(&fakeLogLister{}, &fakeRecordReader{}, progress)

	trends, err := svc.Trends(context.Background(), 1, nil, nil)
	require.NoError(t, err)

	weight, ok := trends["weight"]
	require.True(t, ok)
	assert.Equal(t, -5.0, weight.Change)
	assert.Equal(t, -6.3, weight.PercentageChange)
	assert.Equal(t, "down", weight.Direction)

	_, ok = trends["bodyFatPercentage"]
	assert.False(t, ok, "single reading is not a trend")
	_, ok = trends["muscleMass"]
	assert.False(t, ok)
}

func TestInvalidateUserStats(t *testing.T) {
	svc := newReportFixture(&fakeLogLister{}, &fakeRecordReader{}, &fakeProgressStore{})

	rdb, mock := redismock.NewClientMock()
	svc.Redis = rdb

	key := fmt.Sprintf("stats:%d:summary:all:all", 1)
	mock.ExpectKeys("stats:1:*").SetVal([]string{key})
	mock.ExpectDel(key).SetVal(1)

	svc.InvalidateUserStats(context.Background(), 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
