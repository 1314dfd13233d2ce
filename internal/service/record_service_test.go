package service

import (
	"context"
	"testing"
	"time"

	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRecordStore 内存版纪录存储，conflicts 控制接下来多少次
// Replace 以冲突失败
type fakeRecordStore struct {
	records   []*model.PersonalRecord
	conflicts int
	replaces  int
}

func (f *fakeRecordStore) FindBest(userID, exerciseID uint, recordType model.RecordType) (*model.PersonalRecord, error) {
	var best *model.PersonalRecord
	for _, r := range f.records {
		if r.UserID != userID || r.ExerciseID != exerciseID || r.RecordType != recordType {
			continue
		}
		if best == nil || r.Value() > best.Value() {
			best = r
		}
	}
	return best, nil
}

func (f *fakeRecordStore) FindBestRepsAtWeight(userID, exerciseID uint, maxWeight float64) (*model.PersonalRecord, error) {
	var best *model.PersonalRecord
	for _, r := range f.records {
		if r.UserID != userID || r.ExerciseID != exerciseID || r.RecordType != model.RecordMaxReps {
			continue
		}
		if r.Weight == nil || *r.Weight > maxWeight {
			continue
		}
		if best == nil || r.Value() > best.Value() {
			best = r
		}
	}
	return best, nil
}

func (f *fakeRecordStore) Replace(old, record *model.PersonalRecord) error {
	if f.conflicts > 0 {
		f.conflicts--
		return util.ErrRecordConflict
	}
	if old != nil {
		for i, r := range f.records {
			if r == old {
				f.records = append(f.records[:i], f.records[i+1:]...)
				break
			}
		}
	}
	f.records = append(f.records, record)
	f.replaces++
	return nil
}

func newRecordFixture(store *fakeRecordStore) *RecordService {
	exercises := &fakeExerciseStore{exercises: map[uint]*model.Exercise{
		1: {Name: "Bench Press", Category: model.CategoryStrength},
	}}
	users := &fakeUserStore{users: map[uint]*model.User{
		1: {Name: "test", Gender: model.GenderMale, BodyWeight: 80},
	}}
	return NewRecordService(store, exercises, users, NewStrengthService())
}

func benchWorkout(sets ...model.ExerciseSet) *model.WorkoutLog {
	return &model.WorkoutLog{
		UserID:      1,
		CompletedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		BodyWeight:  f64(80),
		Exercises: []model.WorkoutExercise{
			{ExerciseID: 1, Sets: sets},
		},
	}
}

func TestProcessWorkoutLog_FirstRecords(t *testing.T) {
	store := &fakeRecordStore{}
	svc := newRecordFixture(store)

	log := benchWorkout(model.ExerciseSet{SetNumber: 1, Reps: i(5), Weight: f64(100)})
	achieved, err := svc.ProcessWorkoutLog(context.Background(), log)
	require.NoError(t, err)

	// 一组 100kg × 5 同时产生四种力量类纪录
	require.Len(t, achieved, 4)
	byType := make(map[model.RecordType]*model.PersonalRecord)
	for i := range achieved {
		byType[achieved[i].RecordType] = &achieved[i]
	}

	assert.Equal(t, 100.0, byType[model.RecordMaxWeight].Value())
	assert.Equal(t, 500.0, byType[model.RecordMaxVolume].Value())
	assert.Equal(t, 5.0, byType[model.RecordMaxReps].Value())
	assert.Equal(t, 116.7, byType[model.RecordOneRepMax].Value())

	for _, r := range achieved {
		assert.Nil(t, r.PreviousValue)
		assert.Zero(t, r.Improvement)
		require.NotNil(t, r.WilksScore, "records with weight and body weight carry a Wilks score")
	}

	assert.True(t, log.IsPersonalRecord)
	assert.True(t, log.Exercises[0].Sets[0].PersonalRecord)
	assert.Len(t, log.RecordsAchieved, 4)
}

func TestProcessWorkoutLog_TieIsNotARecord(t *testing.T) {
	store := &fakeRecordStore{records: []*model.PersonalRecord{
		{UserID: 1, ExerciseID: 1, RecordType: model.RecordMaxWeight, Weight: f64(100)},
		{UserID: 1, ExerciseID: 1, RecordType: model.RecordMaxVolume, Volume: f64(600)},
		{UserID: 1, ExerciseID: 1, RecordType: model.RecordMaxReps, Weight: f64(50), Reps: i(20)},
		{UserID: 1, ExerciseID: 1, RecordType: model.RecordOneRepMax, OneRepMax: f64(150)},
	}}
	svc := newRecordFixture(store)

	log := benchWorkout(model.ExerciseSet{SetNumber: 1, Reps: i(1), Weight: f64(100)})
	achieved, err := svc.ProcessWorkoutLog(context.Background(), log)
	require.NoError(t, err)

	assert.Empty(t, achieved)
	assert.False(t, log.IsPersonalRecord)
	assert.False(t, log.Exercises[0].Sets[0].PersonalRecord)
	assert.Zero(t, store.replaces)
}

func TestProcessWorkoutLog_SupersedesPrevious(t *testing.T) {
	prevDate := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	old := &model.PersonalRecord{
		UserID: 1, ExerciseID: 1,
		RecordType:   model.RecordMaxWeight,
		Weight:       f64(90),
		DateAchieved: prevDate,
	}
	store := &fakeRecordStore{records: []*model.PersonalRecord{
		old,
		{UserID: 1, ExerciseID: 1, RecordType: model.RecordMaxVolume, Volume: f64(2000)},
		{UserID: 1, ExerciseID: 1, RecordType: model.RecordMaxReps, Weight: f64(50), Reps: i(20)},
		{UserID: 1, ExerciseID: 1, RecordType: model.RecordOneRepMax, OneRepMax: f64(150)},
	}}
	svc := newRecordFixture(store)

	log := benchWorkout(model.ExerciseSet{SetNumber: 1, Reps: i(1), Weight: f64(100)})
	achieved, err := svc.ProcessWorkoutLog(context.Background(), log)
	require.NoError(t, err)

	require.Len(t, achieved, 1)
	record := achieved[0]
	assert.Equal(t, model.RecordMaxWeight, record.RecordType)
	assert.Equal(t, 100.0, record.Value())
	require.NotNil(t, record.PreviousValue)
	assert.Equal(t, 90.0, *record.PreviousValue)
	require.NotNil(t, record.PreviousDate)
	assert.Equal(t, prevDate, *record.PreviousDate)
	assert.Equal(t, 11.1, record.Improvement)

	// 旧纪录被替换，三元组仍然只有一条在用纪录
	best, _ := store.FindBest(1, 1, model.RecordMaxWeight)
	assert.Equal(t, 100.0, best.Value())
}

func TestProcessWorkoutLog_MaxRepsComparesAgainstLighterRecords(t *testing.T) {
	store := &fakeRecordStore{records: []*model.PersonalRecord{
		{UserID: 1, ExerciseID: 1, RecordType: model.RecordMaxReps, Weight: f64(70), Reps: i(12)},
		{UserID: 1, ExerciseID: 1, RecordType: model.RecordMaxWeight, Weight: f64(200)},
		{UserID: 1, ExerciseID: 1, RecordType: model.RecordMaxVolume, Volume: f64(5000)},
		{UserID: 1, ExerciseID: 1, RecordType: model.RecordOneRepMax, OneRepMax: f64(250)},
	}}
	svc := newRecordFixture(store)

	// 80kg 做 10 次：比较池含 70kg × 12，10 ≤ 12 不是纪录
	log := benchWorkout(model.ExerciseSet{SetNumber: 1, Reps: i(10), Weight: f64(80)})
	achieved, err := svc.ProcessWorkoutLog(context.Background(), log)
	require.NoError(t, err)
	assert.Empty(t, achieved)

	// 60kg 做 15 次：池里没有 ≤60kg 的纪录，达标
	log = benchWorkout(model.ExerciseSet{SetNumber: 1, Reps: i(15), Weight: f64(60)})
	achieved, err = svc.ProcessWorkoutLog(context.Background(), log)
	require.NoError(t, err)
	require.Len(t, achieved, 1)
	assert.Equal(t, model.RecordMaxReps, achieved[0].RecordType)
	assert.Equal(t, 15.0, achieved[0].Value())
	assert.Nil(t, achieved[0].PreviousValue)

	// 比较池为空不代表三元组空着：更大负重的在用行被顶掉，
	// 三元组仍然只有一条次数纪录
	var repsRecords []*model.PersonalRecord
	for _, r := range store.records {
		if r.RecordType == model.RecordMaxReps {
			repsRecords = append(repsRecords, r)
		}
	}
	require.Len(t, repsRecords, 1)
	assert.Equal(t, 15.0, repsRecords[0].Value())
}

func TestProcessWorkoutLog_SkipsUnknownExercise(t *testing.T) {
	store := &fakeRecordStore{}
	svc := newRecordFixture(store)

	log := benchWorkout(model.ExerciseSet{SetNumber: 1, Reps: i(5), Weight: f64(100)})
	log.Exercises = append(log.Exercises, model.WorkoutExercise{
		ExerciseID: 99, // 不存在
		Sets:       []model.ExerciseSet{{SetNumber: 1, Reps: i(5), Weight: f64(999)}},
	})

	achieved, err := svc.ProcessWorkoutLog(context.Background(), log)
	require.NoError(t, err)

	// 未知动作整个跳过，已知动作照常出纪录
	require.Len(t, achieved, 4)
	for _, r := range achieved {
		assert.Equal(t, uint(1), r.ExerciseID)
	}
	assert.False(t, log.Exercises[1].Sets[0].PersonalRecord)
}

func TestProcessWorkoutLog_DurationAndDistance(t *testing.T) {
	store := &fakeRecordStore{}
	svc := newRecordFixture(store)

	log := benchWorkout(model.ExerciseSet{SetNumber: 1, DurationSeconds: i(1800), DistanceMeters: f64(5000)})
	achieved, err := svc.ProcessWorkoutLog(context.Background(), log)
	require.NoError(t, err)

	require.Len(t, achieved, 2)
	byType := make(map[model.RecordType]*model.PersonalRecord)
	for i := range achieved {
		byType[achieved[i].RecordType] = &achieved[i]
	}
	assert.Equal(t, 1800.0, byType[model.RecordMaxDuration].Value())
	assert.Equal(t, 5000.0, byType[model.RecordMaxDistance].Value())
}

func TestProcessWorkoutLog_RetriesConflictOnce(t *testing.T) {
	store := &fakeRecordStore{conflicts: 1}
	svc := newRecordFixture(store)

	log := benchWorkout(model.ExerciseSet{SetNumber: 1, DurationSeconds: i(600)})
	achieved, err := svc.ProcessWorkoutLog(context.Background(), log)
	require.NoError(t, err)
	require.Len(t, achieved, 1)
	assert.Equal(t, 1, store.replaces)
}

func TestProcessWorkoutLog_SkipsCandidateAfterSecondConflict(t *testing.T) {
	store := &fakeRecordStore{conflicts: 2}
	svc := newRecordFixture(store)

	log := benchWorkout(model.ExerciseSet{SetNumber: 1, DurationSeconds: i(600)})
	achieved, err := svc.ProcessWorkoutLog(context.Background(), log)
	require.NoError(t, err)
	assert.Empty(t, achieved)
	assert.False(t, log.IsPersonalRecord)
}

func TestProcessWorkoutLog_ImprovementFromZeroBaseline(t *testing.T) {
	store := &fakeRecordStore{records: []*model.PersonalRecord{
		{UserID: 1, ExerciseID: 1, RecordType: model.RecordMaxDuration, DurationSeconds: i(0)},
	}}
	svc := newRecordFixture(store)

	log := benchWorkout(model.ExerciseSet{SetNumber: 1, DurationSeconds: i(600)})
	achieved, err := svc.ProcessWorkoutLog(context.Background(), log)
	require.NoError(t, err)
	require.Len(t, achieved, 1)
	assert.Equal(t, 100.0, achieved[0].Improvement)
}

func TestAddManualRecord(t *testing.T) {
	t.Run("rejects unknown record type", func(t *testing.T) {
		svc := newRecordFixture(&fakeRecordStore{})
		err := svc.AddManualRecord(context.Background(), &model.PersonalRecord{
			UserID: 1, ExerciseID: 1, RecordType: "max_style",
		})
		var verr *util.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("rejects value not better than current", func(t *testing.T) {
		store := &fakeRecordStore{records: []*model.PersonalRecord{
			{UserID: 1, ExerciseID: 1, RecordType: model.RecordMaxWeight, Weight: f64(120)},
		}}
		svc := newRecordFixture(store)

		err := svc.AddManualRecord(context.Background(), &model.PersonalRecord{
			UserID: 1, ExerciseID: 1,
			RecordType: model.RecordMaxWeight,
			Weight:     f64(110),
		})
		assert.ErrorIs(t, err, util.ErrRecordNotBetter)
	})

	t.Run("replaces and fills improvement", func(t *testing.T) {
		store := &fakeRecordStore{records: []*model.PersonalRecord{
			{UserID: 1, ExerciseID: 1, RecordType: model.RecordMaxWeight, Weight: f64(100)},
		}}
		svc := newRecordFixture(store)

		record := &model.PersonalRecord{
			UserID: 1, ExerciseID: 1,
			RecordType:   model.RecordMaxWeight,
			Weight:       f64(110),
			Reps:         i(1),
			DateAchieved: time.Now(),
		}
		require.NoError(t, svc.AddManualRecord(context.Background(), record))

		require.NotNil(t, record.PreviousValue)
		assert.Equal(t, 100.0, *record.PreviousValue)
		assert.Equal(t, 10.0, record.Improvement)

		best, _ := store.FindBest(1, 1, model.RecordMaxWeight)
		assert.Equal(t, 110.0, best.Value())
	})

	t.Run("unknown exercise", func(t *testing.T) {
		svc := newRecordFixture(&fakeRecordStore{})
		err := svc.AddManualRecord(context.Background(), &model.PersonalRecord{
			UserID: 1, ExerciseID: 42,
			RecordType: model.RecordMaxWeight,
			Weight:     f64(100),
		})
		assert.ErrorIs(t, err, util.ErrExerciseNotFound)
	})
}
