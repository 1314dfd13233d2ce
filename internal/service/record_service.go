package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/util"
	"fitness_tracker_backend/pkg/logger"
	"fitness_tracker_backend/pkg/monitoring"
	"fitness_tracker_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// recordStore 引擎依赖的 Store 协作者。单键读取强一致，
// Replace 在旧行被并发动过时返回 util.ErrRecordConflict
type recordStore interface {
	FindBest(userID, exerciseID uint, recordType model.RecordType) (*model.PersonalRecord, error)
	FindBestRepsAtWeight(userID, exerciseID uint, maxWeight float64) (*model.PersonalRecord, error)
	Replace(old, record *model.PersonalRecord) error
}

type exerciseStore interface {
	FindByID(id uint) (*model.Exercise, error)
}

type userStore interface {
	FindByID(id uint) (*model.User, error)
}

// keyedMutex 每个 (userId, exerciseId, recordType) 一把锁，
// 串行化读取-比较-替换，避免并发处理同一用户同一动作时丢更新
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}

// candidate 一个组在某记录类型下的候选值及对应的记录字段
type candidate struct {
	recordType model.RecordType
	value      float64
	apply      func(r *model.PersonalRecord)
}

// RecordService 检测、替换和排名个人纪录。
// 每个三元组状态只有 无纪录/持有纪录 两种，唯一迁移是候选值
// 严格大于当前值时替换持有的纪录，打平不算新纪录
type RecordService struct {
	Records   recordStore
	Exercises exerciseStore
	Users     userStore
	Strength  *StrengthService

	locks *keyedMutex
}

func NewRecordService(records recordStore, exercises exerciseStore, users userStore, strength *StrengthService) *RecordService {
	return &RecordService{
		Records:   records,
		Exercises: exercises,
		Users:     users,
		Strength:  strength,
		locks:     newKeyedMutex(),
	}
}

// ProcessWorkoutLog 对一次训练的每个组逐一做 PR 检测。
// 动作查不到时只跳过该动作（记日志，不中断整条训练）。
// isPersonalRecord 标记和摘要每次按检测结果整体重写，
// 持久化由调用方负责
func (s *RecordService) ProcessWorkoutLog(ctx context.Context, log *model.WorkoutLog) ([]model.PersonalRecord, error) {
	_, span := tracing.Tracer.Start(ctx, "engine.records.process-workout-log")
	defer span.End()
	span.SetAttributes(attribute.Int("user_id", int(log.UserID)))

	start := time.Now()
	defer func() {
		monitoring.ProcessDuration.WithLabelValues("process_workout_log").Observe(time.Since(start).Seconds())
	}()
	monitoring.LogsProcessed.Inc()

	var achieved []model.PersonalRecord

	for i := range log.Exercises {
		ex := &log.Exercises[i]

		if _, err := s.Exercises.FindByID(ex.ExerciseID); err != nil {
			// 引用失效只影响这个动作的 PR 评估
			logger.Log.Warn("skipping PR evaluation, exercise lookup failed",
				zap.Uint("exerciseId", ex.ExerciseID),
				zap.Error(err))
			continue
		}

		for j := range ex.Sets {
			set := &ex.Sets[j]
			if set.PersonalRecord {
				continue
			}

			for _, cand := range s.candidates(set) {
				record, err := s.evaluate(log, ex.ExerciseID, set, cand)
				if err != nil {
					if errors.Is(err, util.ErrRecordConflict) {
						logger.Log.Warn("record replacement lost the race twice, skipping",
							zap.Uint("exerciseId", ex.ExerciseID),
							zap.String("recordType", string(cand.recordType)))
						continue
					}
					return achieved, err
				}
				if record != nil {
					achieved = append(achieved, *record)
					set.PersonalRecord = true
					monitoring.RecordsDetected.WithLabelValues(string(cand.recordType)).Inc()
				}
			}
		}
	}

	// 标记和摘要整体按本次结果重写，编辑后不再达标时旧标记必须清掉
	log.IsPersonalRecord = len(achieved) > 0
	log.RecordsAchieved = log.RecordsAchieved[:0]
	for _, r := range achieved {
		summary := model.PRAchievement{
			WorkoutLogID:  log.ID,
			ExerciseID:    r.ExerciseID,
			RecordType:    r.RecordType,
			Value:         r.Value(),
			PreviousValue: r.PreviousValue,
		}
		log.RecordsAchieved = append(log.RecordsAchieved, summary)
	}

	span.SetAttributes(attribute.Int("records_achieved", len(achieved)))
	return achieved, nil
}

// AddManualRecord 手工登记纪录，同样必须通过达标校验：
// 不优于现有纪录时拒绝，达标时替换而不是新增一行
func (s *RecordService) AddManualRecord(ctx context.Context, record *model.PersonalRecord) error {
	_, span := tracing.Tracer.Start(ctx, "engine.records.add-manual-record")
	defer span.End()

	if _, ok := model.FieldFor(record.RecordType); !ok {
		return util.NewValidationError("recordType", fmt.Sprintf("unknown record type %q", record.RecordType))
	}
	if _, err := s.Exercises.FindByID(record.ExerciseID); err != nil {
		return err
	}

	value := record.Value()
	if value <= 0 {
		return util.NewValidationError("value", "must be positive")
	}

	key := lockKey(record.UserID, record.ExerciseID, record.RecordType)
	l := s.locks.get(key)
	l.Lock()
	defer l.Unlock()

	existing, err := s.Records.FindBest(record.UserID, record.ExerciseID, record.RecordType)
	if err != nil {
		return err
	}
	if existing != nil && value <= existing.Value() {
		return util.ErrRecordNotBetter
	}

	s.finalize(record, existing)
	if err := s.Records.Replace(existing, record); err != nil {
		if errors.Is(err, util.ErrRecordConflict) {
			monitoring.RecordConflicts.Inc()
		}
		return err
	}

	monitoring.RecordsDetected.WithLabelValues(string(record.RecordType)).Inc()
	return nil
}

// candidates 把一个组展开成各记录类型的候选值，缺字段的类型直接不产生候选。
// max_weight/max_volume/max_reps/one_rep_max 都要求重量和次数成对出现
func (s *RecordService) candidates(set *model.ExerciseSet) []candidate {
	var out []candidate

	if set.Weight != nil && set.Reps != nil {
		weight, reps := *set.Weight, *set.Reps
		volume := set.Volume()
		oneRepMax := s.Strength.EpleyOneRepMax(weight, reps)

		out = append(out,
			candidate{
				recordType: model.RecordMaxWeight,
				value:      weight,
				apply: func(r *model.PersonalRecord) {
					r.Weight = &weight
					r.Reps = &reps
				},
			},
			candidate{
				recordType: model.RecordMaxVolume,
				value:      volume,
				apply: func(r *model.PersonalRecord) {
					r.Weight = &weight
					r.Reps = &reps
					r.Volume = &volume
				},
			},
			candidate{
				recordType: model.RecordMaxReps,
				value:      float64(reps),
				apply: func(r *model.PersonalRecord) {
					r.Weight = &weight
					r.Reps = &reps
				},
			},
			candidate{
				recordType: model.RecordOneRepMax,
				value:      oneRepMax,
				apply: func(r *model.PersonalRecord) {
					r.Weight = &weight
					r.Reps = &reps
					r.OneRepMax = &oneRepMax
				},
			},
		)
	}

	if set.DurationSeconds != nil {
		duration := *set.DurationSeconds
		out = append(out, candidate{
			recordType: model.RecordMaxDuration,
			value:      float64(duration),
			apply: func(r *model.PersonalRecord) {
				r.DurationSeconds = &duration
			},
		})
	}

	if set.DistanceMeters != nil {
		distance := *set.DistanceMeters
		out = append(out, candidate{
			recordType: model.RecordMaxDistance,
			value:      float64(distance),
			apply: func(r *model.PersonalRecord) {
				r.DistanceMeters = &distance
			},
		})
	}

	return out
}

// evaluate 在对应键的锁内执行 读取当前最优 → 比较 → 替换。
// 替换冲突时重试一次该候选的完整比较，再次冲突交给调用方跳过
func (s *RecordService) evaluate(log *model.WorkoutLog, exerciseID uint, set *model.ExerciseSet, cand candidate) (*model.PersonalRecord, error) {
	if cand.value <= 0 {
		return nil, nil
	}

	key := lockKey(log.UserID, exerciseID, cand.recordType)
	l := s.locks.get(key)
	l.Lock()
	defer l.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		existing, err := s.findExisting(log.UserID, exerciseID, set, cand)
		if err != nil {
			return nil, err
		}
		// 严格大于才算新纪录，打平不算
		if existing != nil && cand.value <= existing.Value() {
			return nil, nil
		}

		// 次数纪录的比较池按负重过滤，池为空时三元组的在用行
		// 可能仍是更大负重的纪录，替换时必须带上它，否则创建撞唯一索引
		occupant := existing
		if occupant == nil && cand.recordType == model.RecordMaxReps {
			occupant, err = s.Records.FindBest(log.UserID, exerciseID, cand.recordType)
			if err != nil {
				return nil, err
			}
		}

		record := &model.PersonalRecord{
			UserID:       log.UserID,
			ExerciseID:   exerciseID,
			RecordType:   cand.recordType,
			DateAchieved: log.CompletedAt,
			BodyWeight:   log.BodyWeight,
		}
		if log.ID != 0 {
			logID := log.ID
			record.WorkoutLogID = &logID
		}
		cand.apply(record)
		s.finalize(record, existing)

		err = s.Records.Replace(occupant, record)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, util.ErrRecordConflict) {
			return nil, err
		}
		monitoring.RecordConflicts.Inc()
	}

	return nil, util.ErrRecordConflict
}

// findExisting 次数纪录只和同等或更小负重的现有纪录比较，其余类型取全局最优
func (s *RecordService) findExisting(userID, exerciseID uint, set *model.ExerciseSet, cand candidate) (*model.PersonalRecord, error) {
	if cand.recordType == model.RecordMaxReps && set.Weight != nil {
		return s.Records.FindBestRepsAtWeight(userID, exerciseID, *set.Weight)
	}
	return s.Records.FindBest(userID, exerciseID, cand.recordType)
}

// finalize 填充 previousRecord、提升幅度和派生的容量/1RM/Wilks
func (s *RecordService) finalize(record *model.PersonalRecord, previous *model.PersonalRecord) {
	if record.Weight != nil && record.Reps != nil {
		if record.Volume == nil {
			volume := *record.Weight * float64(*record.Reps)
			record.Volume = &volume
		}
		if record.OneRepMax == nil {
			oneRepMax := s.Strength.EpleyOneRepMax(*record.Weight, *record.Reps)
			record.OneRepMax = &oneRepMax
		}
	}

	if previous != nil {
		prevValue := previous.Value()
		prevDate := previous.DateAchieved
		record.PreviousValue = &prevValue
		record.PreviousDate = &prevDate
		record.Improvement = improvement(record.Value(), prevValue)
	}

	if record.Weight != nil && record.BodyWeight != nil {
		if user, err := s.Users.FindByID(record.UserID); err == nil {
			score := s.Strength.WilksScore(*record.Weight, *record.BodyWeight, user.Gender)
			if score > 0 {
				record.WilksScore = &score
			}
		}
	}
}

// improvement 提升百分比，基线为 0 时定义为 100
func improvement(newValue, previousValue float64) float64 {
	if previousValue == 0 {
		return 100
	}
	return math.Round((newValue-previousValue)/previousValue*100*10) / 10
}

func lockKey(userID, exerciseID uint, recordType model.RecordType) string {
	return fmt.Sprintf("%d:%d:%s", userID, exerciseID, recordType)
}
