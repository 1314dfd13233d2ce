package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitness_tracker_backend/internal/config"
	"fitness_tracker_backend/internal/model"
	"fitness_tracker_backend/internal/repository"
	"fitness_tracker_backend/internal/service"
	"fitness_tracker_backend/pkg/database"
	"fitness_tracker_backend/pkg/logger"
	"fitness_tracker_backend/pkg/monitoring"
	"fitness_tracker_backend/pkg/tracing"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 后台预热的榜单纪录类型
var warmupRecordTypes = []model.RecordType{
	model.RecordMaxWeight,
	model.RecordOneRepMax,
}

type App struct {
	Config          *config.Config
	DB              *gorm.DB
	Redis           *redis.Client
	Services        *Services
	configCallbacks []func(*config.Config)

	tracerShutdown func(context.Context) error
	stopWarmup     chan struct{}
}

type repositories struct {
	user     *repository.UserRepository
	exercise *repository.ExerciseRepository
	log      *repository.WorkoutLogRepository
	record   *repository.PersonalRecordRepository
	progress *repository.ProgressRepository
}

// Services 对外暴露引擎的全部服务入口
type Services struct {
	Metrics    *service.MetricsService
	Strength   *service.StrengthService
	Records    *service.RecordService
	Milestones *service.MilestoneService
	Goals      *service.GoalService
	Reports    *service.ReportService
	WorkoutLog *service.WorkoutLogService
	Progress   *service.ProgressService
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 配置热更新回调入口
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Config = cfg
	if a.Services != nil && a.Services.Reports != nil {
		a.Services.Reports.CacheCfg = cfg.Cache
	}
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		exercise: repository.NewExerciseRepository(db),
		log:      repository.NewWorkoutLogRepository(db),
		record:   repository.NewPersonalRecordRepository(db),
		progress: repository.NewProgressRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *Services {
	s := &Services{}

	s.Metrics = service.NewMetricsService()
	s.Strength = service.NewStrengthService()
	s.Records = service.NewRecordService(repos.record, repos.exercise, repos.user, s.Strength)
	s.Milestones = service.NewMilestoneService(repos.progress)
	s.Goals = service.NewGoalService()
	s.Reports = service.NewReportService(
		repos.log,
		repos.record,
		repos.progress,
		repos.user,
		repos.exercise,
		s.Strength,
		rdb,
		cfg.Cache,
	)
	s.WorkoutLog = service.NewWorkoutLogService(repos.log, repos.user, repos.exercise, s.Metrics, s.Records, s.Reports)
	s.Progress = service.NewProgressService(repos.progress, repos.user, s.Milestones, s.Goals, s.Reports)

	return s
}

// startBackgroundTasks 周期性预热内置动作的排行榜缓存
func (a *App) startBackgroundTasks(repos *repositories, s *Services) {
	a.stopWarmup = make(chan struct{})
	go func() {
		ticker := time.NewTicker(a.Config.Cache.LeaderboardTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-a.stopWarmup:
				return
			case <-ticker.C:
				exercises, err := repos.exercise.List()
				if err != nil {
					logger.Log.Error("leaderboard warmup: exercise list failed", zap.Error(err))
					continue
				}
				ids := make([]uint, 0, len(exercises))
				for _, e := range exercises {
					if e.Category == model.CategoryStrength {
						ids = append(ids, e.ID)
					}
				}
				s.Reports.WarmLeaderboards(context.Background(), ids, warmupRecordTypes, 10)
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	// release 模式默认不自动迁移，-migrate 强制
	migrate := cfg.Server.Mode != "release" || cfg.ForceMigrate
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	app.Services = app.initServices(repos, cfg, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("fitness-metrics-engine", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerShutdown = tp.Shutdown
	}

	app.startBackgroundTasks(repos, app.Services)

	return app
}

// Run 启动指标/健康检查端口并阻塞到收到退出信号
func (a *App) Run() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := a.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: mux,
	}

	go func() {
		log.Printf("Metrics server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭（5秒超时）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	if a.stopWarmup != nil {
		close(a.stopWarmup)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
