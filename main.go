package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bankdemo/config"
	"bankdemo/controllers"
	"bankdemo/database"
	"bankdemo/middleware"
	"bankdemo/services"
	"bankdemo/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// app содержит зависимости, общие для серверов
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *database.Database
	metrics   *utils.Metrics
	limiter   *utils.RateLimiter
	customers *services.CustomerService
	loans     *services.LoanService
}

// newApp создает сервисы поверх открытой базы данных
func newApp(cfg *config.Config, logger *zap.Logger, db *database.Database) (*app, error) {
	customers, err := services.NewCustomerService(db.UnitOfWork, logger)
	if err != nil {
		return nil, err
	}
	loans, err := services.NewLoanService(db.UnitOfWork, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		metrics:   utils.NewMetrics("bank"),
		limiter:   utils.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window),
		customers: customers,
		loans:     loans,
	}, nil
}

// setupRouter создает роутер API
func (a *app) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.Recovery(a.logger),
		middleware.Logger(a.logger.Named("http")),
		middleware.Metrics(a.metrics),
		middleware.CORS(),
		middleware.RateLimit(a.limiter),
	)

	controllers.RegisterRoutes(router.Group("/api"), a.cfg.JWT.SecretKey,
		controllers.NewAuthController(a.cfg, a.customers, a.metrics, a.logger),
		controllers.NewAccountController(a.customers, a.metrics, a.logger),
		controllers.NewLoanController(a.customers, a.loans, a.metrics, a.logger),
	)

	return router
}

// setupOpsRouter создает роутер служебного сервера: проверка состояния и метрики
func (a *app) setupOpsRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := a.db.Ping(ctx); err != nil {
			a.logger.Warn("База данных недоступна", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"status":"unhealthy"}`)
			return
		}
		fmt.Fprint(w, `{"status":"healthy"}`)
	}).Methods(http.MethodGet)

	router.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)

	return router
}

// run запускает серверы и останавливает их при отмене контекста
func (a *app) run(ctx context.Context) error {
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	opsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.OpsPort),
		Handler:           a.setupOpsRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{apiServer, opsServer} {
		g.Go(func() error {
			a.logger.Info("Сервер запущен", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("сервер %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	// Периодически очищаем счетчики rate limiter
	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.RateLimit.Window)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				a.limiter.Cleanup()
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Остановка серверов")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		return errors.Join(
			apiServer.Shutdown(shutdownCtx),
			opsServer.Shutdown(shutdownCtx),
		)
	})

	return g.Wait()
}

func main() {
	// Инициализируем конфигурацию
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем логгер
	logger, err := utils.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Ошибка создания логгера: %v", err)
	}
	defer logger.Sync()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	// Инициализируем подключение к базе данных
	db, err := database.NewDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("Ошибка подключения к базе данных", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Загружаем демонстрационные данные
	if cfg.Seed.Demo {
		start := time.Now()
		err := database.Seed(ctx, db.DB, logger)
		utils.LogOperation(logger, "seed", start, err)
		if err != nil {
			logger.Fatal("Ошибка загрузки демонстрационных данных", zap.Error(err))
		}
	}

	a, err := newApp(cfg, logger, db)
	if err != nil {
		logger.Fatal("Ошибка инициализации сервисов", zap.Error(err))
	}

	if err := a.run(ctx); err != nil {
		logger.Error("Сервер остановлен с ошибкой", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Сервер остановлен")
}
