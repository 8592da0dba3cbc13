package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bankdemo/config"
	"bankdemo/models"
	"bankdemo/store"
	"bankdemo/utils"

	"github.com/glebarez/sqlite"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database представляет подключение к базе данных
type Database struct {
	DB     *gorm.DB
	driver store.Driver
	logger *zap.Logger
	// now задает время отметок об изменении сущностей
	now func() time.Time
}

// NewDatabase создает новое подключение к базе данных и выполняет миграции
func NewDatabase(cfg *config.Config, log *zap.Logger) (*Database, error) {
	if log == nil {
		return nil, errors.New("database: logger is required")
	}

	gormConfig := &gorm.Config{
		Logger: newGormLogger(log, cfg.DB.SlowThreshold),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DB.Driver {
	case "postgres":
		db, err = openPostgres(cfg, gormConfig, log)
	case "sqlite":
		db, err = openSQLite(cfg.DB.SQLitePath, gormConfig)
	default:
		return nil, fmt.Errorf("неизвестный драйвер базы данных: %q", cfg.DB.Driver)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Подключение к базе данных установлено", zap.String("driver", cfg.DB.Driver))

	return &Database{
		DB:     db,
		driver: NewDriver(db),
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// openPostgres подключается к Postgres, настраивает пул и выполняет SQL миграции
func openPostgres(cfg *config.Config, gormConfig *gorm.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	// Настраиваем пул соединений
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пула соединений: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	// Выполняем SQL миграции
	start := time.Now()
	err = runMigrations(cfg.DB.MigrationsPath, cfg.MigrationURL())
	utils.LogOperation(log, "migrate", start, err)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения SQL миграций: %w", err)
	}

	return db, nil
}

// openSQLite открывает встроенную базу sqlite и создает таблицы по моделям.
// База в памяти живет, пока жива единственная открытая связь с ней.
func openSQLite(path string, gormConfig *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пула соединений: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// runMigrations выполняет SQL миграции
func runMigrations(sourceURL, databaseURL string) error {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("ошибка создания миграции: %w", err)
	}
	defer m.Close()

	// Выполняем миграции
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка выполнения миграций: %w", err)
	}

	return nil
}

// autoMigrate выполняет автоматическую миграцию моделей
func autoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.AccountType{},
		&models.Customer{},
		&models.Account{},
		&models.LoanRate{},
	)
	if err != nil {
		return fmt.Errorf("ошибка автоматической миграции: %w", err)
	}

	return nil
}

// UnitOfWork создает новую единицу работы поверх базы данных
func (d *Database) UnitOfWork() *store.UnitOfWork {
	return store.NewUnitOfWork(d.driver, store.WithActor(models.SystemUser), store.WithClock(d.now))
}

// Driver возвращает драйвер хранилища
func (d *Database) Driver() store.Driver {
	return d.driver
}

// Ping проверяет доступность базы данных
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close закрывает подключение к базе данных
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newGormLogger направляет логи gorm в zap
func newGormLogger(log *zap.Logger, slowThreshold time.Duration) logger.Interface {
	return logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             slowThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// NewInMemory открывает пустую базу sqlite в памяти со схемой приложения
func NewInMemory(log *zap.Logger) (*Database, error) {
	cfg := &config.Config{}
	cfg.DB.Driver = "sqlite"
	cfg.DB.SQLitePath = ":memory:"
	cfg.DB.SlowThreshold = time.Second
	return NewDatabase(cfg, log)
}
