package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server struct {
		Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
		OpsPort         int           `mapstructure:"ops_port" validate:"min=1,max=65535,nefield=Port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	} `mapstructure:"server"`
	DB struct {
		Driver          string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
		User            string        `mapstructure:"user"`
		Password        string        `mapstructure:"password"`
		DBName          string        `mapstructure:"name"`
		SSLMode         string        `mapstructure:"sslmode"`
		SQLitePath      string        `mapstructure:"sqlite_path"`
		MigrationsPath  string        `mapstructure:"migrations_path"`
		MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
		MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gt=0"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
		SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
	} `mapstructure:"db"`
	JWT struct {
		SecretKey string `mapstructure:"secret_key" validate:"required"`
		ExpiresIn int    `mapstructure:"expires_in" validate:"gt=0"` // в часах
	} `mapstructure:"jwt"`
	Log struct {
		Level       string   `mapstructure:"level"`
		Format      string   `mapstructure:"format" validate:"oneof=json console"`
		OutputPaths []string `mapstructure:"output_paths" validate:"min=1"`
		Development bool     `mapstructure:"development"`
	} `mapstructure:"log"`
	RateLimit struct {
		Requests int           `mapstructure:"requests" validate:"gt=0"`
		Window   time.Duration `mapstructure:"window" validate:"gt=0"`
	} `mapstructure:"rate_limit"`
	Seed struct {
		Demo bool `mapstructure:"demo"`
	} `mapstructure:"seed"`
}

// DSN возвращает строку подключения к Postgres
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.DBName,
		c.DB.SSLMode,
	)
}

// MigrationURL возвращает URL базы данных для golang-migrate
func (c *Config) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.DBName,
		c.DB.SSLMode,
	)
}

// NewConfig создает новый экземпляр конфигурации.
// Порядок: значения по умолчанию, файл config.yaml (путь из BANK_CONFIG), переменные окружения.
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Переменные окружения вида DB_HOST перекрывают ключи db.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Файл конфигурации необязателен
	if path := os.Getenv("BANK_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}
	cfg.JWT.SecretKey = strings.TrimSpace(cfg.JWT.SecretKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет значения конфигурации
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("неверная конфигурация: %w", err)
		}
		var errorMessages []string
		for _, e := range validationErrors {
			errorMessages = append(errorMessages, "параметр "+e.Namespace()+" не прошел проверку "+e.Tag())
		}
		return errors.New("неверная конфигурация: " + strings.Join(errorMessages, "; "))
	}
	return nil
}

// setDefaults задает значения по умолчанию
func setDefaults(v *viper.Viper) {
	// Настройки сервера
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.ops_port", 9090)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Настройки базы данных
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "bank_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.sqlite_path", ":memory:")
	v.SetDefault("db.migrations_path", "file://migrations")
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.max_open_conns", 100)
	v.SetDefault("db.conn_max_lifetime", time.Hour)
	v.SetDefault("db.slow_threshold", time.Second)

	// Настройки JWT
	v.SetDefault("jwt.secret_key", "your-secret-key-here")
	v.SetDefault("jwt.expires_in", 1)

	// Настройки логирования
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
	v.SetDefault("log.development", false)

	// Ограничение частоты запросов
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", time.Minute)

	// Демонстрационные данные
	v.SetDefault("seed.demo", true)
}
