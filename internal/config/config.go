// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// EnvProduction значение Env для боевого окружения.
const EnvProduction = "production"

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	FrontendURL             string `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:5173"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Push                    `yaml:"push"`
	Scheduler               `yaml:"scheduler"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// Лимит запросов к публичному календарю в секунду и размер всплеска.
	CalendarRateLimit float64 `yaml:"calendar_rate_limit" env-default:"5"`
	CalendarRateBurst int     `yaml:"calendar_rate_burst" env-default:"10"`
	// Время жизни ленты календаря в Redis, 0 отключает кеш.
	CalendarCacheTTL time.Duration `yaml:"calendar_cache_ttl" env-default:"5m"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для подключения к очереди писем
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// SMTP структура для настройки почтового сервера
type SMTP struct {
	SMTPHost string `yaml:"host" env:"SMTP_HOST"`
	SMTPPort string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `yaml:"user" env:"SMTP_USER"`
	SMTPPass string `yaml:"password" env:"SMTP_PASSWORD"`
	// Адрес отправителя, по умолчанию SMTPUser.
	EmailFrom string `yaml:"email_from" env:"EMAIL_FROM"`
}

// Push структура с VAPID-ключами для web-push
type Push struct {
	VAPIDSubject    string        `yaml:"vapid_subject" env:"VAPID_SUBJECT"`
	VAPIDPublicKey  string        `yaml:"vapid_public_key" env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `yaml:"vapid_private_key" env:"VAPID_PRIVATE_KEY"`
	TTL             int           `yaml:"ttl" env-default:"86400"`
	PushTimeout     time.Duration `yaml:"timeout" env-default:"10s"`
}

// Enabled сообщает, заданы ли все VAPID-ключи.
func (p Push) Enabled() bool {
	return p.VAPIDSubject != "" && p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}

// Значения Scheduler.DedupBackend и Scheduler.EmailDelivery.
const (
	DedupMemory = "memory"
	DedupRedis  = "redis"

	DeliverySMTP  = "smtp"
	DeliveryQueue = "queue"
)

// Scheduler структура для настройки ежедневных задач
type Scheduler struct {
	Timezone            string        `yaml:"timezone" env:"SCHEDULER_TIMEZONE" env-default:"UTC"`
	RolloverSpec        string        `yaml:"rollover_spec" env-default:"0 0 * * *"`
	TrialReminderSpec   string        `yaml:"trial_reminder_spec" env-default:"0 9 * * *"`
	PaymentReminderSpec string        `yaml:"payment_reminder_spec" env-default:"0 9 * * *"`
	StartupDelay        time.Duration `yaml:"startup_delay" env-default:"5s"`
	Workers             int           `yaml:"workers" env-default:"1"`
	NotifyTimeout       time.Duration `yaml:"notify_timeout" env-default:"10s"`
	DedupBackend        string        `yaml:"dedup_backend" env-default:"memory"`
	EmailDelivery       string        `yaml:"email_delivery" env-default:"smtp"`
}

// Location возвращает часовой пояс планировщика.
func (s Scheduler) Location() (*time.Location, error) {
	const op = "config.Scheduler.Location"
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return loc, nil
}

// IsProduction сообщает, запущен ли сервис в боевом окружении.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// MustLoad функция для загрузки конфига, путь к файлу берется из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла и переменных окружения.
func Load(configPath string) (*Config, error) {
	const op = "config.Load"
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DedupBackend {
	case DedupMemory, DedupRedis:
	default:
		return fmt.Errorf("unknown dedup_backend %q", c.DedupBackend)
	}
	switch c.EmailDelivery {
	case DeliverySMTP, DeliveryQueue:
	default:
		return fmt.Errorf("unknown email_delivery %q", c.EmailDelivery)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"Scheduler:\n"+
			"  Timezone: %s\n"+
			"  Rollover: %s\n"+
			"  TrialReminder: %s\n"+
			"  PaymentReminder: %s\n"+
			"  DedupBackend: %s\n"+
			"  EmailDelivery: %s\n"+
			"  Workers: %d\n",
		c.Env,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.Timezone,
		c.RolloverSpec,
		c.TrialReminderSpec,
		c.PaymentReminderSpec,
		c.DedupBackend,
		c.EmailDelivery,
		c.Workers,
	)
}
