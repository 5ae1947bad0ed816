package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Драйверы хранилища
const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
	StorageDriverMemory   = "memory"
)

type StorageConfig struct {
	Driver      string
	DatabaseURL string
	SQLiteDSN   string
}

type RabbitMQConfig struct {
	Enabled bool
	URL     string
}

type StdoutLogConfig struct {
	Level  string
	IsJSON bool
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

type HTTPConfig struct {
	Port string
}

type MatchingConfig struct {
	ScoreThreshold      int
	AntiDupWindowDays   int
	MatchAfterIngestion bool
}

type OutreachConfig struct {
	Enabled         bool
	Allowlist       []string
	MessageTemplate string
}

type IngestionConfig struct {
	AdapterTimeout      time.Duration
	InterAdapterDelay   time.Duration
	Concurrency         int
	MaxErrorsPerAdapter int
	PortalsConfig       string
	OwnerKeywordsFile   string
	// BrowserExecPath пустой - chromedp ищет Chrome сам
	BrowserExecPath string
	BrowserHeadless bool
}

type MessagingConfig struct {
	GatewayURL   string
	GatewayToken string
}

type GeocoderConfig struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

type TelegramConfig struct {
	Enabled  bool
	BotToken string
	ChatID   int64
}

// AppConfig - вся конфигурация сервиса
type AppConfig struct {
	AppName      string
	Storage      StorageConfig
	RabbitMQ     RabbitMQConfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
	HTTP         HTTPConfig
	Matching     MatchingConfig
	Outreach     OutreachConfig
	Ingestion    IngestionConfig
	Messaging    MessagingConfig
	Geocoder     GeocoderConfig
	Telegram     TelegramConfig
}

// LoadConfig читает .env (если он есть) и переменные окружения
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 && envPath[0] != "" {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		// .env нужен только для локального запуска
		log.Printf("Info: Could not load .env file (path: %v): %v. Using process environment.\n", envPath, err)
	}

	cfg := &AppConfig{}
	cfg.AppName = getEnvAsString("APP_NAME", "outreach-service")

	cfg.Storage.Driver = strings.ToLower(getEnvAsString("STORAGE_DRIVER", StorageDriverPostgres))
	cfg.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.Storage.SQLiteDSN = getEnvAsString("SQLITE_DSN", "file:outreach.db?_pragma=busy_timeout(5000)")
	switch cfg.Storage.Driver {
	case StorageDriverPostgres:
		if cfg.Storage.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for the postgres driver")
		}
	case StorageDriverSQLite, StorageDriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}

	cfg.RabbitMQ.Enabled = getEnvAsBool("RABBITMQ_ENABLED", false)
	if cfg.RabbitMQ.Enabled {
		cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
		if cfg.RabbitMQ.URL == "" {
			return nil, fmt.Errorf("RABBITMQ_URL environment variable is required when RABBITMQ_ENABLED is true")
		}
	}

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}
		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")
	cfg.StdoutLogger.IsJSON = getEnvAsBool("STDOUT_LOG_JSON", false)
	cfg.HTTP.Port = getEnvAsString("HTTP_PORT", "8080")

	cfg.Matching.ScoreThreshold = getEnvAsInt("MATCH_SCORE_THRESHOLD", 70)
	cfg.Matching.AntiDupWindowDays = getEnvAsInt("ANTI_DUP_WINDOW_DAYS", 30)
	cfg.Matching.MatchAfterIngestion = getEnvAsBool("MATCH_AFTER_INGESTION", true)
	if cfg.Matching.ScoreThreshold < 0 || cfg.Matching.ScoreThreshold > 100 {
		return nil, fmt.Errorf("MATCH_SCORE_THRESHOLD must be within 0..100, got %d", cfg.Matching.ScoreThreshold)
	}
	if cfg.Matching.AntiDupWindowDays < 1 {
		return nil, fmt.Errorf("ANTI_DUP_WINDOW_DAYS must be at least 1, got %d", cfg.Matching.AntiDupWindowDays)
	}

	cfg.Outreach.Enabled = getEnvAsBool("OUTREACH_ENABLED", false)
	cfg.Outreach.Allowlist = getEnvAsStringSlice("OUTREACH_ALLOWLIST")
	cfg.Outreach.MessageTemplate = os.Getenv("OUTREACH_MESSAGE_TEMPLATE")

	cfg.Ingestion.AdapterTimeout = getEnvAsDuration("ADAPTER_TIMEOUT", 90*time.Second)
	cfg.Ingestion.InterAdapterDelay = getEnvAsDuration("INTER_ADAPTER_DELAY", 0)
	cfg.Ingestion.Concurrency = getEnvAsInt("INGESTION_CONCURRENCY", 4)
	cfg.Ingestion.MaxErrorsPerAdapter = getEnvAsInt("MAX_ERRORS_PER_ADAPTER", 20)
	cfg.Ingestion.PortalsConfig = getEnvAsString("PORTALS_CONFIG", "configs/portals.yaml")
	cfg.Ingestion.OwnerKeywordsFile = os.Getenv("OWNER_KEYWORDS_FILE")
	cfg.Ingestion.BrowserExecPath = os.Getenv("BROWSER_EXEC_PATH")
	cfg.Ingestion.BrowserHeadless = getEnvAsBool("BROWSER_HEADLESS", true)

	cfg.Messaging.GatewayURL = os.Getenv("WHATSAPP_GATEWAY_URL")
	cfg.Messaging.GatewayToken = os.Getenv("WHATSAPP_GATEWAY_TOKEN")
	if cfg.Outreach.Enabled && cfg.Messaging.GatewayURL == "" {
		return nil, fmt.Errorf("WHATSAPP_GATEWAY_URL environment variable is required when OUTREACH_ENABLED is true")
	}

	cfg.Geocoder.URL = getEnvAsString("GEOCODER_URL", "https://nominatim.openstreetmap.org")
	cfg.Geocoder.UserAgent = getEnvAsString("GEOCODER_USER_AGENT", cfg.AppName)
	cfg.Geocoder.Timeout = getEnvAsDuration("GEOCODER_TIMEOUT", 15*time.Second)

	cfg.Telegram.Enabled = getEnvAsBool("TELEGRAM_ENABLED", false)
	if cfg.Telegram.Enabled {
		cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
		cfg.Telegram.ChatID = int64(getEnvAsInt("TELEGRAM_CHAT_ID", 0))
		if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == 0 {
			log.Println("WARNING: TELEGRAM_ENABLED is true, but TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID is not set. Disabling Telegram.")
			cfg.Telegram.Enabled = false
		}
	}

	return cfg, nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt логирует и возвращает значение по умолчанию, если переменная не число
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration принимает "90s", "2m" или просто число секунд
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	valueStr = strings.TrimSpace(valueStr)
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as duration: %v. Using default value: %s\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsStringSlice: список через запятую, пустые элементы отбрасываются
func getEnvAsStringSlice(key string) []string {
	var res []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			res = append(res, p)
		}
	}
	return res
}
