package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort     string `mapstructure:"APP_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	Env         string `mapstructure:"ENV"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// OperatorAccessKey gates operator token issuance. Empty disables the
	// token endpoint entirely.
	OperatorAccessKey string `mapstructure:"OPERATOR_ACCESS_KEY"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisLockDB    int    `mapstructure:"REDIS_LOCK_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`

	// External services.
	GeminiAPIKey    string `mapstructure:"GEMINI_API_KEY"`
	StripeKey       string `mapstructure:"STRIPE_KEY"`
	ProviderBaseURL string `mapstructure:"PROVIDER_BASE_URL"`

	// Dialogue tuning.
	SlotConfidenceThreshold float64 `mapstructure:"SLOT_CONFIDENCE_THRESHOLD"`
	AmbiguityMargin         float64 `mapstructure:"AMBIGUITY_MARGIN"`
	MaxClarifyPerSlot       int     `mapstructure:"MAX_CLARIFY_PER_SLOT"`

	// Booking protocol tuning.
	ProviderMaxAttempts int           `mapstructure:"PROVIDER_MAX_ATTEMPTS"`
	ProviderBackoffBase time.Duration `mapstructure:"PROVIDER_BACKOFF_BASE"`
	ProviderCallTimeout time.Duration `mapstructure:"PROVIDER_CALL_TIMEOUT"`
	PaymentRiskCeiling  int           `mapstructure:"PAYMENT_RISK_CEILING"`

	// Session lifecycle.
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	SessionLockTTL time.Duration `mapstructure:"SESSION_LOCK_TTL"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_LOCK_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("OPERATOR_ACCESS_KEY", "")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("PROVIDER_BASE_URL", "https://www.tnstc.in/OTRSOnline/jqreq.do?")
	viper.SetDefault("SLOT_CONFIDENCE_THRESHOLD", 0.75)
	viper.SetDefault("AMBIGUITY_MARGIN", 0.1)
	viper.SetDefault("MAX_CLARIFY_PER_SLOT", 2)
	viper.SetDefault("PROVIDER_MAX_ATTEMPTS", 3)
	viper.SetDefault("PROVIDER_BACKOFF_BASE", 500*time.Millisecond)
	viper.SetDefault("PROVIDER_CALL_TIMEOUT", 15*time.Second)
	viper.SetDefault("PAYMENT_RISK_CEILING", 5000)
	viper.SetDefault("SESSION_TTL", 30*time.Minute)
	viper.SetDefault("SESSION_LOCK_TTL", 20*time.Second)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
