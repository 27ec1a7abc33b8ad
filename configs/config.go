package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var loadEnvOnce sync.Once

func loadEnv() {
	loadEnvOnce.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("Warning: .env file not found, reading from system environment variables")
		}
	})
}

type RemitaSettings struct {
	BaseURL       string
	MerchantID    string
	ServiceTypeID string
	APIKey        string
	UseMock       bool
	Timeout       time.Duration
}

type Settings struct {
	Env         string
	Port        string
	DatabaseURL string
	JWTSecret   string
	CronSecret  string

	Remita RemitaSettings

	HostelFeeAmount int64
	SweepSchedule   string

	RedisURL       string
	StatusCacheTTL time.Duration

	KafkaBrokerURL          string
	KafkaPaymentStatusTopic string

	CloudinaryURL string

	BrevoAPIKey     string
	EmailSender     string
	EmailSenderName string

	AdminEmail    string
	AdminPassword string
	AdminFullName string

	// Reference/matric pair reported as verified when the gateway cannot be reached.
	// Both must be set for the fallback to apply.
	VerifyFallbackRRR    string
	VerifyFallbackMatric string
}

func Load() (*Settings, error) {
	loadEnv()

	s := &Settings{
		Env:         getEnvOrDefault("APP_ENV", "production"),
		Port:        getEnvOrDefault("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CronSecret:  os.Getenv("CRON_SECRET"),
		Remita: RemitaSettings{
			BaseURL:       strings.TrimRight(getEnvOrDefault("REMITA_BASE_URL", "https://demo.remita.net"), "/"),
			MerchantID:    os.Getenv("REMITA_MERCHANT_ID"),
			ServiceTypeID: os.Getenv("REMITA_SERVICE_TYPE_ID"),
			APIKey:        os.Getenv("REMITA_API_KEY"),
			UseMock:       getEnvAsBool("REMITA_USE_MOCK", false),
			Timeout:       getEnvAsDuration("GATEWAY_TIMEOUT", 30*time.Second),
		},
		HostelFeeAmount:         getEnvAsInt64("HOSTEL_FEE_AMOUNT", 219000),
		SweepSchedule:           getEnvOrDefault("SWEEP_SCHEDULE", "0 */8 * * *"),
		RedisURL:                os.Getenv("REDIS_URL"),
		StatusCacheTTL:          getEnvAsDuration("STATUS_CACHE_TTL", 10*time.Minute),
		KafkaBrokerURL:          os.Getenv("KAFKA_BROKER_URL"),
		KafkaPaymentStatusTopic: getEnvOrDefault("KAFKA_PAYMENT_STATUS_TOPIC", "payment_status_updates"),
		CloudinaryURL:           os.Getenv("CLOUDINARY_URL"),
		BrevoAPIKey:             os.Getenv("BREVO_API_KEY"),
		EmailSender:             os.Getenv("EMAIL_SENDER"),
		EmailSenderName:         getEnvOrDefault("EMAIL_SENDER_NAME", "Sky Hostel"),
		AdminEmail:              os.Getenv("ADMIN_EMAIL"),
		AdminPassword:           os.Getenv("ADMIN_PASSWORD"),
		AdminFullName:           getEnvOrDefault("ADMIN_FULL_NAME", "Hostel Administrator"),
		VerifyFallbackRRR:       os.Getenv("VERIFY_FALLBACK_RRR"),
		VerifyFallbackMatric:    os.Getenv("VERIFY_FALLBACK_MATRIC"),
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if s.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if s.HostelFeeAmount <= 0 {
		return errors.New("HOSTEL_FEE_AMOUNT must be positive")
	}
	if s.Remita.UseMock {
		return nil
	}
	var missing []string
	if s.Remita.MerchantID == "" {
		missing = append(missing, "REMITA_MERCHANT_ID")
	}
	if s.Remita.ServiceTypeID == "" {
		missing = append(missing, "REMITA_SERVICE_TYPE_ID")
	}
	if s.Remita.APIKey == "" {
		missing = append(missing, "REMITA_API_KEY")
	}
	if len(missing) > 0 {
		return errors.New("missing gateway credentials: " + strings.Join(missing, ", "))
	}
	return nil
}

func (s *Settings) IsDevelopment() bool {
	return s.Env == "development"
}

func (s *Settings) KafkaBrokers() []string {
	if s.KafkaBrokerURL == "" {
		return nil
	}
	return strings.Split(s.KafkaBrokerURL, ",")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnvOrDefault(key, strconv.FormatInt(defaultValue, 10))
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnvOrDefault(key, strconv.FormatBool(defaultValue))
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
