package config

import (
	"github.com/spf13/viper"
)

// The service is expected to run with its settings injected as environment
// variables on the pod; AWS credentials come from the standard chain unless
// IS_LOCAL_DEV points everything at LocalStack.

type Config struct {
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	// STORE_DRIVER selects the IntervalStore backend: "postgres" or "memory"
	// (single-node, used for local development and tests).
	StoreDriver string `mapstructure:"STORE_DRIVER"`

	ServerPort string `mapstructure:"SERVER_PORT"`
	IsLocalDev bool   `mapstructure:"IS_LOCAL_DEV"`

	AWSRegion         string `mapstructure:"AWS_REGION"`
	AWSEndpoint       string `mapstructure:"AWS_ENDPOINT"`
	EventsSQSQueueURL string `mapstructure:"EVENTS_SQS_QUEUE_URL"`
	ReviewSQSQueueURL string `mapstructure:"REVIEW_SQS_QUEUE_URL"`

	PolicyAPIURL        string `mapstructure:"POLICY_API_URL"`
	DashboardWebhookURL string `mapstructure:"DASHBOARD_WEBHOOK_URL"`

	SESSenderAddress string `mapstructure:"SES_SENDER_ADDRESS"`
	ReviewRecipient  string `mapstructure:"REVIEW_RECIPIENT"`

	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("DB_HOST", "db")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "attendance_db")
	viper.SetDefault("STORE_DRIVER", "postgres")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("IS_LOCAL_DEV", false)
	viper.SetDefault("AWS_REGION", "us-east-1") // Default region for AWS services
	viper.SetDefault("AWS_ENDPOINT", "http://localstack:4566")
	viper.SetDefault("EVENTS_SQS_QUEUE_URL", "http://localstack:4566/000000000000/attendance-events-queue")
	viper.SetDefault("REVIEW_SQS_QUEUE_URL", "http://localstack:4566/000000000000/attendance-review-queue")
	viper.SetDefault("POLICY_API_URL", "http://localhost:8081")
	viper.SetDefault("DASHBOARD_WEBHOOK_URL", "http://localhost:8082/events")
	viper.SetDefault("SES_SENDER_ADDRESS", "no-reply@attendance-service.com")
	viper.SetDefault("REVIEW_RECIPIENT", "supervisors@attendance-service.com")
	viper.SetDefault("OTLP_ENDPOINT", "jaeger:4317")

	// Read in environment variables that match the keys.
	viper.AutomaticEnv()

	err = viper.Unmarshal(&config)
	return
}
