package config

import (
	"log"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const minKeyLength = 32

type Database struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"ssl-mode"`
}

type KafkaWriter struct {
	BatchSize      int `mapstructure:"batch-size"`
	BatchTimeoutMs int `mapstructure:"batch-timeout-ms"`
}

type KafkaBroker struct {
	URL string `mapstructure:"url"`
}

type KafkaTopic struct {
	OrderEvents       string `mapstructure:"order-events"`
	WebhookDeliveries string `mapstructure:"webhook-deliveries"`
}

type KafkaReader struct {
	GroupID string `mapstructure:"group-id"`
}

type Kafka struct {
	Writer KafkaWriter `mapstructure:"writer"`
	Broker KafkaBroker `mapstructure:"broker"`
	Topic  KafkaTopic  `mapstructure:"topic"`
	Reader KafkaReader `mapstructure:"reader"`
}

// Paystack holds the plugin settings of the payment method.
type Paystack struct {
	PublicKey     string `mapstructure:"public-key"`
	SecretKey     string `mapstructure:"secret-key"`
	WebhookSecret string `mapstructure:"webhook-secret"`
	TestMode      bool   `mapstructure:"test-mode"`
	BaseURL       string `mapstructure:"base-url"`
	CallbackURL   string `mapstructure:"callback-url"`
	TimeoutMs     int    `mapstructure:"timeout-ms"`
	MerchantName  string `mapstructure:"merchant-name"`
}

// SigningSecret is the key webhook signatures are checked against.
// Paystack signs with the API secret key unless a dedicated secret is set.
func (p Paystack) SigningSecret() string {
	if p.WebhookSecret != "" {
		return p.WebhookSecret
	}
	return p.SecretKey
}

type Webhook struct {
	Queue       bool `mapstructure:"queue"`
	Parallelism int  `mapstructure:"parallelism"`
}

type Outbox struct {
	PollingIntervalMs  int `mapstructure:"polling-interval-ms"`
	FetchSize          int `mapstructure:"fetch-size"`
	RetryDelayMs       int `mapstructure:"retry-delay-ms"`
	MaxPublishAttempts int `mapstructure:"max-publish-attempts"`
}

type Storefront struct {
	BaseURL     string `mapstructure:"base-url"`
	SuccessPath string `mapstructure:"success-path"`
	FailPath    string `mapstructure:"fail-path"`
}

type Server struct {
	Port string `mapstructure:"port"`
}

type Metrics struct {
	URL          string `mapstructure:"url"`
	IntervalMs   int    `mapstructure:"interval-ms"`
	CommonLabels string `mapstructure:"common-labels"`
}

type Logs struct {
	URL string `mapstructure:"url"`
}

type Config struct {
	Database   Database   `mapstructure:"database"`
	Kafka      Kafka      `mapstructure:"kafka"`
	Paystack   Paystack   `mapstructure:"paystack"`
	Webhook    Webhook    `mapstructure:"webhook"`
	Outbox     Outbox     `mapstructure:"outbox"`
	Storefront Storefront `mapstructure:"storefront"`
	Server     Server     `mapstructure:"server"`
	Metrics    Metrics    `mapstructure:"metrics"`
	Logs       Logs       `mapstructure:"logs"`
}

var defaults = map[string]any{
	"database.user":                  "postgres",
	"database.password":              "postgres",
	"database.name":                  "paystack",
	"database.host":                  "localhost",
	"database.port":                  "5432",
	"database.ssl-mode":              "disable",
	"kafka.broker.url":               "localhost:9092",
	"kafka.topic.order-events":       "order-events",
	"kafka.topic.webhook-deliveries": "paystack-webhooks",
	"kafka.reader.group-id":          "paystack-service",
	"kafka.writer.batch-size":        100,
	"kafka.writer.batch-timeout-ms":  100,
	"paystack.public-key":            "",
	"paystack.secret-key":            "",
	"paystack.webhook-secret":        "",
	"paystack.test-mode":             false,
	"paystack.base-url":              "https://api.paystack.co",
	"paystack.callback-url":          "",
	"paystack.timeout-ms":            10_000,
	"paystack.merchant-name":         "",
	"webhook.queue":                  false,
	"webhook.parallelism":            100,
	"outbox.polling-interval-ms":     500,
	"outbox.fetch-size":              200,
	"outbox.retry-delay-ms":          10_000,
	"outbox.max-publish-attempts":    3,
	"storefront.base-url":            "http://localhost:3000",
	"storefront.success-path":        "/payment/success",
	"storefront.fail-path":           "/payment/fail",
	"server.port":                    "8080",
	"metrics.url":                    "",
	"metrics.interval-ms":            10_000,
	"metrics.common-labels":          "",
	"logs.url":                       "",
}

// LoadConfig reads config.yaml from path when present and lets environment
// variables override any key (paystack.secret-key -> PAYSTACK_SECRET_KEY).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func MustLoadConfig(path string) *Config {
	config, err := LoadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return config
}

// Validate applies the same rules the payment method settings form enforces.
func (c *Config) Validate() error {
	if len(c.Paystack.SecretKey) < minKeyLength {
		return errors.Errorf("paystack.secret-key is required and must be at least %d characters", minKeyLength)
	}
	if len(c.Paystack.PublicKey) < minKeyLength {
		return errors.Errorf("paystack.public-key is required and must be at least %d characters", minKeyLength)
	}
	if c.Paystack.TimeoutMs <= 0 {
		return errors.New("paystack.timeout-ms must be positive")
	}
	if c.Webhook.Parallelism <= 0 {
		return errors.New("webhook.parallelism must be positive")
	}
	return nil
}

// LiveKeyInTestMode reports a secret key that looks like a live key while
// test mode is switched on.
func (c *Config) LiveKeyInTestMode() bool {
	return c.Paystack.TestMode && strings.HasPrefix(c.Paystack.SecretKey, "sk_live_")
}
