/*
Copyright 2025 Speedy Credit Repair Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5401"

	// Partner calls are capped at 30s unless overridden.
	DEFAULT_PARTNER_TIMEOUT_SEC = 30

	// Signed report URLs stay valid for 7 days.
	DEFAULT_SIGNED_URL_EXPIRY_HOURS = 168
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"ENROLLD_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"ENROLLD_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"ENROLLD_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"ENROLLD_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"ENROLLD_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"ENROLLD_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"ENROLLD_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"ENROLLD_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"ENROLLD_REDIS_SKIP_TLS_VERIFY"`
}

// PartnerConfig holds the credit-monitoring partner's API credentials and
// the shared secrets for request signing and webhook verification.
type PartnerConfig struct {
	BaseURL        string `json:"base_url" envconfig:"ENROLLD_PARTNER_BASE_URL"`
	PartnerID      string `json:"partner_id" envconfig:"ENROLLD_PARTNER_ID"`
	APIKey         string `json:"api_key" envconfig:"ENROLLD_PARTNER_API_KEY"`
	APISecret      string `json:"api_secret" envconfig:"ENROLLD_PARTNER_API_SECRET"`
	WebhookSecret  string `json:"webhook_secret" envconfig:"ENROLLD_PARTNER_WEBHOOK_SECRET"`
	TimeoutSec     int    `json:"timeout_sec" envconfig:"ENROLLD_PARTNER_TIMEOUT_SEC"`
	PortalLoginURL string `json:"portal_login_url" envconfig:"ENROLLD_PARTNER_PORTAL_LOGIN_URL"`
}

func (p PartnerConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// StorageConfig is the S3 (or compatible) bucket reports are archived to.
type StorageConfig struct {
	AwsAccessKeyId     string `json:"aws_access_key_id" envconfig:"ENROLLD_AWS_ACCESS_KEY_ID"`
	AwsSecretAccessKey string `json:"aws_secret_access_key" envconfig:"ENROLLD_AWS_SECRET_ACCESS_KEY"`
	S3Endpoint         string `json:"s3_endpoint" envconfig:"ENROLLD_S3_ENDPOINT"`
	S3BucketName       string `json:"s3_bucket_name" envconfig:"ENROLLD_S3_BUCKET_NAME"`
	S3Region           string `json:"s3_region" envconfig:"ENROLLD_S3_REGION"`
	SignedURLHours     int    `json:"signed_url_hours" envconfig:"ENROLLD_SIGNED_URL_HOURS"`
}

func (s StorageConfig) SignedURLExpiry() time.Duration {
	return time.Duration(s.SignedURLHours) * time.Hour
}

// QueueConfig names the asynq queues the workers consume.
type QueueConfig struct {
	EnrollmentQueue   string `json:"enrollment_queue" envconfig:"ENROLLD_QUEUE_ENROLLMENT"`
	ReportPullQueue   string `json:"report_pull_queue" envconfig:"ENROLLD_QUEUE_REPORT_PULL"`
	NotificationQueue string `json:"notification_queue" envconfig:"ENROLLD_QUEUE_NOTIFICATION"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"ENROLLD_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"ENROLLD_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"ENROLLD_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"ENROLLD_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type AnalyticsConfig struct {
	PostHogAPIKey string `json:"posthog_api_key" envconfig:"ENROLLD_POSTHOG_API_KEY"`
	PostHogHost   string `json:"posthog_host" envconfig:"ENROLLD_POSTHOG_HOST"`
}

type OtelGrafanaCloud struct {
	OtelExporterOtlpProtocol string `json:"otel_exporter_otlp_protocol" envconfig:"OTEL_EXPORTER_OTLP_PROTOCOL"`
	OtelExporterOtlpEndpoint string `json:"otel_exporter_otlp_endpoint" envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpHeaders  string `json:"otel_exporter_otlp_headers" envconfig:"OTEL_EXPORTER_OTLP_HEADERS"`
}

type Configuration struct {
	ProjectName      string           `json:"project_name" envconfig:"ENROLLD_PROJECT_NAME"`
	EnableTelemetry  bool             `json:"enable_telemetry" envconfig:"ENROLLD_ENABLE_TELEMETRY"`
	Server           ServerConfig     `json:"server"`
	DataSource       DataSourceConfig `json:"data_source"`
	Redis            RedisConfig      `json:"redis"`
	Partner          PartnerConfig    `json:"partner"`
	Storage          StorageConfig    `json:"storage"`
	Queue            QueueConfig      `json:"queue"`
	Notification     Notification     `json:"notification"`
	Analytics        AnalyticsConfig  `json:"analytics"`
	RateLimit        RateLimitConfig  `json:"rate_limit"`
	OtelGrafanaCloud OtelGrafanaCloud `json:"otel_grafana_cloud"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("enrolld", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called enrolld.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Enrolld Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	if cnf.Partner.BaseURL == "" {
		log.Println("Error: Partner base URL is empty. It's a required field.")
		return errors.New("partner base URL is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Partner.BaseURL = strings.TrimSuffix(strings.TrimSpace(cnf.Partner.BaseURL), "/")

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Partner.TimeoutSec == 0 {
		cnf.Partner.TimeoutSec = DEFAULT_PARTNER_TIMEOUT_SEC
	}

	if cnf.Storage.SignedURLHours == 0 {
		cnf.Storage.SignedURLHours = DEFAULT_SIGNED_URL_EXPIRY_HOURS
	}

	if cnf.Queue.EnrollmentQueue == "" {
		cnf.Queue.EnrollmentQueue = "new:enrollment"
	}
	if cnf.Queue.ReportPullQueue == "" {
		cnf.Queue.ReportPullQueue = "new:report_pull"
	}
	if cnf.Queue.NotificationQueue == "" {
		cnf.Queue.NotificationQueue = "new:notification"
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}

	// Set default cleanup interval if not specified
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// SetGrafanaExporterEnvs exports the OTLP settings so the otel SDK picks
// them up.
func SetGrafanaExporterEnvs() error {
	cnf, err := Fetch()
	if err != nil {
		return err
	}
	if err := os.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", cnf.OtelGrafanaCloud.OtelExporterOtlpProtocol); err != nil {
		return err
	}
	if err := os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cnf.OtelGrafanaCloud.OtelExporterOtlpEndpoint); err != nil {
		return err
	}
	if err := os.Setenv("OTEL_EXPORTER_OTLP_HEADERS", cnf.OtelGrafanaCloud.OtelExporterOtlpHeaders); err != nil {
		return err
	}
	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
