package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
}

type RecognizerConfig struct {
	Backend         string
	AWSRegion       string
	OpenALPRURL     string
	OpenALPRCountry string
	Timeout         time.Duration
}

type DetectionConfig struct {
	MinConfidence float64
	MemoryFrames  int
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	PublicBaseURL string
}

func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}

type UploadConfig struct {
	RatePerSecond float64
	Burst         int
	MaxBytes      int64
}

type Config struct {
	Environment   string
	HTTP          HTTPConfig
	DB            DBConfig
	Auth          AuthConfig
	Recognizer    RecognizerConfig
	Detection     DetectionConfig
	Storage       StorageConfig
	Upload        UploadConfig
	RetentionDays int
}

const (
	BackendRekognition = "rekognition"
	BackendOpenALPR    = "openalpr"
)

// Load reads the configuration for the HTTP service.
func Load() (*Config, error) {
	cfg := load()
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadScanner reads the configuration for the batch scanner, which needs no
// database or auth settings.
func LoadScanner() (*Config, error) {
	cfg := load()
	if err := validateRecognizer(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() *Config {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Recognizer: RecognizerConfig{
			Backend:         strings.ToLower(strings.TrimSpace(v.GetString("RECOGNIZER_BACKEND"))),
			AWSRegion:       v.GetString("AWS_REGION"),
			OpenALPRURL:     strings.TrimRight(v.GetString("OPENALPR_URL"), "/"),
			OpenALPRCountry: v.GetString("OPENALPR_COUNTRY"),
			Timeout:         v.GetDuration("RECOGNIZER_TIMEOUT"),
		},
		Detection: DetectionConfig{
			MinConfidence: v.GetFloat64("DETECTION_MIN_CONFIDENCE"),
			MemoryFrames:  v.GetInt("PLATE_MEMORY_FRAMES"),
		},
		Storage: StorageConfig{
			Endpoint:      strings.TrimSpace(v.GetString("R2_ENDPOINT")),
			AccessKey:     strings.TrimSpace(v.GetString("R2_ACCESS_KEY_ID")),
			SecretKey:     strings.TrimSpace(v.GetString("R2_SECRET_ACCESS_KEY")),
			Bucket:        strings.TrimSpace(v.GetString("R2_BUCKET")),
			Region:        strings.TrimSpace(v.GetString("R2_REGION")),
			PublicBaseURL: strings.TrimRight(strings.TrimSpace(v.GetString("R2_PUBLIC_BASE_URL")), "/"),
		},
		Upload: UploadConfig{
			RatePerSecond: v.GetFloat64("UPLOAD_RATE_PER_SECOND"),
			Burst:         v.GetInt("UPLOAD_BURST"),
			MaxBytes:      v.GetInt64("UPLOAD_MAX_BYTES"),
		},
		RetentionDays: v.GetInt("RETENTION_DAYS"),
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Recognizer.Backend == "" {
		cfg.Recognizer.Backend = BackendRekognition
	}
	if cfg.Recognizer.AWSRegion == "" {
		cfg.Recognizer.AWSRegion = "ap-southeast-1"
	}
	if cfg.Recognizer.OpenALPRCountry == "" {
		cfg.Recognizer.OpenALPRCountry = "id"
	}
	if cfg.Recognizer.Timeout == 0 {
		cfg.Recognizer.Timeout = 15 * time.Second
	}
	if cfg.Detection.MinConfidence == 0 {
		cfg.Detection.MinConfidence = 0.50
	}
	if cfg.Detection.MemoryFrames == 0 {
		cfg.Detection.MemoryFrames = 30
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "auto"
	}
	if cfg.Upload.RatePerSecond == 0 {
		cfg.Upload.RatePerSecond = 5
	}
	if cfg.Upload.Burst == 0 {
		cfg.Upload.Burst = 10
	}
	if cfg.Upload.MaxBytes == 0 {
		cfg.Upload.MaxBytes = 10 << 20
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = 90
	}

	return cfg
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	return validateRecognizer(cfg)
}

func validateRecognizer(cfg *Config) error {
	switch cfg.Recognizer.Backend {
	case BackendRekognition:
	case BackendOpenALPR:
		if cfg.Recognizer.OpenALPRURL == "" {
			return fmt.Errorf("OPENALPR_URL is required for the openalpr backend")
		}
	default:
		return fmt.Errorf("unknown RECOGNIZER_BACKEND %q", cfg.Recognizer.Backend)
	}
	if cfg.Detection.MinConfidence < 0 || cfg.Detection.MinConfidence > 1 {
		return fmt.Errorf("DETECTION_MIN_CONFIDENCE must be within [0, 1]")
	}
	return nil
}

// ValidateScanner re-checks the recognizer settings after command line overrides.
func (c *Config) ValidateScanner() error {
	return validateRecognizer(c)
}
