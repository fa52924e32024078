package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	AWS        AWSConfig
	Transcoder TranscoderConfig
	Pipeline   PipelineConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/recordings?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AWSConfig holds AWS credentials and S3 bucket names.
type AWSConfig struct {
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	Endpoint         string // optional custom endpoint (MinIO, LocalStack)
	UsePathStyle     bool
	RecordingsBucket string // raw uploads (webm)
	TranscodedBucket string // transcoded output (mp3)
}

// TranscoderConfig holds ffmpeg settings.
type TranscoderConfig struct {
	FFmpegPath string // path to the ffmpeg binary
	WorkDir    string // scratch dir for transcode temp files; empty = os.TempDir()
}

// PipelineConfig holds event-processing settings.
type PipelineConfig struct {
	// StrictComplete makes the completion handler a no-op when the recording
	// row does not exist yet, instead of upserting the expected attributes.
	StrictComplete bool
	// IngestToken, when set, must match the "token" query parameter on
	// notification POSTs (shared secret with the delivery substrate).
	IngestToken string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/recordings?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "recordings"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		AWS: AWSConfig{
			Region:           getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:         getEnv("AWS_S3_ENDPOINT", ""),
			UsePathStyle:     getEnvBool("AWS_S3_PATH_STYLE", false),
			RecordingsBucket: getEnv("S3_RECORDINGS_BUCKET", "audio-recordings"),
			TranscodedBucket: getEnv("S3_TRANSCODED_RECORDINGS_BUCKET", "transcoded-audio-recordings"),
		},
		Transcoder: TranscoderConfig{
			FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
			WorkDir:    getEnv("TRANSCODER_WORK_DIR", ""),
		},
		Pipeline: PipelineConfig{
			StrictComplete: getEnvBool("PIPELINE_STRICT_COMPLETE", false),
			IngestToken:    getEnv("INGEST_TOKEN", ""),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}
