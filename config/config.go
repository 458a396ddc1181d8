package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"

	ProductionEnv  = "production"
	DevelopmentEnv = "development"

	BlobBackendFS = "fs"
	BlobBackendS3 = "s3"
)

type Config struct {
	AppPort     string `envconfig:"APP_PORT" default:"3000"`
	AppMode     string `envconfig:"APP_MODE" default:"debug"`
	Environment string `envconfig:"APP_ENV" default:"development"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Blob      BlobConfig
	S3        S3Config
	Upload    UploadConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Cleanup   CleanupConfig
}

type MongoConfig struct {
	URI            string        `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	Database       string        `envconfig:"MONGODB_DATABASE" default:"birthday_memories"`
	MaxPoolSize    uint64        `envconfig:"MONGODB_MAX_POOL_SIZE" default:"50"`
	ConnectTimeout time.Duration `envconfig:"MONGODB_CONNECT_TIMEOUT" default:"10s"`
}

// RedisConfig is optional. An empty Addr disables rate limiting and keeps
// the cleanup queue in process.
type RedisConfig struct {
	Addr        string        `envconfig:"REDIS_ADDR"`
	Password    string        `envconfig:"REDIS_PASSWORD"`
	DB          int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize    int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	DialTimeout time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"3s"`
}

type BlobConfig struct {
	Backend string `envconfig:"BLOB_BACKEND" default:"fs"`
	Root    string `envconfig:"UPLOAD_DIR" default:"uploads"`
}

type S3Config struct {
	Region    string `envconfig:"S3_REGION"`
	Bucket    string `envconfig:"S3_BUCKET"`
	AccessKey string `envconfig:"S3_ACCESS_KEY"`
	SecretKey string `envconfig:"S3_SECRET_KEY"`
	Endpoint  string `envconfig:"S3_ENDPOINT"`
}

type UploadConfig struct {
	MaxFileSize int64 `envconfig:"UPLOAD_MAX_FILE_SIZE" default:"52428800"` // 50MB
	MaxFiles    int   `envconfig:"UPLOAD_MAX_FILES" default:"10"`

	ThumbWidth   int `envconfig:"THUMB_WIDTH" default:"400"`
	ThumbHeight  int `envconfig:"THUMB_HEIGHT" default:"400"`
	ThumbQuality int `envconfig:"THUMB_QUALITY" default:"80"`

	StagedThumbWidth   int `envconfig:"STAGED_THUMB_WIDTH" default:"300"`
	StagedThumbHeight  int `envconfig:"STAGED_THUMB_HEIGHT" default:"300"`
	StagedThumbQuality int `envconfig:"STAGED_THUMB_QUALITY" default:"85"`

	// ThumbMaxPixels caps the decoded area of an image; larger images are
	// stored without a thumbnail.
	ThumbMaxPixels int64 `envconfig:"THUMB_MAX_PIXELS" default:"268402689"`
}

type RateLimitConfig struct {
	Window       time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m"`
	GeneralLimit int           `envconfig:"RATE_LIMIT_MAX" default:"100"`
	UploadLimit  int           `envconfig:"UPLOAD_RATE_LIMIT_MAX" default:"20"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://127.0.0.1:3000,http://localhost:5500"`
}

type CleanupConfig struct {
	Interval    time.Duration `envconfig:"CLEANUP_INTERVAL" default:"30s"`
	BatchSize   int           `envconfig:"CLEANUP_BATCH_SIZE" default:"50"`
	MaxAttempts int           `envconfig:"CLEANUP_MAX_ATTEMPTS" default:"5"`
	StagingTTL  time.Duration `envconfig:"CLEANUP_STAGING_TTL" default:"24h"`
	SweepEvery  time.Duration `envconfig:"CLEANUP_SWEEP_EVERY" default:"1h"`
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.Blob.Backend = strings.ToLower(strings.TrimSpace(cfg.Blob.Backend))
	return &cfg, nil
}

// Default returns the configuration with every default applied and no
// environment lookups.
func Default() *Config {
	return &Config{
		AppPort:     "3000",
		AppMode:     DebugMode,
		Environment: DevelopmentEnv,
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "birthday_memories",
			MaxPoolSize:    50,
			ConnectTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{PoolSize: 10, DialTimeout: 3 * time.Second},
		Blob:  BlobConfig{Backend: BlobBackendFS, Root: "uploads"},
		Upload: UploadConfig{
			MaxFileSize:        50 * 1024 * 1024,
			MaxFiles:           10,
			ThumbWidth:         400,
			ThumbHeight:        400,
			ThumbQuality:       80,
			StagedThumbWidth:   300,
			StagedThumbHeight:  300,
			StagedThumbQuality: 85,
			ThumbMaxPixels:     268402689,
		},
		RateLimit: RateLimitConfig{
			Window:       15 * time.Minute,
			GeneralLimit: 100,
			UploadLimit:  20,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5500"},
		},
		Cleanup: CleanupConfig{
			Interval:    30 * time.Second,
			BatchSize:   50,
			MaxAttempts: 5,
			StagingTTL:  24 * time.Hour,
			SweepEvery:  time.Hour,
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == ProductionEnv
}
