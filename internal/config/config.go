package config

import (
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const defaultSampleRowCap = 50

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Cache   CacheConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
}

// StorageConfig is the resolved backend selection for the storage layer.
// It is built once from the environment and validated atomically; the
// storage layer never re-reads the environment per call.
type StorageConfig struct {
	Backend            string // "local" or "remote"
	DataDir            string
	Remote             RemoteConfig
	FallbackToLocal    bool
	DisableLocalSample bool
	SampleRowCap       int
}

// RemoteConfig holds the data-lake credentials. Account, Key and Container
// are required together; partial presence means remote is not configured.
type RemoteConfig struct {
	Account   string
	Key       string
	Container string
	BasePath  string
}

// Configured reports whether every required remote credential is present.
func (r RemoteConfig) Configured() bool {
	return r.Account != "" && r.Key != "" && r.Container != ""
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	PreviewTTLSeconds int
}

// Load reads the process environment (plus .env when present) into a single
// Config value. It never partially trusts a misconfigured remote backend:
// the storage layer treats incomplete credentials as "remote not configured".
func Load() *Config {
	_ = godotenv.Load()

	viper.SetDefault("STORAGE_BACKEND", "local")
	viper.SetDefault("DATA_DIR", "./data")
	viper.SetDefault("REMOTE_ACCOUNT", "")
	viper.SetDefault("REMOTE_KEY", "")
	viper.SetDefault("REMOTE_CONTAINER", "")
	viper.SetDefault("REMOTE_BASE_PATH", "data")
	viper.SetDefault("REMOTE_FALLBACK_TO_LOCAL", false)
	viper.SetDefault("DISABLE_LOCAL_SAMPLE", false)
	viper.SetDefault("DUAL_WRITE_SAMPLE_SIZE", strconv.Itoa(defaultSampleRowCap))
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_PREVIEW_TTL_SECONDS", 60)

	viper.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(viper.GetString("STORAGE_BACKEND")),
			DataDir: viper.GetString("DATA_DIR"),
			Remote: RemoteConfig{
				Account:   viper.GetString("REMOTE_ACCOUNT"),
				Key:       viper.GetString("REMOTE_KEY"),
				Container: viper.GetString("REMOTE_CONTAINER"),
				BasePath:  strings.Trim(viper.GetString("REMOTE_BASE_PATH"), "/"),
			},
			FallbackToLocal:    viper.GetBool("REMOTE_FALLBACK_TO_LOCAL"),
			DisableLocalSample: viper.GetBool("DISABLE_LOCAL_SAMPLE"),
			SampleRowCap:       sampleRowCap(viper.GetString("DUAL_WRITE_SAMPLE_SIZE")),
		},
		Cache: CacheConfig{
			Enabled:           viper.GetBool("CACHE_ENABLED"),
			RedisURL:          viper.GetString("REDIS_URL"),
			RedisHost:         viper.GetString("REDIS_HOST"),
			RedisPort:         viper.GetString("REDIS_PORT"),
			RedisPassword:     viper.GetString("REDIS_PASSWORD"),
			RedisDB:           viper.GetInt("REDIS_DB"),
			PreviewTTLSeconds: viper.GetInt("CACHE_PREVIEW_TTL_SECONDS"),
		},
	}
}

func sampleRowCap(raw string) int {
	cap, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || cap < 0 {
		log.Warn().Str("value", raw).Int("default", defaultSampleRowCap).
			Msg("invalid DUAL_WRITE_SAMPLE_SIZE, using default")
		return defaultSampleRowCap
	}
	return cap
}
