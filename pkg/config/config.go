package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Analytics AnalyticsConfig
	Export    ExportConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes the timetable generation engine.
type SchedulerConfig struct {
	PopulationSize           int
	Generations              int
	MutationRate             float64
	CrossoverRate            float64
	TournamentSize           int
	EliteSize                int
	ConvergenceThreshold     float64
	MaxExecutionTime         time.Duration
	MaxConcurrentGenerations int
	AsyncWorkers             int
	AsyncBufferSize          int
}

// AnalyticsConfig governs cache behaviour and scoring presentation for
// timetable analytics.
type AnalyticsConfig struct {
	Enabled                bool
	CacheTTL               time.Duration
	GradeA                 float64
	GradeB                 float64
	GradeC                 float64
	GradeD                 float64
	UnderutilizedThreshold int
}

// ExportConfig toggles timetable export endpoints.
type ExportConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		PopulationSize:           v.GetInt("SCHEDULER_POPULATION_SIZE"),
		Generations:              v.GetInt("SCHEDULER_GENERATIONS"),
		MutationRate:             v.GetFloat64("SCHEDULER_MUTATION_RATE"),
		CrossoverRate:            v.GetFloat64("SCHEDULER_CROSSOVER_RATE"),
		TournamentSize:           v.GetInt("SCHEDULER_TOURNAMENT_SIZE"),
		EliteSize:                v.GetInt("SCHEDULER_ELITE_SIZE"),
		ConvergenceThreshold:     v.GetFloat64("SCHEDULER_CONVERGENCE_THRESHOLD"),
		MaxExecutionTime:         parseDuration(v.GetString("SCHEDULER_MAX_EXECUTION_TIME"), time.Hour),
		MaxConcurrentGenerations: v.GetInt("SCHEDULER_MAX_CONCURRENT_GENERATIONS"),
		AsyncWorkers:             v.GetInt("SCHEDULER_ASYNC_WORKERS"),
		AsyncBufferSize:          v.GetInt("SCHEDULER_ASYNC_BUFFER_SIZE"),
	}

	cfg.Analytics = AnalyticsConfig{
		Enabled:                v.GetBool("ENABLE_ANALYTICS_CACHE"),
		CacheTTL:               parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 10*time.Minute),
		GradeA:                 v.GetFloat64("ANALYTICS_GRADE_A"),
		GradeB:                 v.GetFloat64("ANALYTICS_GRADE_B"),
		GradeC:                 v.GetFloat64("ANALYTICS_GRADE_C"),
		GradeD:                 v.GetFloat64("ANALYTICS_GRADE_D"),
		UnderutilizedThreshold: v.GetInt("ANALYTICS_UNDERUTILIZED_THRESHOLD"),
	}

	cfg.Export = ExportConfig{
		Enabled: v.GetBool("ENABLE_TIMETABLE_EXPORT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable_engine")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_POPULATION_SIZE", 50)
	v.SetDefault("SCHEDULER_GENERATIONS", 100)
	v.SetDefault("SCHEDULER_MUTATION_RATE", 0.1)
	v.SetDefault("SCHEDULER_CROSSOVER_RATE", 0.8)
	v.SetDefault("SCHEDULER_TOURNAMENT_SIZE", 3)
	v.SetDefault("SCHEDULER_ELITE_SIZE", 5)
	v.SetDefault("SCHEDULER_CONVERGENCE_THRESHOLD", 0.01)
	v.SetDefault("SCHEDULER_MAX_EXECUTION_TIME", "1h")
	v.SetDefault("SCHEDULER_MAX_CONCURRENT_GENERATIONS", 2)
	v.SetDefault("SCHEDULER_ASYNC_WORKERS", 2)
	v.SetDefault("SCHEDULER_ASYNC_BUFFER_SIZE", 8)

	v.SetDefault("ENABLE_ANALYTICS_CACHE", false)
	v.SetDefault("ANALYTICS_CACHE_TTL", "10m")
	v.SetDefault("ANALYTICS_GRADE_A", 90)
	v.SetDefault("ANALYTICS_GRADE_B", 80)
	v.SetDefault("ANALYTICS_GRADE_C", 70)
	v.SetDefault("ANALYTICS_GRADE_D", 60)
	v.SetDefault("ANALYTICS_UNDERUTILIZED_THRESHOLD", 8)

	v.SetDefault("ENABLE_TIMETABLE_EXPORT", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
