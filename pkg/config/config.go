package config

import (
	"errors"
	"io/fs"
	"strconv"
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

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Log        LogConfig
	Optimizer  OptimizerConfig
	Solver     SolverConfig
	Resolver   ResolverConfig
	Generation GenerationConfig
	Notifier   NotifierConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type LogConfig struct {
	Level  string
	Format string
}

// OptimizerConfig points at the external optimisation service. An empty URL disables it.
type OptimizerConfig struct {
	URL     string
	Timeout time.Duration
}

// SolverConfig carries the genetic algorithm tuning knobs.
type SolverConfig struct {
	PopulationSize     int
	MaxGenerations     int
	StallGenerations   int
	MutationRate       float64
	CrossoverRate      float64
	Crossover          string
	Selection          string
	TournamentSize     int
	EliteCount         int
	InitBias           float64
	Seed               int64
	Workers            int
	StrictAvailability bool
	HardWeight         float64
	CapacityWeight     float64
	AvailabilityWeight float64
	DistributionWeight float64
}

// ResolverConfig carries the point table used to rank alternative placements.
type ResolverConfig struct {
	AvailabilityPoints float64
	CapacityPoints     float64
	ProximityPoints    []float64
	SameDayPoints      float64
	SameBuildingPoints float64
	Limit              int
}

// GenerationConfig controls the asynchronous generation pipeline.
type GenerationConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	LockTTL    time.Duration
	StatusTTL  time.Duration
	Days       []string
}

// NotifierConfig configures the AMQP publisher for optimiser degradation events.
type NotifierConfig struct {
	AMQPURL        string
	Queue          string
	PublishTimeout time.Duration
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Optimizer = OptimizerConfig{
		URL:     v.GetString("OPTIMIZER_URL"),
		Timeout: parseDuration(v.GetString("OPTIMIZER_TIMEOUT"), 30*time.Second),
	}

	cfg.Solver = SolverConfig{
		PopulationSize:     v.GetInt("SOLVER_POPULATION_SIZE"),
		MaxGenerations:     v.GetInt("SOLVER_MAX_GENERATIONS"),
		StallGenerations:   v.GetInt("SOLVER_STALL_GENERATIONS"),
		MutationRate:       v.GetFloat64("SOLVER_MUTATION_RATE"),
		CrossoverRate:      v.GetFloat64("SOLVER_CROSSOVER_RATE"),
		Crossover:          v.GetString("SOLVER_CROSSOVER"),
		Selection:          v.GetString("SOLVER_SELECTION"),
		TournamentSize:     v.GetInt("SOLVER_TOURNAMENT_SIZE"),
		EliteCount:         v.GetInt("SOLVER_ELITE_COUNT"),
		InitBias:           v.GetFloat64("SOLVER_INIT_BIAS"),
		Seed:               v.GetInt64("SOLVER_SEED"),
		Workers:            v.GetInt("SOLVER_WORKERS"),
		StrictAvailability: v.GetBool("SOLVER_STRICT_AVAILABILITY"),
		HardWeight:         v.GetFloat64("SOLVER_HARD_WEIGHT"),
		CapacityWeight:     v.GetFloat64("SOLVER_CAPACITY_WEIGHT"),
		AvailabilityWeight: v.GetFloat64("SOLVER_AVAILABILITY_WEIGHT"),
		DistributionWeight: v.GetFloat64("SOLVER_DISTRIBUTION_WEIGHT"),
	}

	cfg.Resolver = ResolverConfig{
		AvailabilityPoints: v.GetFloat64("RESOLVER_AVAILABILITY_POINTS"),
		CapacityPoints:     v.GetFloat64("RESOLVER_CAPACITY_POINTS"),
		ProximityPoints:    parseFloats(v.GetString("RESOLVER_PROXIMITY_POINTS")),
		SameDayPoints:      v.GetFloat64("RESOLVER_SAME_DAY_POINTS"),
		SameBuildingPoints: v.GetFloat64("RESOLVER_SAME_BUILDING_POINTS"),
		Limit:              v.GetInt("RESOLVER_LIMIT"),
	}

	cfg.Generation = GenerationConfig{
		Workers:    v.GetInt("GENERATION_WORKERS"),
		BufferSize: v.GetInt("GENERATION_BUFFER_SIZE"),
		MaxRetries: v.GetInt("GENERATION_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("GENERATION_RETRY_DELAY"), 5*time.Second),
		LockTTL:    parseDuration(v.GetString("GENERATION_LOCK_TTL"), 10*time.Minute),
		StatusTTL:  parseDuration(v.GetString("GENERATION_STATUS_TTL"), 24*time.Hour),
		Days:       splitAndTrim(v.GetString("GENERATION_DAYS")),
	}

	cfg.Notifier = NotifierConfig{
		AMQPURL:        v.GetString("NOTIFIER_AMQP_URL"),
		Queue:          v.GetString("NOTIFIER_QUEUE"),
		PublishTimeout: parseDuration(v.GetString("NOTIFIER_PUBLISH_TIMEOUT"), 5*time.Second),
	}

	return cfg
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
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("OPTIMIZER_URL", "")
	v.SetDefault("OPTIMIZER_TIMEOUT", "30s")

	v.SetDefault("SOLVER_POPULATION_SIZE", 100)
	v.SetDefault("SOLVER_MAX_GENERATIONS", 500)
	v.SetDefault("SOLVER_STALL_GENERATIONS", 50)
	v.SetDefault("SOLVER_MUTATION_RATE", 0.02)
	v.SetDefault("SOLVER_CROSSOVER_RATE", 0.9)
	v.SetDefault("SOLVER_CROSSOVER", "two_point")
	v.SetDefault("SOLVER_SELECTION", "tournament")
	v.SetDefault("SOLVER_TOURNAMENT_SIZE", 3)
	v.SetDefault("SOLVER_ELITE_COUNT", 1)
	v.SetDefault("SOLVER_INIT_BIAS", 0.8)
	v.SetDefault("SOLVER_SEED", 0)
	v.SetDefault("SOLVER_WORKERS", 1)
	v.SetDefault("SOLVER_STRICT_AVAILABILITY", false)
	v.SetDefault("SOLVER_HARD_WEIGHT", 1000)
	v.SetDefault("SOLVER_CAPACITY_WEIGHT", 1000)
	v.SetDefault("SOLVER_AVAILABILITY_WEIGHT", 10)
	v.SetDefault("SOLVER_DISTRIBUTION_WEIGHT", 1)

	v.SetDefault("RESOLVER_AVAILABILITY_POINTS", 30)
	v.SetDefault("RESOLVER_CAPACITY_POINTS", 20)
	v.SetDefault("RESOLVER_PROXIMITY_POINTS", "15,10,5")
	v.SetDefault("RESOLVER_SAME_DAY_POINTS", 10)
	v.SetDefault("RESOLVER_SAME_BUILDING_POINTS", 5)
	v.SetDefault("RESOLVER_LIMIT", 5)

	v.SetDefault("GENERATION_WORKERS", 2)
	v.SetDefault("GENERATION_BUFFER_SIZE", 16)
	v.SetDefault("GENERATION_MAX_RETRIES", 3)
	v.SetDefault("GENERATION_RETRY_DELAY", "5s")
	v.SetDefault("GENERATION_LOCK_TTL", "10m")
	v.SetDefault("GENERATION_STATUS_TTL", "24h")
	v.SetDefault("GENERATION_DAYS", "MON,TUE,WED,THU,FRI")

	v.SetDefault("NOTIFIER_AMQP_URL", "")
	v.SetDefault("NOTIFIER_QUEUE", "timetable_optimizer_events")
	v.SetDefault("NOTIFIER_PUBLISH_TIMEOUT", "5s")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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

func parseFloats(raw string) []float64 {
	parts := splitAndTrim(raw)
	result := make([]float64, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseFloat(part, 64)
		if err != nil {
			continue
		}
		result = append(result, value)
	}
	return result
}
