package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/earthwork-discovery/internal/pkg/validator"
	"github.com/spf13/viper"
)

type Config struct {
	Data        DataConfig
	Pipeline    PipelineConfig
	Model       ModelConfig
	Backend     BackendConfig
	Narrative   NarrativeConfig
	Hydrography HydrographyConfig
	Results     ResultsConfig
	Redis       RedisConfig
	Server      ServerConfig
	Log         LogConfig
}

// DataConfig points at the input datasets and the output root.
type DataConfig struct {
	DTMFolder         string `validate:"required"`
	KMLPath           string `validate:"required"`
	HydrographyPath   string
	DeforestationPath string
	HLSFolder         string
	CopernicusFolder  string
	PriorityTiles     []string
	OutputDir         string `validate:"required"`
}

type PipelineConfig struct {
	RandomSeed        uint64
	PredictionStep    int     `validate:"min=1"`
	Threshold         float64 `validate:"gt=0,lt=1"`
	MergeDistanceKm   float64 `validate:"gt=0"`
	MinSiteDistanceKm float64 `validate:"gte=0"`
	MaskDeforested    bool
	MaxTiles          int `validate:"gte=0"`
	TopHotspots       int `validate:"min=1"`
	TemporalRows      int `validate:"min=1"`
	TemporalCols      int `validate:"min=1"`
}

// ModelConfig mirrors the gradient boosting hyperparameters.
type ModelConfig struct {
	NEstimators     int     `validate:"min=1"`
	LearningRate    float64 `validate:"gt=0,lte=1"`
	MaxDepth        int     `validate:"min=1,max=16"`
	MinChildWeight  float64 `validate:"gte=0"`
	Subsample       float64 `validate:"gt=0,lte=1"`
	ColsampleByTree float64 `validate:"gt=0,lte=1"`
	RegAlpha        float64 `validate:"gte=0"`
	RegLambda       float64 `validate:"gte=0"`
	TestFraction    float64 `validate:"gt=0,lt=1"`
	CVFolds         int     `validate:"min=2"`
}

type BackendConfig struct {
	Accelerate bool
	Workers    int `validate:"gte=0"`
}

type NarrativeConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type HydrographyConfig struct {
	OverpassURL     string
	OverpassTimeout time.Duration
}

// ResultsConfig describes the optional Postgres results store.
type ResultsConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	Stream   string

	// ConsumerGroup is the group the ingest worker reads Stream with.
	ConsumerGroup string
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type LogConfig struct {
	Level string
	File  string
}

// Load reads envFile when it exists and overlays process environment
// variables. A missing file is not an error.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	cfg := &Config{
		Data: DataConfig{
			DTMFolder:         v.GetString("FABDEM_DTM_FOLDER"),
			KMLPath:           v.GetString("GEOGLYPH_KML_PATH"),
			HydrographyPath:   v.GetString("HYDROGRAPHY_SHP_PATH"),
			DeforestationPath: v.GetString("PRODES_SHP_PATH"),
			HLSFolder:         v.GetString("NASA_HLS_FOLDER"),
			CopernicusFolder:  v.GetString("COPERNICUS_FOLDER"),
			PriorityTiles:     parseList(v.GetString("PRIORITY_TILES")),
			OutputDir:         v.GetString("OUTPUT_DIR"),
		},
		Pipeline: PipelineConfig{
			RandomSeed:        uint64(v.GetInt64("RANDOM_SEED")),
			PredictionStep:    v.GetInt("PREDICTION_STEP"),
			Threshold:         v.GetFloat64("PREDICTION_THRESHOLD"),
			MergeDistanceKm:   v.GetFloat64("HOTSPOT_MERGE_KM"),
			MinSiteDistanceKm: v.GetFloat64("HOTSPOT_MIN_SITE_KM"),
			MaskDeforested:    v.GetBool("MASK_DEFORESTED"),
			MaxTiles:          v.GetInt("MAX_TILES"),
			TopHotspots:       v.GetInt("TOP_HOTSPOTS"),
			TemporalRows:      v.GetInt("TEMPORAL_DEFAULT_ROWS"),
			TemporalCols:      v.GetInt("TEMPORAL_DEFAULT_COLS"),
		},
		Model: ModelConfig{
			NEstimators:     v.GetInt("MODEL_N_ESTIMATORS"),
			LearningRate:    v.GetFloat64("MODEL_LEARNING_RATE"),
			MaxDepth:        v.GetInt("MODEL_MAX_DEPTH"),
			MinChildWeight:  v.GetFloat64("MODEL_MIN_CHILD_WEIGHT"),
			Subsample:       v.GetFloat64("MODEL_SUBSAMPLE"),
			ColsampleByTree: v.GetFloat64("MODEL_COLSAMPLE_BYTREE"),
			RegAlpha:        v.GetFloat64("MODEL_REG_ALPHA"),
			RegLambda:       v.GetFloat64("MODEL_REG_LAMBDA"),
			TestFraction:    v.GetFloat64("MODEL_TEST_FRACTION"),
			CVFolds:         v.GetInt("MODEL_CV_FOLDS"),
		},
		Backend: BackendConfig{
			Accelerate: v.GetBool("ACCELERATE"),
			Workers:    v.GetInt("WORKERS"),
		},
		Narrative: NarrativeConfig{
			APIKey:  v.GetString("GENAI_API_KEY"),
			Model:   v.GetString("GENAI_MODEL"),
			Timeout: time.Duration(v.GetInt("GENAI_TIMEOUT")) * time.Second,
		},
		Hydrography: HydrographyConfig{
			OverpassURL:     v.GetString("OVERPASS_URL"),
			OverpassTimeout: time.Duration(v.GetInt("OVERPASS_TIMEOUT")) * time.Second,
		},
		Results: ResultsConfig{
			Enabled:         v.GetBool("RESULTS_DB_ENABLED"),
			Host:            v.GetString("RESULTS_DB_HOST"),
			Port:            v.GetInt("RESULTS_DB_PORT"),
			User:            v.GetString("RESULTS_DB_USER"),
			Password:        v.GetString("RESULTS_DB_PASSWORD"),
			DBName:          v.GetString("RESULTS_DB_NAME"),
			SSLMode:         v.GetString("RESULTS_DB_SSLMODE"),
			MaxConns:        v.GetInt("RESULTS_DB_MAX_CONNS"),
			MaxIdleConns:    v.GetInt("RESULTS_DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(v.GetInt("RESULTS_DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(v.GetInt("RESULTS_DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Stream:   v.GetString("REDIS_STREAM"),

			ConsumerGroup: v.GetString("REDIS_CONSUMER_GROUP"),
		},
		Server: ServerConfig{
			Host: v.GetString("API_HOST"),
			Port: v.GetInt("API_PORT"),
			Env:  v.GetString("API_ENV"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			File:  v.GetString("LOG_FILE"),
		},
	}

	applyDefaults(cfg, v)

	return cfg, nil
}

func applyDefaults(cfg *Config, v *viper.Viper) {
	if len(cfg.Data.PriorityTiles) == 0 {
		cfg.Data.PriorityTiles = []string{"T20LKP", "T20LKR", "T20LLQ"}
	}
	if cfg.Data.OutputDir == "" {
		cfg.Data.OutputDir = "outputs"
	}

	if !v.IsSet("RANDOM_SEED") {
		cfg.Pipeline.RandomSeed = 42
	}
	if cfg.Pipeline.PredictionStep == 0 {
		cfg.Pipeline.PredictionStep = 10
	}
	if cfg.Pipeline.Threshold == 0 {
		cfg.Pipeline.Threshold = 0.5
	}
	if cfg.Pipeline.MergeDistanceKm == 0 {
		cfg.Pipeline.MergeDistanceKm = 1.0
	}
	if !v.IsSet("HOTSPOT_MIN_SITE_KM") {
		cfg.Pipeline.MinSiteDistanceKm = 0.5
	}
	if cfg.Pipeline.TopHotspots == 0 {
		cfg.Pipeline.TopHotspots = 20
	}
	if cfg.Pipeline.TemporalRows == 0 {
		cfg.Pipeline.TemporalRows = 100
	}
	if cfg.Pipeline.TemporalCols == 0 {
		cfg.Pipeline.TemporalCols = 100
	}

	if cfg.Model.NEstimators == 0 {
		cfg.Model.NEstimators = 100
	}
	if cfg.Model.LearningRate == 0 {
		cfg.Model.LearningRate = 0.01
	}
	if cfg.Model.MaxDepth == 0 {
		cfg.Model.MaxDepth = 3
	}
	if !v.IsSet("MODEL_MIN_CHILD_WEIGHT") {
		cfg.Model.MinChildWeight = 5
	}
	if cfg.Model.Subsample == 0 {
		cfg.Model.Subsample = 0.8
	}
	if cfg.Model.ColsampleByTree == 0 {
		cfg.Model.ColsampleByTree = 0.8
	}
	if !v.IsSet("MODEL_REG_ALPHA") {
		cfg.Model.RegAlpha = 0.1
	}
	if !v.IsSet("MODEL_REG_LAMBDA") {
		cfg.Model.RegLambda = 1.0
	}
	if cfg.Model.TestFraction == 0 {
		cfg.Model.TestFraction = 0.2
	}
	if cfg.Model.CVFolds == 0 {
		cfg.Model.CVFolds = 5
	}

	if !v.IsSet("ACCELERATE") {
		cfg.Backend.Accelerate = true
	}

	if cfg.Narrative.Model == "" {
		cfg.Narrative.Model = "gemini-2.0-flash"
	}
	if cfg.Narrative.Timeout == 0 {
		cfg.Narrative.Timeout = 60 * time.Second
	}

	if cfg.Hydrography.OverpassTimeout == 0 {
		cfg.Hydrography.OverpassTimeout = 60 * time.Second
	}

	if cfg.Results.Port == 0 {
		cfg.Results.Port = 5432
	}
	if cfg.Results.SSLMode == "" {
		cfg.Results.SSLMode = "disable"
	}
	if cfg.Results.MaxConns == 0 {
		cfg.Results.MaxConns = 10
	}
	if cfg.Results.MaxIdleConns == 0 {
		cfg.Results.MaxIdleConns = 2
	}

	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.Stream == "" {
		cfg.Redis.Stream = "stream:discovery:done"
	}
	if cfg.Redis.ConsumerGroup == "" {
		cfg.Redis.ConsumerGroup = "discovery-ingest"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "discovery.log"
	}
}

// Validate checks the required paths and numeric ranges.
func (c *Config) Validate() error {
	for _, section := range []interface{}{&c.Data, &c.Pipeline, &c.Model, &c.Backend} {
		if err := validator.Validate(section); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	if _, err := os.Stat(c.Data.DTMFolder); err != nil {
		return fmt.Errorf("invalid configuration: FABDEM_DTM_FOLDER: %w", err)
	}
	if _, err := os.Stat(c.Data.KMLPath); err != nil {
		return fmt.Errorf("invalid configuration: GEOGLYPH_KML_PATH: %w", err)
	}
	return nil
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DSN is the key/value connection string understood by pgx and lib/pq.
func (c *ResultsConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.DBName,
		c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
