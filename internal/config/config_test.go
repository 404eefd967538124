package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("missing env file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
		require.NoError(t, err)

		assert.Equal(t, []string{"T20LKP", "T20LKR", "T20LLQ"}, cfg.Data.PriorityTiles)
		assert.Equal(t, uint64(42), cfg.Pipeline.RandomSeed)
		assert.Equal(t, 0.5, cfg.Pipeline.Threshold)
		assert.Equal(t, 100, cfg.Pipeline.TemporalRows)
		assert.Equal(t, 100, cfg.Model.NEstimators)
		assert.Equal(t, 0.01, cfg.Model.LearningRate)
		assert.Equal(t, 3, cfg.Model.MaxDepth)
		assert.Equal(t, 5.0, cfg.Model.MinChildWeight)
		assert.Equal(t, 0.1, cfg.Model.RegAlpha)
		assert.Equal(t, 1.0, cfg.Model.RegLambda)
		assert.Equal(t, "stream:discovery:done", cfg.Redis.Stream)
		assert.Equal(t, "discovery-ingest", cfg.Redis.ConsumerGroup)
		assert.Equal(t, 60*time.Second, cfg.Narrative.Timeout)
	})

	t.Run("env file values are read", func(t *testing.T) {
		dir := t.TempDir()
		envFile := filepath.Join(dir, ".env")
		content := "FABDEM_DTM_FOLDER=/data/dtm\n" +
			"GEOGLYPH_KML_PATH=/data/sites.kml\n" +
			"PRIORITY_TILES=T19LHJ, T20LKP\n" +
			"MODEL_MAX_DEPTH=5\n" +
			"RANDOM_SEED=7\n" +
			"API_PORT=9090\n"
		require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

		cfg, err := Load(envFile)
		require.NoError(t, err)

		assert.Equal(t, "/data/dtm", cfg.Data.DTMFolder)
		assert.Equal(t, "/data/sites.kml", cfg.Data.KMLPath)
		assert.Equal(t, []string{"T19LHJ", "T20LKP"}, cfg.Data.PriorityTiles)
		assert.Equal(t, 5, cfg.Model.MaxDepth)
		assert.Equal(t, uint64(7), cfg.Pipeline.RandomSeed)
		assert.Equal(t, ":9090", cfg.GetServerAddr())
	})
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	kml := filepath.Join(dir, "sites.kml")
	require.NoError(t, os.WriteFile(kml, []byte("<kml/>"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Data.DTMFolder = dir
	cfg.Data.KMLPath = kml

	require.NoError(t, cfg.Validate())

	t.Run("missing dtm folder", func(t *testing.T) {
		bad := *cfg
		bad.Data.DTMFolder = filepath.Join(dir, "nope")
		assert.Error(t, bad.Validate())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		bad := *cfg
		bad.Pipeline.Threshold = 1.5
		assert.Error(t, bad.Validate())
	})

	t.Run("required kml path", func(t *testing.T) {
		bad := *cfg
		bad.Data.KMLPath = ""
		assert.Error(t, bad.Validate())
	})
}

func TestConnectionStrings(t *testing.T) {
	results := ResultsConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "discovery", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=discovery sslmode=disable", results.DSN())

	r := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", r.Addr())
}
