package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaultsCoverEngineSettings(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, 30*time.Second, cfg.Optimizer.Timeout)
	assert.Equal(t, []string{"MON", "TUE", "WED", "THU", "FRI"}, cfg.Generation.Days)
	assert.Equal(t, []float64{15, 10, 5}, cfg.Resolver.ProximityPoints)
	assert.Equal(t, 5, cfg.Resolver.Limit)
	assert.Equal(t, "tournament", cfg.Solver.Selection)
	assert.Equal(t, 1, cfg.Solver.EliteCount)
	assert.False(t, cfg.Solver.StrictAvailability)
}

func TestOverridesFromEnv(t *testing.T) {
	t.Setenv("SOLVER_SEED", "42")
	t.Setenv("SOLVER_STRICT_AVAILABILITY", "true")
	t.Setenv("OPTIMIZER_TIMEOUT", "bogus")
	t.Setenv("GENERATION_DAYS", "MON, WED ,")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, int64(42), cfg.Solver.Seed)
	assert.True(t, cfg.Solver.StrictAvailability)
	assert.Equal(t, 30*time.Second, cfg.Optimizer.Timeout)
	assert.Equal(t, []string{"MON", "WED"}, cfg.Generation.Days)
}
