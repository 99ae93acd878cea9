package appconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exusiai.dev/seqwindow/internal/app/appcontext"
)

func TestParseDefaults(t *testing.T) {
	conf, err := Parse(appcontext.Declare(appcontext.EnvCLI))
	require.NoError(t, err)

	assert.Equal(t, 20, conf.WindowLength)
	assert.Equal(t, 10, conf.Horizon)
	assert.Equal(t, 40, conf.MinSessionLength)
	assert.True(t, conf.Normalize)
	assert.Equal(t, "all", conf.NormScope)
	assert.Equal(t, FeatureList{"miss"}, conf.Tasks)
	assert.Empty(t, conf.Features)
	assert.Equal(t, 200, conf.MinExamples)
	assert.Equal(t, "fill", conf.GapPolicy)
	assert.Equal(t, appcontext.EnvCLI, conf.AppContext.Env)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("SEQWINDOW_WINDOW_LENGTH", "8")
	t.Setenv("SEQWINDOW_TASKS", "miss, acc ,,mini")
	t.Setenv("SEQWINDOW_NORMALIZE", "false")

	conf, err := Parse(appcontext.Declare(appcontext.EnvCLI))
	require.NoError(t, err)
	assert.Equal(t, 8, conf.WindowLength)
	assert.Equal(t, FeatureList{"miss", "acc", "mini"}, conf.Tasks)
	assert.False(t, conf.Normalize)
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Setenv("SEQWINDOW_HORIZON", "ten")
	_, err := Parse(appcontext.Declare(appcontext.EnvCLI))
	assert.Error(t, err)
}
