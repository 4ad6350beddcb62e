package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/statarb/config"
)

func TestApplyOverrides(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	require.NoError(t, applyOverrides(cfg, cliOverrides{verbose: true, format: "json", top: 10, days: 30}))
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 10, cfg.Fetch.TopN)
	assert.Equal(t, 30, cfg.Fetch.LookbackDays)
}

func TestApplyOverrides_RejectsUnknownFormat(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	err = applyOverrides(cfg, cliOverrides{format: "jsn"})
	assert.ErrorContains(t, err, `log.format "jsn"`)
}
