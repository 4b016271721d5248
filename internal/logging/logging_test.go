package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud", Format: "json", Output: &bytes.Buffer{}}, nil)
	assert.Error(t, err)
}

func TestTracker_CountsOnlyErrors(t *testing.T) {
	var buf bytes.Buffer
	tracker := &Tracker{}

	log, err := New(Config{Level: "debug", Format: "json", Output: &buf}, tracker)
	require.NoError(t, err)

	log.Info().Msg("fetched users")
	log.Warn().Msg("description truncated")
	assert.False(t, tracker.Errored())

	log.Error().Msg("sections fetch failed")
	log.Error().Msg("grades fetch failed")
	assert.True(t, tracker.Errored())
	assert.EqualValues(t, 2, tracker.Count())
}

func TestTracker_RespectsLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	tracker := &Tracker{}

	// Events below the logger level never reach hooks.
	log, err := New(Config{Level: "error", Format: "json", Output: &buf}, tracker)
	require.NoError(t, err)

	log.Warn().Msg("not an error")
	assert.False(t, tracker.Errored())
}
