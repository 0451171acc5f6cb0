package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo(t *testing.T) {
	ref := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	info, err := GetTriggerInfo("0 3 * * *", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC), info.Last)
	assert.Equal(t, 12*time.Hour+30*time.Minute, info.TimeSinceLast)
	assert.Equal(t, 11*time.Hour+30*time.Minute, info.TimeUntilNext)
}

func TestGetTriggerInfo_Descriptor(t *testing.T) {
	ref := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	info, err := GetTriggerInfo("@daily", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), info.Next)
}

func TestGetTriggerInfo_LastAtReference(t *testing.T) {
	ref := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	info, err := GetTriggerInfo("*/15 * * * *", ref)
	require.NoError(t, err)
	assert.Equal(t, ref, info.Last)
	assert.Equal(t, ref.Add(15*time.Minute), info.Next)
}

func TestGetTriggerInfo_NoRecentActivation(t *testing.T) {
	ref := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	// February 30th never happens
	info, err := GetTriggerInfo("0 0 30 2 *", ref)
	require.NoError(t, err)
	assert.True(t, info.Last.IsZero())
	assert.Zero(t, info.TimeSinceLast)
}

func TestGetTriggerInfo_Invalid(t *testing.T) {
	_, err := GetTriggerInfo("not a cron", time.Now())
	assert.Error(t, err)

	_, err = GetTriggerInfo("0 0 3 * * *", time.Now())
	assert.Error(t, err, "six-field expressions are not accepted")
}
