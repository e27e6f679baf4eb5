package timeutil_test

import (
	"testing"
	"time"

	"github.com/firewatch/firewatch/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	zones := []string{"UTC", "Asia/Shanghai", "America/New_York", "Australia/Sydney"}
	instants := []time.Time{
		time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}

	for _, zone := range zones {
		for _, x := range instants {
			local, err := timeutil.ToZone(x, zone)
			require.NoError(t, err)

			back, err := timeutil.ToUTC(local, zone)
			require.NoError(t, err)

			assert.True(t, back.Truncate(time.Second).Equal(x.Truncate(time.Second)),
				"round trip through %s: got %v want %v", zone, back, x)
		}
	}
}

func TestToZone_PreservesInstant(t *testing.T) {
	x := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	local, err := timeutil.ToZone(x, "Asia/Shanghai")
	require.NoError(t, err)

	assert.Equal(t, 20, local.Hour()) // UTC+8
	assert.True(t, local.Equal(x))    // same instant, different wall clock
}

func TestToZone_UnknownZone(t *testing.T) {
	_, err := timeutil.ToZone(time.Now(), "Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestLocalDate(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	// 23:30 UTC is already the next calendar day in UTC+8.
	x := time.Date(2025, 6, 15, 23, 30, 0, 0, time.UTC)
	d := timeutil.LocalDate(x, loc)

	assert.Equal(t, 16, d.Day())
	assert.Equal(t, 0, d.Hour())
}

func TestDayBounds(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	x := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	start, end := timeutil.DayBounds(x, loc)

	assert.Equal(t, 24*time.Hour, end.Sub(start))
	assert.False(t, x.Before(start))
	assert.True(t, x.Before(end))
}
