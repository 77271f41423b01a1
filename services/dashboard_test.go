package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillRevenue(t *testing.T) {
	r := LastDays(time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC), 4)
	points := FillRevenue(r, map[string]float64{
		"2023-12-30": 100,
		"2024-01-02": 42.5,
		"2023-11-01": 999,
	})
	require.Len(t, points, 4)
	assert.Equal(t, "2023-12-30", points[0].Date)
	assert.Equal(t, "Dec 30", points[0].Name)
	assert.Equal(t, 100.0, points[0].Revenue)
	assert.Equal(t, 0.0, points[1].Revenue)
	assert.Equal(t, 0.0, points[2].Revenue)
	assert.Equal(t, "Jan 2", points[3].Name)
	assert.Equal(t, 42.5, points[3].Revenue)
}

func TestFillRevenueEmpty(t *testing.T) {
	points := FillRevenue(LastDays(time.Now(), 3), nil)
	require.Len(t, points, 3)
	for _, p := range points {
		assert.Zero(t, p.Revenue)
	}
}
