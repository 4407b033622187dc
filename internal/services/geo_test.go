package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHaversineDistanceKm(t *testing.T) {
	// Two points a couple of blocks apart in Tirupati.
	d := HaversineDistanceKm(13.6288, 79.4192, 13.6300, 79.4200)
	require.InDelta(t, 0.16, d, 0.01)

	// Chennai to Bengaluru, roughly 290 km as the crow flies.
	d = HaversineDistanceKm(13.0827, 80.2707, 12.9716, 77.5946)
	require.InDelta(t, 290, d, 5)
}

func TestHaversineDistanceKmSamePoint(t *testing.T) {
	require.Equal(t, 0.0, HaversineDistanceKm(13.6288, 79.4192, 13.6288, 79.4192))
}

func TestHaversineDistanceKmSymmetric(t *testing.T) {
	a := HaversineDistanceKm(13.6288, 79.4192, 12.9716, 77.5946)
	b := HaversineDistanceKm(12.9716, 77.5946, 13.6288, 79.4192)
	require.Equal(t, a, b)
}
