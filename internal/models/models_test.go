package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRatingListAverage(t *testing.T) {
	require.Equal(t, 0.0, RatingList{}.Average())

	list := RatingList{{Score: 4}, {Score: 5}}
	require.Equal(t, 4.5, list.Average())

	// 11/3 = 3.666..., rounded to one decimal.
	list = RatingList{{Score: 3}, {Score: 4}, {Score: 4}}
	require.Equal(t, 3.7, list.Average())
}

func TestRatingListContainsReviewer(t *testing.T) {
	reviewer := uuid.New()
	list := RatingList{{ReviewerID: reviewer, Score: 5}}

	require.True(t, list.ContainsReviewer(reviewer))
	require.False(t, list.ContainsReviewer(uuid.New()))
}

func TestListingExpiry(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	listing := Listing{CreatedAt: createdAt, ShelfLifeHours: 5}

	require.Equal(t, createdAt.Add(5*time.Hour), listing.ExpiresAt())

	// Expiry is derived, never stored: the same listing flips as the clock
	// passes the shelf-life boundary.
	require.False(t, listing.Expired(createdAt.Add(4*time.Hour+59*time.Minute)))
	require.True(t, listing.Expired(createdAt.Add(5*time.Hour+time.Minute)))
}

func TestListingHasLocation(t *testing.T) {
	lat, lng := 13.6288, 79.4192

	require.True(t, (&Listing{Latitude: &lat, Longitude: &lng}).HasLocation())
	require.False(t, (&Listing{Latitude: &lat}).HasLocation())
	require.False(t, (&Listing{}).HasLocation())
}

func TestEnumValidity(t *testing.T) {
	require.True(t, RoleDonor.Valid())
	require.False(t, Role("admin").Valid())

	require.True(t, DietaryMixed.Valid())
	require.False(t, DietaryKind("spicy").Valid())
}
