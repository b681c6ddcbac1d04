package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want error
	}{
		{"origin", Point{0, 0}, nil},
		{"poles and antimeridian", Point{90, -180}, nil},
		{"lat too high", Point{90.01, 0}, ErrLatitudeRange},
		{"lat too low", Point{-500, 0}, ErrLatitudeRange},
		{"lng too high", Point{0, 180.5}, ErrLongitudeRange},
		{"both bad reports latitude", Point{500, 500}, ErrLatitudeRange},
		{"nan", Point{math.NaN(), 0}, ErrLatitudeRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Validate())
		})
	}
}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0, Haversine(Point{10, 10}, Point{10, 10}), 1e-9)

	// One degree of latitude is ~111.19 km on a 6371 km sphere.
	assert.InDelta(t, 111.19, Haversine(Point{0, 0}, Point{1, 0}), 0.01)
}

func TestNearestSea(t *testing.T) {
	// Istanbul sits between the Black Sea and Marmara references.
	sea, km, ok := NearestSea(Point{Lat: 41.0082, Lng: 28.9784}, KnownSeas)
	require.True(t, ok)
	assert.Equal(t, "Sea of Marmara", sea.Name)
	assert.Less(t, km, 50.0)

	sea, _, ok = NearestSea(Point{Lat: 38.42, Lng: 27.14}, KnownSeas)
	require.True(t, ok)
	assert.Equal(t, "Aegean Sea", sea.Name)

	_, _, ok = NearestSea(Point{}, nil)
	assert.False(t, ok)
}

func TestSolarDistance(t *testing.T) {
	d, err := SolarDistance(Point{Lat: 45, Lng: 10})
	require.NoError(t, err)
	assert.InDelta(t, AverageSunDistanceKm-50000, d, 1e-6)

	_, err = SolarDistance(Point{Lat: 0, Lng: 500})
	assert.ErrorIs(t, err, ErrLongitudeRange)
}
