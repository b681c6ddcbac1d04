// Package geo holds the coordinate math behind the distance-to-sun and
// nearest-sea pages: coordinate validation, great-circle distance and the
// simplified solar distance model.
package geo

import (
	"errors"
	"math"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// AverageSunDistanceKm is the mean Earth-Sun distance.
const AverageSunDistanceKm = 149600000.0

var (
	ErrLatitudeRange  = errors.New("latitude out of range")
	ErrLongitudeRange = errors.New("longitude out of range")
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Validate checks latitude before longitude.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return ErrLatitudeRange
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return ErrLongitudeRange
	}
	return nil
}

// Sea is a named reference point on a sea surface.
type Sea struct {
	Name string
	Point
}

// KnownSeas are the reference seas the nearest-sea page measures against.
var KnownSeas = []Sea{
	{Name: "Black Sea", Point: Point{Lat: 41.225, Lng: 29.1597}},
	{Name: "Sea of Marmara", Point: Point{Lat: 40.9631, Lng: 28.7224}},
	{Name: "Mediterranean Sea", Point: Point{Lat: 35.5501, Lng: 23.9871}},
	{Name: "Eastern Mediterranean", Point: Point{Lat: 34.559, Lng: 33.575}},
	{Name: "Aegean Sea", Point: Point{Lat: 38.4339, Lng: 27.1444}},
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// NearestSea returns the closest of seas to p and its distance in km.
// Ties keep the earlier sea. ok is false when seas is empty.
func NearestSea(p Point, seas []Sea) (sea Sea, km float64, ok bool) {
	for i, s := range seas {
		d := Haversine(p, s.Point)
		if i == 0 || d < km {
			sea, km, ok = s, d, true
		}
	}
	return sea, km, ok
}

// SolarDistance is the simplified latitude-adjusted distance to the sun in km.
func SolarDistance(p Point) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return AverageSunDistanceKm - (p.Lat/90.0)*100000, nil
}
