package domain

import (
	"math"
	"strconv"
)

const earthRadiusMiles = 3958.8

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Key returns a stable string form used for cache and matrix lookups.
// Five decimals is roughly one metre of precision.
func (c Coordinates) Key() string {
	return strconv.FormatFloat(c.Lat, 'f', 5, 64) + "," + strconv.FormatFloat(c.Lon, 'f', 5, 64)
}

// Great-circle distance in miles.
func (c Coordinates) HaversineMiles(o Coordinates) float64 {
	lat1 := c.Lat * math.Pi / 180
	lat2 := o.Lat * math.Pi / 180
	dLat := (o.Lat - c.Lat) * math.Pi / 180
	dLon := (o.Lon - c.Lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Interpolate returns the point at fraction f (0..1) of the straight line to o.
// Good enough for placing overnight rest stops along a leg.
func (c Coordinates) Interpolate(o Coordinates, f float64) Coordinates {
	return Coordinates{
		Lon: c.Lon + (o.Lon-c.Lon)*f,
		Lat: c.Lat + (o.Lat-c.Lat)*f,
	}
}

// Centroid returns the arithmetic mean of the given points.
func Centroid(points []Coordinates) Coordinates {
	if len(points) == 0 {
		return Coordinates{}
	}

	var sumLon, sumLat float64
	for _, p := range points {
		sumLon += p.Lon
		sumLat += p.Lat
	}
	n := float64(len(points))
	return Coordinates{Lon: sumLon / n, Lat: sumLat / n}
}
