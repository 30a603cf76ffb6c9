package domain

import "fmt"

// Coordinates locate a geocoded depot or customer.
type Coordinates struct {
	Lon float64
	Lat float64
}

// CoordinatesFromLonLat validates a GeoJSON [lon, lat] pair.
func CoordinatesFromLonLat(pair []float64) (Coordinates, error) {
	if len(pair) != 2 {
		return Coordinates{}, fmt.Errorf("coordinates: want [lon, lat], got %d values", len(pair))
	}
	c := Coordinates{Lon: pair[0], Lat: pair[1]}
	if c.Lon < -180 || c.Lon > 180 || c.Lat < -90 || c.Lat > 90 {
		return Coordinates{}, fmt.Errorf("coordinates: [%g, %g] out of range", c.Lon, c.Lat)
	}
	return c, nil
}

// LonLat is the GeoJSON order routing requests use.
func (c Coordinates) LonLat() []float64 { return []float64{c.Lon, c.Lat} }
