package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Coordinate is a WGS-84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String renders the coordinate as "lat,lng" with six decimals.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Valid reports whether c is a finite point on the globe.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Resolution is the outcome of geocoding one place name: either a coordinate
// or a confirmed absence. The zero value is Absent.
type Resolution struct {
	Coordinate Coordinate
	Found      bool
}

// Absent means no provider could confidently place the name.
var Absent = Resolution{}

// Resolved wraps a coordinate as a successful resolution.
func Resolved(c Coordinate) Resolution {
	return Resolution{Coordinate: c, Found: true}
}

// MarshalJSON encodes a found resolution as {"lat":..,"lng":..} and Absent as null.
func (r Resolution) MarshalJSON() ([]byte, error) {
	if !r.Found {
		return []byte("null"), nil
	}
	return json.Marshal(r.Coordinate)
}

// UnmarshalJSON accepts the shapes produced by MarshalJSON.
func (r *Resolution) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = Absent
		return nil
	}
	var c Coordinate
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("decode resolution: %w", err)
	}
	*r = Resolved(c)
	return nil
}

// PlaceQuery identifies one lookup in a batch. Name is used verbatim as the
// cache key; no case or diacritic normalization is applied.
type PlaceQuery struct {
	Name         string
	HintLocation string
	CountryCode  string
}
