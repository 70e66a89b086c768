package domain

// DefaultPlausibilityRadiusKm bounds how far a place may sit from the focus
// point and still count as the same travel region.
const DefaultPlausibilityRadiusKm = 200.0

// PlausibilityFilter rejects candidates that land too far from the focus point.
type PlausibilityFilter struct {
	RadiusKm float64
}

// NewPlausibilityFilter returns a filter with the given radius, falling back
// to DefaultPlausibilityRadiusKm for non-positive values.
func NewPlausibilityFilter(radiusKm float64) PlausibilityFilter {
	if radiusKm <= 0 {
		radiusKm = DefaultPlausibilityRadiusKm
	}
	return PlausibilityFilter{RadiusKm: radiusKm}
}

// Accept reports whether candidate is within the radius of focus. With no
// focus point there is nothing to measure against, so every candidate passes.
func (f PlausibilityFilter) Accept(candidate Coordinate, focus Resolution) bool {
	if !focus.Found {
		return true
	}
	return HaversineKm(candidate, focus.Coordinate) <= f.RadiusKm
}
