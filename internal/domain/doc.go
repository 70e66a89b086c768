// Package domain holds the value types and small pure rules shared by the
// geocoding engine and the itinerary planner.
//
// # Resolutions
//
// A place name resolves to a [Resolution]: either a [Coordinate] or [Absent].
// Absent is a terminal outcome ("looked up, nothing plausible"), not an error,
// and it is distinct from a cache miss ("never looked up"). On the wire Absent
// is JSON null:
//
//	{"The Louvre": {"lat": 48.8606, "lng": 2.3376}, "Nowhere Cafe": null}
//
// # Plausibility
//
// Geocoding providers rank by text relevance, which happily places "Old Town"
// on another continent. Every candidate is therefore measured against the
// focus point (the geocoded destination) with [HaversineKm] and rejected when
// it lies beyond [PlausibilityFilter.RadiusKm], 200 km by default, roughly a
// metropolitan travel region. Without a focus point nothing is rejected.
//
// # Providers
//
// [Provider] is the single contract for every backend. Structured providers
// honour [ProviderQuery.Country] and [ProviderQuery.Focus]; free-text providers
// only read [ProviderQuery.Text]. Errors wrap [ErrProviderUnavailable].
//
// # Known limitation
//
// Place names are opaque keys. "Musée d'Orsay" and "Musee d'Orsay" are two
// cache entries and two lookups.
package domain
