package models

import (
	"sort"
	"time"
)

// Venue represents an event venue aggregated from the places provider and
// curated data entry. PlaceID is the upsert identity: re-importing the same
// provider result updates the existing record.
type Venue struct {
	ID      string `json:"id" badgerhold:"key"`
	PlaceID string `json:"place_id" badgerhold:"unique"`

	Name    string `json:"name"`
	Address string `json:"address"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Optional provider fields. Absence is meaningful: a venue with no
	// rating is not a venue rated 0.
	Rating      *float64 `json:"rating,omitempty"`
	PriceLevel  *int     `json:"price_level,omitempty"`
	PhoneNumber *string  `json:"phone_number,omitempty"`
	Website     *string  `json:"website,omitempty"`

	PhotoRefs []string `json:"photo_refs,omitempty"`
	Types     []string `json:"types,omitempty"`

	// Curated fields, never populated from the provider. Upserts from
	// provider data must preserve these.
	Capacity    *int    `json:"capacity,omitempty"`
	Description *string `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VenueSummary is the compact shape carried in tool results and streamed to
// clients. Coordinates are included so the map view needs no second fetch.
type VenueSummary struct {
	ID         string   `json:"id"`
	PlaceID    string   `json:"place_id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Rating     *float64 `json:"rating,omitempty"`
	PriceLevel *int     `json:"price_level,omitempty"`
	Website    *string  `json:"website,omitempty"`
}

// Summary returns the compact representation of a venue
func (v *Venue) Summary() VenueSummary {
	return VenueSummary{
		ID:         v.ID,
		PlaceID:    v.PlaceID,
		Name:       v.Name,
		Address:    v.Address,
		Latitude:   v.Latitude,
		Longitude:  v.Longitude,
		Rating:     v.Rating,
		PriceLevel: v.PriceLevel,
		Website:    v.Website,
	}
}

// SearchContext is the geographic frame a chat session operates in.
// Immutable for the life of the session.
type SearchContext struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radius_km"`
	Location  string  `json:"location"` // Human-readable place name, e.g. "Brooklyn, NY"
}

// VenueFilter holds criteria for querying stored venues. Nil fields mean
// "no constraint". Venues missing the data a criterion examines are kept,
// not excluded.
type VenueFilter struct {
	MinRating     *float64 `json:"min_rating,omitempty"`
	MaxPriceLevel *int     `json:"max_price_level,omitempty"`
	MinCapacity   *int     `json:"min_capacity,omitempty"`
	VenueTypes    []string `json:"venue_types,omitempty"`
	TextTerm      string   `json:"text_term,omitempty"`
}

// SortVenuesByRating orders venues by rating descending, venues without a
// rating last. The sort is stable so equal ratings keep their relative order.
func SortVenuesByRating(venues []VenueSummary) {
	sort.SliceStable(venues, func(i, j int) bool {
		return ratingOf(venues[i]) > ratingOf(venues[j])
	})
}

func ratingOf(v VenueSummary) float64 {
	if v.Rating == nil {
		return 0
	}
	return *v.Rating
}
