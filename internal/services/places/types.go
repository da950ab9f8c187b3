package places

import (
	"fmt"
)

// ProviderError reports an upstream places API failure
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("places provider error: status %d: %s", e.StatusCode, e.Message)
}

// searchTextRequest is the request body for the Places API (New) text search
type searchTextRequest struct {
	TextQuery    string       `json:"textQuery"`
	LocationBias locationBias `json:"locationBias"`
	MaxResults   int          `json:"maxResultCount"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// searchTextResponse is the response envelope for the text search
type searchTextResponse struct {
	Places []placeResult `json:"places"`
}

// placeResult is a single place in a Places API (New) response
type placeResult struct {
	ID               string         `json:"id"`
	DisplayName      *localizedText `json:"displayName,omitempty"`
	FormattedAddress string         `json:"formattedAddress,omitempty"`
	Location         *latLng        `json:"location,omitempty"`
	Rating           *float64       `json:"rating,omitempty"`
	PriceLevel       string         `json:"priceLevel,omitempty"`
	NationalPhone    string         `json:"nationalPhoneNumber,omitempty"`
	WebsiteURI       string         `json:"websiteUri,omitempty"`
	Photos           []photo        `json:"photos,omitempty"`
	Types            []string       `json:"types,omitempty"`
}

type localizedText struct {
	Text string `json:"text"`
}

type photo struct {
	Name string `json:"name"`
}

// priceLevelMap converts the Places API price level enum to the stored
// 0-4 scale. Unknown values map to no price level.
var priceLevelMap = map[string]int{
	"PRICE_LEVEL_FREE":           0,
	"PRICE_LEVEL_INEXPENSIVE":    1,
	"PRICE_LEVEL_MODERATE":       2,
	"PRICE_LEVEL_EXPENSIVE":      3,
	"PRICE_LEVEL_VERY_EXPENSIVE": 4,
}
