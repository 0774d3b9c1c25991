package models

import "time"

// TripOption is one bus service returned by the provider search.
type TripOption struct {
	ID             string `json:"id"`
	Operator       string `json:"operator"`
	BusType        string `json:"busType"`
	TripCode       string `json:"tripCode,omitempty"`
	RouteCode      string `json:"routeCode,omitempty"`
	DepartureTime  string `json:"departureTime"` // HH:MM 24-hour
	ArrivalTime    string `json:"arrivalTime,omitempty"`
	Duration       string `json:"duration,omitempty"`
	PriceINR       int    `json:"priceInRs"` // per-seat fare in rupees
	SeatsAvailable int    `json:"seatsAvailable"`
	ViaRoute       string `json:"viaRoute,omitempty"`
}

// HoldResult is a provider-side temporary seat reservation.
type HoldResult struct {
	Ref       string    `json:"ref"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired checks the hold against wall-clock time.
func (h HoldResult) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}
