package domain

import "time"

type ItineraryDay struct {
	Day           int      `json:"day"`
	Activities    []string `json:"activities"`
	Accommodation string   `json:"accommodation,omitempty"`
	Meals         []string `json:"meals,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// Package is a tour product. BasePricePerPax is in whole currency units.
type Package struct {
	ID                 string         `json:"id"`
	Title              string         `json:"title"`
	Slug               string         `json:"slug"`
	ShortDesc          string         `json:"short_desc"`
	LongDesc           string         `json:"long_desc,omitempty"`
	Itinerary          []ItineraryDay `json:"itinerary,omitempty"`
	MinPax             int            `json:"min_pax"`
	MaxPax             int            `json:"max_pax"`
	BasePricePerPax    int64          `json:"base_price_per_pax"`
	Region             string         `json:"region"`
	Tags               []string       `json:"tags,omitempty"`
	Featured           bool           `json:"featured"`
	CommissionOverride *float64       `json:"commission_override,omitempty"`
	IsActive           bool           `json:"is_active"`
	BookingCount       int            `json:"booking_count"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (p *Package) ValidatePax(paxCount int) error {
	if paxCount < p.MinPax || paxCount > p.MaxPax {
		return NewValidationError("pax_count must be between package min_pax and max_pax")
	}
	return nil
}
