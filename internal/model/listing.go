package model

import "time"

// ListingStatus is the disposition assigned to a listing after scoring.
type ListingStatus string

const (
	StatusAutoApprove ListingStatus = "AUTO_APPROVE"
	StatusManualCheck ListingStatus = "MANUAL_CHECK"
	StatusAutoReject  ListingStatus = "AUTO_REJECT"
)

// Listing is a property listing submitted for evaluation.
type Listing struct {
	ListerName   string   `json:"lister_name"`
	PropertyName string   `json:"property_name"`
	PropertyType string   `json:"property_type"` // House, Apartment, Condominium
	Location     string   `json:"location"`
	LotArea      int      `json:"lot_area"`   // square meters
	FloorArea    int      `json:"floor_area"` // square meters
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    int      `json:"bathrooms"`
	Price        float64  `json:"price"`
	ImageURLs    []string `json:"image_urls"`
}

// ListingRecord is a stored listing together with its evaluation outcome.
type ListingRecord struct {
	ID         string            `json:"id"`
	Listing    Listing           `json:"listing"`
	Evaluation *EvaluationResult `json:"evaluation,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
