package models

import "time"

type ListingStatus string

const (
	ListingStatusActive ListingStatus = "ACTIVE"
	ListingStatusGiven  ListingStatus = "GIVEN"
)

type Listing struct {
	ID         string         `json:"id"`
	OwnerID    string         `json:"ownerId"`
	Metadata   map[string]any `json:"metadata"`
	ImageURLs  []string       `json:"imageUrls"`
	RiskScores []float64      `json:"riskScores"`
	Status     ListingStatus  `json:"status"`
	Credits    int64          `json:"credits"`
	Version    int64          `json:"-"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}
