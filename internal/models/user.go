package models

import "time"

// User is a credit-holding account. ListedItemIDs and FlaggedItemIDs are the
// back-references written when a submission lands in the catalog or the
// moderation hold queue.
type User struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"displayName"`
	Role           string    `json:"role"`
	Credits        int64     `json:"credits"`
	ListedItemIDs  []string  `json:"listedItemIds"`
	FlaggedItemIDs []string  `json:"flaggedItemIds"`
	Version        int64     `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"
)
