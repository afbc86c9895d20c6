package models

import "time"

type TransactionStatus string

const TransactionStatusCompleted TransactionStatus = "COMPLETED"

// TransactionRecord is append-only. The giver is paid Credits by the receiver,
// who takes the item.
type TransactionRecord struct {
	ID         string            `json:"id"`
	GiverID    string            `json:"giverId"`
	ReceiverID string            `json:"receiverId"`
	ItemID     string            `json:"itemId"`
	Credits    int64             `json:"credits"`
	Status     TransactionStatus `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
}
