package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DonationStatus string

const (
	DonationPending     DonationStatus = "pending"
	DonationProcessed   DonationStatus = "processed"
	DonationTransferred DonationStatus = "transferred"
	DonationFailed      DonationStatus = "failed"
)

// CanAdvanceTo reports whether the transfer process may move a donation from
// s to next.
func (s DonationStatus) CanAdvanceTo(next DonationStatus) bool {
	switch s {
	case DonationPending:
		return next == DonationProcessed || next == DonationFailed
	case DonationProcessed:
		return next == DonationTransferred || next == DonationFailed
	default:
		return false
	}
}

// DonationRecord is the monetary contribution of exactly one completed pickup.
type DonationRecord struct {
	ID            string          `bson:"_id" json:"id"`
	PickupID      string          `bson:"pickupID" json:"pickupID"`
	UserID        string          `bson:"userID" json:"userID"`
	NGOID         string          `bson:"ngoID" json:"ngoID"`
	BaseAmount    decimal.Decimal `bson:"baseAmount" json:"baseAmount"`
	MatchedAmount decimal.Decimal `bson:"matchedAmount" json:"matchedAmount"`
	TotalAmount   decimal.Decimal `bson:"totalAmount" json:"totalAmount"`
	CampaignID    string          `bson:"campaignID,omitempty" json:"campaignID,omitempty"`
	Status        DonationStatus  `bson:"status" json:"status"`
	ReceiptID     string          `bson:"receiptID" json:"receiptID"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time       `bson:"updatedAt" json:"updatedAt"`
}
