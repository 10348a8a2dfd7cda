package blockchain

import (
	"context"
	"time"

	"recycle-pickup-api-server/internal/engine"
	"recycle-pickup-api-server/internal/models"

	"github.com/sirupsen/logrus"
)

const recordReceiptFn = "RecordDonationReceipt"

// Submitter is the part of *gateway.Contract the ledger needs.
type Submitter interface {
	SubmitTransaction(name string, args ...string) ([]byte, error)
}

// ReceiptLedger anchors donation receipts on the Fabric channel once a
// completion has committed. Anchoring runs off the request path and a
// failure never affects the donation itself.
type ReceiptLedger struct {
	contract Submitter
	log      logrus.FieldLogger
	async    bool
}

var _ engine.Listener = (*ReceiptLedger)(nil)

func NewReceiptLedger(contract Submitter, log logrus.FieldLogger) *ReceiptLedger {
	return &ReceiptLedger{contract: contract, log: log, async: true}
}

// Anchor submits one receipt and returns the transaction payload.
func (l *ReceiptLedger) Anchor(d models.DonationRecord) ([]byte, error) {
	return l.contract.SubmitTransaction(recordReceiptFn, receiptArgs(d)...)
}

func receiptArgs(d models.DonationRecord) []string {
	return []string{
		d.ReceiptID,
		d.ID,
		d.PickupID,
		d.NGOID,
		d.TotalAmount.StringFixed(2),
		d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (l *ReceiptLedger) PickupChanged(context.Context, models.PickupRequest) {}

func (l *ReceiptLedger) PickupCompleted(_ context.Context, c engine.Completion) {
	anchor := func() {
		if _, err := l.Anchor(c.Donation); err != nil {
			l.log.WithError(err).WithFields(logrus.Fields{
				"donation_id": c.Donation.ID,
				"receipt_id":  c.Donation.ReceiptID,
			}).Error("failed to anchor donation receipt")
			return
		}
		l.log.WithField("receipt_id", c.Donation.ReceiptID).Info("donation receipt anchored")
	}
	if l.async {
		go anchor()
		return
	}
	anchor()
}
