package amqp

import (
	"encoding/json"
	"time"
)

// TotalizerRunMessage asks the worker to run one totalizer sync for a
// (bank, month) bucket. The single consumer gives buckets the
// one-run-at-a-time serialization the diff needs; the worker recomputes
// totals from the database, so the message carries only the run parameters.
type TotalizerRunMessage struct {
	Bank      string    `json:"bank"`
	MonthRef  string    `json:"month_ref"`
	CardID    int64     `json:"card_id,omitempty"`
	Payer     string    `json:"payer"`
	Category  string    `json:"category"`
	DryRun    bool      `json:"dry_run,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTotalizerRunMessage(bank, monthRef, payer, category string, cardID int64, dryRun bool) *TotalizerRunMessage {
	return &TotalizerRunMessage{
		Bank:      bank,
		MonthRef:  monthRef,
		CardID:    cardID,
		Payer:     payer,
		Category:  category,
		DryRun:    dryRun,
		Timestamp: time.Now(),
	}
}

func (m *TotalizerRunMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TotalizerRunMessageFromJSON(data []byte) (*TotalizerRunMessage, error) {
	var msg TotalizerRunMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
