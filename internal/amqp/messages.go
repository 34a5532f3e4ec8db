package amqp

import (
	"encoding/json"
	"time"
)

// Message kinds carried on the export queue.
const (
	KindTransactionExport = "transaction.export"
	KindTransactionDelete = "transaction.delete"
)

// Envelope wraps every queue message with its kind so one queue can carry
// both export and delete events.
type Envelope struct {
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// TransactionExportMessage asks the worker to export one committed
// transaction. Only the id travels; the worker reads the row from storage so
// the queue never carries stale data.
type TransactionExportMessage struct {
	ID int64 `json:"id"`
}

// TransactionDeleteMessage asks the worker to remove a transaction from the
// export target. It carries the data needed to locate the exported row,
// because the local row is already gone when this message is handled.
type TransactionDeleteMessage struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Date        string `json:"date"` // YYYY-MM-DD
}

func NewEnvelope(kind string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Kind: kind, Payload: raw, Timestamp: time.Now()}, nil
}

func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (e *Envelope) ExportMessage() (*TransactionExportMessage, error) {
	var m TransactionExportMessage
	if err := json.Unmarshal(e.Payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (e *Envelope) DeleteMessage() (*TransactionDeleteMessage, error) {
	var m TransactionDeleteMessage
	if err := json.Unmarshal(e.Payload, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
