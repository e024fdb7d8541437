package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdRevalue     CommandType = "revalue"
	CmdExpireDeals CommandType = "expire_deals"
)

// Command is an operator instruction queued through the operational store
// and picked up by the scheduler.
type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	ListingID string `json:"listing_id,omitempty"`
	Category  string `json:"category,omitempty"`
}
