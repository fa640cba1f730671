package model

import (
	"encoding/json"
	"time"
)

// EventName names the transition an event records.
type EventName string

const (
	EventHarvested EventName = "Harvested"
	EventProcessed EventName = "Processed"
	EventPacked    EventName = "Packed"
	EventForSale   EventName = "ForSale"
	EventSold      EventName = "Sold"
	EventShipped   EventName = "Shipped"
	EventReceived  EventName = "Received"
	EventPurchased EventName = "Purchased"
)

// Event is one entry of the append-only event log. Hash chains every event
// to the one before it.
type Event struct {
	Seq       uint64          `json:"seq"`
	ID        string          `json:"id"`
	Name      EventName       `json:"name"`
	UPC       uint64          `json:"upc"`
	Actor     string          `json:"actor"`
	Payload   json.RawMessage `json:"payload"`
	PrevHash  string          `json:"prev_hash"`
	Hash      string          `json:"hash"`
	CreatedAt time.Time       `json:"created_at"`
}

// ChainReport is the result of re-walking the event hash chain.
type ChainReport struct {
	Events   uint64 `json:"events"`
	Valid    bool   `json:"valid"`
	BrokenAt uint64 `json:"broken_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
