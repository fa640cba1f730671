package model

import "time"

// Payment is the receipt of a distributor buying an item. Price goes to the
// payee, Refund goes back to the payer.
type Payment struct {
	ID     int64     `json:"id"`
	UPC    uint64    `json:"upc"`
	Payer  string    `json:"payer"`
	Payee  string    `json:"payee"`
	Price  Amount    `json:"price"`
	Paid   Amount    `json:"paid"`
	Refund Amount    `json:"refund"`
	PaidAt time.Time `json:"paid_at"`
}
