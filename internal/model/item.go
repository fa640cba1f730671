package model

import "time"

// Amount is a price or payment in the ledger's smallest currency unit.
type Amount int64

// Item is the full ledger record for one produce lot, keyed by its UPC.
type Item struct {
	SKU     uint64 `json:"sku"`
	UPC     uint64 `json:"upc"`
	OwnerID string `json:"owner_id"`

	// Provenance, written once at harvest.
	OriginFarmerID        string `json:"origin_farmer_id"`
	OriginFarmName        string `json:"origin_farm_name"`
	OriginFarmInformation string `json:"origin_farm_information"`
	OriginFarmLatitude    string `json:"origin_farm_latitude"`
	OriginFarmLongitude   string `json:"origin_farm_longitude"`
	ProductNotes          string `json:"product_notes"`

	ProductPrice  Amount `json:"product_price"`
	ItemState     State  `json:"item_state"`
	DistributorID string `json:"distributor_id"`
	RetailerID    string `json:"retailer_id"`
	ConsumerID    string `json:"consumer_id"`

	HarvestedAt time.Time `json:"harvested_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductID is the display identifier derived from SKU and UPC. It carries no
// meaning beyond that.
func (i *Item) ProductID() uint64 {
	return i.SKU + i.UPC
}

// ItemViewOne is the custody and provenance half of an item record.
type ItemViewOne struct {
	SKU                   uint64 `json:"sku"`
	UPC                   uint64 `json:"upc"`
	OwnerID               string `json:"owner_id"`
	OriginFarmerID        string `json:"origin_farmer_id"`
	OriginFarmName        string `json:"origin_farm_name"`
	OriginFarmInformation string `json:"origin_farm_information"`
	OriginFarmLatitude    string `json:"origin_farm_latitude"`
	OriginFarmLongitude   string `json:"origin_farm_longitude"`
}

// ItemViewTwo is the product and trade half of an item record.
type ItemViewTwo struct {
	SKU           uint64 `json:"sku"`
	UPC           uint64 `json:"upc"`
	ProductID     uint64 `json:"product_id"`
	ProductNotes  string `json:"product_notes"`
	ProductPrice  Amount `json:"product_price"`
	ItemState     State  `json:"item_state"`
	DistributorID string `json:"distributor_id"`
	RetailerID    string `json:"retailer_id"`
	ConsumerID    string `json:"consumer_id"`
}

// ViewOne projects the custody and provenance fields.
func (i *Item) ViewOne() ItemViewOne {
	return ItemViewOne{
		SKU:                   i.SKU,
		UPC:                   i.UPC,
		OwnerID:               i.OwnerID,
		OriginFarmerID:        i.OriginFarmerID,
		OriginFarmName:        i.OriginFarmName,
		OriginFarmInformation: i.OriginFarmInformation,
		OriginFarmLatitude:    i.OriginFarmLatitude,
		OriginFarmLongitude:   i.OriginFarmLongitude,
	}
}

// ViewTwo projects the product and trade fields.
func (i *Item) ViewTwo() ItemViewTwo {
	return ItemViewTwo{
		SKU:           i.SKU,
		UPC:           i.UPC,
		ProductID:     i.ProductID(),
		ProductNotes:  i.ProductNotes,
		ProductPrice:  i.ProductPrice,
		ItemState:     i.ItemState,
		DistributorID: i.DistributorID,
		RetailerID:    i.RetailerID,
		ConsumerID:    i.ConsumerID,
	}
}

// Harvest holds the caller-supplied fields that create an item.
type Harvest struct {
	UPC             uint64 `json:"upc"`
	FarmerID        string `json:"farmer_id"`
	FarmName        string `json:"farm_name"`
	FarmInformation string `json:"farm_information"`
	FarmLatitude    string `json:"farm_latitude"`
	FarmLongitude   string `json:"farm_longitude"`
	ProductNotes    string `json:"product_notes"`
}

// ItemFilter narrows an item listing. Zero values match everything.
type ItemFilter struct {
	State *State
	Owner string
}
