package model

import (
	"encoding/json"
	"testing"
)

func TestStateOrder(t *testing.T) {
	order := []State{
		StateHarvested, StateProcessed, StatePacked, StateForSale,
		StateSold, StateShipped, StateReceived, StatePurchased,
	}
	for i, s := range order {
		if int(s) != i {
			t.Errorf("%s = %d, want %d", s, s, i)
		}
		if s.Terminal() != (s == StatePurchased) {
			t.Errorf("%s.Terminal() = %v", s, s.Terminal())
		}
	}
	if State(8).Valid() {
		t.Error("State(8) should not be valid")
	}
}

func TestStateText(t *testing.T) {
	data, err := json.Marshal(StateForSale)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"ForSale"` {
		t.Errorf("expected \"ForSale\", got %s", data)
	}

	var s State
	if err := json.Unmarshal([]byte(`"Shipped"`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s != StateShipped {
		t.Errorf("expected Shipped, got %s", s)
	}

	if _, err := ParseState("Rotten"); err == nil {
		t.Error("expected error for unknown state")
	}
	if _, err := json.Marshal(State(42)); err == nil {
		t.Error("expected error marshalling invalid state")
	}
}

func TestRoleValid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleFarmer, true},
		{RoleDistributor, true},
		{RoleRetailer, true},
		{RoleConsumer, true},
		{"admin", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.role.Valid(); got != tt.want {
			t.Errorf("Role(%q).Valid() = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestItemViewsCoverRecord(t *testing.T) {
	item := &Item{
		SKU: 1, UPC: 1, OwnerID: "consumer",
		OriginFarmerID: "farmer", OriginFarmName: "Farm", OriginFarmInformation: "Info",
		OriginFarmLatitude: "-11.1111", OriginFarmLongitude: "88.8888",
		ProductNotes: "Notes", ProductPrice: 100, ItemState: StatePurchased,
		DistributorID: "distributor", RetailerID: "retailer", ConsumerID: "consumer",
	}

	one := item.ViewOne()
	two := item.ViewTwo()

	if one.OwnerID != "consumer" || one.OriginFarmLongitude != "88.8888" {
		t.Errorf("unexpected view one: %+v", one)
	}
	if two.ProductID != 2 {
		t.Errorf("expected product id 2, got %d", two.ProductID)
	}
	if two.ProductPrice != 100 || two.ItemState != StatePurchased || two.ConsumerID != "consumer" {
		t.Errorf("unexpected view two: %+v", two)
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}
