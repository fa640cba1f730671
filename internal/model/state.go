package model

import "fmt"

// State is the lifecycle stage of an item. Values are ordered; an item only
// ever moves to the next value.
type State uint8

const (
	StateHarvested State = iota
	StateProcessed
	StatePacked
	StateForSale
	StateSold
	StateShipped
	StateReceived
	StatePurchased
)

var stateNames = [...]string{
	StateHarvested: "Harvested",
	StateProcessed: "Processed",
	StatePacked:    "Packed",
	StateForSale:   "ForSale",
	StateSold:      "Sold",
	StateShipped:   "Shipped",
	StateReceived:  "Received",
	StatePurchased: "Purchased",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// Valid reports whether s is a defined stage.
func (s State) Valid() bool {
	return s <= StatePurchased
}

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == StatePurchased
}

// ParseState maps a stage name back to its State.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown item state %q", name)
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid item state %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	v, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
