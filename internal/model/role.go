package model

// Role is one of the four custody-chain roles an identity can hold.
type Role string

const (
	RoleFarmer      Role = "farmer"
	RoleDistributor Role = "distributor"
	RoleRetailer    Role = "retailer"
	RoleConsumer    Role = "consumer"
)

// Roles lists every role in custody-chain order.
var Roles = []Role{RoleFarmer, RoleDistributor, RoleRetailer, RoleConsumer}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleDistributor, RoleRetailer, RoleConsumer:
		return true
	}
	return false
}
