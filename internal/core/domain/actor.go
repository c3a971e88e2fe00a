package domain

const (
	RoleCourier = "courier"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// Actor is the authenticated caller of a mutating operation. Identity is
// established upstream by the Auth service; this package only applies policy.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// IsStaff reports whether the actor belongs to the back office.
func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}

// IsCourier reports whether the actor is a courier.
func (a Actor) IsCourier() bool {
	return a.Role == RoleCourier
}
