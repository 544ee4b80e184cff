package tenant

import (
	"time"
)

// Status constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Tenant represents an isolated customer organization. Lifecycle is soft:
// tenants deactivate and reactivate, they are never deleted.
type Tenant struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
}

// Active reports whether the tenant accepts credentialed traffic.
func (t *Tenant) Active() bool {
	return t.Status == StatusActive
}
