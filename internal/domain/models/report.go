package models

import "time"

// AllocationReport is the audit record persisted after each order
// allocation run.
type AllocationReport struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	CreatedAt  time.Time       `json:"created_at"`
	Allocation OrderAllocation `json:"allocation"`
}
