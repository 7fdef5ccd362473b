package model

import "time"

// Reward is a redeemable catalog item. ID 0 is reserved for the synthetic
// "redeem entire balance" entry and never appears as a stored row.
type Reward struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PointCost   int       `json:"point_cost"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}
