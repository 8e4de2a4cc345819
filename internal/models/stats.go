package models

// MitraStats aggregates settled sessions for one mitra over a period.
type MitraStats struct {
	CompletedOrders int64 `json:"completed_orders"`
	BlockedOrders   int64 `json:"blocked_orders"`
	WorkedSeconds   int64 `json:"worked_seconds"`
	TotalBilled     int64 `json:"total_billed"`
	TotalCommission int64 `json:"total_commission"`
	TotalEarnings   int64 `json:"total_earnings"`
}

// PlatformEarnings is the admin view of commission collected over a period.
type PlatformEarnings struct {
	Sessions        int64 `json:"sessions"`
	TotalBilled     int64 `json:"total_billed"`
	TotalCommission int64 `json:"total_commission"`
	OutstandingDebt int64 `json:"outstanding_debt"`
}
