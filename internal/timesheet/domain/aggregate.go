package domain

// Totals is the reduced view of a set of time entries.
type Totals struct {
	TotalHours       float64 `json:"total_hours"`
	TotalAmountCents int64   `json:"total_amount_cents"`
}

// Aggregate sums hours and amounts over entries. Entries still clocked in
// (nil HoursWorked) contribute zero to both totals. Filtering is the
// caller's concern; the same reducer serves appointment cost resolution
// and worker pay-period batching.
func Aggregate(entries []TimeEntry) Totals {
	var totals Totals
	for _, entry := range entries {
		if entry.HoursWorked == nil {
			continue
		}
		totals.TotalHours += *entry.HoursWorked
		totals.TotalAmountCents += entry.TotalAmountCents
	}
	return totals
}
