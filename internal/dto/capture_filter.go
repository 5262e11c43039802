// CaptureFilters narrow the capture ledger listing.
package dto

import "time"

type CaptureFilters struct {
	Status        string
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Limit         int
	Offset        int
}
