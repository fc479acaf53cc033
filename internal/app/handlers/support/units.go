package support

import "roomledger/internal/domain/shared/apperr"

// UnitsOrDefault reads an optional units value. Absent means one unit; an
// explicit value must be at least 1.
func UnitsOrDefault(units *int) (int, error) {
	if units == nil {
		return 1, nil
	}
	if *units < 1 {
		return 0, apperr.Validation("units", "must be at least 1")
	}
	return *units, nil
}
