package outage

// Records are owned exclusively by their creator; every capability reduces to
// an owner comparison.

func CanViewLocation(userID int64, l Location) bool   { return l.UserID == userID }
func CanUpdateLocation(userID int64, l Location) bool { return l.UserID == userID }
func CanDeleteLocation(userID int64, l Location) bool { return l.UserID == userID }

func CanViewOutage(userID int64, o Outage) bool   { return o.UserID == userID }
func CanUpdateOutage(userID int64, o Outage) bool { return o.UserID == userID }
func CanDeleteOutage(userID int64, o Outage) bool { return o.UserID == userID }

func authorize(allowed bool) error {
	if !allowed {
		return ErrForbidden
	}
	return nil
}
