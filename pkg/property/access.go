package property

// AdminRole is the gateway role that grants access to any listing's analytics
const AdminRole = "admin"

// CanViewAnalytics reports whether the actor may read analytics for the
// listing. Analytics are private to the listing owner; admins can read any
// listing's numbers.
func CanViewAnalytics(p *Summary, actorID, actorRole string) bool {
	if p == nil || actorID == "" {
		return false
	}
	if actorRole == AdminRole {
		return true
	}
	return p.OwnerID == actorID
}
