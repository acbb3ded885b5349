package session

// Authorizer decides whether an authenticated user may use the console.
// Injected so the check is testable without a live backend; a production
// deployment would back this with a role lookup keyed by user identity.
type Authorizer interface {
	Authorize(u User) bool
}

// AllowList authorizes users whose email exactly matches one of its
// entries.
type AllowList []string

func (a AllowList) Authorize(u User) bool {
	for _, email := range a {
		if u.Email == email {
			return true
		}
	}
	return false
}

// DefaultAllowList is the demo admin allow-list used when no Authorizer is
// injected. Hard-coded for the demo; replace with a real role store.
var DefaultAllowList = AllowList{"admin@example.com", "admin"}
