package entity

// Outcome classifies the terminal result of a single resolution attempt.
type Outcome string

const (
	// OutcomeRedirect means the link is active and a destination was chosen.
	OutcomeRedirect Outcome = "redirect"
	// OutcomeNotFound means no link exists for the identifier.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeExpired means the link exists but its expiry has passed.
	OutcomeExpired Outcome = "expired"
	// OutcomeStoreUnavailable means the record store could not answer in time.
	OutcomeStoreUnavailable Outcome = "store_unavailable"
)

// Decision is the result of resolving a link identifier. Destination and
// Device are populated only for OutcomeRedirect.
type Decision struct {
	Outcome     Outcome
	LinkID      string
	Destination string
	Device      DeviceClass
}
