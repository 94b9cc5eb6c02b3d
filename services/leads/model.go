package leads

import "time"

// Lead is a consultation request left on the site.
type Lead struct {
	UID       string
	Name      string
	Email     string
	Phone     string
	Service   string
	Message   string `datastore:",noindex"`
	Locale    string
	Consent   bool
	ClientIP  string
	CreatedAt time.Time
}
