package models

// Booking is a confirmed reservation of a single slot on a single date.
// The pair (Date, Time) is unique across the whole store.
type Booking struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Service   string `json:"service"`
	UserID    string `json:"userId"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// Key returns the identity of the slot this booking occupies.
func (b Booking) Key() string {
	return b.Date + " " + b.Time
}
