package storage

import "slotbook/internal/models"

// Store is the durable collection of bookings. Implementations read the
// full collection and overwrite it as a whole; there is no incremental
// update path.
//
// ReadAll fails soft: read or parse failures yield an empty slice so the
// read path stays available. WriteAll errors propagate, a failed persist
// must never be reported to the caller as success.
type Store interface {
	ReadAll() []models.Booking
	WriteAll(bookings []models.Booking) error
}
