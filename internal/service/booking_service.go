package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"slotbook/internal/auth"
	"slotbook/internal/events"
	"slotbook/internal/metrics"
	"slotbook/internal/models"
	"slotbook/internal/slots"
	"slotbook/internal/storage"

	"github.com/rs/zerolog"
)

var (
	ErrDateRequired     = errors.New("date required")
	ErrMissingFields    = errors.New("missing required fields")
	ErrBlackoutDate     = errors.New("booking not allowed on 25th")
	ErrSlotTaken        = errors.New("slot taken")
	ErrIdentityRejected = errors.New("identity verification failed")
)

// BookingService orchestrates slot availability, identity verification and
// the booking store behind the three API operations.
type BookingService struct {
	store    storage.Store
	verifier *auth.Verifier
	eventBus *events.EventBus
	logger   zerolog.Logger

	// mu serializes the check-then-write section of CreateBooking so two
	// concurrent requests cannot both observe a slot as free.
	mu sync.Mutex

	now func() time.Time
}

func NewBookingService(store storage.Store, verifier *auth.Verifier, eventBus *events.EventBus, logger *zerolog.Logger) *BookingService {
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "booking").Logger()
	}
	return &BookingService{
		store:    store,
		verifier: verifier,
		eventBus: eventBus,
		logger:   log,
		now:      time.Now,
	}
}

// ListAvailable returns the free slots for a date: the fixed template minus
// slots already booked, or nothing at all on a blackout date.
func (s *BookingService) ListAvailable(date string) ([]string, error) {
	if date == "" {
		return nil, ErrDateRequired
	}
	return slots.Available(date, s.store.ReadAll()), nil
}

// CreateRequest carries the fields of a booking attempt.
type CreateRequest struct {
	Date     string
	Time     string
	Service  string
	UserID   string
	Name     string
	InitData string
}

// CreateBooking validates, verifies identity when requested, detects slot
// conflicts and persists the new booking. Checks run in a fixed order so
// each failure mode maps to a distinct response.
func (s *BookingService) CreateBooking(req CreateRequest) (*models.Booking, error) {
	if req.Date == "" || req.Time == "" || req.Service == "" || req.UserID == "" {
		return nil, ErrMissingFields
	}

	if slots.IsBlackout(req.Date) {
		return nil, ErrBlackoutDate
	}

	if req.InitData != "" {
		status, err := s.verifier.Check(req.InitData)
		if err != nil {
			return nil, fmt.Errorf("verify identity: %w", err)
		}
		switch status {
		case auth.StatusRejected:
			return nil, ErrIdentityRejected
		case auth.StatusSkippedNoSecret:
			s.logger.Warn().Msg("identity payload supplied but no shared secret configured; skipping verification")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bookings := s.store.ReadAll()
	for _, b := range bookings {
		if b.Date == req.Date && b.Time == req.Time {
			metrics.IncBookingConflict()
			return nil, ErrSlotTaken
		}
	}

	booking := models.Booking{
		Date:      req.Date,
		Time:      req.Time,
		Service:   req.Service,
		UserID:    req.UserID,
		Name:      req.Name,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}

	bookings = append(bookings, booking)
	if err := s.store.WriteAll(bookings); err != nil {
		return nil, fmt.Errorf("persist booking: %w", err)
	}

	metrics.IncBookingCreated()
	s.publishCreated(booking)

	return &booking, nil
}

// VerifyIdentity checks a standalone identity payload against the
// configured shared secret and policy.
func (s *BookingService) VerifyIdentity(initData string) (auth.Status, error) {
	if initData == "" {
		return auth.StatusRejected, ErrMissingFields
	}

	status, err := s.verifier.Check(initData)
	if err != nil {
		return status, fmt.Errorf("verify identity: %w", err)
	}

	switch status {
	case auth.StatusVerified:
		_ = s.eventBus.PublishJSON(events.EventIdentityVerified, nil)
	case auth.StatusRejected:
		_ = s.eventBus.PublishJSON(events.EventIdentityRejected, nil)
	}
	return status, nil
}

func (s *BookingService) publishCreated(booking models.Booking) {
	payload := events.BookingEventPayload{
		Date:      booking.Date,
		Time:      booking.Time,
		Service:   booking.Service,
		UserID:    booking.UserID,
		Name:      booking.Name,
		CreatedAt: booking.CreatedAt,
	}
	if err := s.eventBus.PublishJSON(events.EventBookingCreated, payload); err != nil {
		s.logger.Error().Err(err).Str("slot", booking.Key()).Msg("publish booking event")
	}
}
