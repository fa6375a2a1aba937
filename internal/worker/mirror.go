package worker

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"slotbook/internal/events"
	"slotbook/internal/models"

	"github.com/rs/zerolog"
)

// SheetsClient is the spreadsheet side of the mirror.
type SheetsClient interface {
	AppendBooking(ctx context.Context, booking *models.Booking) error
}

// RetryPolicy defines exponential backoff parameters.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns the delay for a given attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	d := time.Duration(float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1)))
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// MirrorWorker consumes booking_created events and appends each booking to
// the spreadsheet, retrying transient failures with backoff. A booking that
// exhausts its retries is logged and dropped; the store remains the source
// of truth.
type MirrorWorker struct {
	sheets      SheetsClient
	retryPolicy RetryPolicy
	queue       chan models.Booking
	logger      zerolog.Logger
}

// NewMirrorWorker builds a worker with sane defaults.
func NewMirrorWorker(sheets SheetsClient, retry RetryPolicy, logger *zerolog.Logger) *MirrorWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "mirror").Logger()
	}

	return &MirrorWorker{
		sheets:      sheets,
		retryPolicy: retry,
		queue:       make(chan models.Booking, 128),
		logger:      log,
	}
}

// Subscribe wires the worker to booking_created events on the bus.
func (w *MirrorWorker) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, func(event *events.Event) error {
		var payload events.BookingEventPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			w.logger.Error().Err(err).Msg("decode booking event")
			return err
		}
		w.Enqueue(models.Booking{
			Date:      payload.Date,
			Time:      payload.Time,
			Service:   payload.Service,
			UserID:    payload.UserID,
			Name:      payload.Name,
			CreatedAt: payload.CreatedAt,
		})
		return nil
	})
}

// Enqueue schedules a booking for mirroring without blocking the caller.
func (w *MirrorWorker) Enqueue(booking models.Booking) {
	select {
	case w.queue <- booking:
	default:
		w.logger.Warn().Str("slot", booking.Key()).Msg("mirror queue full, booking dropped")
	}
}

// Start launches the main loop; stops when ctx is done.
func (w *MirrorWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("mirror worker started")
	defer w.logger.Info().Msg("mirror worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case booking := <-w.queue:
			w.process(ctx, booking)
		}
	}
}

func (w *MirrorWorker) process(ctx context.Context, booking models.Booking) {
	for attempt := 1; ; attempt++ {
		err := w.sheets.AppendBooking(ctx, &booking)
		if err == nil {
			return
		}

		if attempt >= w.retryPolicy.MaxRetries {
			w.logger.Error().Err(err).Str("slot", booking.Key()).Int("attempts", attempt).Msg("mirror append failed, giving up")
			return
		}

		delay := w.retryPolicy.NextDelay(attempt)
		w.logger.Warn().Err(err).Str("slot", booking.Key()).Dur("retry_in", delay).Msg("mirror append failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
