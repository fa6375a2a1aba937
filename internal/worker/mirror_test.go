package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"slotbook/internal/events"
	"slotbook/internal/models"

	"github.com/rs/zerolog"
)

type fakeSheets struct {
	mu       sync.Mutex
	failures int
	appended []models.Booking
}

func (f *fakeSheets) AppendBooking(_ context.Context, booking *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("temporary sheets error")
	}
	f.appended = append(f.appended, *booking)
	return nil
}

func (f *fakeSheets) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended)
}

func newTestWorker(sheets SheetsClient) *MirrorWorker {
	logger := zerolog.New(io.Discard)
	return NewMirrorWorker(sheets, RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	}, &logger)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestMirrorWorker_AppendsBooking(t *testing.T) {
	sheets := &fakeSheets{}
	w := newTestWorker(sheets)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	w.Enqueue(models.Booking{Date: "2024-06-10", Time: "11:00", Service: "haircut", UserID: "u1"})

	waitFor(t, func() bool { return sheets.count() == 1 })
}

func TestMirrorWorker_RetriesTransientFailure(t *testing.T) {
	sheets := &fakeSheets{failures: 2}
	w := newTestWorker(sheets)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	w.Enqueue(models.Booking{Date: "2024-06-10", Time: "12:00", Service: "haircut", UserID: "u1"})

	waitFor(t, func() bool { return sheets.count() == 1 })
}

func TestMirrorWorker_GivesUpAfterMaxRetries(t *testing.T) {
	sheets := &fakeSheets{failures: 10}
	w := newTestWorker(sheets)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	w.Enqueue(models.Booking{Date: "2024-06-10", Time: "13:00", Service: "haircut", UserID: "u1"})

	// All three attempts fail; nothing lands.
	time.Sleep(100 * time.Millisecond)
	if sheets.count() != 0 {
		t.Fatalf("expected no appends, got %d", sheets.count())
	}
}

func TestMirrorWorker_SubscribeReceivesEvents(t *testing.T) {
	sheets := &fakeSheets{}
	w := newTestWorker(sheets)

	bus := events.NewEventBus()
	w.Subscribe(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	err := bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{
		Date: "2024-06-10", Time: "14:00", Service: "haircut", UserID: "u1",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	waitFor(t, func() bool { return sheets.count() == 1 })
	if got := sheets.appended[0].Time; got != "14:00" {
		t.Errorf("expected time 14:00, got %s", got)
	}
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second}, // clamped
		{0, time.Second},     // clamped to first attempt
	}

	for _, tt := range tests {
		if got := p.NextDelay(tt.attempt); got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryPolicy_ZeroValueDefaults(t *testing.T) {
	var p RetryPolicy
	if d := p.NextDelay(1); d != time.Second {
		t.Errorf("expected 1s default delay, got %v", d)
	}
}
