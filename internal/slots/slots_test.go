package slots

import (
	"reflect"
	"testing"

	"slotbook/internal/models"
)

func TestGenerate(t *testing.T) {
	expected := []string{"11:00", "12:00", "13:00", "14:00", "15:00", "16:00"}
	got := Generate("2024-06-10")
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}

	// Template does not depend on the date value.
	if !reflect.DeepEqual(Generate("1999-01-01"), got) {
		t.Errorf("template should be identical for all dates")
	}
}

func TestIsBlackout(t *testing.T) {
	tests := []struct {
		name string
		date string
		want bool
	}{
		{"regular day", "2024-06-10", false},
		{"day 25", "2024-12-25", true},
		{"day 25 other month", "2024-01-25", true},
		{"unpadded day 25", "2024-6-25", true},
		{"day 26", "2024-12-26", false},
		{"missing day segment", "2024-12", false},
		{"empty", "", false},
		{"garbage day", "2024-12-banana", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBlackout(tt.date); got != tt.want {
				t.Errorf("IsBlackout(%q) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestAvailable(t *testing.T) {
	bookings := []models.Booking{
		{Date: "2024-06-10", Time: "12:00"},
		{Date: "2024-06-10", Time: "15:00"},
		{Date: "2024-06-11", Time: "11:00"}, // other date, must not count
	}

	got := Available("2024-06-10", bookings)
	expected := []string{"11:00", "13:00", "14:00", "16:00"}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestAvailable_Blackout(t *testing.T) {
	got := Available("2024-12-25", nil)
	if len(got) != 0 {
		t.Fatalf("expected no slots on blackout date, got %v", got)
	}

	// Bookings make no difference on a blackout date.
	got = Available("2024-12-25", []models.Booking{{Date: "2024-12-25", Time: "11:00"}})
	if len(got) != 0 {
		t.Fatalf("expected no slots on blackout date, got %v", got)
	}
}

func TestAvailable_EmptyStore(t *testing.T) {
	got := Available("2024-06-10", nil)
	if !reflect.DeepEqual(got, Generate("2024-06-10")) {
		t.Fatalf("empty store should yield the full template, got %v", got)
	}
}
