package booking

import (
	"reflect"
	"testing"
)

func TestExpandDatesWeeklyOccurrences(t *testing.T) {
	rule := Recurrence{Frequency: FrequencyWeekly, Occurrences: 4}
	dates, err := rule.ExpandDates("2025-01-06")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	// The anchor counts as the first occurrence, so three more follow.
	want := []string{"2025-01-13", "2025-01-20", "2025-01-27"}
	if !reflect.DeepEqual(dates, want) {
		t.Errorf("dates = %v, want %v", dates, want)
	}
}

func TestExpandDatesDaily(t *testing.T) {
	rule := Recurrence{Frequency: FrequencyDaily, Occurrences: 3}
	dates, err := rule.ExpandDates("2025-01-30")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"2025-01-31", "2025-02-01"}
	if !reflect.DeepEqual(dates, want) {
		t.Errorf("dates = %v, want %v", dates, want)
	}
}

func TestExpandDatesBiweekly(t *testing.T) {
	rule := Recurrence{Frequency: FrequencyBiweekly, Occurrences: 3}
	dates, err := rule.ExpandDates("2025-01-06")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"2025-01-20", "2025-02-03"}
	if !reflect.DeepEqual(dates, want) {
		t.Errorf("dates = %v, want %v", dates, want)
	}
}

func TestExpandDatesMonthly(t *testing.T) {
	rule := Recurrence{Frequency: FrequencyMonthly, Occurrences: 4}
	dates, err := rule.ExpandDates("2025-01-15")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"2025-02-15", "2025-03-15", "2025-04-15"}
	if !reflect.DeepEqual(dates, want) {
		t.Errorf("dates = %v, want %v", dates, want)
	}
}

func TestExpandDatesEndDateInclusive(t *testing.T) {
	rule := Recurrence{Frequency: FrequencyWeekly, EndDate: "2025-01-20"}
	dates, err := rule.ExpandDates("2025-01-06")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{"2025-01-13", "2025-01-20"}
	if !reflect.DeepEqual(dates, want) {
		t.Errorf("dates = %v, want %v", dates, want)
	}
}

func TestExpandDatesCap(t *testing.T) {
	// No end condition at all: expansion stops at the hard cap.
	rule := Recurrence{Frequency: FrequencyDaily}
	dates, err := rule.ExpandDates("2025-01-01")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(dates) != MaxGeneratedInstances {
		t.Errorf("got %d dates, want %d", len(dates), MaxGeneratedInstances)
	}

	// An occurrence count above the cap is clamped, not rejected.
	rule = Recurrence{Frequency: FrequencyDaily, Occurrences: 500}
	dates, err = rule.ExpandDates("2025-01-01")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(dates) != MaxGeneratedInstances {
		t.Errorf("got %d dates, want cap %d", len(dates), MaxGeneratedInstances)
	}
}

func TestRecurrenceValidate(t *testing.T) {
	if err := (Recurrence{Frequency: "yearly"}).Validate(); err == nil {
		t.Error("unknown frequency should fail")
	}
	if err := (Recurrence{Frequency: FrequencyWeekly, EndDate: "not-a-date"}).Validate(); err == nil {
		t.Error("bad end date should fail")
	}
	if err := (Recurrence{Frequency: FrequencyWeekly, Occurrences: -1}).Validate(); err == nil {
		t.Error("negative occurrences should fail")
	}
	if err := (Recurrence{Frequency: FrequencyWeekly}).Validate(); err != nil {
		t.Errorf("open-ended weekly rule should validate: %v", err)
	}
}
