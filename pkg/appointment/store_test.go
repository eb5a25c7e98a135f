package appointment

import (
	"context"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSeedAndFetch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Seed(ctx, Appointment{ID: "appt-1", UserProfile: "Jane Doe", Status: StatusPending}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	payload, err := s.FetchAppointment(ctx, "appt-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(payload, "Jane Doe") || !strings.Contains(payload, "PENDING") {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestStoreFetchUnknown(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.FetchAppointment(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error fetching unknown appointment")
	}
}

func TestStoreUpdateAppointmentStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Seed(ctx, Appointment{ID: "appt-2", Status: StatusPending}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := s.UpdateAppointmentStatus(ctx, "appt-2", string(StatusSuccess)); err != nil {
		t.Fatalf("update: %v", err)
	}

	payload, err := s.FetchAppointment(ctx, "appt-2")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(payload, "SUCCESS") {
		t.Fatalf("expected updated status in payload: %s", payload)
	}
}

func TestStoreUpdateUnknownAppointment(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateAppointmentStatus(context.Background(), "missing", string(StatusSuccess)); err == nil {
		t.Fatalf("expected error updating unknown appointment")
	}
}

func TestStoreSeedUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Seed(ctx, Appointment{ID: "appt-3", UserProfile: "A", Status: StatusPending}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.Seed(ctx, Appointment{ID: "appt-3", UserProfile: "B", Status: StatusInProgress}); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	payload, err := s.FetchAppointment(ctx, "appt-3")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(payload, "\"UserProfile\":\"B\"") {
		t.Fatalf("expected upsert to overwrite profile: %s", payload)
	}
}
