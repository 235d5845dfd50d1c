// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

package viewsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/projectionist/internal/models"
)

func TestRegistryExactLookup(t *testing.T) {
	r := NewRegistry(time.Hour)
	r.Report("9c2f4a8e-1111-2222-3333-444455556666", models.MediaState{CategoryID: "cat1", Index: 4})

	view, err := r.Lookup("9c2f4a8e-1111-2222-3333-444455556666")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if view.State.CategoryID != "cat1" || view.State.Index != 4 {
		t.Errorf("view = %+v", view)
	}
	if view.State.Timestamp == 0 {
		t.Error("Report should stamp the state")
	}
}

func TestRegistryPrefixLookup(t *testing.T) {
	r := NewRegistry(time.Hour)
	r.Report("abcdef00-aaaa-bbbb-cccc-dddddddddddd", models.MediaState{Index: 1})
	r.Report("abcdef99-aaaa-bbbb-cccc-dddddddddddd", models.MediaState{Index: 2})

	// Short IDs match by prefix; the lexically first session wins.
	view, err := r.Lookup("abcdef")
	if err != nil {
		t.Fatalf("prefix Lookup() error: %v", err)
	}
	if view.SessionID != "abcdef00-aaaa-bbbb-cccc-dddddddddddd" {
		t.Errorf("prefix matched %q, want the lexically first session", view.SessionID)
	}
}

func TestRegistryLongIDNoPrefixFallback(t *testing.T) {
	r := NewRegistry(time.Hour)
	r.Report("abcdef00-aaaa-bbbb-cccc-dddddddddddd", models.MediaState{})

	// 16+ characters must match exactly or not at all.
	if _, err := r.Lookup("abcdef00-aaaa-bbb"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("long partial ID = %v, want ErrSessionNotFound", err)
	}
}

func TestRegistryMiss(t *testing.T) {
	r := NewRegistry(time.Hour)
	if _, err := r.Lookup("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Lookup(miss) = %v, want ErrSessionNotFound", err)
	}
	if _, err := r.Lookup(""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Lookup(empty) = %v, want ErrSessionNotFound", err)
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(time.Hour)
	r.Report("session-1", models.MediaState{})
	r.Remove("session-1")

	if _, err := r.Lookup("session-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("removed session should not resolve")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestWaitLookupTimesOut(t *testing.T) {
	r := NewRegistry(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.WaitLookup(ctx, "absent")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("WaitLookup = %v, want ErrSessionNotFound", err)
	}
	if time.Since(start) < 150*time.Millisecond {
		t.Error("WaitLookup returned before the deadline")
	}
}

func TestWaitLookupSeesLateReport(t *testing.T) {
	r := NewRegistry(time.Hour)

	go func() {
		time.Sleep(150 * time.Millisecond)
		r.Report("late-session-0000", models.MediaState{Index: 7})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	view, err := r.WaitLookup(ctx, "late-session-0000")
	if err != nil {
		t.Fatalf("WaitLookup() error: %v", err)
	}
	if view.State.Index != 7 {
		t.Errorf("view = %+v, want the late report", view)
	}
}

func TestCategoryCounts(t *testing.T) {
	r := NewRegistry(time.Hour)
	r.Report("s1", models.MediaState{CategoryID: "cats"})
	r.Report("s2", models.MediaState{CategoryID: "cats"})
	r.Report("s3", models.MediaState{CategoryID: "dogs"})
	r.Report("s4", models.MediaState{}) // no category yet

	counts := r.CategoryCounts()
	if counts["cats"] != 2 || counts["dogs"] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if _, ok := counts[""]; ok {
		t.Error("sessions without a category must not be counted")
	}
}

func TestRegistrySweep(t *testing.T) {
	r := NewRegistry(50 * time.Millisecond)
	r.Report("old", models.MediaState{})
	time.Sleep(80 * time.Millisecond)
	r.Report("fresh", models.MediaState{})

	if removed := r.Sweep(); removed != 1 {
		t.Errorf("Sweep() = %d, want 1", removed)
	}
	if _, err := r.Lookup("fresh"); err != nil {
		t.Error("fresh entry should survive the sweep")
	}
}
