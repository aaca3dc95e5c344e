package timeentrystore_test

import (
	"testing"
	"time"

	timeentrystore "github.com/dalemusser/tempohub/internal/app/store/timeentries"
	"github.com/dalemusser/tempohub/internal/domain/models"
	"github.com/dalemusser/tempohub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newStore(t *testing.T) *timeentrystore.Store {
	t.Helper()
	return timeentrystore.New(testutil.SetupTestDB(t))
}

func newEntry(userID primitive.ObjectID) models.TimeEntry {
	return models.TimeEntry{
		UserID:  userID,
		SpaceID: primitive.NewObjectID(),
		Project: primitive.NewObjectID(),
	}
}

func TestStartTimer_OneRunningTimerPerUser(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()

	first, err := s.StartTimer(ctx, newEntry(userID))
	if err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	second, err := s.StartTimer(ctx, newEntry(userID))
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	running, err := s.GetRunning(ctx, userID)
	if err != nil {
		t.Fatalf("expected a running timer: %v", err)
	}
	if running.ID != second.ID {
		t.Errorf("running timer: got %s, want %s", running.ID.Hex(), second.ID.Hex())
	}

	closed, err := s.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("reload first entry failed: %v", err)
	}
	if closed.Running() {
		t.Error("expected the first timer to be closed by the second start")
	}
}

func TestStopRunning(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()

	if _, err := s.StopRunning(ctx, userID, time.Now()); err != timeentrystore.ErrNotRunning {
		t.Errorf("expected ErrNotRunning with no open timer, got %v", err)
	}

	started, err := s.StartTimer(ctx, newEntry(userID))
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	stopped, err := s.StopRunning(ctx, userID, time.Now())
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if stopped.ID != started.ID || stopped.Running() {
		t.Errorf("expected the started timer closed, got %+v", stopped)
	}

	if _, err := s.GetRunning(ctx, userID); err != timeentrystore.ErrNotRunning {
		t.Errorf("expected no running timer after stop, got %v", err)
	}
}

func TestCreateManual_RejectsBadRange(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e := newEntry(primitive.NewObjectID())
	e.StartedAt = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	end := e.StartedAt.Add(-time.Hour)
	e.EndedAt = &end

	if _, err := s.CreateManual(ctx, e); err == nil {
		t.Error("expected an error for an entry ending before it starts")
	}

	e.EndedAt = nil
	if _, err := s.CreateManual(ctx, e); err == nil {
		t.Error("expected an error for a manual entry without an end")
	}
}

func TestStaleRunning_AndCloseEntry(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.StartTimer(ctx, newEntry(primitive.NewObjectID())); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	stale, err := s.StartTimer(ctx, newEntry(primitive.NewObjectID()))
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Sweep with a cutoff in the future: both timers qualify.
	found, err := s.StaleRunning(ctx, time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("stale query failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 stale timers, got %d", len(found))
	}

	at := stale.StartedAt.Add(30 * time.Minute)
	if err := s.CloseEntry(ctx, stale.ID, at); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	closed, err := s.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if closed.Running() || closed.DurationMinutes(time.Now()) != 30 {
		t.Errorf("expected entry capped at 30 minutes, got %+v", closed)
	}

	// Closing an already-closed entry reports not found.
	if err := s.CloseEntry(ctx, stale.ID, at); err != timeentrystore.ErrNotFound {
		t.Errorf("expected ErrNotFound on repeat close, got %v", err)
	}
}

func TestProjectTotalMinutes_IgnoresRunning(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	projectID := primitive.NewObjectID()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	e := newEntry(primitive.NewObjectID())
	e.Project = projectID
	e.StartedAt = start
	end := start.Add(90 * time.Minute)
	e.EndedAt = &end
	if _, err := s.CreateManual(ctx, e); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	open := newEntry(primitive.NewObjectID())
	open.Project = projectID
	if _, err := s.StartTimer(ctx, open); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	total, err := s.ProjectTotalMinutes(ctx, projectID)
	if err != nil {
		t.Fatalf("total failed: %v", err)
	}
	if total != 90 {
		t.Errorf("project total: got %d, want 90", total)
	}
}
