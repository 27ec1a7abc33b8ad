package jobs

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/skyhostel/sky_hostel/models"
	"github.com/skyhostel/sky_hostel/services"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeLister struct {
	rows []models.Payment
	err  error
}

func (f *fakeLister) ListPaymentsByStatus(_ context.Context, status models.PaymentStatus) ([]models.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Payment
	for _, p := range f.rows {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeReconciler struct {
	results map[string]models.PaymentStatus
	fail    map[string]bool
	called  []string
}

func (f *fakeReconciler) Reconcile(_ context.Context, rrr string) (*services.ReconcileResult, error) {
	f.called = append(f.called, rrr)
	if f.fail[rrr] {
		return nil, errors.New("gateway down")
	}
	status := f.results[rrr]
	return &services.ReconcileResult{
		Status:   status,
		Previous: models.PaymentStatusPending,
		Changed:  status != models.PaymentStatusPending,
	}, nil
}

type fakeLocker struct {
	held     bool
	released bool
}

func (l *fakeLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	if l.held {
		return nil, nil
	}
	l.held = true
	return func() { l.released = true }, nil
}

func TestSweepOnlyReconcilesPending(t *testing.T) {
	lister := &fakeLister{rows: []models.Payment{
		{RRR: "1", Status: models.PaymentStatusPending},
		{RRR: "2", Status: models.PaymentStatusPending},
		{RRR: "3", Status: models.PaymentStatusPending},
		{RRR: "4", Status: models.PaymentStatusPending},
		{RRR: "5", Status: models.PaymentStatusCompleted},
		{RRR: "6", Status: models.PaymentStatusFailed},
	}}
	rec := &fakeReconciler{
		results: map[string]models.PaymentStatus{
			"1": models.PaymentStatusCompleted,
			"2": models.PaymentStatusPending,
			"3": models.PaymentStatusFailed,
		},
		fail: map[string]bool{"4": true},
	}

	res, err := NewSweepJob(lister, rec, nil, zap.NewNop()).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	sort.Strings(rec.called)
	want := []string{"1", "2", "3", "4"}
	if len(rec.called) != len(want) {
		t.Fatalf("reconciled %v; want %v", rec.called, want)
	}
	for i := range want {
		if rec.called[i] != want[i] {
			t.Fatalf("reconciled %v; want %v", rec.called, want)
		}
	}
	if res.Checked != 4 || res.Updated != 2 || res.Failed != 1 {
		t.Errorf("Sweep() = %+v; want checked 4, updated 2, failed 1", res)
	}
}

func TestSweepListError(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	if _, err := NewSweepJob(lister, &fakeReconciler{}, nil, zap.NewNop()).Sweep(context.Background()); err == nil {
		t.Fatal("Sweep() error = nil; want error")
	}
}

func TestSweepSkipsWhenLocked(t *testing.T) {
	lister := &fakeLister{rows: []models.Payment{{RRR: "1", Status: models.PaymentStatusPending}}}
	rec := &fakeReconciler{results: map[string]models.PaymentStatus{"1": models.PaymentStatusCompleted}}
	locker := &fakeLocker{held: true}

	res, err := NewSweepJob(lister, rec, locker, zap.NewNop()).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if !res.Skipped || len(rec.called) != 0 {
		t.Errorf("Sweep() = %+v, reconciled %v; want skipped", res, rec.called)
	}
}

func TestSweepReleasesLock(t *testing.T) {
	lister := &fakeLister{rows: []models.Payment{{RRR: "1", Status: models.PaymentStatusPending}}}
	rec := &fakeReconciler{results: map[string]models.PaymentStatus{"1": models.PaymentStatusCompleted}}
	locker := &fakeLocker{}

	res, err := NewSweepJob(lister, rec, locker, zap.NewNop()).Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if res.Updated != 1 {
		t.Errorf("Updated = %d; want 1", res.Updated)
	}
	if !locker.released {
		t.Error("lock not released")
	}
}

type slowReconciler struct{ delay time.Duration }

func (r slowReconciler) Reconcile(_ context.Context, rrr string) (*services.ReconcileResult, error) {
	time.Sleep(r.delay)
	return &services.ReconcileResult{Status: models.PaymentStatusPending}, nil
}

func TestRunLogsIncompleteSweep(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	lister := &fakeLister{rows: []models.Payment{
		{RRR: "1", Status: models.PaymentStatusPending},
		{RRR: "2", Status: models.PaymentStatusPending},
	}}
	job := NewSweepJob(lister, slowReconciler{delay: 50 * time.Millisecond}, nil, zap.New(core))
	job.runTimeout = 10 * time.Millisecond

	job.Run()

	entries := logs.FilterMessage("Scheduled sweep did not complete").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d incomplete sweep entries; want 1", len(entries))
	}
	if checked := entries[0].ContextMap()["checked"]; checked != int64(1) {
		t.Errorf("checked = %v; want 1", checked)
	}
}

func TestRunQuietOnSuccess(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	lister := &fakeLister{rows: []models.Payment{{RRR: "1", Status: models.PaymentStatusPending}}}
	rec := &fakeReconciler{results: map[string]models.PaymentStatus{"1": models.PaymentStatusCompleted}}

	NewSweepJob(lister, rec, nil, zap.New(core)).Run()

	if logs.Len() != 0 {
		t.Errorf("unexpected error logs: %v", logs.All())
	}
}
