package cron

import (
	"context"
	"errors"
	"testing"
)

type fakeLock struct {
	grant     bool
	acquired  int
	released  int
	acquireEr error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquired++
	return f.grant, f.acquireEr
}

func (f *fakeLock) Release(context.Context) error {
	f.released++
	return nil
}

type countingJob struct {
	name string
	runs int
	err  error
}

func (j *countingJob) Name() string { return j.name }
func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func TestRunCycleRunsAllJobs(t *testing.T) {
	lock := &fakeLock{grant: true}
	first := &countingJob{name: "first"}
	failing := &countingJob{name: "failing", err: errors.New("boom")}
	last := &countingJob{name: "last"}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(first, failing, last),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if first.runs != 1 || failing.runs != 1 || last.runs != 1 {
		t.Fatalf("every job runs once even when one fails: %d %d %d", first.runs, failing.runs, last.runs)
	}
	if lock.released != 1 {
		t.Fatalf("lock released %d times, expected 1", lock.released)
	}
}

func TestRunCycleSkipsWithoutLock(t *testing.T) {
	lock := &fakeLock{grant: false}
	job := &countingJob{name: "job"}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatal("jobs must not run when another instance holds the lock")
	}
	if lock.released != 0 {
		t.Fatal("an unheld lock must not be released")
	}
}

func TestRunCycleReportsAcquireError(t *testing.T) {
	lock := &fakeLock{acquireEr: errors.New("redis down")}

	svc, err := NewService(ServiceParams{
		Logger: testLogger(),
		Lock:   lock,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if err := svc.runCycle(context.Background()); err == nil {
		t.Fatal("expected acquire failure to surface")
	}
}
