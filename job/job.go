// Copyright (c) 2023 BVK Chaitanya

// Package job implements an api to manage jobs. Jobs are activities that can
// be canceled, paused or resumed through the context.Context argument.
package job

import (
	"context"
	"errors"
	"sync"

	"github.com/bvk/pricebot/gobs"
)

type State string

const (
	PAUSED    State = gobs.PAUSED
	RUNNING   State = gobs.RUNNING
	COMPLETED State = gobs.COMPLETED
	CANCELED  State = gobs.CANCELED
	FAILED    State = gobs.FAILED
)

func IsStopped(s State) bool {
	return s != RUNNING
}

func IsDone(s State) bool {
	return s == COMPLETED || s == CANCELED || s == FAILED
}

type Func func(ctx context.Context) error

var (
	errPause  = errors.New("job is paused")
	errCancel = errors.New("job is canceled")
)

type Job struct {
	cancel context.CancelCauseFunc

	wg sync.WaitGroup

	mu sync.Mutex

	status State

	err error
}

// Run starts the job function in a background goroutine. The function
// receives a context derived from ctx that is canceled with a distinguishing
// cause when the job is paused or canceled.
func Run(f Func, ctx context.Context) *Job {
	jctx, jcancel := context.WithCancelCause(ctx)
	j := &Job{
		cancel: jcancel,
		status: RUNNING,
	}
	j.wg.Add(1)
	go j.goRun(jctx, f)
	return j
}

// Pause stops the job function with a cause that marks the job as paused, so
// that it can be resumed later.
func (j *Job) Pause() {
	j.cancel(errPause)
}

// Cancel stops the job function with a cause that marks the job as canceled.
func (j *Job) Cancel() {
	j.cancel(errCancel)
}

// Wait blocks till the job function has returned or the input context is
// canceled, whichever happens first.
func (j *Job) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-done:
		return nil
	}
}

// Err returns the error reported by the job function. It is only meaningful
// after the job function has returned.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Job) state() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) goRun(ctx context.Context, f Func) {
	defer j.wg.Done()

	err := f(ctx)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.err = err
	j.status = stateForError(err)
}

// stateForError maps a job function's return value to the job's final state.
// Pause and Cancel are delivered as context cancelation causes, so a function
// that returns context.Cause(ctx) reports them back faithfully.
func stateForError(err error) State {
	switch {
	case err == nil:
		return COMPLETED
	case errors.Is(err, errPause):
		return PAUSED
	case errors.Is(err, errCancel):
		return CANCELED
	default:
		return FAILED
	}
}
