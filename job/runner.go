// Copyright (c) 2023 BVK Chaitanya

package job

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/bvk/pricebot/gobs"
	"github.com/bvk/pricebot/kvutil"
	"github.com/bvkgo/kv"
)

const Keyspace = "/jobs/"

type JobData struct {
	UID      string
	Typename string
	Flags    uint64

	State State
}

func toGob(v *JobData) *gobs.JobData {
	if v.State == "" {
		v.State = PAUSED
	}
	return &gobs.JobData{
		ID:       v.UID,
		Typename: v.Typename,
		Flags:    v.Flags,
		State:    string(v.State),
	}
}

func fromGob(v *gobs.JobData) *JobData {
	if v.State == "" {
		v.State = string(PAUSED)
	}
	return &JobData{
		UID:      v.ID,
		Typename: v.Typename,
		Flags:    v.Flags,
		State:    State(v.State),
	}
}

// Runner manages job metadata in a database and supervises the goroutines of
// running jobs. Methods that take a kv.Reader or kv.ReadWriter argument use
// it when non-nil, so callers can batch runner updates with their own
// changes; a nil argument makes the runner open its own transaction.
type Runner struct {
	db kv.Database

	mu sync.Mutex

	// jobMap holds metadata for all running jobs.
	jobMap map[string]*Job

	// dataMap holds metadata for all running jobs and also more jobs, like
	// completed, canceled, etc. Metadata in this map is always newer than the
	// metadata in the database. This in-memory map is necessary cause runner's
	// wrapJobFunc has no db access (to save the completed state) when the job is
	// completed.
	dataMap map[string]*JobData
}

func NewRunner(db kv.Database) *Runner {
	return &Runner{
		db:      db,
		jobMap:  make(map[string]*Job),
		dataMap: make(map[string]*JobData),
	}
}

func (r *Runner) withReader(ctx context.Context, reader kv.Reader, fn func(ctx context.Context, reader kv.Reader) error) error {
	if reader != nil {
		return fn(ctx, reader)
	}
	return kv.WithReader(ctx, r.db, fn)
}

func (r *Runner) withReadWriter(ctx context.Context, rw kv.ReadWriter, fn func(ctx context.Context, rw kv.ReadWriter) error) error {
	if rw != nil {
		return fn(ctx, rw)
	}
	return kv.WithReadWriter(ctx, r.db, fn)
}

func (r *Runner) syncLocked(ctx context.Context, rw kv.ReadWriter) error {
	for uid, jd := range r.dataMap {
		if err := r.setLocked(ctx, rw, uid, jd); err != nil {
			return fmt.Errorf("could not sync metadata for job %q: %w", uid, err)
		}
	}
	return nil
}

// PauseAll stops all running jobs and flushes their final states to the
// database. Jobs paused this way resume automatically on the next restart.
func (r *Runner) PauseAll(ctx context.Context) error {
	var jobs []*Job

	r.mu.Lock()
	for _, job := range r.jobMap {
		job.Pause()
		jobs = append(jobs, job)
	}
	r.mu.Unlock()

	for _, job := range jobs {
		job.Wait(ctx)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return kv.WithReadWriter(ctx, r.db, func(ctx context.Context, rw kv.ReadWriter) error {
		return r.syncLocked(ctx, rw)
	})
}

func (r *Runner) wrapJobFunc(uid string, fn Func) Func {
	return func(ctx context.Context) error {
		status := fn(ctx)
		log.Printf("job %q has returned with status: %v", uid, status)

		r.mu.Lock()
		defer r.mu.Unlock()

		if _, ok := r.jobMap[uid]; ok {
			if data, ok := r.dataMap[uid]; ok {
				data.State = stateForError(status)
			}
			delete(r.jobMap, uid)
		}

		return status
	}
}

// Get returns a job's information.
func (r *Runner) Get(ctx context.Context, reader kv.Reader, uid string) (*JobData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var jd *JobData
	err := r.withReader(ctx, reader, func(ctx context.Context, reader kv.Reader) error {
		v, err := r.getLocked(ctx, reader, uid)
		if err != nil {
			return err
		}
		jd = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not load job data: %w", err)
	}
	return jd, nil
}

func (r *Runner) getLocked(ctx context.Context, reader kv.Reader, uid string) (*JobData, error) {
	jd, ok := r.dataMap[uid]
	if ok {
		if job, ok := r.jobMap[uid]; ok {
			jd.State = job.state()
		}
		return jd, nil
	}

	key := path.Join(Keyspace, uid)
	gob, err := kvutil.Get[gobs.JobData](ctx, reader, key)
	if err != nil {
		return nil, fmt.Errorf("could not read job data from db: %w", err)
	}

	jd = fromGob(gob)
	r.dataMap[uid] = jd
	return jd, nil
}

func (r *Runner) setLocked(ctx context.Context, writer kv.ReadWriter, uid string, jd *JobData) error {
	key := path.Join(Keyspace, uid)
	if err := kvutil.Set(ctx, writer, key, toGob(jd)); err != nil {
		return fmt.Errorf("could not update metadata for job %q: %w", uid, err)
	}
	// Database is synced with the latest version, so we can drop the in-memory
	// data for non-running jobs.
	if _, ok := r.jobMap[uid]; !ok {
		delete(r.dataMap, uid)
	}
	return nil
}

func (r *Runner) UpdateFlags(ctx context.Context, rw kv.ReadWriter, uid string, flags uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.withReadWriter(ctx, rw, func(ctx context.Context, rw kv.ReadWriter) error {
		jd, err := r.getLocked(ctx, rw, uid)
		if err != nil {
			return fmt.Errorf("could not load job data: %w", err)
		}
		jd.Flags = flags
		if err := r.setLocked(ctx, rw, uid, jd); err != nil {
			return fmt.Errorf("could not update flags: %w", err)
		}
		return nil
	})
}

// Add creates a new job in the database. Jobs are created in PAUSED state and
// must be resumed to begin execution.
func (r *Runner) Add(ctx context.Context, rw kv.ReadWriter, uid, typename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.withReadWriter(ctx, rw, func(ctx context.Context, rw kv.ReadWriter) error {
		if _, err := r.getLocked(ctx, rw, uid); err == nil || !errors.Is(err, os.ErrNotExist) {
			if err == nil {
				return fmt.Errorf("job with uid already exists: %w", os.ErrExist)
			}
			return fmt.Errorf("could not check if uid already exists: %w", err)
		}

		jd := &JobData{
			UID:      uid,
			Typename: typename,
			State:    PAUSED,
		}
		if err := r.setLocked(ctx, rw, uid, jd); err != nil {
			return fmt.Errorf("could not save new job entry: %w", err)
		}
		return nil
	})
}

// Remove deletes a job from the database. Running jobs cannot be removed.
func (r *Runner) Remove(ctx context.Context, rw kv.ReadWriter, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobMap[uid]; ok {
		return fmt.Errorf("running job %q cannot be removed", uid)
	}

	return r.withReadWriter(ctx, rw, func(ctx context.Context, rw kv.ReadWriter) error {
		key := path.Join(Keyspace, uid)
		if err := rw.Delete(ctx, key); err != nil {
			return fmt.Errorf("could not delete key %q: %w", key, err)
		}
		delete(r.dataMap, uid)
		return nil
	})
}

// Scan invokes the callback function with all jobs defined in the database.
func (r *Runner) Scan(ctx context.Context, reader kv.Reader, fn func(ctx context.Context, r kv.Reader, item *JobData) error) error {
	return r.withReader(ctx, reader, func(ctx context.Context, reader kv.Reader) error {
		begin, end := kvutil.PathRange(Keyspace)
		cb := func(ctx context.Context, _ kv.Reader, key string, value *gobs.JobData) error {
			uid := strings.TrimPrefix(key, Keyspace)

			r.mu.Lock()
			jd, ok := r.dataMap[uid]
			if ok {
				if job, ok := r.jobMap[uid]; ok {
					jd.State = job.state()
				}
			}
			r.mu.Unlock()

			if jd == nil {
				jd = fromGob(value)
			}
			return fn(ctx, reader, jd)
		}
		return kvutil.Ascend(ctx, reader, begin, end, cb)
	})
}

// Resume runs a job. Job must be in PAUSED state and must not already be
// running. The job function receives a context derived from fctx, so it
// outlives the Resume call itself.
func (r *Runner) Resume(ctx context.Context, uid string, fn Func, fctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobMap[uid]; ok {
		return fmt.Errorf("job %q is already resumed: %w", uid, os.ErrExist)
	}

	var jd *JobData
	err := r.withReader(ctx, nil, func(ctx context.Context, reader kv.Reader) error {
		v, err := r.getLocked(ctx, reader, uid)
		if err != nil {
			return err
		}
		jd = v
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not load job data for %q: %w", uid, err)
	}

	if IsDone(jd.State) {
		return fmt.Errorf("job %q is already finished", uid)
	}

	job := Run(r.wrapJobFunc(uid, fn), fctx)
	r.jobMap[uid] = job

	jd.State = RUNNING
	err = r.withReadWriter(ctx, nil, func(ctx context.Context, rw kv.ReadWriter) error {
		return r.setLocked(ctx, rw, uid, jd)
	})
	if err != nil {
		log.Printf("could not update job state in the db (ignored): %v", err)
	}
	return nil
}

// Pause stops a running job. Job can be resumed later.
func (r *Runner) Pause(ctx context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobMap[uid]; ok {
		job.Pause()
		r.mu.Unlock()
		job.Wait(ctx)
		r.mu.Lock()
	}

	return r.withReadWriter(ctx, nil, func(ctx context.Context, rw kv.ReadWriter) error {
		jd, err := r.getLocked(ctx, rw, uid)
		if err != nil {
			return fmt.Errorf("could not load job state: %w", err)
		}
		if !IsDone(jd.State) {
			jd.State = PAUSED
		}
		if err := r.setLocked(ctx, rw, uid, jd); err != nil {
			return fmt.Errorf("could not mark job %q as paused: %w", uid, err)
		}
		return nil
	})
}

// Cancel stops the job if it is running and marks it as canceled. Job cannot
// be resumed after it is canceled.
func (r *Runner) Cancel(ctx context.Context, uid string) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobMap[uid]; ok {
		job.Cancel()
		r.mu.Unlock()
		job.Wait(ctx)
		r.mu.Lock()
	}

	var state State
	err := r.withReadWriter(ctx, nil, func(ctx context.Context, rw kv.ReadWriter) error {
		jd, err := r.getLocked(ctx, rw, uid)
		if err != nil {
			return fmt.Errorf("could not load job state: %w", err)
		}
		if !IsDone(jd.State) {
			jd.State = CANCELED
		}
		if err := r.setLocked(ctx, rw, uid, jd); err != nil {
			return fmt.Errorf("could not mark job %q as canceled: %w", uid, err)
		}
		state = jd.State
		return nil
	})
	return state, err
}
