// Copyright (c) 2026 BVK Chaitanya

package store

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/bvk/pricebot/gobs"
	"github.com/bvk/pricebot/kvutil"
	"github.com/bvkgo/kv"
)

const Keyspace = "/robots/"

// LocalStore keeps robot state rows in a local key-value database. It
// serves as the mirror behind the remote store and as the only store in
// standalone deployments.
type LocalStore struct {
	db kv.Database
}

func NewLocalStore(db kv.Database) *LocalStore {
	return &LocalStore{db: db}
}

func stateKey(robot string) string {
	return path.Join(Keyspace, robot, "state")
}

func (s *LocalStore) Load(ctx context.Context, robot string) (*gobs.RobotState, error) {
	state, err := kvutil.GetDB[gobs.RobotState](ctx, s.db, stateKey(robot))
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *LocalStore) Save(ctx context.Context, robot string, state *gobs.RobotState) error {
	state.ModifiedAt = time.Now()
	return kvutil.SetDB(ctx, s.db, stateKey(robot), state)
}

func (s *LocalStore) DeleteTicker(ctx context.Context, robot, ticker string) error {
	key := stateKey(robot)
	return kv.WithReadWriter(ctx, s.db, func(ctx context.Context, rw kv.ReadWriter) error {
		state, err := kvutil.Get[gobs.RobotState](ctx, rw, key)
		if err != nil {
			return fmt.Errorf("could not load robot state: %w", err)
		}
		dropTicker(state, ticker)
		state.ModifiedAt = time.Now()
		return kvutil.Set(ctx, rw, key, state)
	})
}

// Scan invokes the callback with every robot that has a state row.
func (s *LocalStore) Scan(ctx context.Context, fn func(robot string, state *gobs.RobotState) error) error {
	begin, end := kvutil.PathRange(Keyspace)
	cb := func(ctx context.Context, _ kv.Reader, key string, state *gobs.RobotState) error {
		robot := path.Base(path.Dir(key))
		return fn(robot, state)
	}
	return kvutil.AscendDB(ctx, s.db, begin, end, cb)
}
