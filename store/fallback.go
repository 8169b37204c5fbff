// Copyright (c) 2026 BVK Chaitanya

package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/bvk/pricebot/gobs"
)

// FallbackStore pairs the remote store with a local mirror. The remote copy
// is authoritative; the mirror is refreshed on every successful remote
// operation and answers reads while the remote is unreachable.
type FallbackStore struct {
	remote Store
	mirror Store
}

func NewFallbackStore(remote, mirror Store) *FallbackStore {
	return &FallbackStore{remote: remote, mirror: mirror}
}

func (s *FallbackStore) Load(ctx context.Context, robot string) (*gobs.RobotState, error) {
	state, err := s.remote.Load(ctx, robot)
	if err == nil {
		if merr := s.mirror.Save(ctx, robot, state); merr != nil {
			log.Printf("could not refresh local mirror for robot %q (ignored): %v", robot, merr)
		}
		return state, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		// The remote answered and the row is genuinely absent.
		return nil, err
	}

	log.Printf("could not load robot %q from remote store, using local mirror (will retry): %v", robot, err)
	state, merr := s.mirror.Load(ctx, robot)
	if merr != nil {
		return nil, fmt.Errorf("remote store load failed (%v) and local mirror load failed: %w", err, merr)
	}
	return state, nil
}

func (s *FallbackStore) Save(ctx context.Context, robot string, state *gobs.RobotState) error {
	merr := s.mirror.Save(ctx, robot, state)
	if merr != nil {
		log.Printf("could not save robot %q to local mirror (ignored): %v", robot, merr)
	}
	if err := s.remote.Save(ctx, robot, state); err != nil {
		if merr != nil {
			return fmt.Errorf("remote store save failed (%v) and local mirror save failed: %w", err, merr)
		}
		// The mirror has the latest copy; the next save retries the remote.
		log.Printf("could not save robot %q to remote store (will retry): %v", robot, err)
	}
	return nil
}

func (s *FallbackStore) DeleteTicker(ctx context.Context, robot, ticker string) error {
	if err := s.mirror.DeleteTicker(ctx, robot, ticker); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("could not delete ticker %q from local mirror of robot %q (ignored): %v", ticker, robot, err)
	}
	if err := s.remote.DeleteTicker(ctx, robot, ticker); err != nil {
		return fmt.Errorf("could not delete ticker %q from remote store: %w", ticker, err)
	}
	return nil
}
