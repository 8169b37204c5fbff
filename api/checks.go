// Copyright (c) 2026 BVK Chaitanya

package api

import "fmt"

func (r *RobotAddRequest) Check() error {
	if len(r.Name) == 0 {
		return fmt.Errorf("robot name cannot be empty")
	}
	return nil
}

func (r *WatchAddRequest) Check() error {
	if len(r.Robot) == 0 {
		return fmt.Errorf("robot name cannot be empty")
	}
	if len(r.Ticker) == 0 {
		return fmt.Errorf("ticker cannot be empty")
	}
	if r.Direction != "BUY" && r.Direction != "SELL" {
		return fmt.Errorf("direction must be BUY or SELL")
	}
	if !r.TargetPrice.IsPositive() {
		return fmt.Errorf("target price must be positive")
	}
	return nil
}

func (r *WatchRemoveRequest) Check() error {
	if len(r.Robot) == 0 {
		return fmt.Errorf("robot name cannot be empty")
	}
	if len(r.Ticker) == 0 {
		return fmt.Errorf("ticker cannot be empty")
	}
	return nil
}
