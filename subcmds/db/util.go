// Copyright (c) 2023 BVK Chaitanya

package db

import (
	"fmt"

	"github.com/bvk/pricebot/gobs"
)

func TypeNameValue(typename string) (any, error) {
	var v any
	switch typename {
	case "RobotState":
		v = new(gobs.RobotState)
	case "JobData":
		v = new(gobs.JobData)
	case "RobotJobState":
		v = new(gobs.RobotJobState)
	case "TelegramState":
		v = new(gobs.TelegramState)
	case "KeyValue":
		v = new(gobs.KeyValue)
	default:
		return nil, fmt.Errorf("unsupported type name %q", typename)
	}
	return v, nil
}
