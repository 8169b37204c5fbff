// Copyright (c) 2026 BVK Chaitanya

package api

import "time"

const StatusPath = "/status"

// UpdatesPath serves live poll-cycle updates over a websocket.
const UpdatesPath = "/updates"

type StatusRequest struct {
}

type StatusResponse struct {
	Uptime string

	SessionOpen bool
	NextOpen    time.Time

	Robots []*RobotListResponseItem
}
