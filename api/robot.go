// Copyright (c) 2026 BVK Chaitanya

// Package api defines the request/response types for the pricebot service
// endpoints.
package api

const RobotListPath = "/robot/list"

type RobotListRequest struct {
}

type RobotListResponseItem struct {
	Name  string
	State string

	ManualFlag bool

	NumTickers int
}

type RobotListResponse struct {
	Robots []*RobotListResponseItem
}

const RobotAddPath = "/robot/add"

type RobotAddRequest struct {
	Name string
}

type RobotAddResponse struct {
}

const RobotResumePath = "/robot/resume"

type RobotResumeRequest struct {
	Name string
}

type RobotResumeResponse struct {
	FinalState string
}

const RobotPausePath = "/robot/pause"

type RobotPauseRequest struct {
	Name string
}

type RobotPauseResponse struct {
	FinalState string
}

const RobotCancelPath = "/robot/cancel"

type RobotCancelRequest struct {
	Name string
}

type RobotCancelResponse struct {
	FinalState string
}
