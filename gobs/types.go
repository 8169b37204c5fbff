// Copyright (c) 2023 BVK Chaitanya

package gobs

type KeyValue struct {
	Key   string
	Value []byte
}

// Job lifecycle states recorded in the JobData.State field.
const (
	PAUSED    = "PAUSED"
	RUNNING   = "RUNNING"
	COMPLETED = "COMPLETED"
	CANCELED  = "CANCELED"
	FAILED    = "FAILED"
)

type JobData struct {
	ID       string
	Typename string
	Flags    uint64

	State string
}

type RobotJobState struct {
	CurrentState string

	NeedsManualResume bool
}

type TelegramState struct {
	UserChatIDMap map[string]int64
}
