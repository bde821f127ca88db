package models

// TaskStatus is the lifecycle state of one upload attempt.
type TaskStatus string

const (
	TaskUploading TaskStatus = "uploading"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// TaskSection names the list an upload task currently lives in. A task id
// is a member of exactly one section at any time.
type TaskSection string

const (
	SectionPending   TaskSection = "pending"
	SectionFailed    TaskSection = "failed"
	SectionCompleted TaskSection = "completed"
)
