package engine

import "github.com/driftsync/driftsync/internal/ids"

// IoAction is the kind of storage work a task asks for.
type IoAction int

const (
	// IoPut writes a value at a key.
	IoPut IoAction = iota + 1
	// IoLoad reads the value at a key.
	IoLoad
	// IoLoadRange reads every key/value under a key prefix, in key order.
	IoLoadRange
	// IoDelete removes a key.
	IoDelete
)

func (a IoAction) String() string {
	switch a {
	case IoPut:
		return "put"
	case IoLoad:
		return "load"
	case IoLoadRange:
		return "load_range"
	case IoDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// IoTask is one unit of storage work the engine hands to the storage
// collaborator. The task ID is minted by the engine when the task is issued
// and is the sole handle tying the eventual IoResult back to the command
// that needed it.
type IoTask struct {
	ID      ids.IoTaskID
	Action  IoAction
	Key     string
	Payload []byte
}

// IoEntry is one key/value pair in a range load, in key order.
type IoEntry struct {
	Key   string
	Value []byte
}

// IoResult reports a finished storage task. Exactly one IoResult exists per
// issued task; the storage collaborator's bookkeeping guarantees the TaskID
// matches a task it was given.
type IoResult struct {
	TaskID  ids.IoTaskID
	Action  IoAction
	Payload []byte    // IoLoad
	Entries []IoEntry // IoLoadRange
	Err     string    // empty on success
}

// OK reports whether the task succeeded.
func (r IoResult) OK() bool { return r.Err == "" }
