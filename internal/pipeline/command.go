package pipeline

import (
	"fmt"

	"roster/internal/graph"
)

// Kind is the requested transition a command carries.
type Kind int

const (
	// KindInit requests the service be brought up.
	KindInit Kind = iota
	// KindDeinit requests the service be spun down.
	KindDeinit
	// KindForceDown drives the service down immediately, bypassing and
	// cancelling any running task.
	KindForceDown
	// KindDataUpdate replaces the service's data payload.
	KindDataUpdate
)

// String makes Kind satisfy the fmt.Stringer interface.
func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindDeinit:
		return "deinit"
	case KindForceDown:
		return "force-down"
	case KindDataUpdate:
		return "data-update"
	default:
		return "unknown"
	}
}

// Priority derives the ordering rank from the kind. Lower executes first:
// teardown requests outrank start requests, so work that is about to be
// torn down is not started in vain.
func (k Kind) Priority() int {
	switch k {
	case KindForceDown:
		return 0
	case KindDeinit:
		return 1
	case KindInit:
		return 2
	case KindDataUpdate:
		return 3
	default:
		return 4
	}
}

// Command is a requested transition for one service. The sequence number is
// assigned by the queue and gives stable ordering among equal priorities; a
// deferred command keeps its original sequence number when re-queued.
type Command struct {
	Target graph.NodeID
	Kind   Kind
	// Reason carries the failure for ForceDown commands.
	Reason error
	// Payload carries the incoming data for DataUpdate commands.
	Payload any
	// Cascaded marks commands synthesized by cascading teardown, so the
	// resulting event can report the true cause.
	Cascaded bool
	// Source records which dependency drove a cascaded command.
	Source graph.NodeID

	seq uint64
}

// Seq returns the command's sequence number.
func (c Command) Seq() uint64 { return c.seq }

// String renders the command for logs.
func (c Command) String() string {
	return fmt.Sprintf("%s(%s, seq=%d)", c.Kind, c.Target, c.seq)
}
