package pipeline

import (
	"sort"
	"sync"

	"roster/pkg/logging"
)

// Handler processes one command during a drain. Any follow-up commands it
// produces must go back through Enqueue or Requeue; they land in the next
// cycle's queue.
type Handler func(cmd Command)

// Queue is the single ordered command queue, drained fully once per update
// cycle. Ordering key is (priority, sequence) ascending. Commands enqueued
// while a drain is in progress are deferred to the following cycle, which
// guarantees every drain terminates and cascades become visible one graph
// layer per cycle.
type Queue struct {
	mu       sync.Mutex
	nextSeq  uint64
	current  []Command
	next     []Command
	draining bool
}

// NewQueue creates an empty command queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue adds a command, assigning it the next sequence number.
// If a not-yet-executing command with the same target and kind is already
// queued, only the most recent is kept; the stale duplicate is silently
// dropped.
func (q *Queue) Enqueue(cmd Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cmd.seq = q.nextSeq
	q.nextSeq++
	q.push(cmd)
}

// Requeue re-adds a deferred command, preserving its original sequence
// number. Deferral is a normal, silently-retried condition, not an error.
func (q *Queue) Requeue(cmd Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.push(cmd)
}

// push places the command in the proper cycle's queue and applies
// deduplication: of two commands with the same target and kind, the one
// with the higher sequence number survives. The comparison matters when a
// requeued command, which keeps its original sequence, meets a fresh
// enqueue of the same kind. Caller holds the lock.
func (q *Queue) push(cmd Command) {
	bucket := &q.current
	if q.draining {
		bucket = &q.next
	}
	for i, existing := range *bucket {
		if existing.Target == cmd.Target && existing.Kind == cmd.Kind {
			if existing.seq > cmd.seq {
				logging.Debug("Pipeline", "Dropping stale duplicate %s", cmd)
				return
			}
			logging.Debug("Pipeline", "Dropping stale duplicate %s", existing)
			*bucket = append((*bucket)[:i], (*bucket)[i+1:]...)
			break
		}
	}
	*bucket = append(*bucket, cmd)
}

// Len returns how many commands await the next drain.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.current)
}

// Drain processes every queued command in (priority, sequence) order and
// then promotes commands deferred during the drain to the next cycle.
// It is called once per update cycle, at the pre-update point.
func (q *Queue) Drain(handle Handler) {
	q.mu.Lock()
	batch := q.current
	q.current = nil
	q.draining = true
	q.mu.Unlock()

	sort.SliceStable(batch, func(i, j int) bool {
		pi, pj := batch[i].Kind.Priority(), batch[j].Kind.Priority()
		if pi != pj {
			return pi < pj
		}
		return batch[i].seq < batch[j].seq
	})

	for _, cmd := range batch {
		handle(cmd)
	}

	q.mu.Lock()
	q.draining = false
	q.current = append(q.current, q.next...)
	q.next = nil
	q.mu.Unlock()
}
