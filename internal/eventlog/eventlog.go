// Package eventlog provides the fixed-capacity log of human-readable events.
package eventlog

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of entries retained before the oldest is evicted.
const DefaultCapacity = 35

// Entry is one timestamped log line.
type Entry struct {
	Timestamp time.Time
	Message   string
}

// Observer is called synchronously for every appended entry.
// It must not block.
type Observer func(Entry)

// Log is a ring buffer of entries. It is safe for concurrent use: the control
// loop appends while HTTP handlers read copies.
type Log struct {
	mu        sync.Mutex
	buf       []Entry
	head      int // next write position
	count     int
	observers []Observer
}

// New creates a Log holding at most capacity entries.
func New(capacity int) *Log {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Log{buf: make([]Entry, capacity)}
}

// Observe registers fn to receive every subsequent append.
func (l *Log) Observe(fn Observer) {
	l.mu.Lock()
	l.observers = append(l.observers, fn)
	l.mu.Unlock()
}

// Append adds an entry, evicting the oldest once the log is full.
func (l *Log) Append(ts time.Time, msg string) {
	e := Entry{Timestamp: ts, Message: msg}

	l.mu.Lock()
	l.buf[l.head] = e
	l.head = (l.head + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
	observers := l.observers
	l.mu.Unlock()

	for _, fn := range observers {
		fn(e)
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]Entry, l.count)
	// Oldest item is at (head - count) mod capacity
	start := (l.head - l.count + len(l.buf)) % len(l.buf)
	for i := 0; i < l.count; i++ {
		result[i] = l.buf[(start+i)%len(l.buf)]
	}
	return result
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Capacity returns the maximum number of retained entries.
func (l *Log) Capacity() int {
	return len(l.buf)
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	for i := range l.buf {
		l.buf[i] = Entry{}
	}
	l.head = 0
	l.count = 0
	l.mu.Unlock()
}
