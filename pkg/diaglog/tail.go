// Keeps recent diagnostics around for display, and splits subprocess output into log lines
package diaglog

import (
	"fmt"
	"sync"
	"time"
)

type Entry struct {
	At      time.Time
	Message string
}

func (e Entry) String() string {
	return e.At.Format("15:04:05") + " " + e.Message
}

// bounded: only the last "capacity" entries are retained
type Tail struct {
	entries  []Entry
	next     int // write position once entries is full
	capacity int
	now      func() time.Time
	mu       sync.Mutex
}

func NewTail(capacity int) *Tail {
	if capacity < 1 {
		capacity = 1
	}

	return &Tail{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		now:      time.Now,
	}
}

func (t *Tail) Add(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := Entry{At: t.now(), Message: message}

	if len(t.entries) < t.capacity {
		t.entries = append(t.entries, entry)
		return
	}

	t.entries[t.next] = entry
	t.next = (t.next + 1) % t.capacity
}

func (t *Tail) Addf(format string, args ...any) {
	t.Add(fmt.Sprintf(format, args...))
}

// oldest first
func (t *Tail) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	ordered := make([]Entry, 0, len(t.entries))
	ordered = append(ordered, t.entries[t.next:]...)
	ordered = append(ordered, t.entries[:t.next]...)

	return ordered
}
