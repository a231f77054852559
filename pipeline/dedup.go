package pipeline

import "sync"

// Dedup filters already-seen message ids and immediate same-author repeats
// within one live session. Each poller owns exactly one instance; Reset is
// called by the session tracker when the session ends or a new one starts.
type Dedup struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	lastText map[string]string
}

func NewDedup() *Dedup {
	return &Dedup{
		seen:     make(map[string]struct{}),
		lastText: make(map[string]string),
	}
}

// Verdict says why a message was or was not forwarded.
type Verdict int

const (
	Accepted Verdict = iota
	DuplicateID
	RepeatText
)

// Accept reports whether msg should be forwarded. Decision order: the id set
// first, then the spam guard. Only the immediately preceding text per author
// is remembered, not full history.
func (d *Dedup) Accept(msg Message) bool {
	return d.AcceptVerdict(msg) == Accepted
}

// AcceptVerdict is Accept with the rejection reason exposed.
func (d *Dedup) AcceptVerdict(msg Message) Verdict {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[msg.ID]; ok {
		return DuplicateID
	}
	d.seen[msg.ID] = struct{}{}
	if last, ok := d.lastText[msg.Author]; ok && last == msg.Text {
		return RepeatText
	}
	d.lastText[msg.Author] = msg.Text
	return Accepted
}

// Reset clears all registry state. Dedup scope is bounded by one live session.
func (d *Dedup) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]struct{})
	d.lastText = make(map[string]string)
}

// Len returns the number of distinct ids seen this session.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
