package engine

import "sync"

// Input is everything observed since the previous tick.
type Input struct {
	Keys        []string
	TogglePause bool
	Quit        bool
}

// InputSource is polled once per tick, before movement.
type InputSource interface {
	Poll() Input
}

// InputQueue buffers input from other goroutines (terminal, signals) until
// the simulation polls it.
type InputQueue struct {
	mu      sync.Mutex
	pending Input
}

func (q *InputQueue) PushKey(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending.Keys = append(q.pending.Keys, key)
}

// TogglePause requests a pause toggle. Two requests within one tick cancel.
func (q *InputQueue) TogglePause() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending.TogglePause = !q.pending.TogglePause
}

func (q *InputQueue) Quit() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending.Quit = true
}

// Poll drains the queue.
func (q *InputQueue) Poll() Input {
	q.mu.Lock()
	defer q.mu.Unlock()
	in := q.pending
	q.pending = Input{}
	return in
}
