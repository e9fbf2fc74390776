package auth

import "sync"

type State string

const (
	SignedIn  State = "signed_in"
	SignedOut State = "signed_out"
)

// Watcher fans out per-user authentication changes. Publishing only
// notifies subscribers when the user's state actually changes.
type Watcher struct {
	mu     sync.Mutex
	states map[string]State
	subs   map[string]map[int]chan State
	next   int
}

func NewWatcher() *Watcher {
	return &Watcher{
		states: make(map[string]State),
		subs:   make(map[string]map[int]chan State),
	}
}

func (w *Watcher) State(userID string) State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.states[userID]; ok {
		return s
	}
	return SignedOut
}

// Subscribe returns a channel of state changes for userID and a function
// that cancels the subscription and closes the channel.
func (w *Watcher) Subscribe(userID string) (<-chan State, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.next++
	id := w.next
	ch := make(chan State, 4)
	if w.subs[userID] == nil {
		w.subs[userID] = make(map[int]chan State)
	}
	w.subs[userID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if subs, ok := w.subs[userID]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(w.subs, userID)
				}
			}
			close(ch)
		})
	}
}

func (w *Watcher) Publish(userID string, state State) {
	w.mu.Lock()
	defer w.mu.Unlock()

	current, ok := w.states[userID]
	if !ok {
		current = SignedOut
	}
	if current == state {
		return
	}
	if state == SignedOut {
		delete(w.states, userID)
	} else {
		w.states[userID] = state
	}

	for _, ch := range w.subs[userID] {
		select {
		case ch <- state:
		default:
		}
	}
}
