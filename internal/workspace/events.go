package workspace

import (
	"sync"

	"sahaj/internal/audio"
	"sahaj/internal/models"
	"sahaj/internal/session"
)

type EventType string

const (
	EventState     EventType = "state"
	EventAudioPlay EventType = "audio_play"
	EventAudioStop EventType = "audio_stop"
)

// Event is what a renderer receives from a workspace.
type Event struct {
	Type  EventType         `json:"type"`
	State *session.Snapshot `json:"state,omitempty"`
	// Audio is the clip to play as a data URI.
	Audio string `json:"audio,omitempty"`
	Clip  uint64 `json:"clip,omitempty"`
}

const subscriberBuffer = 32

type hub struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan Event
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Event)}
}

func (h *hub) subscribe() (int, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return -1, ch
	}
	h.next++
	h.subs[h.next] = ch
	return h.next, ch
}

func (h *hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// publish never blocks; a subscriber that fell behind misses events and is
// expected to catch up from the next state snapshot.
func (h *hub) publish(ev Event) (dropped int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	return dropped
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// eventSink plays audio by asking the renderer to do it.
type eventSink struct {
	mu   sync.Mutex
	clip uint64
	emit func(Event)
}

type eventStream struct {
	sink *eventSink
	id   uint64
	once sync.Once
}

func (s *eventSink) Play(clip *models.Blob) (audio.Stream, error) {
	s.mu.Lock()
	s.clip++
	id := s.clip
	s.mu.Unlock()
	s.emit(Event{Type: EventAudioPlay, Audio: clip.DataURI(), Clip: id})
	return &eventStream{sink: s, id: id}, nil
}

func (st *eventStream) Stop() {
	st.once.Do(func() {
		st.sink.emit(Event{Type: EventAudioStop, Clip: st.id})
	})
}
