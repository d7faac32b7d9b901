package audio

import (
	"errors"
	"sync"

	"sahaj/internal/models"
)

// Stream is an audio clip that is currently playing.
type Stream interface {
	Stop()
}

// Sink starts playback of a clip on some output.
type Sink interface {
	Play(clip *models.Blob) (Stream, error)
}

var ErrNoSink = errors.New("audio sink not configured")

// Deck guarantees that at most one stream plays at a time: starting a clip
// stops the current one first.
type Deck struct {
	mu      sync.Mutex
	sink    Sink
	current Stream
}

func NewDeck(sink Sink) *Deck {
	return &Deck{sink: sink}
}

func (d *Deck) Play(clip *models.Blob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sink == nil {
		return ErrNoSink
	}
	if d.current != nil {
		d.current.Stop()
		d.current = nil
	}
	stream, err := d.sink.Play(clip)
	if err != nil {
		return err
	}
	d.current = stream
	return nil
}

func (d *Deck) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != nil {
		d.current.Stop()
		d.current = nil
	}
}

func (d *Deck) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current != nil
}

// Finished clears the current stream when it ended on its own. Stale
// notifications for an already replaced stream are ignored.
func (d *Deck) Finished(s Stream) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == s {
		d.current = nil
	}
}
