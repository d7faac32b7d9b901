package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"sahaj/internal/models"
)

var (
	ErrListening    = errors.New("already listening")
	ErrNotListening = errors.New("not listening")
)

// SpeechSource produces partial transcriptions of the user's speech. Each
// value on the channel is the full transcription so far; the channel closes
// when recognition ends.
type SpeechSource interface {
	Start(ctx context.Context, lang models.Language) (<-chan string, error)
	Stop()
}

// dictation fills the chat draft from a speech source.
type dictation struct {
	dmu    sync.Mutex
	draft  string
	source SpeechSource
	cancel context.CancelFunc
	done   chan struct{}
}

// StartListening begins filling the draft from src in the session language.
// The draft follows the latest partial result until the source ends or
// StopListening is called.
func (s *Session) StartListening(ctx context.Context, src SpeechSource) error {
	if src == nil {
		return errors.New("speech source required")
	}
	s.dmu.Lock()
	if s.source != nil {
		s.dmu.Unlock()
		return ErrListening
	}
	ctx, cancel := context.WithCancel(ctx)
	partials, err := src.Start(ctx, s.Language())
	if err != nil {
		s.dmu.Unlock()
		cancel()
		return err
	}
	done := make(chan struct{})
	s.source, s.cancel, s.done = src, cancel, done
	s.dmu.Unlock()

	go s.listen(ctx, src, partials, done)
	return nil
}

func (s *Session) listen(ctx context.Context, src SpeechSource, partials <-chan string, done chan struct{}) {
	defer close(done)
	defer func() {
		s.dmu.Lock()
		if s.source == src {
			s.source, s.cancel, s.done = nil, nil, nil
		}
		s.dmu.Unlock()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case text, ok := <-partials:
			if !ok {
				return
			}
			s.dmu.Lock()
			if s.source == src {
				s.draft = text
			}
			s.dmu.Unlock()
		}
	}
}

// StopListening ends dictation and waits for the listener to exit. The draft
// keeps the last partial result.
func (s *Session) StopListening() {
	s.dmu.Lock()
	src, cancel, done := s.source, s.cancel, s.done
	s.source, s.cancel, s.done = nil, nil, nil
	s.dmu.Unlock()
	if src == nil {
		return
	}
	src.Stop()
	cancel()
	<-done
}

// ToggleListening starts dictation when idle and stops it otherwise. It
// reports whether the session is listening afterwards.
func (s *Session) ToggleListening(ctx context.Context, src SpeechSource) (bool, error) {
	if s.Listening() {
		s.StopListening()
		return false, nil
	}
	if err := s.StartListening(ctx, src); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) Listening() bool {
	s.dmu.Lock()
	defer s.dmu.Unlock()
	return s.source != nil
}

func (s *Session) Draft() string {
	s.dmu.Lock()
	defer s.dmu.Unlock()
	return s.draft
}

func (s *Session) SetDraft(text string) {
	s.dmu.Lock()
	s.draft = text
	s.dmu.Unlock()
}

// SendDraft asks the current draft and clears it.
func (s *Session) SendDraft(ctx context.Context) (*Turn, error) {
	s.dmu.Lock()
	draft := strings.TrimSpace(s.draft)
	if draft == "" {
		s.dmu.Unlock()
		return nil, ErrEmptyQuery
	}
	s.draft = ""
	s.dmu.Unlock()
	return s.Ask(ctx, draft, "")
}

// PushSource is a SpeechSource fed by the caller, used when recognition runs
// on the client and partial results arrive over HTTP.
type PushSource struct {
	mu     sync.Mutex
	out    chan string
	closed bool
}

func NewPushSource() *PushSource {
	return &PushSource{}
}

func (p *PushSource) Start(_ context.Context, _ models.Language) (<-chan string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil && !p.closed {
		return nil, ErrListening
	}
	p.out = make(chan string, 16)
	p.closed = false
	return p.out, nil
}

// Push delivers a partial transcription. Older partials are dropped when the
// listener falls behind, since each one supersedes the last.
func (p *PushSource) Push(partial string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil || p.closed {
		return ErrNotListening
	}
	for {
		select {
		case p.out <- partial:
			return nil
		default:
			select {
			case <-p.out:
			default:
			}
		}
	}
}

func (p *PushSource) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil && !p.closed {
		close(p.out)
		p.closed = true
	}
}
