package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"sahaj/internal/audio"
	"sahaj/internal/gateway"
	"sahaj/internal/logger"
	"sahaj/internal/models"
)

// FallbackMessage is appended instead of an answer when the gateway fails.
const FallbackMessage = "Sorry, I couldn't process that. Please try again."

var (
	ErrEmptyQuery = errors.New("query is empty")
	ErrClosed     = errors.New("chat session closed")
)

// Turn is one question with its answer.
type Turn struct {
	Question models.ChatMessage `json:"question"`
	Answer   models.ChatMessage `json:"answer"`
	// Audio is the spoken answer as a data URI, empty on failure.
	Audio  string `json:"audio,omitempty"`
	Failed bool   `json:"failed"`
}

// Session is a conversation about one analyzed document. The transcript only
// grows and lives as long as the session.
type Session struct {
	gw      gateway.Chatter
	context string
	deck    *audio.Deck
	log     logger.Logger

	mu         sync.Mutex
	transcript []models.ChatMessage
	language   models.Language
	autoPlay   bool
	closed     bool

	dictation
}

type Option func(*Session)

func WithDeck(deck *audio.Deck) Option {
	return func(s *Session) { s.deck = deck }
}

func WithLogger(log logger.Logger) Option {
	return func(s *Session) { s.log = log }
}

func WithLanguage(lang models.Language) Option {
	return func(s *Session) {
		if lang.Valid() {
			s.language = lang
		}
	}
}

func WithAutoPlay(on bool) Option {
	return func(s *Session) { s.autoPlay = on }
}

// NewSession starts a conversation grounded on analysis.
func NewSession(gw gateway.Chatter, analysis *models.AnalysisResult, opts ...Option) (*Session, error) {
	if analysis == nil {
		return nil, errors.New("analysis required")
	}
	ctxJSON, err := analysis.ContextJSON()
	if err != nil {
		return nil, err
	}
	s := &Session{
		gw:       gw,
		context:  ctxJSON,
		language: models.DefaultLanguage,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ask sends query with the full analysis as context. A gateway failure does
// not surface as an error: the fallback message is appended instead and the
// turn is marked Failed. An empty lang means the session language.
func (s *Session) Ask(ctx context.Context, query string, lang models.Language) (*Turn, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if lang == "" {
		lang = s.Language()
	}
	if !lang.Valid() {
		return nil, models.ErrUnknownLanguage
	}

	question := models.ChatMessage{Role: models.RoleUser, Text: query, CreatedAt: time.Now()}
	if err := s.append(question); err != nil {
		return nil, err
	}

	turn := &Turn{Question: question}
	reply, err := s.gw.Chat(ctx, gateway.ChatRequest{
		Query:        query,
		Language:     lang,
		FormAnalysis: s.context,
	})
	if err != nil || reply == nil {
		s.log.Warn("chat", "answer failed, using fallback", map[string]interface{}{"error": err, "language": lang})
		turn.Failed = true
		turn.Answer = models.ChatMessage{Role: models.RoleAssistant, Text: FallbackMessage, CreatedAt: time.Now()}
	} else {
		turn.Answer = models.ChatMessage{Role: models.RoleAssistant, Text: reply.Text, CreatedAt: time.Now()}
		turn.Audio = reply.Audio
	}
	if err := s.append(turn.Answer); err != nil {
		return nil, err
	}

	if !turn.Failed && turn.Audio != "" && s.AutoPlay() {
		if err := s.Play(turn.Audio); err != nil {
			s.log.Warn("chat", "auto-play failed", map[string]interface{}{"error": err})
		}
	}
	return turn, nil
}

// Play starts a spoken answer, stopping whatever is currently playing.
func (s *Session) Play(audioURI string) error {
	if s.deck == nil {
		return audio.ErrNoSink
	}
	clip, err := models.ParseDataURI(audioURI)
	if err != nil {
		return err
	}
	return s.deck.Play(clip)
}

func (s *Session) StopAudio() {
	if s.deck != nil {
		s.deck.Stop()
	}
}

func (s *Session) append(msg models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.transcript = append(s.transcript, msg)
	return nil
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

func (s *Session) Language() models.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

func (s *Session) SetLanguage(lang models.Language) error {
	if !lang.Valid() {
		return models.ErrUnknownLanguage
	}
	s.mu.Lock()
	s.language = lang
	s.mu.Unlock()
	return nil
}

func (s *Session) AutoPlay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoPlay
}

func (s *Session) SetAutoPlay(on bool) {
	s.mu.Lock()
	s.autoPlay = on
	s.mu.Unlock()
	if !on {
		s.StopAudio()
	}
}

// Close stops dictation and audio and discards the transcript.
func (s *Session) Close() {
	s.StopListening()
	s.StopAudio()
	s.mu.Lock()
	s.closed = true
	s.transcript = nil
	s.mu.Unlock()
}
