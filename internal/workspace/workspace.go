// Package workspace holds everything one user works on: the analysis
// session, the conversation about the result, audio playback and the event
// feed a renderer follows.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sahaj/internal/analysis"
	"sahaj/internal/audio"
	"sahaj/internal/chat"
	"sahaj/internal/gateway"
	"sahaj/internal/locate"
	"sahaj/internal/logger"
	"sahaj/internal/models"
	"sahaj/internal/session"
	"sahaj/internal/worker"
)

var (
	ErrNoAnalysis = errors.New("no analysis result yet")
	ErrClosed     = errors.New("workspace closed")
)

// Deps are the services shared by every workspace.
type Deps struct {
	Orchestrator *analysis.Orchestrator
	Chatter      gateway.Chatter
	Locator      *locate.Service
	Dispatcher   *worker.Dispatcher
	Log          logger.Logger
	MaxUpload    int64
}

type Workspace struct {
	id   string
	deps Deps
	log  logger.Logger

	machine *session.Machine
	deck    *audio.Deck
	events  *hub

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	chat     *chat.Session
	speech   *chat.PushSource
	autoPlay bool
	closed   bool
}

func New(id string, deps Deps) *Workspace {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	ws := &Workspace{
		id:      id,
		deps:    deps,
		log:     deps.Log,
		machine: session.NewMachine(),
		events:  newHub(),
		ctx:     ctx,
		cancel:  cancel,
	}
	ws.deck = audio.NewDeck(&eventSink{emit: ws.emit})
	ws.machine.Observe(func(s session.Snapshot) {
		snap := s
		ws.emit(Event{Type: EventState, State: &snap})
	})
	return ws
}

func (ws *Workspace) ID() string { return ws.id }

func (ws *Workspace) emit(ev Event) {
	if dropped := ws.events.publish(ev); dropped > 0 {
		ws.log.Debug("workspace", "slow subscriber missed event", map[string]interface{}{"workspace": ws.id, "event": ev.Type, "dropped": dropped})
	}
}

// Subscribe returns a feed of events starting with the current state, and a
// function that ends the subscription.
func (ws *Workspace) Subscribe() (<-chan Event, func()) {
	id, ch := ws.events.subscribe()
	ws.emitTo(id)
	return ch, func() { ws.events.unsubscribe(id) }
}

func (ws *Workspace) emitTo(id int) {
	snap := ws.machine.Snapshot()
	ws.events.mu.Lock()
	defer ws.events.mu.Unlock()
	if ch, ok := ws.events.subs[id]; ok {
		select {
		case ch <- Event{Type: EventState, State: &snap}:
		default:
		}
	}
}

func (ws *Workspace) Snapshot() session.Snapshot {
	return ws.machine.Snapshot()
}

// Upload reads a new document and starts analyzing it in lang. It returns as
// soon as the analysis is queued. Unsupported files and unknown languages are
// rejected without touching the session.
func (ws *Workspace) Upload(ctx context.Context, u analysis.Upload, lang models.Language) (session.Ticket, error) {
	if err := ws.checkOpen(); err != nil {
		return session.Ticket{}, err
	}
	if !lang.Valid() {
		return session.Ticket{}, models.ErrUnknownLanguage
	}
	if err := analysis.CheckType(u.DeclaredType); err != nil {
		return session.Ticket{}, err
	}
	doc, encErr := analysis.Encode(u, ws.deps.MaxUpload)
	if errors.Is(encErr, models.ErrUnsupportedFileType) {
		return session.Ticket{}, encErr
	}

	ticket, err := ws.machine.Start(lang)
	if err != nil {
		return session.Ticket{}, err
	}
	ws.closeChat()
	if encErr != nil {
		ws.log.Warn("workspace", "read upload failed", map[string]interface{}{"workspace": ws.id, "error": encErr})
		_ = ws.machine.Reject(ticket, encErr)
		return ticket, encErr
	}
	if err := ws.machine.Attach(ticket, doc); err != nil {
		return ticket, err
	}
	return ticket, ws.analyze(ticket, doc)
}

// ChangeLanguage analyzes the current document again in lang. Without a
// document only the language preference changes.
func (ws *Workspace) ChangeLanguage(lang models.Language) (session.Snapshot, error) {
	if err := ws.checkOpen(); err != nil {
		return session.Snapshot{}, err
	}
	ticket, doc, err := ws.machine.ChangeLanguage(lang)
	if errors.Is(err, session.ErrNoDocument) {
		return ws.machine.Snapshot(), nil
	}
	if err != nil {
		return session.Snapshot{}, err
	}
	ws.closeChat()
	if err := ws.analyze(ticket, doc); err != nil {
		return ws.machine.Snapshot(), err
	}
	return ws.machine.Snapshot(), nil
}

// Retry analyzes the retained document again after a failure.
func (ws *Workspace) Retry() (session.Snapshot, error) {
	if err := ws.checkOpen(); err != nil {
		return session.Snapshot{}, err
	}
	ticket, doc, err := ws.machine.Retry()
	if err != nil {
		return ws.machine.Snapshot(), err
	}
	ws.closeChat()
	if err := ws.analyze(ticket, doc); err != nil {
		return ws.machine.Snapshot(), err
	}
	return ws.machine.Snapshot(), nil
}

// Reset goes back to Idle and closes the conversation. Results of calls
// still running are discarded when they arrive.
func (ws *Workspace) Reset() session.Snapshot {
	ws.mu.Lock()
	ws.machine.Reset()
	ws.closeChatLocked()
	ws.mu.Unlock()
	return ws.machine.Snapshot()
}

func (ws *Workspace) analyze(ticket session.Ticket, doc *models.Document) error {
	err := ws.deps.Dispatcher.Submit(worker.Job{
		Type:      worker.Analyze,
		Workspace: ws.id,
		Run:       func() { ws.runAnalysis(ticket, doc) },
	})
	if err != nil {
		_ = ws.machine.Reject(ticket, fmt.Errorf("queue analysis: %w", err))
		return err
	}
	return nil
}

func (ws *Workspace) runAnalysis(ticket session.Ticket, doc *models.Document) {
	result, err := ws.deps.Orchestrator.Analyze(ws.ctx, doc, ticket.Language)
	if err != nil {
		if rerr := ws.machine.Reject(ticket, err); rerr != nil {
			ws.log.Debug("workspace", "dropped stale failure", map[string]interface{}{"workspace": ws.id, "token": ticket.Token, "error": err})
			return
		}
		ws.log.Warn("workspace", "analysis failed", map[string]interface{}{"workspace": ws.id, "token": ticket.Token, "error": err})
		return
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if err := ws.machine.Resolve(ticket, result); err != nil {
		ws.log.Debug("workspace", "dropped stale result", map[string]interface{}{"workspace": ws.id, "token": ticket.Token})
		return
	}
	if ws.closed {
		return
	}
	ws.closeChatLocked()
	conv, err := chat.NewSession(ws.deps.Chatter, result,
		chat.WithDeck(ws.deck),
		chat.WithLogger(ws.log),
		chat.WithLanguage(ticket.Language),
		chat.WithAutoPlay(ws.autoPlay),
	)
	if err != nil {
		ws.log.Error("workspace", "open conversation failed", map[string]interface{}{"workspace": ws.id, "error": err})
		return
	}
	ws.chat = conv
	ws.speech = chat.NewPushSource()
	ws.log.Info("workspace", "analysis ready", map[string]interface{}{"workspace": ws.id, "language": ticket.Language})
}

func (ws *Workspace) closeChat() {
	ws.mu.Lock()
	ws.closeChatLocked()
	ws.mu.Unlock()
}

func (ws *Workspace) closeChatLocked() {
	if ws.chat != nil {
		ws.chat.Close()
		ws.chat = nil
		ws.speech = nil
	}
}

func (ws *Workspace) conversation() (*chat.Session, *chat.PushSource, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.closed {
		return nil, nil, ErrClosed
	}
	if ws.chat == nil {
		return nil, nil, ErrNoAnalysis
	}
	return ws.chat, ws.speech, nil
}

// callContext ends when either the caller or the workspace goes away.
func (ws *Workspace) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(ws.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Ask puts a question about the analyzed document. Gateway failures come
// back as a turn carrying the fallback answer.
func (ws *Workspace) Ask(ctx context.Context, query string, lang models.Language) (*chat.Turn, error) {
	conv, _, err := ws.conversation()
	if err != nil {
		return nil, err
	}
	ctx, cancel := ws.callContext(ctx)
	defer cancel()
	return worker.Do(ctx, ws.deps.Dispatcher, worker.Chat, ws.id, func() (*chat.Turn, error) {
		return conv.Ask(ctx, query, lang)
	})
}

func (ws *Workspace) Transcript() ([]models.ChatMessage, error) {
	conv, _, err := ws.conversation()
	if err != nil {
		return nil, err
	}
	return conv.Transcript(), nil
}

type DictationAction string

const (
	DictationStart   DictationAction = "start"
	DictationPartial DictationAction = "partial"
	DictationStop    DictationAction = "stop"
	DictationToggle  DictationAction = "toggle"
)

// DictationState is the draft and whether the microphone is live.
type DictationState struct {
	Listening bool   `json:"listening"`
	Draft     string `json:"draft"`
}

// Dictate drives speech input. Partial transcriptions recognized by the
// client are pushed with DictationPartial and become the draft.
func (ws *Workspace) Dictate(action DictationAction, partial string) (DictationState, error) {
	conv, src, err := ws.conversation()
	if err != nil {
		return DictationState{}, err
	}
	switch action {
	case DictationStart:
		err = conv.StartListening(ws.ctx, src)
	case DictationToggle:
		_, err = conv.ToggleListening(ws.ctx, src)
	case DictationStop:
		conv.StopListening()
	case DictationPartial:
		if err = src.Push(partial); err == nil {
			// wait for the listener so the returned draft is current
			err = waitDraft(ws.ctx, conv, partial)
		}
	default:
		err = fmt.Errorf("unknown dictation action %q", action)
	}
	return DictationState{Listening: conv.Listening(), Draft: conv.Draft()}, err
}

// SendDraft asks whatever dictation has put into the draft.
func (ws *Workspace) SendDraft(ctx context.Context) (*chat.Turn, error) {
	conv, _, err := ws.conversation()
	if err != nil {
		return nil, err
	}
	conv.StopListening()
	ctx, cancel := ws.callContext(ctx)
	defer cancel()
	return worker.Do(ctx, ws.deps.Dispatcher, worker.Chat, ws.id, func() (*chat.Turn, error) {
		return conv.SendDraft(ctx)
	})
}

// SetAutoPlay toggles speaking answers as they arrive. It applies to the
// current conversation and to every later one.
func (ws *Workspace) SetAutoPlay(on bool) {
	ws.mu.Lock()
	ws.autoPlay = on
	conv := ws.chat
	ws.mu.Unlock()
	if conv != nil {
		conv.SetAutoPlay(on)
	} else if !on {
		ws.deck.Stop()
	}
}

func (ws *Workspace) AutoPlay() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.autoPlay
}

// Play replays a spoken answer, stopping the current one.
func (ws *Workspace) Play(audioURI string) error {
	clip, err := models.ParseDataURI(audioURI)
	if err != nil {
		return err
	}
	return ws.deck.Play(clip)
}

// Locate finds offices near coords. An empty formType is derived from the
// current analysis when there is one.
func (ws *Workspace) Locate(ctx context.Context, formType string, coords *models.Coordinates) ([]string, error) {
	if err := ws.checkOpen(); err != nil {
		return nil, err
	}
	if err := coords.Validate(); err != nil {
		return nil, err
	}
	if formType == "" {
		if res := ws.machine.Snapshot().Result; res != nil {
			formType = locate.FormContext(res)
		}
	}
	ctx, cancel := ws.callContext(ctx)
	defer cancel()
	return worker.Do(ctx, ws.deps.Dispatcher, worker.Locate, ws.id, func() ([]string, error) {
		return ws.deps.Locator.Locate(ctx, formType, coords)
	})
}

// Checklist renders the required actions of the current result.
func (ws *Workspace) Checklist(title string) (string, error) {
	res := ws.machine.Snapshot().Result
	if res == nil {
		return "", ErrNoAnalysis
	}
	return res.Checklist(title), nil
}

func (ws *Workspace) checkOpen() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.closed {
		return ErrClosed
	}
	return nil
}

// Close ends the workspace: running calls are abandoned, the conversation is
// discarded and every subscriber feed is closed.
func (ws *Workspace) Close() {
	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		return
	}
	ws.closed = true
	ws.closeChatLocked()
	ws.mu.Unlock()

	ws.cancel()
	ws.machine.Reset()
	ws.deck.Stop()
	ws.deps.Dispatcher.CancelWorkspace(ws.id)
	ws.events.close()
}

const draftWait = 200 * time.Millisecond

func waitDraft(ctx context.Context, conv *chat.Session, want string) error {
	deadline := time.NewTimer(draftWait)
	defer deadline.Stop()
	tick := time.NewTicker(2 * time.Millisecond)
	defer tick.Stop()
	for conv.Draft() != want {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-tick.C:
		}
	}
	return nil
}
