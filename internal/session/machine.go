package session

import (
	"errors"
	"sync"

	"sahaj/internal/models"
)

var (
	// ErrStale is returned for completions of a call that was superseded or
	// reset. Nothing changes when it is returned.
	ErrStale = errors.New("stale analysis result")
	// ErrInFlight rejects a new upload while an analysis is running.
	ErrInFlight   = errors.New("analysis already in progress")
	ErrNoDocument = errors.New("no document to analyze")
)

// Machine owns one analysis session. Every issued call gets a token from a
// monotonic counter and only the most recent token may complete it.
type Machine struct {
	mu        sync.Mutex
	notifyMu  sync.Mutex // keeps observer delivery in transition order
	state     State
	lastToken uint64
	language  models.Language
	observers []func(Snapshot)
}

func NewMachine() *Machine {
	return &Machine{state: Idle{}, language: models.DefaultLanguage}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Language is the language selected for the session, kept across resets.
func (m *Machine) Language() models.Language {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.language
}

// Observe registers fn to receive every new snapshot in transition order.
// fn must not call back into the machine synchronously.
func (m *Machine) Observe(fn func(Snapshot)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Start begins analysis of a new upload.
func (m *Machine) Start(lang models.Language) (Ticket, error) {
	if !lang.Valid() {
		return Ticket{}, models.ErrUnknownLanguage
	}
	m.mu.Lock()
	if _, busy := m.state.(Loading); busy {
		m.mu.Unlock()
		return Ticket{}, ErrInFlight
	}
	t := m.issueLocked(lang, nil)
	return t, m.commit()
}

// Attach records the document read for the call identified by t.
func (m *Machine) Attach(t Ticket, doc *models.Document) error {
	m.mu.Lock()
	loading, ok := m.state.(Loading)
	if !ok || loading.Token != t.Token || t.Token != m.lastToken {
		m.mu.Unlock()
		return ErrStale
	}
	loading.Document = doc
	m.state = loading
	return m.commit()
}

// ChangeLanguage analyzes the current document again in lang. While a call
// is in flight the new call supersedes it.
func (m *Machine) ChangeLanguage(lang models.Language) (Ticket, *models.Document, error) {
	if !lang.Valid() {
		return Ticket{}, nil, models.ErrUnknownLanguage
	}
	m.mu.Lock()
	doc := documentOf(m.state)
	if doc == nil {
		// Without a document only the preference changes.
		m.language = lang
		_ = m.commit()
		return Ticket{}, nil, ErrNoDocument
	}
	t := m.issueLocked(lang, doc)
	return t, doc, m.commit()
}

// Retry analyzes the retained document again in the current language.
func (m *Machine) Retry() (Ticket, *models.Document, error) {
	return m.ChangeLanguage(m.Language())
}

// Resolve completes the call identified by t with result.
func (m *Machine) Resolve(t Ticket, result *models.AnalysisResult) error {
	m.mu.Lock()
	loading, ok := m.currentLocked(t)
	if !ok {
		m.mu.Unlock()
		return ErrStale
	}
	if loading.Document == nil {
		m.mu.Unlock()
		return ErrNoDocument
	}
	m.state = Success{Language: loading.Language, Document: loading.Document, Result: result.Clone()}
	return m.commit()
}

// Reject fails the call identified by t. Read failures drop the document,
// every other failure keeps it for a retry.
func (m *Machine) Reject(t Ticket, cause error) error {
	m.mu.Lock()
	loading, ok := m.currentLocked(t)
	if !ok {
		m.mu.Unlock()
		return ErrStale
	}
	doc := loading.Document
	if models.IsEncodingError(cause) {
		doc = nil
	}
	msg := "analysis failed"
	if cause != nil {
		msg = cause.Error()
	}
	m.state = Failed{Language: loading.Language, Document: doc, Message: msg, Err: cause}
	return m.commit()
}

// Reset returns to Idle from any state. Calls still in flight become stale.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.lastToken++
	m.state = Idle{}
	_ = m.commit()
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) issueLocked(lang models.Language, doc *models.Document) Ticket {
	m.lastToken++
	m.language = lang
	m.state = Loading{Token: m.lastToken, Language: lang, Document: doc}
	return Ticket{Token: m.lastToken, Language: lang}
}

func (m *Machine) currentLocked(t Ticket) (Loading, bool) {
	loading, ok := m.state.(Loading)
	if !ok || t.Token != m.lastToken || loading.Token != t.Token {
		return Loading{}, false
	}
	return loading, true
}

// commit publishes the new state to observers and releases the lock.
func (m *Machine) commit() error {
	snap := m.snapshotLocked()
	observers := append([]func(Snapshot){}, m.observers...)
	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()
	for _, fn := range observers {
		fn(snap)
	}
	return nil
}

func (m *Machine) snapshotLocked() Snapshot {
	snap := Snapshot{Phase: m.state.Phase(), Token: m.lastToken, Language: m.language}
	switch s := m.state.(type) {
	case Loading:
		snap.HasDocument = s.Document != nil
		snap.Document = documentInfo(s.Document)
	case Success:
		snap.Result = s.Result.Clone()
		snap.HasDocument = true
		snap.Document = documentInfo(s.Document)
	case Failed:
		snap.Error = s.Message
		snap.HasDocument = s.Document != nil
		snap.Document = documentInfo(s.Document)
	}
	return snap
}

func documentOf(s State) *models.Document {
	switch s := s.(type) {
	case Loading:
		return s.Document
	case Success:
		return s.Document
	case Failed:
		return s.Document
	}
	return nil
}
