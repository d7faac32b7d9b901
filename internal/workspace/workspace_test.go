package workspace

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sahaj/internal/analysis"
	"sahaj/internal/audio"
	"sahaj/internal/chat"
	"sahaj/internal/gateway"
	"sahaj/internal/locate"
	"sahaj/internal/models"
	"sahaj/internal/session"
	"sahaj/internal/worker"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeGateway struct {
	mu         sync.Mutex
	gate       chan struct{}
	analyzeErr error
	chatErr    error
	audio      string
	langs      []models.Language
	locateReq  gateway.LocateRequest
}

func (f *fakeGateway) Analyze(_ context.Context, req gateway.AnalyzeRequest) (*models.AnalysisResult, error) {
	f.mu.Lock()
	gate, err := f.gate, f.analyzeErr
	f.langs = append(f.langs, req.Language)
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &models.AnalysisResult{
		FieldNames:             []string{"Full Name", "Address"},
		OriginalTerms:          []string{"Indemnity"},
		SimplifiedExplanations: []string{"explained in " + req.Language.EnglishName()},
		RequiredActions:        []string{"Sign"},
	}, nil
}

func (f *fakeGateway) Chat(_ context.Context, req gateway.ChatRequest) (*gateway.ChatReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &gateway.ChatReply{Text: "answer to " + req.Query, Audio: f.audio}, nil
}

func (f *fakeGateway) Locate(_ context.Context, req gateway.LocateRequest) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locateReq = req
	return []string{"Passport Seva Kendra"}, nil
}

func (f *fakeGateway) setAnalyzeErr(err error) {
	f.mu.Lock()
	f.analyzeErr = err
	f.mu.Unlock()
}

func newTestWorkspace(t *testing.T, gw *fakeGateway) *Workspace {
	t.Helper()
	d := worker.NewDispatcher(1, 4, 16, time.Minute, nil)
	t.Cleanup(d.Close)
	ws := New("ws-test", Deps{
		Orchestrator: analysis.NewOrchestrator(gw),
		Chatter:      gw,
		Locator:      locate.NewService(gw, nil),
		Dispatcher:   d,
	})
	t.Cleanup(ws.Close)
	return ws
}

func pngUpload() analysis.Upload {
	return analysis.Upload{Name: "form.png", DeclaredType: models.MIMEPNG, Reader: bytes.NewReader(pngBytes)}
}

func waitPhase(t *testing.T, ws *Workspace, phase session.Phase) session.Snapshot {
	t.Helper()
	require.Eventually(t, func() bool { return ws.Snapshot().Phase == phase }, 2*time.Second, 5*time.Millisecond)
	return ws.Snapshot()
}

func TestUploadAnalyzesAndOpensChat(t *testing.T) {
	gw := &fakeGateway{}
	ws := newTestWorkspace(t, gw)
	feed, stop := ws.Subscribe()
	defer stop()

	ticket, err := ws.Upload(context.Background(), pngUpload(), models.Hindi)
	require.NoError(t, err)
	assert.Equal(t, models.Hindi, ticket.Language)

	snap := waitPhase(t, ws, session.PhaseSuccess)
	assert.Equal(t, "form.png", snap.Document.Name)
	assert.Equal(t, []string{"explained in Hindi"}, snap.Result.SimplifiedExplanations)

	turn, err := ws.Ask(context.Background(), "what is this?", "")
	require.NoError(t, err)
	assert.Equal(t, "answer to what is this?", turn.Answer.Text)

	var phases []session.Phase
	for len(phases) < 4 {
		select {
		case ev := <-feed:
			if ev.Type == EventState {
				phases = append(phases, ev.State.Phase)
			}
		case <-time.After(time.Second):
			t.Fatalf("missing state events, got %v", phases)
		}
	}
	assert.Equal(t, []session.Phase{session.PhaseIdle, session.PhaseLoading, session.PhaseLoading, session.PhaseSuccess}, phases)
}

func TestUnsupportedUploadLeavesStateAlone(t *testing.T) {
	ws := newTestWorkspace(t, &fakeGateway{})

	_, err := ws.Upload(context.Background(), analysis.Upload{Name: "a.doc", DeclaredType: "application/msword", Reader: strings.NewReader("x")}, models.English)
	assert.ErrorIs(t, err, models.ErrUnsupportedFileType)

	_, err = ws.Upload(context.Background(), analysis.Upload{Name: "a.txt", Reader: strings.NewReader("plain text")}, models.English)
	assert.ErrorIs(t, err, models.ErrUnsupportedFileType)

	_, err = ws.Upload(context.Background(), pngUpload(), models.Language("FR"))
	assert.ErrorIs(t, err, models.ErrUnknownLanguage)

	assert.Equal(t, session.PhaseIdle, ws.Snapshot().Phase)
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestReadFailureHasNothingToRetry(t *testing.T) {
	ws := newTestWorkspace(t, &fakeGateway{})

	_, err := ws.Upload(context.Background(), analysis.Upload{Name: "f.pdf", Reader: brokenReader{}}, models.English)
	assert.True(t, models.IsEncodingError(err))

	snap := ws.Snapshot()
	assert.Equal(t, session.PhaseError, snap.Phase)
	assert.False(t, snap.HasDocument)

	_, err = ws.Retry()
	assert.ErrorIs(t, err, session.ErrNoDocument)
}

func TestGatewayFailureCanBeRetried(t *testing.T) {
	gw := &fakeGateway{analyzeErr: errors.New("quota exceeded")}
	ws := newTestWorkspace(t, gw)

	_, err := ws.Upload(context.Background(), pngUpload(), models.English)
	require.NoError(t, err)
	snap := waitPhase(t, ws, session.PhaseError)
	assert.True(t, snap.HasDocument)
	assert.Contains(t, snap.Error, "quota exceeded")

	_, err = ws.Ask(context.Background(), "hi", "")
	assert.ErrorIs(t, err, ErrNoAnalysis)

	gw.setAnalyzeErr(nil)
	_, err = ws.Retry()
	require.NoError(t, err)
	waitPhase(t, ws, session.PhaseSuccess)
}

func TestResetDropsLateResult(t *testing.T) {
	gw := &fakeGateway{gate: make(chan struct{})}
	ws := newTestWorkspace(t, gw)

	_, err := ws.Upload(context.Background(), pngUpload(), models.Tamil)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		gw.mu.Lock()
		defer gw.mu.Unlock()
		return len(gw.langs) == 1
	}, time.Second, 5*time.Millisecond)

	snap := ws.Reset()
	assert.Equal(t, session.PhaseIdle, snap.Phase)
	close(gw.gate)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, session.PhaseIdle, ws.Snapshot().Phase)
	_, err = ws.Transcript()
	assert.ErrorIs(t, err, ErrNoAnalysis)
}

func TestChangeLanguageWithoutDocument(t *testing.T) {
	ws := newTestWorkspace(t, &fakeGateway{})
	snap, err := ws.ChangeLanguage(models.Bengali)
	require.NoError(t, err)
	assert.Equal(t, session.PhaseIdle, snap.Phase)
	assert.Equal(t, models.Bengali, snap.Language)
}

func TestChangeLanguageReanalyzes(t *testing.T) {
	gw := &fakeGateway{}
	ws := newTestWorkspace(t, gw)
	_, err := ws.Upload(context.Background(), pngUpload(), models.English)
	require.NoError(t, err)
	waitPhase(t, ws, session.PhaseSuccess)

	_, err = ws.ChangeLanguage(models.Marathi)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		s := ws.Snapshot()
		return s.Phase == session.PhaseSuccess && s.Language == models.Marathi
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"explained in Marathi"}, ws.Snapshot().Result.SimplifiedExplanations)
}

func TestAskFailureFallsBack(t *testing.T) {
	gw := &fakeGateway{chatErr: errors.New("tts down")}
	ws := newTestWorkspace(t, gw)
	_, err := ws.Upload(context.Background(), pngUpload(), models.English)
	require.NoError(t, err)
	waitPhase(t, ws, session.PhaseSuccess)

	turn, err := ws.Ask(context.Background(), "help", "")
	require.NoError(t, err)
	assert.True(t, turn.Failed)
	assert.Equal(t, chat.FallbackMessage, turn.Answer.Text)

	transcript, err := ws.Transcript()
	require.NoError(t, err)
	assert.Len(t, transcript, 2)
}

func TestAutoPlayEmitsAudioEvents(t *testing.T) {
	uri := (&models.Blob{MIME: models.MIMEWAV, Data: audio.EncodeWAV([]byte{0, 0})}).DataURI()
	gw := &fakeGateway{audio: uri}
	ws := newTestWorkspace(t, gw)
	ws.SetAutoPlay(true)
	_, err := ws.Upload(context.Background(), pngUpload(), models.English)
	require.NoError(t, err)
	waitPhase(t, ws, session.PhaseSuccess)

	feed, stop := ws.Subscribe()
	defer stop()
	_, err = ws.Ask(context.Background(), "one", "")
	require.NoError(t, err)
	_, err = ws.Ask(context.Background(), "two", "")
	require.NoError(t, err)

	var kinds []EventType
	timeout := time.After(time.Second)
	for len(kinds) < 3 {
		select {
		case ev := <-feed:
			if ev.Type != EventState {
				kinds = append(kinds, ev.Type)
			}
		case <-timeout:
			t.Fatalf("missing audio events, got %v", kinds)
		}
	}
	assert.Equal(t, []EventType{EventAudioPlay, EventAudioStop, EventAudioPlay}, kinds)
}

func TestLocate(t *testing.T) {
	gw := &fakeGateway{}
	ws := newTestWorkspace(t, gw)

	_, err := ws.Locate(context.Background(), "", nil)
	assert.ErrorIs(t, err, models.ErrGeolocation)

	places, err := ws.Locate(context.Background(), "", models.NewCoordinates(28.6, 77.2))
	require.NoError(t, err)
	assert.Equal(t, []string{"Passport Seva Kendra"}, places)
	assert.Equal(t, locate.DefaultFormContext, gw.locateReq.FormType)

	_, err = ws.Upload(context.Background(), pngUpload(), models.English)
	require.NoError(t, err)
	waitPhase(t, ws, session.PhaseSuccess)
	_, err = ws.Locate(context.Background(), "", models.NewCoordinates(28.6, 77.2))
	require.NoError(t, err)
	assert.Contains(t, gw.locateReq.FormType, "Full Name")
	assert.Equal(t, session.PhaseSuccess, ws.Snapshot().Phase)
}

func TestDictationFlow(t *testing.T) {
	ws := newTestWorkspace(t, &fakeGateway{})
	_, err := ws.Dictate(DictationStart, "")
	assert.ErrorIs(t, err, ErrNoAnalysis)

	_, err = ws.Upload(context.Background(), pngUpload(), models.English)
	require.NoError(t, err)
	waitPhase(t, ws, session.PhaseSuccess)

	state, err := ws.Dictate(DictationToggle, "")
	require.NoError(t, err)
	assert.True(t, state.Listening)

	state, err = ws.Dictate(DictationPartial, "where do I sign")
	require.NoError(t, err)
	assert.Equal(t, "where do I sign", state.Draft)

	turn, err := ws.SendDraft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "where do I sign", turn.Question.Text)

	state, err = ws.Dictate(DictationStop, "")
	require.NoError(t, err)
	assert.False(t, state.Listening)
}

func TestChecklist(t *testing.T) {
	ws := newTestWorkspace(t, &fakeGateway{})
	_, err := ws.Checklist("")
	assert.ErrorIs(t, err, ErrNoAnalysis)

	_, err = ws.Upload(context.Background(), pngUpload(), models.English)
	require.NoError(t, err)
	waitPhase(t, ws, session.PhaseSuccess)
	list, err := ws.Checklist("PAN")
	require.NoError(t, err)
	assert.Contains(t, list, "[ ] Sign")
}

func TestManagerLifecycle(t *testing.T) {
	d := worker.NewDispatcher(0, 1, 4, time.Minute, nil)
	defer d.Close()
	m := NewManager(Deps{Dispatcher: d}, time.Minute, time.Minute)

	ws := m.Create()
	got, err := m.Get(ws.ID())
	require.NoError(t, err)
	assert.Same(t, ws, got)
	assert.Equal(t, 1, m.Count())

	feed, _ := ws.Subscribe()
	<-feed // initial state

	m.Drop(ws.ID())
	_, err = m.Get(ws.ID())
	assert.ErrorIs(t, err, ErrNotFound)

	_, open := <-feed
	for open {
		_, open = <-feed
	}
	_, err = ws.Upload(context.Background(), pngUpload(), models.English)
	assert.ErrorIs(t, err, ErrClosed)
}
