package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sahaj/internal/models"
)

func testDoc(t *testing.T) *models.Document {
	t.Helper()
	doc, err := models.NewDocument("form.png", models.MIMEPNG, []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	return doc
}

func result(term string) *models.AnalysisResult {
	return &models.AnalysisResult{
		OriginalTerms:          []string{term},
		SimplifiedExplanations: []string{term + " explained"},
	}
}

func startLoaded(t *testing.T, m *Machine, lang models.Language) Ticket {
	t.Helper()
	ticket, err := m.Start(lang)
	require.NoError(t, err)
	require.NoError(t, m.Attach(ticket, testDoc(t)))
	return ticket
}

func TestStartResolve(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, PhaseIdle, m.State().Phase())

	ticket := startLoaded(t, m, models.Hindi)
	assert.Equal(t, PhaseLoading, m.State().Phase())

	require.NoError(t, m.Resolve(ticket, result("Indemnity")))
	s, ok := m.State().(Success)
	require.True(t, ok)
	assert.Equal(t, models.Hindi, s.Language)
	assert.Equal(t, []string{"Indemnity"}, s.Result.OriginalTerms)

	snap := m.Snapshot()
	assert.Equal(t, PhaseSuccess, snap.Phase)
	assert.True(t, snap.HasDocument)
	assert.Equal(t, "form.png", snap.Document.Name)
}

func TestStartRejectedWhileLoading(t *testing.T) {
	m := NewMachine()
	startLoaded(t, m, models.English)
	_, err := m.Start(models.English)
	assert.ErrorIs(t, err, ErrInFlight)
}

func TestStartRejectsUnknownLanguage(t *testing.T) {
	m := NewMachine()
	_, err := m.Start(models.Language("FR"))
	assert.ErrorIs(t, err, models.ErrUnknownLanguage)
	assert.Equal(t, PhaseIdle, m.State().Phase())
}

func TestGatewayFailureKeepsDocument(t *testing.T) {
	m := NewMachine()
	ticket := startLoaded(t, m, models.English)

	cause := models.NewGatewayError("analyze", errors.New("quota"))
	require.NoError(t, m.Reject(ticket, cause))
	f, ok := m.State().(Failed)
	require.True(t, ok)
	assert.NotNil(t, f.Document)
	assert.Contains(t, f.Message, "quota")

	retry, doc, err := m.Retry()
	require.NoError(t, err)
	assert.NotNil(t, doc)
	assert.Greater(t, retry.Token, ticket.Token)
	assert.Equal(t, PhaseLoading, m.State().Phase())
}

func TestReadFailureDropsDocument(t *testing.T) {
	m := NewMachine()
	ticket, err := m.Start(models.English)
	require.NoError(t, err)

	require.NoError(t, m.Reject(ticket, &models.EncodingError{Name: "x.pdf", Err: errors.New("truncated")}))
	f, ok := m.State().(Failed)
	require.True(t, ok)
	assert.Nil(t, f.Document)

	_, _, err = m.Retry()
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestChangeLanguageReanalyzesSameDocument(t *testing.T) {
	m := NewMachine()
	ticket, err := m.Start(models.English)
	require.NoError(t, err)
	doc := testDoc(t)
	require.NoError(t, m.Attach(ticket, doc))
	require.NoError(t, m.Resolve(ticket, result("a")))

	next, got, err := m.ChangeLanguage(models.Bengali)
	require.NoError(t, err)
	assert.Same(t, doc, got)
	assert.Equal(t, models.Bengali, next.Language)
	l, ok := m.State().(Loading)
	require.True(t, ok)
	assert.Same(t, doc, l.Document)
}

func TestChangeLanguageWithoutDocumentOnlySetsPreference(t *testing.T) {
	m := NewMachine()
	_, _, err := m.ChangeLanguage(models.Marathi)
	assert.ErrorIs(t, err, ErrNoDocument)
	assert.Equal(t, PhaseIdle, m.State().Phase())
	assert.Equal(t, models.Marathi, m.Snapshot().Language)
}

func TestOutOfOrderCompletionKeepsLatest(t *testing.T) {
	m := NewMachine()
	first := startLoaded(t, m, models.English)
	second, _, err := m.ChangeLanguage(models.Hindi)
	require.NoError(t, err)

	require.NoError(t, m.Resolve(second, result("second")))
	assert.ErrorIs(t, m.Resolve(first, result("first")), ErrStale)
	assert.ErrorIs(t, m.Reject(first, errors.New("late")), ErrStale)

	s := m.State().(Success)
	assert.Equal(t, []string{"second"}, s.Result.OriginalTerms)
	assert.Equal(t, models.Hindi, s.Language)
}

func TestResetDiscardsLateResults(t *testing.T) {
	m := NewMachine()
	ticket := startLoaded(t, m, models.Tamil)
	m.Reset()

	assert.ErrorIs(t, m.Resolve(ticket, result("late")), ErrStale)
	assert.ErrorIs(t, m.Attach(ticket, testDoc(t)), ErrStale)
	snap := m.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Nil(t, snap.Result)
	assert.Empty(t, snap.Error)
	assert.False(t, snap.HasDocument)
}

func TestResetFromEveryState(t *testing.T) {
	m := NewMachine()
	m.Reset()
	assert.Equal(t, PhaseIdle, m.State().Phase())

	ticket := startLoaded(t, m, models.English)
	require.NoError(t, m.Resolve(ticket, result("x")))
	m.Reset()
	assert.Equal(t, PhaseIdle, m.State().Phase())

	ticket = startLoaded(t, m, models.English)
	require.NoError(t, m.Reject(ticket, errors.New("boom")))
	m.Reset()
	assert.Equal(t, PhaseIdle, m.State().Phase())
}

func TestResultIsIsolatedFromCaller(t *testing.T) {
	m := NewMachine()
	ticket := startLoaded(t, m, models.English)
	r := result("original")
	require.NoError(t, m.Resolve(ticket, r))
	r.OriginalTerms[0] = "mutated"

	snap := m.Snapshot()
	assert.Equal(t, "original", snap.Result.OriginalTerms[0])
	snap.Result.OriginalTerms[0] = "mutated again"
	assert.Equal(t, "original", m.Snapshot().Result.OriginalTerms[0])
}

func TestObserversSeeEveryTransition(t *testing.T) {
	m := NewMachine()
	var phases []Phase
	m.Observe(func(s Snapshot) { phases = append(phases, s.Phase) })

	ticket := startLoaded(t, m, models.English)
	require.NoError(t, m.Resolve(ticket, result("x")))
	m.Reset()

	assert.Equal(t, []Phase{PhaseLoading, PhaseLoading, PhaseSuccess, PhaseIdle}, phases)
}
