package session

import "sahaj/internal/models"

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// State is the current analysis state. Exactly one of Idle, Loading, Success
// or Failed is active at any time.
type State interface {
	Phase() Phase
	sealed()
}

type Idle struct{}

// Loading waits for the analysis identified by Token. Document is nil until
// the uploaded file has been read.
type Loading struct {
	Token    uint64
	Language models.Language
	Document *models.Document
}

type Success struct {
	Language models.Language
	Document *models.Document
	Result   *models.AnalysisResult
}

// Failed keeps the document after a remote failure so analysis can be
// retried; a read failure leaves Document nil.
type Failed struct {
	Language models.Language
	Document *models.Document
	Message  string
	Err      error
}

func (Idle) Phase() Phase    { return PhaseIdle }
func (Loading) Phase() Phase { return PhaseLoading }
func (Success) Phase() Phase { return PhaseSuccess }
func (Failed) Phase() Phase  { return PhaseError }

func (Idle) sealed()    {}
func (Loading) sealed() {}
func (Success) sealed() {}
func (Failed) sealed()  {}

// Ticket identifies one issued analysis call.
type Ticket struct {
	Token    uint64
	Language models.Language
}

// Snapshot is an immutable view of the machine for renderers.
type Snapshot struct {
	Phase       Phase                  `json:"phase"`
	Token       uint64                 `json:"token"`
	Language    models.Language        `json:"language"`
	Result      *models.AnalysisResult `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	HasDocument bool                   `json:"has_document"`
	Document    *DocumentInfo          `json:"document,omitempty"`
}

type DocumentInfo struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Size int    `json:"size"`
}

func documentInfo(doc *models.Document) *DocumentInfo {
	if doc == nil {
		return nil
	}
	return &DocumentInfo{Name: doc.Name(), MIME: doc.MIME(), Size: doc.Size()}
}
