// Package gateway talks to the remote model service that reads documents,
// answers questions with speech and finds nearby offices.
package gateway

import (
	"context"

	"sahaj/internal/models"
)

type AnalyzeRequest struct {
	Document *models.Document
	Language models.Language
}

type ChatRequest struct {
	Query    string
	Language models.Language
	// FormAnalysis is the serialized analysis the answer must be based on.
	FormAnalysis string
}

type ChatReply struct {
	Text string
	// Audio is a data:audio/wav;base64 URI of the spoken answer.
	Audio string
}

type LocateRequest struct {
	FormType    string
	Coordinates *models.Coordinates
}

type Analyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error)
}

type Chatter interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatReply, error)
}

type Locator interface {
	Locate(ctx context.Context, req LocateRequest) ([]string, error)
}

// Gateway is the full remote contract.
type Gateway interface {
	Analyzer
	Chatter
	Locator
}
