package analysis

import (
	"context"
	"errors"

	"sahaj/internal/gateway"
	"sahaj/internal/models"
)

// Orchestrator turns a document and a language into a validated analysis.
// Every call goes to the gateway; nothing is cached.
type Orchestrator struct {
	gw gateway.Analyzer
}

func NewOrchestrator(gw gateway.Analyzer) *Orchestrator {
	return &Orchestrator{gw: gw}
}

func (o *Orchestrator) Analyze(ctx context.Context, doc *models.Document, lang models.Language) (*models.AnalysisResult, error) {
	if !lang.Valid() {
		return nil, models.ErrUnknownLanguage
	}
	if doc == nil {
		return nil, &models.EncodingError{Err: errors.New("no document")}
	}
	res, err := o.gw.Analyze(ctx, gateway.AnalyzeRequest{Document: doc, Language: lang})
	if err != nil {
		return nil, models.NewGatewayError("analyze", err)
	}
	if err := res.Validate(); err != nil {
		return nil, models.NewGatewayError("analyze", err)
	}
	out := res.Clone()
	out.Normalize()
	return out, nil
}
