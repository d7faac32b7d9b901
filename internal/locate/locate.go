// Package locate finds government offices near the user for a form.
package locate

import (
	"context"
	"strings"

	"sahaj/internal/gateway"
	"sahaj/internal/logger"
	"sahaj/internal/models"
)

// DefaultFormContext is used when the caller knows nothing about the form.
const DefaultFormContext = "Government Document"

type Service struct {
	gw  gateway.Locator
	log logger.Logger
}

func NewService(gw gateway.Locator, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{gw: gw, log: log}
}

// Locate makes a single lookup for offices handling formContext near coords.
// Missing or impossible coordinates fail with models.ErrGeolocation before any
// remote call.
func (s *Service) Locate(ctx context.Context, formContext string, coords *models.Coordinates) ([]string, error) {
	if err := coords.Validate(); err != nil {
		return nil, err
	}
	formContext = strings.TrimSpace(formContext)
	if formContext == "" {
		formContext = DefaultFormContext
	}

	places, err := s.gw.Locate(ctx, gateway.LocateRequest{FormType: formContext, Coordinates: coords})
	if err != nil {
		s.log.Warn("locate", "office lookup failed", map[string]interface{}{"error": err, "form": formContext})
		return nil, models.NewGatewayError("locate", err)
	}

	out := make([]string, 0, len(places))
	for _, p := range places {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// FormContext describes an analyzed form by its first few field names.
func FormContext(result *models.AnalysisResult) string {
	if result == nil || len(result.FieldNames) == 0 {
		return DefaultFormContext
	}
	fields := make([]string, 0, 3)
	for _, f := range result.FieldNames {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
		if len(fields) == 3 {
			break
		}
	}
	if len(fields) == 0 {
		return DefaultFormContext
	}
	return DefaultFormContext + " with fields: " + strings.Join(fields, ", ")
}
