package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"google.golang.org/genai"

	"sahaj/internal/audio"
	"sahaj/internal/models"
)

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	return resp.Text()
}

// decodeAnalysis parses the JSON answer of the analyze call. Code fences
// around the payload are tolerated.
func decodeAnalysis(text string) (*models.AnalysisResult, error) {
	text = stripFences(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", models.ErrMalformedResult)
	}
	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedResult, err)
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	result.Normalize()
	return &result, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// extractSpeech returns the first inline audio part as a WAV clip. Raw PCM is
// wrapped in a WAV container; WAV payloads pass through unchanged.
func extractSpeech(resp *genai.GenerateContentResponse) (*models.Blob, error) {
	if resp == nil {
		return nil, errors.New("no media returned")
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			data := part.InlineData.Data
			if !audio.IsWAV(data) {
				data = audio.EncodeWAV(data)
			}
			return &models.Blob{MIME: models.MIMEWAV, Data: data}, nil
		}
	}
	return nil, errors.New("no media returned")
}

// groundedPlaces collects places from maps grounding metadata.
func groundedPlaces(resp *genai.GenerateContentResponse) []string {
	if resp == nil {
		return nil
	}
	var places []string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Maps == nil {
				continue
			}
			place := strings.TrimSpace(chunk.Maps.Title)
			if text := strings.TrimSpace(chunk.Maps.Text); text != "" && place != "" {
				place = place + " - " + text
			}
			if place != "" {
				places = append(places, place)
			}
		}
	}
	return dedupe(places)
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// parsePlaces reads office descriptions from free text. Accepted shapes are
// {"officeLocations": [...]}, a JSON array, or one place per line with
// optional list markers.
func parsePlaces(text string) []string {
	text = stripFences(text)
	if text == "" {
		return []string{}
	}
	var wrapped struct {
		OfficeLocations []string `json:"officeLocations"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err == nil && wrapped.OfficeLocations != nil {
		return dedupe(wrapped.OfficeLocations)
	}
	var list []string
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return dedupe(list)
	}

	var places []string
	for _, line := range strings.Split(text, "\n") {
		line = listMarker.ReplaceAllString(line, "")
		line = strings.Trim(strings.TrimSpace(line), "*")
		if line != "" {
			places = append(places, strings.TrimSpace(line))
		}
	}
	return dedupe(places)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
