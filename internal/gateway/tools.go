package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino-ext/components/tool/googlesearch"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"sahaj/internal/logger"
)

const searchTimeout = 10 * time.Second

// newOfficeSearchTool returns a web search tool that tries Google Custom
// Search first and falls back to DuckDuckGo. Nil when no provider is usable.
func newOfficeSearchTool(ctx context.Context, log logger.Logger) tool.InvokableTool {
	googleTool := newGoogleSearch(ctx, log)
	duckTool := newDDGSearch(ctx, log)
	if googleTool == nil && duckTool == nil {
		log.Warn("gateway", "office search disabled: no search providers available", nil)
		return nil
	}

	s := &officeSearch{
		google:  googleTool,
		duck:    duckTool,
		limiter: newToolRateLimiter(searchRateLimit, searchRateWindow),
		log:     log,
	}
	info := &schema.ToolInfo{
		Name: "office_search",
		Desc: "Search the web for government offices, service centers and their addresses; " +
			"include the city or locality in the query.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Desc:     "Natural language query, e.g. 'Aadhaar Kendra near Andheri Mumbai'",
				Type:     schema.String,
				Required: true,
			},
		}),
	}
	return utils.NewTool(info, s.run)
}

type officeSearch struct {
	google  tool.InvokableTool
	duck    tool.InvokableTool
	limiter *toolRateLimiter
	log     logger.Logger
}

type officeSearchParams struct {
	Query string `json:"query"`
}

func (s *officeSearch) run(ctx context.Context, params *officeSearchParams) (string, error) {
	if params == nil {
		return "", errors.New("missing search parameters")
	}
	query := strings.TrimSpace(params.Query)
	if query == "" {
		return "", errors.New("query must not be empty")
	}
	if s.limiter != nil && !s.limiter.Allow("office_search") {
		return "", errors.New("office search rate limit exceeded, answer from what you already found")
	}

	payloadBytes, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return "", fmt.Errorf("marshal search params: %w", err)
	}
	payload := string(payloadBytes)

	if s.google != nil {
		result, err := s.google.InvokableRun(ctx, payload)
		if err == nil {
			return result, nil
		}
		s.log.Warn("gateway", "google search failed", map[string]interface{}{"error": err})
	}
	if s.duck != nil {
		result, err := s.duck.InvokableRun(ctx, payload)
		if err == nil {
			return result, nil
		}
		s.log.Warn("gateway", "duckduckgo search failed", map[string]interface{}{"error": err})
	}
	return "", errors.New("no search provider succeeded")
}

func newDDGSearch(ctx context.Context, log logger.Logger) tool.InvokableTool {
	duckTool, err := duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
		ToolName:   "office_search_ddg",
		ToolDesc:   "DuckDuckGo search (no token required)",
		MaxResults: 5,
		Region:     duckduckgo.RegionWT,
		Timeout:    searchTimeout,
	})
	if err != nil {
		log.Warn("gateway", "duckduckgo search disabled", map[string]interface{}{"error": err})
		return nil
	}
	return duckTool
}

func newGoogleSearch(ctx context.Context, log logger.Logger) tool.InvokableTool {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	engineID := os.Getenv("GOOGLE_SEARCH_ENGINE_ID")
	if apiKey == "" || engineID == "" {
		log.Info("gateway", "google search disabled: missing GOOGLE_API_KEY or GOOGLE_SEARCH_ENGINE_ID", nil)
		return nil
	}
	googleTool, err := googlesearch.NewTool(ctx, &googlesearch.Config{
		ToolName:       "office_search_google",
		ToolDesc:       "Google Custom Search",
		APIKey:         apiKey,
		SearchEngineID: engineID,
		Lang:           "en",
		Num:            5,
	})
	if err != nil {
		log.Warn("gateway", "google search disabled", map[string]interface{}{"error": err})
		return nil
	}
	return googleTool
}
