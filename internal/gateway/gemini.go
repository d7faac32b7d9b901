package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"sahaj/internal/config"
	"sahaj/internal/logger"
	"sahaj/internal/models"
)

const (
	StrategyMaps   = "maps"
	StrategySearch = "search"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type chatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

type agentFunc func(ctx context.Context, input []*schema.Message) (*schema.Message, error)

// Gemini implements Gateway. Document analysis, speech synthesis and maps
// grounding go straight through genai; chat answers and the search agent run
// on an eino chat model for the configured provider.
type Gemini struct {
	models contentGenerator
	chat   chatGenerator
	search agentFunc
	cfg    config.GatewayConfig
	log    logger.Logger
}

func NewGemini(ctx context.Context, cfg *config.Config, log logger.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Gateway.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	provider := cfg.Gateway.ChatProvider
	provCfg, ok := cfg.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("provider %s not configured", provider)
	}
	if provCfg.Model == "" {
		provCfg.Model = cfg.Gateway.AnalysisModel
	}
	var shared *genai.Client
	if provider == "gemini" && (provCfg.APIKey == "" || provCfg.APIKey == cfg.Gateway.APIKey) {
		shared = client
	}
	chatModel, err := newChatModel(ctx, provider, provCfg, shared)
	if err != nil {
		return nil, err
	}

	g := &Gemini{
		models: client.Models,
		chat:   chatModel,
		cfg:    cfg.Gateway,
		log:    log,
	}

	if cfg.Gateway.LocateStrategy == StrategySearch {
		searchTool := newOfficeSearchTool(ctx, log)
		if searchTool == nil {
			return nil, errors.New("locate strategy search needs at least one search provider")
		}
		agent, err := react.NewAgent(ctx, &react.AgentConfig{
			ToolCallingModel: chatModel,
			ToolsConfig: compose.ToolsNodeConfig{
				Tools: []tool.BaseTool{searchTool},
			},
			MaxStep: 6,
		})
		if err != nil {
			return nil, fmt.Errorf("init office search agent: %w", err)
		}
		g.search = func(ctx context.Context, input []*schema.Message) (*schema.Message, error) {
			return agent.Generate(ctx, input)
		}
	}
	return g, nil
}

// Analyze sends the document inline with a JSON response schema. It performs
// exactly one remote request.
func (g *Gemini) Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error) {
	if req.Document == nil {
		return nil, models.NewGatewayError("analyze", errors.New("document required"))
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(analyzePrompt(req.Language)),
			genai.NewPartFromBytes(req.Document.Bytes(), req.Document.MIME()),
		}, genai.RoleUser),
	}
	resp, err := g.models.GenerateContent(ctx, g.cfg.AnalysisModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema,
	})
	if err != nil {
		return nil, models.NewGatewayError("analyze", err)
	}
	result, err := decodeAnalysis(responseText(resp))
	if err != nil {
		return nil, models.NewGatewayError("analyze", err)
	}
	return result, nil
}

// Chat answers in text first, then synthesizes the answer as speech.
func (g *Gemini) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	msg, err := g.chat.Generate(ctx, []*schema.Message{
		{Role: schema.System, Content: chatSystemPrompt(req.FormAnalysis, req.Language)},
		{Role: schema.User, Content: req.Query},
	})
	if err != nil {
		return nil, models.NewGatewayError("chat", err)
	}
	text := ""
	if msg != nil {
		text = strings.TrimSpace(msg.Content)
	}
	if text == "" {
		return nil, models.NewGatewayError("chat", fmt.Errorf("%w: empty answer", models.ErrMalformedResult))
	}

	audio, err := g.speak(ctx, text, req.Language)
	if err != nil {
		return nil, err
	}
	return &ChatReply{Text: text, Audio: audio}, nil
}

func (g *Gemini) speak(ctx context.Context, text string, lang models.Language) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.cfg.SpeechModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &genai.SpeechConfig{
				LanguageCode: lang.SpeechCode(),
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.cfg.Voice},
				},
			},
		})
	if err != nil {
		return "", models.NewGatewayError("speech", err)
	}
	clip, err := extractSpeech(resp)
	if err != nil {
		return "", models.NewGatewayError("speech", err)
	}
	return clip.DataURI(), nil
}

// Locate makes one attempt with the configured strategy.
func (g *Gemini) Locate(ctx context.Context, req LocateRequest) ([]string, error) {
	if err := req.Coordinates.Validate(); err != nil {
		return nil, err
	}
	prompt := locatePrompt(req.FormType, req.Coordinates.Lat(), req.Coordinates.Lng())

	if g.cfg.LocateStrategy == StrategySearch && g.search != nil {
		msg, err := g.search(ctx, []*schema.Message{{Role: schema.User, Content: prompt}})
		if err != nil {
			return nil, models.NewGatewayError("locate", err)
		}
		if msg == nil {
			return []string{}, nil
		}
		return parsePlaces(msg.Content), nil
	}

	lat, lng := req.Coordinates.Lat(), req.Coordinates.Lng()
	resp, err := g.models.GenerateContent(ctx, g.cfg.LocateModel,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Tools: []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}},
			ToolConfig: &genai.ToolConfig{
				RetrievalConfig: &genai.RetrievalConfig{
					LatLng: &genai.LatLng{Latitude: &lat, Longitude: &lng},
				},
			},
		})
	if err != nil {
		return nil, models.NewGatewayError("locate", err)
	}
	if places := groundedPlaces(resp); len(places) > 0 {
		return places, nil
	}
	g.log.Debug("gateway", "no maps grounding in locate answer, parsing text", nil)
	return parsePlaces(responseText(resp)), nil
}
