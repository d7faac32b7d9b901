package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sahaj/internal/analysis"
	"sahaj/internal/auth"
	"sahaj/internal/logger"
	"sahaj/internal/models"
	"sahaj/internal/templates"
	"sahaj/internal/workspace"
)

const (
	workspaceContextKey = "workspace"
	heartbeatInterval   = 25 * time.Second
)

// Handler wires HTTP routes to workspaces.
type Handler struct {
	workspaces *workspace.Manager
	auth       *auth.Service
	templates  *templates.Library
	maxUpload  int64
	log        logger.Logger
}

// NewHandler constructs a Handler instance.
func NewHandler(workspaces *workspace.Manager, authService *auth.Service, library *templates.Library, maxUpload int64, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	if maxUpload <= 0 {
		maxUpload = analysis.DefaultMaxUpload
	}
	return &Handler{
		workspaces: workspaces,
		auth:       authService,
		templates:  library,
		maxUpload:  maxUpload,
		log:        log,
	}
}

// NewRouter builds the gin engine with recovery and request logging.
func NewRouter(h *Handler, log logger.Logger) *gin.Engine {
	if log == nil {
		log = h.log
	}
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/languages", h.listLanguages)
	api.GET("/templates", h.listTemplates)
	api.GET("/templates/:id", h.getTemplate)
	api.POST("/workspaces", h.createWorkspace)

	ws := api.Group("/workspace")
	ws.Use(h.auth.Middleware(), h.requireWorkspace(), h.auth.CSRFMiddleware())
	ws.GET("", h.getWorkspace)
	ws.DELETE("", h.deleteWorkspace)
	ws.GET("/events", h.streamEvents)
	ws.POST("/document", h.uploadDocument)
	ws.POST("/language", h.changeLanguage)
	ws.POST("/retry", h.retry)
	ws.POST("/reset", h.reset)
	ws.GET("/checklist", h.checklist)
	ws.GET("/chat", h.transcript)
	ws.POST("/chat", h.ask)
	ws.POST("/chat/dictation", h.dictation)
	ws.POST("/chat/autoplay", h.autoplay)
	ws.POST("/chat/play", h.play)
	ws.POST("/locate", h.locate)
}

// requireWorkspace resolves the workspace the token points at
func (h *Handler) requireWorkspace() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.WorkspaceIDFromContext(c)
		if !ok || id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace token required"})
			return
		}
		ws, err := h.workspaces.Get(id)
		if err != nil {
			if token, ok := auth.TokenFromContext(c); ok {
				_ = h.auth.Revoke(c.Request.Context(), token)
			}
			h.auth.ClearCookies(c)
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "workspace expired"})
			return
		}
		c.Set(workspaceContextKey, ws)
		c.Next()
	}
}

func currentWorkspace(c *gin.Context) *workspace.Workspace {
	return c.MustGet(workspaceContextKey).(*workspace.Workspace)
}

type languageInfo struct {
	Code        models.Language `json:"code"`
	Name        string          `json:"name"`
	EnglishName string          `json:"english_name"`
}

func (h *Handler) listLanguages(c *gin.Context) {
	langs := models.Languages()
	out := make([]languageInfo, 0, len(langs))
	for _, l := range langs {
		out = append(out, languageInfo{Code: l, Name: l.DisplayName(), EnglishName: l.EnglishName()})
	}
	c.JSON(http.StatusOK, gin.H{"languages": out, "default": models.DefaultLanguage})
}

func (h *Handler) listTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": h.templates.List()})
}

func (h *Handler) getTemplate(c *gin.Context) {
	g, err := h.templates.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) createWorkspace(c *gin.Context) {
	ws := h.workspaces.Create()
	token, err := h.auth.Issue(c.Request.Context(), ws.ID())
	if err != nil {
		h.workspaces.Drop(ws.ID())
		h.log.Error("api", "issue workspace token failed", map[string]interface{}{"error": err})
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not open workspace"})
		return
	}
	csrf, err := h.auth.SetCookies(c, token)
	if err != nil {
		h.workspaces.Drop(ws.ID())
		_ = h.auth.Revoke(c.Request.Context(), token)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"workspace_id": ws.ID(),
		"token":        token,
		"csrf_token":   csrf,
		"state":        ws.Snapshot(),
	})
}

func (h *Handler) getWorkspace(c *gin.Context) {
	ws := currentWorkspace(c)
	c.JSON(http.StatusOK, gin.H{
		"workspace_id": ws.ID(),
		"state":        ws.Snapshot(),
		"autoplay":     ws.AutoPlay(),
	})
}

func (h *Handler) deleteWorkspace(c *gin.Context) {
	ws := currentWorkspace(c)
	h.workspaces.Drop(ws.ID())
	if token, ok := auth.TokenFromContext(c); ok {
		_ = h.auth.Revoke(c.Request.Context(), token)
	}
	h.auth.ClearCookies(c)
	c.Status(http.StatusNoContent)
}

// streamEvents feeds state and audio events to the renderer over SSE
func (h *Handler) streamEvents(c *gin.Context) {
	ws := currentWorkspace(c)
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}
	feed, stop := ws.Subscribe()
	defer stop()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	sendEvent := func(event string, payload interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-feed:
			if !open {
				_ = sendEvent("closed", gin.H{"workspace_id": ws.ID()})
				return
			}
			if err := sendEvent(string(ev.Type), ev); err != nil {
				return
			}
		}
	}
}

func (h *Handler) uploadDocument(c *gin.Context) {
	ws := currentWorkspace(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+(1<<20))
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(c, analysis.ErrTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > h.maxUpload {
		h.writeError(c, analysis.ErrTooLarge)
		return
	}
	lang := ws.Snapshot().Language
	if raw := strings.TrimSpace(c.PostForm("language")); raw != "" {
		if lang, err = models.ParseLanguage(raw); err != nil {
			h.writeError(c, err)
			return
		}
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	defer f.Close()

	ticket, err := ws.Upload(c.Request.Context(), analysis.Upload{
		Name:         file.Filename,
		DeclaredType: file.Header.Get("Content-Type"),
		Reader:       f,
	}, lang)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"token": ticket.Token, "state": ws.Snapshot()})
}

type languageRequest struct {
	Language string `json:"language" binding:"required"`
}

func (h *Handler) changeLanguage(c *gin.Context) {
	var req languageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	lang, err := models.ParseLanguage(req.Language)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ws := currentWorkspace(c)
	before := ws.Snapshot().Token
	snap, err := ws.ChangeLanguage(lang)
	if err != nil {
		h.writeError(c, err)
		return
	}
	status := http.StatusOK
	if snap.Token != before {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"state": snap})
}

func (h *Handler) retry(c *gin.Context) {
	snap, err := currentWorkspace(c).Retry()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"state": snap})
}

func (h *Handler) reset(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": currentWorkspace(c).Reset()})
}

func (h *Handler) checklist(c *gin.Context) {
	text, err := currentWorkspace(c).Checklist(c.Query("title"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="checklist.txt"`)
	c.String(http.StatusOK, text)
}

func (h *Handler) transcript(c *gin.Context) {
	messages, err := currentWorkspace(c).Transcript()
	if err != nil {
		h.writeError(c, err)
		return
	}
	if messages == nil {
		messages = make([]models.ChatMessage, 0)
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type askRequest struct {
	Query    string `json:"query" binding:"required"`
	Language string `json:"language"`
}

func (h *Handler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var lang models.Language
	if strings.TrimSpace(req.Language) != "" {
		var err error
		if lang, err = models.ParseLanguage(req.Language); err != nil {
			h.writeError(c, err)
			return
		}
	}
	turn, err := currentWorkspace(c).Ask(c.Request.Context(), req.Query, lang)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, turn)
}

type dictationRequest struct {
	Action string `json:"action" binding:"required,oneof=start stop toggle partial send"`
	Text   string `json:"text"`
}

func (h *Handler) dictation(c *gin.Context) {
	var req dictationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ws := currentWorkspace(c)
	if req.Action == "send" {
		turn, err := ws.SendDraft(c.Request.Context())
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, turn)
		return
	}
	state, err := ws.Dictate(workspace.DictationAction(req.Action), req.Text)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

type autoplayRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *Handler) autoplay(c *gin.Context) {
	var req autoplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ws := currentWorkspace(c)
	ws.SetAutoPlay(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"autoplay": ws.AutoPlay()})
}

type playRequest struct {
	Audio string `json:"audio" binding:"required"`
}

func (h *Handler) play(c *gin.Context) {
	var req playRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := currentWorkspace(c).Play(req.Audio); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type locateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	FormType  string   `json:"form_type"`
}

func (h *Handler) locate(c *gin.Context) {
	var req locateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var coords *models.Coordinates
	if req.Latitude != nil || req.Longitude != nil {
		coords = &models.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude}
	}
	places, err := currentWorkspace(c).Locate(c.Request.Context(), strings.TrimSpace(req.FormType), coords)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if places == nil {
		places = make([]string, 0)
	}
	c.JSON(http.StatusOK, gin.H{"offices": places})
}
