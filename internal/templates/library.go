// Package templates serves pre-analyzed guides for common government forms.
package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"

	"sahaj/internal/logger"
	"sahaj/internal/models"
)

var ErrNotFound = errors.New("template not found")

// Guide is a form explained ahead of time.
type Guide struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Language    models.Language        `json:"language"`
	Analysis    *models.AnalysisResult `json:"analysis"`
}

func (g Guide) validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return errors.New("guide id required")
	}
	if g.Language != "" && !g.Language.Valid() {
		return fmt.Errorf("guide %s: %w", g.ID, models.ErrUnknownLanguage)
	}
	if g.Analysis == nil {
		return fmt.Errorf("guide %s: analysis required", g.ID)
	}
	if err := g.Analysis.Validate(); err != nil {
		return fmt.Errorf("guide %s: %w", g.ID, err)
	}
	return nil
}

func (g Guide) clone() Guide {
	g.Analysis = g.Analysis.Clone()
	return g
}

// Library holds the built-in guides plus any loaded from a directory.
type Library struct {
	mu     sync.RWMutex
	guides map[string]Guide
	log    logger.Logger
}

// New builds a library. Guides found in dir override built-ins with the same
// id; an empty dir means built-ins only.
func New(ctx context.Context, dir string, log logger.Logger) (*Library, error) {
	if log == nil {
		log = logger.Nop()
	}
	l := &Library{guides: make(map[string]Guide), log: log}
	for _, g := range builtinGuides() {
		l.add(g)
	}
	if dir == "" {
		return l, nil
	}
	if err := l.loadDir(ctx, dir); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Library) add(g Guide) {
	if g.Language == "" {
		g.Language = models.DefaultLanguage
	}
	a := g.Analysis.Clone()
	a.Normalize()
	g.Analysis = a
	l.mu.Lock()
	l.guides[g.ID] = g
	l.mu.Unlock()
}

func (l *Library) loadDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.log.Info("templates", "template dir missing, using built-in guides", map[string]interface{}{"dir": dir})
			return nil
		}
		return fmt.Errorf("read template dir: %w", err)
	}

	extParser, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return fmt.Errorf("init template parser: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      extParser,
	})
	if err != nil {
		return fmt.Errorf("init template loader: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		docs, err := loader.Load(ctx, document.Source{URI: path})
		if err != nil {
			return fmt.Errorf("load template %s: %w", entry.Name(), err)
		}
		var content strings.Builder
		for _, doc := range docs {
			content.WriteString(doc.Content)
		}
		g, err := decodeGuide(content.String())
		if err != nil {
			return fmt.Errorf("template %s: %w", entry.Name(), err)
		}
		l.add(g)
		l.log.Debug("templates", "loaded guide", map[string]interface{}{"id": g.ID, "file": entry.Name()})
	}
	return nil
}

func decodeGuide(raw string) (Guide, error) {
	var g Guide
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&g); err != nil {
		return Guide{}, fmt.Errorf("decode guide: %w", err)
	}
	if err := g.validate(); err != nil {
		return Guide{}, err
	}
	return g, nil
}

// List returns every guide ordered by id.
func (l *Library) List() []Guide {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Guide, 0, len(l.guides))
	for _, g := range l.guides {
		out = append(out, g.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (l *Library) Get(id string) (Guide, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	g, ok := l.guides[id]
	if !ok {
		return Guide{}, ErrNotFound
	}
	return g.clone(), nil
}
