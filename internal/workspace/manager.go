package workspace

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var ErrNotFound = errors.New("workspace not found")

// Manager keeps live workspaces in memory. A workspace expires after ttl
// without use and is closed when it leaves the registry.
type Manager struct {
	deps  Deps
	cache *cache.Cache
}

func NewManager(deps Deps, ttl, cleanup time.Duration) *Manager {
	c := cache.New(ttl, cleanup)
	c.OnEvicted(func(id string, v interface{}) {
		if ws, ok := v.(*Workspace); ok {
			ws.Close()
			if deps.Log != nil {
				deps.Log.Info("workspace", "workspace closed", map[string]interface{}{"workspace": id})
			}
		}
	})
	return &Manager{deps: deps, cache: c}
}

func (m *Manager) Create() *Workspace {
	ws := New(uuid.NewString(), m.deps)
	m.cache.Set(ws.ID(), ws, cache.DefaultExpiration)
	return ws
}

// Get returns the workspace and extends its lifetime.
func (m *Manager) Get(id string) (*Workspace, error) {
	if x, found := m.cache.Get(id); found {
		ws := x.(*Workspace)
		m.cache.Set(id, ws, cache.DefaultExpiration)
		return ws, nil
	}
	return nil, ErrNotFound
}

func (m *Manager) Drop(id string) {
	m.cache.Delete(id)
}

func (m *Manager) Count() int {
	return m.cache.ItemCount()
}

// Close drops every workspace.
func (m *Manager) Close() {
	for id := range m.cache.Items() {
		m.cache.Delete(id)
	}
}
