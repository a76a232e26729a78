package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/virasto/pkg/model"
)

// Memory is a process-local ChecklistStore. Ids start at 1.
type Memory struct {
	mu     sync.RWMutex
	lastID model.ChecklistID
	items  map[model.ChecklistID][]string
}

func NewMemory() *Memory {
	return &Memory{
		items: make(map[model.ChecklistID][]string),
	}
}

func (m *Memory) SaveChecklist(ctx context.Context, checklist []string) (model.ChecklistID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastID++
	stored := slices.Clone(checklist)
	if stored == nil {
		stored = []string{}
	}
	m.items[m.lastID] = stored
	return m.lastID, nil
}

func (m *Memory) GetChecklist(ctx context.Context, id model.ChecklistID) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	checklist, ok := m.items[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrChecklistNotFound, "no such checklist", goerr.V("checklist_id", id))
	}
	return slices.Clone(checklist), nil
}
