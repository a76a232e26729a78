package repository

import (
	"context"

	"github.com/m-mizutani/virasto/pkg/model"
)

// ChecklistStore persists checklists extracted by document analysis.
// Records are append-only: there is no update or delete.
type ChecklistStore interface {
	// SaveChecklist stores a checklist and returns its newly assigned id.
	SaveChecklist(ctx context.Context, checklist []string) (model.ChecklistID, error)

	// GetChecklist retrieves a checklist by id. It returns an error wrapping
	// model.ErrChecklistNotFound for an unknown id.
	GetChecklist(ctx context.Context, id model.ChecklistID) ([]string, error)
}
