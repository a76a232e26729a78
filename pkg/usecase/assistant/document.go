package assistant

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/virasto/pkg/adapter"
	"github.com/m-mizutani/virasto/pkg/model"
	"github.com/m-mizutani/virasto/pkg/utils/logging"
)

// AnalyzeDocument extracts text from an upload, analyzes it and, when a
// checklist store is configured, persists the checklist. Archive and store
// failures are logged and do not fail the request.
func (u *UseCase) AnalyzeDocument(ctx context.Context, doc *model.Document) (*model.DocumentAnalysis, error) {
	logger := logging.From(ctx).With("filename", doc.Filename)

	content, err := adapter.ExtractText(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read document", goerr.V("filename", doc.Filename))
	}
	if strings.TrimSpace(content) == "" {
		return nil, goerr.Wrap(model.ErrEmptyDocument, "no text extracted", goerr.V("filename", doc.Filename))
	}
	logger.Info("extracted document text", "characters", len([]rune(content)))

	if u.archive != nil {
		key := archiveKey(doc.Filename, time.Now())
		if err := u.archive.Put(ctx, key, doc.ContentType, doc.Data); err != nil {
			logger.Error("failed to archive document", "key", key, "error", err)
		}
	}

	analysis, err := u.Analyze(ctx, doc.Filename, content)
	if err != nil {
		return nil, err
	}

	if u.checklists != nil {
		id, err := u.checklists.SaveChecklist(ctx, analysis.Checklist)
		if err != nil {
			logger.Error("failed to save checklist", "error", err)
		} else {
			analysis.ChecklistID = &id
		}
	}

	return analysis, nil
}

// GetChecklist returns a stored checklist. Without a configured store every
// id is unknown.
func (u *UseCase) GetChecklist(ctx context.Context, id model.ChecklistID) ([]string, error) {
	if id < 0 {
		return nil, goerr.Wrap(model.ErrInvalidInput, "checklist id must not be negative", goerr.V("checklist_id", id))
	}
	if u.checklists == nil {
		return nil, goerr.Wrap(model.ErrChecklistNotFound, "checklist store is disabled", goerr.V("checklist_id", id))
	}

	checklist, err := u.checklists.GetChecklist(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get checklist", goerr.V("checklist_id", id))
	}
	return checklist, nil
}

func archiveKey(filename string, now time.Time) string {
	return path.Join("documents", now.UTC().Format("2006/01/02"), uuid.NewString(), filename)
}
