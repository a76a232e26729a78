package model

import (
	"strconv"

	"github.com/m-mizutani/goerr/v2"
)

// DocumentAnalysis is the fixed-shape result of analyzing an uploaded
// document. ChecklistID is set only once the checklist has been persisted.
type DocumentAnalysis struct {
	Analysis    string       `json:"analysis"`
	Checklist   []string     `json:"checklist"`
	ChecklistID *ChecklistID `json:"checklist_id,omitempty"`
}

const AnalysisFailedText = "Analysis failed."

type ChecklistID int64

// ParseChecklistID accepts decimal digits only. A well-formed id beyond the
// int64 range cannot exist and is reported as ErrChecklistNotFound.
func ParseChecklistID(raw string) (ChecklistID, error) {
	if raw == "" {
		return 0, goerr.Wrap(ErrInvalidInput, "checklist id is empty")
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return 0, goerr.Wrap(ErrInvalidInput, "checklist id must be decimal digits", goerr.V("id", raw))
		}
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, goerr.Wrap(ErrChecklistNotFound, "checklist id is out of range", goerr.V("id", raw))
	}
	return ChecklistID(id), nil
}

// Document is an uploaded file waiting for text extraction.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}
