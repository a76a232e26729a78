package assistant

import (
	"time"

	"github.com/m-mizutani/virasto/pkg/adapter"
	"github.com/m-mizutani/virasto/pkg/repository"
)

const (
	DefaultStandard = "Finnish bureaucratic standards"
	DefaultTimeout  = 60 * time.Second
)

// UseCase relays questions and documents to the generative provider.
type UseCase struct {
	gemini      adapter.Gemini
	instruction string
	standard    string
	timeout     time.Duration

	checklists repository.ChecklistStore
	archive    adapter.Storage
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithSystemInstruction replaces the default system instruction.
func WithSystemInstruction(instruction string) Option {
	return func(uc *UseCase) {
		if instruction != "" {
			uc.instruction = instruction
		}
	}
}

// WithStandard sets the standard documents are checked against.
func WithStandard(standard string) Option {
	return func(uc *UseCase) {
		if standard != "" {
			uc.standard = standard
		}
	}
}

// WithTimeout bounds single-shot provider calls. Streaming is not bounded.
func WithTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.timeout = d
	}
}

// WithChecklistStore enables persistence of analysis checklists.
func WithChecklistStore(store repository.ChecklistStore) Option {
	return func(uc *UseCase) {
		uc.checklists = store
	}
}

// WithArchive enables archiving of uploaded documents.
func WithArchive(storage adapter.Storage) Option {
	return func(uc *UseCase) {
		uc.archive = storage
	}
}

// New creates a new assistant UseCase instance
func New(gemini adapter.Gemini, opts ...Option) *UseCase {
	uc := &UseCase{
		gemini:      gemini,
		instruction: DefaultSystemInstruction,
		standard:    DefaultStandard,
		timeout:     DefaultTimeout,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
