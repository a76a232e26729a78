package cli

import (
	"context"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/virasto/pkg/adapter"
	"github.com/m-mizutani/virasto/pkg/repository"
	"github.com/m-mizutani/virasto/pkg/usecase/assistant"
	"github.com/m-mizutani/virasto/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	storeNone      = "none"
	storeMemory    = "memory"
	storePostgres  = "postgres"
	storeFirestore = "firestore"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// Gemini
	geminiAPIKey   string
	geminiProject  string
	geminiLocation string
	geminiModel    string

	// Assistant
	systemPrompt string
	standard     string

	// Checklist store
	store             string
	postgresDSN       string
	firestoreProject  string
	firestoreDatabase string

	// Document archive
	archiveBucket string
}

func loggingFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("VIRASTO_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("VIRASTO_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// geminiFlags returns flags for the generative provider
func geminiFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini on Vertex AI",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini on Vertex AI",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Generative model name",
			Value:       adapter.DefaultGenerativeModel,
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
	}
}

func assistantFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "system-prompt",
			Usage:       "Path to the system instruction file",
			Sources:     cli.EnvVars("VIRASTO_SYSTEM_PROMPT"),
			Destination: &cfg.systemPrompt,
		},
		&cli.StringFlag{
			Name:        "standard",
			Usage:       "Standard uploaded documents are reviewed against",
			Value:       assistant.DefaultStandard,
			Sources:     cli.EnvVars("VIRASTO_STANDARD"),
			Destination: &cfg.standard,
		},
	}
}

// storeFlags returns flags selecting the checklist store
func storeFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "store",
			Usage:       "Checklist store (none, memory, postgres, firestore)",
			Value:       storeNone,
			Sources:     cli.EnvVars("VIRASTO_STORE"),
			Destination: &cfg.store,
		},
		&cli.StringFlag{
			Name:        "postgres-dsn",
			Usage:       "PostgreSQL connection string",
			Sources:     cli.EnvVars("VIRASTO_POSTGRES_DSN"),
			Destination: &cfg.postgresDSN,
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project ID for Firestore",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.firestoreDatabase,
		},
	}
}

func archiveFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket for uploaded documents",
			Sources:     cli.EnvVars("VIRASTO_ARCHIVE_BUCKET"),
			Destination: &cfg.archiveBucket,
		},
	}
}

// setupLogger installs the configured logger as default and into ctx
func (cfg *config) setupLogger(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr, logging.WithFormat(cfg.logFormat))
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	gemini, err := adapter.NewGemini(ctx, adapter.GeminiConfig{
		APIKey:   cfg.geminiAPIKey,
		Project:  cfg.geminiProject,
		Location: cfg.geminiLocation,
		Model:    cfg.geminiModel,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	if cfg.geminiAPIKey == "" && cfg.geminiProject == "" {
		logging.From(ctx).Warn("no Gemini credential configured, AI requests will fail")
	}
	return gemini, nil
}

// newChecklistStore returns the selected store, or nil when persistence is
// disabled. The returned function releases the store.
func (cfg *config) newChecklistStore(ctx context.Context) (repository.ChecklistStore, func(), error) {
	nop := func() {}

	switch strings.ToLower(cfg.store) {
	case "", storeNone:
		return nil, nop, nil

	case storeMemory:
		return repository.NewMemory(), nop, nil

	case storePostgres:
		if cfg.postgresDSN == "" {
			return nil, nil, goerr.New("postgres-dsn is required for postgres store")
		}
		store, err := repository.NewPostgres(ctx, cfg.postgresDSN)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create postgres store")
		}
		return store, nop, nil

	case storeFirestore:
		if cfg.firestoreProject == "" {
			return nil, nil, goerr.New("firestore-project is required for firestore store")
		}
		store, err := repository.NewFirestore(ctx, cfg.firestoreProject, cfg.firestoreDatabase)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to create firestore store")
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logging.From(ctx).Warn("failed to close firestore client", "error", err)
			}
		}, nil

	default:
		return nil, nil, goerr.New("unknown checklist store", goerr.V("store", cfg.store))
	}
}

// newStorage creates the archive adapter, or nil when no bucket is set
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.archiveBucket == "" {
		return nil, nil
	}

	storage, err := adapter.NewStorage(ctx, cfg.archiveBucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage", goerr.V("bucket", cfg.archiveBucket))
	}
	return storage, nil
}

// newUseCase wires the assistant with every configured dependency
func (cfg *config) newUseCase(ctx context.Context) (*assistant.UseCase, func(), error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := cfg.newChecklistStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	storage, err := cfg.newStorage(ctx)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	opts := []assistant.Option{
		assistant.WithSystemInstruction(assistant.LoadSystemInstruction(ctx, cfg.systemPrompt)),
		assistant.WithStandard(cfg.standard),
	}
	if store != nil {
		opts = append(opts, assistant.WithChecklistStore(store))
	}
	if storage != nil {
		opts = append(opts, assistant.WithArchive(storage))
	}

	return assistant.New(gemini, opts...), closeStore, nil
}
