package adapter

import (
	"context"
	"iter"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/virasto/pkg/model"
	"google.golang.org/genai"
)

const DefaultGenerativeModel = "gemini-2.5-flash"

// Gemini is the generative provider used by the assistant. Both methods fail
// with model.ErrConfiguration before any network call when no credential is
// configured.
type Gemini interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (iter.Seq2[*genai.GenerateContentResponse, error], error)
}

// GeminiConfig is built once at process start. Either APIKey (Gemini API) or
// Project (Vertex AI) is the credential.
type GeminiConfig struct {
	APIKey   string
	Project  string
	Location string
	Model    string
}

func (c GeminiConfig) hasCredential() bool {
	return c.APIKey != "" || c.Project != ""
}

type GeminiClient struct {
	cfg    GeminiConfig
	client *genai.Client
}

// NewGemini creates a client. A missing credential is not an error here; it
// is reported on every call instead so that the server can still start.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultGenerativeModel
	}

	g := &GeminiClient{cfg: cfg}
	if !cfg.hasCredential() {
		return g, nil
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Project != "" {
		clientCfg = &genai.ClientConfig{
			Project:  cfg.Project,
			Location: cfg.Location,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}
	g.client = client

	return g, nil
}

// Model returns the generative model identifier used for every request.
func (g *GeminiClient) Model() string {
	return g.cfg.Model
}

func (g *GeminiClient) ready() error {
	if !g.cfg.hasCredential() || g.client == nil {
		return goerr.Wrap(model.ErrConfiguration, "Gemini API key is missing")
	}
	return nil
}

func (g *GeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", g.cfg.Model))
	}
	return resp, nil
}

func (g *GeminiClient) GenerateContentStream(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (iter.Seq2[*genai.GenerateContentResponse, error], error) {
	if err := g.ready(); err != nil {
		return nil, err
	}

	return g.client.Models.GenerateContentStream(ctx, g.cfg.Model, contents, config), nil
}
