package assistant_test

import (
	"context"
	"iter"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// mockGemini records requests and replays canned responses.
type mockGemini struct {
	mu       sync.Mutex
	contents [][]*genai.Content
	configs  []*genai.GenerateContentConfig

	generate func(ctx context.Context) (*genai.GenerateContentResponse, error)
	stream   func(ctx context.Context) (iter.Seq2[*genai.GenerateContentResponse, error], error)
}

func (m *mockGemini) record(contents []*genai.Content, config *genai.GenerateContentConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contents = append(m.contents, contents)
	m.configs = append(m.configs, config)
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.record(contents, config)
	if m.generate == nil {
		return nil, goerr.New("GenerateContent is not mocked")
	}
	return m.generate(ctx)
}

func (m *mockGemini) GenerateContentStream(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (iter.Seq2[*genai.GenerateContentResponse, error], error) {
	m.record(contents, config)
	if m.stream == nil {
		return nil, goerr.New("GenerateContentStream is not mocked")
	}
	return m.stream(ctx)
}

func (m *mockGemini) lastConfig() *genai.GenerateContentConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configs[len(m.configs)-1]
}

func (m *mockGemini) lastContents() []*genai.Content {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contents[len(m.contents)-1]
}

func respond(resp *genai.GenerateContentResponse) func(context.Context) (*genai.GenerateContentResponse, error) {
	return func(context.Context) (*genai.GenerateContentResponse, error) {
		return resp, nil
	}
}

// textResponse builds a response whose first candidate has one part per text.
func textResponse(texts ...string) *genai.GenerateContentResponse {
	parts := make([]*genai.Part, 0, len(texts))
	for _, text := range texts {
		parts = append(parts, &genai.Part{Text: text})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: string(genai.RoleModel), Parts: parts}},
		},
	}
}

func withGrounding(resp *genai.GenerateContentResponse, chunks ...*genai.GroundingChunk) *genai.GenerateContentResponse {
	if len(resp.Candidates) == 0 {
		resp.Candidates = []*genai.Candidate{{}}
	}
	resp.Candidates[0].GroundingMetadata = &genai.GroundingMetadata{GroundingChunks: chunks}
	return resp
}

func webChunk(title, uri string) *genai.GroundingChunk {
	return &genai.GroundingChunk{Web: &genai.GroundingChunkWeb{Title: title, URI: uri}}
}

// upstream replays chunks and then fails with err when it is non-nil. pulled
// counts how many chunks the consumer requested.
func upstream(chunks []*genai.GenerateContentResponse, err error, pulled *int) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, chunk := range chunks {
			if pulled != nil {
				*pulled++
			}
			if !yield(chunk, nil) {
				return
			}
		}
		if err != nil {
			yield(nil, err)
		}
	}
}

func streamOf(seq iter.Seq2[*genai.GenerateContentResponse, error]) func(context.Context) (iter.Seq2[*genai.GenerateContentResponse, error], error) {
	return func(context.Context) (iter.Seq2[*genai.GenerateContentResponse, error], error) {
		return seq, nil
	}
}

type mockStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (m *mockStorage) Put(ctx context.Context, key, contentType string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	return nil
}
