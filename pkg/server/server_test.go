package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/virasto/pkg/adapter"
	"github.com/m-mizutani/virasto/pkg/repository"
	"github.com/m-mizutani/virasto/pkg/server"
	"github.com/m-mizutani/virasto/pkg/usecase/assistant"
	"google.golang.org/genai"
)

type mockGemini struct {
	generate func() (*genai.GenerateContentResponse, error)
	chunks   []string
	abort    error

	contents []*genai.Content
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if m.generate == nil {
		return nil, goerr.New("GenerateContent is not mocked")
	}
	return m.generate()
}

func (m *mockGemini) GenerateContentStream(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (iter.Seq2[*genai.GenerateContentResponse, error], error) {
	m.contents = contents
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, text := range m.chunks {
			if !yield(textResponse(text), nil) {
				return
			}
		}
		if m.abort != nil {
			yield(nil, m.abort)
		}
	}, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: string(genai.RoleModel), Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func newServer(gemini adapter.Gemini, opts ...server.Option) *server.Server {
	uc := assistant.New(gemini, assistant.WithChecklistStore(repository.NewMemory()))
	return server.New(uc, opts...)
}

func do(h http.Handler, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func multipartFile(t *testing.T, filename string, data []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	gt.NoError(t, err)
	_, err = fw.Write(data)
	gt.NoError(t, err)
	gt.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestAskStream(t *testing.T) {
	srv := newServer(&mockGemini{chunks: []string{"Hei", " maailma"}})

	w := do(srv, http.MethodPost, "/ask", "application/json", []byte(`{"query":"Mikä on Kela?","history":[]}`))
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, w.Header().Get("Content-Type"), "text/event-stream")
	gt.Equal(t, w.Header().Get("Cache-Control"), "no-cache")
	gt.Equal(t, w.Body.String(),
		"data: {\"text\":\"Hei\"}\n\n"+
			"data: {\"text\":\" maailma\"}\n\n"+
			"data: [DONE]\n\n")
}

func TestAskStreamAbort(t *testing.T) {
	srv := newServer(&mockGemini{chunks: []string{"partial"}, abort: goerr.New("connection reset")})

	w := do(srv, http.MethodPost, "/ask", "application/json", []byte(`{"query":"hello"}`))
	gt.Equal(t, w.Code, http.StatusOK)
	gt.S(t, w.Body.String()).Contains(`data: {"text":"partial"}`)
	gt.False(t, strings.Contains(w.Body.String(), "[DONE]"))
}

func TestAskStreamFailsBeforeFirstEvent(t *testing.T) {
	srv := newServer(&mockGemini{abort: goerr.New("quota exceeded")})

	w := do(srv, http.MethodPost, "/ask", "application/json", []byte(`{"query":"hello"}`))
	gt.Equal(t, w.Code, http.StatusInternalServerError)
	gt.S(t, w.Header().Get("Content-Type")).Contains("application/json")
	gt.Equal(t, errorOf(t, w), "AI request failed")
}

func TestAskCoercesHistoryRoles(t *testing.T) {
	gemini := &mockGemini{chunks: []string{"ok"}}
	srv := newServer(gemini)

	body := `{"query":"hi","history":[
		{"role":1,"content":"numeric role"},
		{"role":"assistant","content":"other role"},
		{"role":"user","content":"user role"},
		{"content":"no role"}
	]}`
	w := do(srv, http.MethodPost, "/ask", "application/json", []byte(body))
	gt.Equal(t, w.Code, http.StatusOK)
	gt.S(t, w.Body.String()).Contains("data: [DONE]")

	roles := make([]string, 0, len(gemini.contents))
	for _, content := range gemini.contents {
		roles = append(roles, content.Role)
	}
	gt.Equal(t, roles, []string{"model", "model", "user", "model", "user"})
}

func TestAskBadRequest(t *testing.T) {
	srv := newServer(&mockGemini{})

	t.Run("invalid json", func(t *testing.T) {
		w := do(srv, http.MethodPost, "/ask", "application/json", []byte(`{not json`))
		gt.Equal(t, w.Code, http.StatusBadRequest)
		gt.Equal(t, errorOf(t, w), "No data provided")
	})

	t.Run("empty query", func(t *testing.T) {
		w := do(srv, http.MethodPost, "/ask", "application/json", []byte(`{"query":"   "}`))
		gt.Equal(t, w.Code, http.StatusBadRequest)
		gt.Equal(t, errorOf(t, w), "No query provided")
	})
}

func TestAskNotConfigured(t *testing.T) {
	gemini, err := adapter.NewGemini(context.Background(), adapter.GeminiConfig{})
	gt.NoError(t, err)

	for _, mode := range []server.AskMode{server.AskModeStream, server.AskModeSingle} {
		t.Run(string(mode), func(t *testing.T) {
			srv := newServer(gemini, server.WithAskMode(mode))
			w := do(srv, http.MethodPost, "/ask", "application/json", []byte(`{"query":"hello"}`))
			gt.Equal(t, w.Code, http.StatusInternalServerError)
			gt.S(t, w.Header().Get("Content-Type")).Contains("application/json")
			gt.Equal(t, errorOf(t, w), "AI provider is not configured")
		})
	}
}

func TestAskSingle(t *testing.T) {
	resp := textResponse("Kela handles benefits.")
	resp.Candidates[0].GroundingMetadata = &genai.GroundingMetadata{
		GroundingChunks: []*genai.GroundingChunk{
			{Web: &genai.GroundingChunkWeb{Title: "kela.fi", URI: "https://www.kela.fi"}},
		},
	}
	srv := newServer(&mockGemini{
		generate: func() (*genai.GenerateContentResponse, error) { return resp, nil },
	}, server.WithAskMode(server.AskModeSingle))

	w := do(srv, http.MethodPost, "/api/ask", "application/json", []byte(`{"query":"What is Kela?"}`))
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, w.Body.String(),
		`{"answer":"Kela handles benefits.","citations":[{"source":"kela.fi","url":"https://www.kela.fi"}]}`+"\n")
}

func TestUploadAndChecklist(t *testing.T) {
	srv := newServer(&mockGemini{
		generate: func() (*genai.GenerateContentResponse, error) {
			return textResponse("```json\n{\"analysis\":\"Mostly clear.\",\"checklist\":[\"Sign the form\",\"Attach ID\"]}\n```"), nil
		},
	})

	body, contentType := multipartFile(t, "hakemus.txt", []byte("Haen oleskelulupaa."))
	w := do(srv, http.MethodPost, "/upload-doc", contentType, body)
	gt.Equal(t, w.Code, http.StatusOK)

	var analysis struct {
		Analysis    string   `json:"analysis"`
		Checklist   []string `json:"checklist"`
		ChecklistID *int64   `json:"checklist_id"`
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	gt.Equal(t, analysis.Analysis, "Mostly clear.")
	gt.Equal(t, analysis.Checklist, []string{"Sign the form", "Attach ID"})
	gt.True(t, analysis.ChecklistID != nil)

	w = do(srv, http.MethodGet, "/api/checklist/"+jsonNumber(*analysis.ChecklistID), "", nil)
	gt.Equal(t, w.Code, http.StatusOK)
	var checklist []string
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &checklist))
	gt.Equal(t, checklist, []string{"Sign the form", "Attach ID"})
}

func TestUploadPDF(t *testing.T) {
	gemini := &mockGemini{
		generate: func() (*genai.GenerateContentResponse, error) {
			return textResponse(`{"analysis":"Form is incomplete.","checklist":["Add the applicant signature"]}`), nil
		},
	}
	srv := newServer(gemini)

	body, contentType := multipartFile(t, "oleskelulupa.pdf", buildPDF("Residence permit application"))
	w := do(srv, http.MethodPost, "/api/upload-doc", contentType, body)
	gt.Equal(t, w.Code, http.StatusOK)

	var analysis struct {
		Analysis    string   `json:"analysis"`
		Checklist   []string `json:"checklist"`
		ChecklistID *int64   `json:"checklist_id"`
	}
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	gt.Equal(t, analysis.Analysis, "Form is incomplete.")
	gt.Equal(t, analysis.Checklist, []string{"Add the applicant signature"})
	gt.True(t, analysis.ChecklistID != nil)

	w = do(srv, http.MethodGet, "/checklist/"+jsonNumber(*analysis.ChecklistID), "", nil)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, w.Body.String(), `["Add the applicant signature"]`+"\n")
}

// buildPDF writes a minimal single-page PDF showing one line of text.
func buildPDF(line string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", line)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

func jsonNumber(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestUploadErrors(t *testing.T) {
	failing := &mockGemini{
		generate: func() (*genai.GenerateContentResponse, error) {
			return nil, goerr.New("quota exceeded")
		},
	}
	srv := newServer(failing)

	t.Run("no file part", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		gt.NoError(t, mw.WriteField("note", "nothing attached"))
		gt.NoError(t, mw.Close())

		w := do(srv, http.MethodPost, "/upload-doc", mw.FormDataContentType(), buf.Bytes())
		gt.Equal(t, w.Code, http.StatusBadRequest)
		gt.Equal(t, errorOf(t, w), "No file part")
	})

	t.Run("not multipart", func(t *testing.T) {
		w := do(srv, http.MethodPost, "/upload-doc", "application/json", []byte(`{}`))
		gt.Equal(t, w.Code, http.StatusBadRequest)
		gt.Equal(t, errorOf(t, w), "No file part")
	})

	t.Run("undecodable text", func(t *testing.T) {
		body, contentType := multipartFile(t, "data.bin", []byte{0xff, 0xfe, 0x00, 0xc3})
		w := do(srv, http.MethodPost, "/upload-doc", contentType, body)
		gt.Equal(t, w.Code, http.StatusBadRequest)
		gt.Equal(t, errorOf(t, w), "Failed to read file")
	})

	t.Run("blank document", func(t *testing.T) {
		body, contentType := multipartFile(t, "blank.txt", []byte(" \n\t "))
		w := do(srv, http.MethodPost, "/upload-doc", contentType, body)
		gt.Equal(t, w.Code, http.StatusBadRequest)
		gt.Equal(t, errorOf(t, w), "Could not extract text from file")
	})

	t.Run("provider failure", func(t *testing.T) {
		body, contentType := multipartFile(t, "letter.txt", []byte("Hyvä vastaanottaja"))
		w := do(srv, http.MethodPost, "/upload-doc", contentType, body)
		gt.Equal(t, w.Code, http.StatusInternalServerError)
		gt.Equal(t, errorOf(t, w), "AI analysis failed")
	})

	t.Run("too large", func(t *testing.T) {
		small := newServer(failing, server.WithMaxUploadSize(64))
		body, contentType := multipartFile(t, "big.txt", bytes.Repeat([]byte("a"), 1024))
		w := do(small, http.MethodPost, "/upload-doc", contentType, body)
		gt.Equal(t, w.Code, http.StatusRequestEntityTooLarge)
		gt.Equal(t, errorOf(t, w), "File too large")
	})
}

func TestGetChecklist(t *testing.T) {
	srv := newServer(&mockGemini{})

	t.Run("unknown id", func(t *testing.T) {
		w := do(srv, http.MethodGet, "/checklist/999999", "", nil)
		gt.Equal(t, w.Code, http.StatusNotFound)
		gt.Equal(t, w.Body.String(), `{"error":"Checklist not found"}`+"\n")
	})

	t.Run("invalid id", func(t *testing.T) {
		for _, id := range []string{"abc", "-1", "1.5", "+5", "0x10"} {
			w := do(srv, http.MethodGet, "/checklist/"+id, "", nil)
			gt.Equal(t, w.Code, http.StatusBadRequest)
			gt.Equal(t, errorOf(t, w), "Invalid checklist id")
		}
	})

	t.Run("id beyond int64 is unknown", func(t *testing.T) {
		w := do(srv, http.MethodGet, "/checklist/99999999999999999999999", "", nil)
		gt.Equal(t, w.Code, http.StatusNotFound)
		gt.Equal(t, errorOf(t, w), "Checklist not found")
	})

	t.Run("store disabled", func(t *testing.T) {
		plain := server.New(assistant.New(&mockGemini{}))
		w := do(plain, http.MethodGet, "/checklist/1", "", nil)
		gt.Equal(t, w.Code, http.StatusNotFound)
	})
}

func TestAuxiliaryRoutes(t *testing.T) {
	srv := newServer(&mockGemini{})

	w := do(srv, http.MethodGet, "/healthz", "", nil)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, w.Body.String(), `{"status":"ok"}`+"\n")

	w = do(srv, http.MethodPost, "/api/auth", "application/json", []byte(`{}`))
	gt.Equal(t, w.Code, http.StatusOK)
	gt.S(t, w.Body.String()).Contains(`"token":"demo-token"`)

	w = do(srv, http.MethodPost, "/check-form", "", nil)
	gt.Equal(t, w.Code, http.StatusOK)

	w = do(srv, http.MethodGet, "/healthz", "", nil)
	gt.True(t, w.Header().Get("X-Request-ID") != "")
}

func TestRequestIDPropagation(t *testing.T) {
	srv := newServer(&mockGemini{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	gt.Equal(t, w.Header().Get("X-Request-ID"), "req-42")
}

func TestCORS(t *testing.T) {
	srv := newServer(&mockGemini{}, server.WithCORSOrigins("https://virasto.example"))

	req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "https://virasto.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	gt.Equal(t, w.Header().Get("Access-Control-Allow-Origin"), "https://virasto.example")
}
