package assistant

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"text/template"
	"unicode"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/kaptinlin/jsonrepair"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/virasto/pkg/model"
	"github.com/m-mizutani/virasto/pkg/utils/logging"
	"google.golang.org/genai"
)

//go:embed prompt/analyze.md
var analyzePromptRaw string

var analyzePromptTmpl = template.Must(template.New("analyze").Parse(analyzePromptRaw))

var analysisSchema = mustResolve(&jsonschema.Schema{
	Type:     "object",
	Required: []string{"analysis", "checklist"},
	Properties: map[string]*jsonschema.Schema{
		"analysis": {Type: "string"},
		"checklist": {
			Types: []string{"array", "null"},
			Items: &jsonschema.Schema{Type: "string"},
		},
	},
})

func mustResolve(s *jsonschema.Schema) *jsonschema.Resolved {
	resolved, err := s.Resolve(nil)
	if err != nil {
		panic(err)
	}
	return resolved
}

// Analyze asks the provider for a structured analysis of extracted document
// text. Malformed provider output never fails the call; it degrades to the
// raw text with an empty checklist.
func (u *UseCase) Analyze(ctx context.Context, filename, content string) (*model.DocumentAnalysis, error) {
	var buf bytes.Buffer
	if err := analyzePromptTmpl.Execute(&buf, map[string]any{
		"Filename": filename,
		"Standard": u.standard,
		"Content":  content,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute analyze prompt template")
	}

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}
	resp, err := u.gemini.GenerateContent(ctx, contents, u.generateConfig(ModeAnalyze))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to analyze document", goerr.V("filename", filename))
	}

	candidate := firstCandidate(resp)
	raw := candidateText(candidate, "")
	if candidate != nil && candidate.FinishReason == genai.FinishReasonMaxTokens {
		logging.From(ctx).Warn("analysis output was cut off, using raw text", "filename", filename)
		return fallbackAnalysis(raw), nil
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		logging.From(ctx).Warn("provider returned malformed analysis, using raw text",
			"filename", filename,
			"error", err,
		)
		return fallbackAnalysis(raw), nil
	}

	return analysis, nil
}

func fallbackAnalysis(raw string) *model.DocumentAnalysis {
	if strings.TrimSpace(raw) == "" {
		raw = model.AnalysisFailedText
	}
	return &model.DocumentAnalysis{
		Analysis:  raw,
		Checklist: []string{},
	}
}

// stripFence removes a leading ``` fence, with or without a language tag, and
// a trailing ``` fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		end := strings.IndexFunc(rest, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
		})
		if end < 0 {
			end = len(rest)
		}
		s = strings.TrimSpace(rest[end:])
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseAnalysis decodes provider output into a DocumentAnalysis. Syntax damage
// inside a complete object is repaired; truncated output is not. The result
// must still be an object with both required keys.
func parseAnalysis(raw string) (*model.DocumentAnalysis, error) {
	body := stripFence(raw)
	if body == "" {
		return nil, goerr.New("analysis output is empty")
	}

	var instance any
	if err := json.Unmarshal([]byte(body), &instance); err != nil {
		if !strings.HasSuffix(body, "}") {
			return nil, goerr.Wrap(err, "analysis output is truncated")
		}
		repaired, repairErr := jsonrepair.JSONRepair(body)
		if repairErr != nil {
			return nil, goerr.Wrap(err, "analysis output is not JSON", goerr.V("repair_error", repairErr.Error()))
		}
		if err := json.Unmarshal([]byte(repaired), &instance); err != nil {
			return nil, goerr.Wrap(err, "repaired analysis output is not JSON")
		}
		body = repaired
	}

	if err := analysisSchema.Validate(instance); err != nil {
		return nil, goerr.Wrap(err, "analysis output does not match schema")
	}

	var analysis model.DocumentAnalysis
	if err := json.Unmarshal([]byte(body), &analysis); err != nil {
		return nil, goerr.Wrap(err, "failed to decode analysis")
	}
	analysis.ChecklistID = nil
	if analysis.Checklist == nil {
		analysis.Checklist = []string{}
	}

	return &analysis, nil
}
