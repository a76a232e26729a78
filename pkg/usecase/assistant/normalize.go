package assistant

import (
	"strings"

	"github.com/m-mizutani/virasto/pkg/model"
	"google.golang.org/genai"
)

func firstCandidate(resp *genai.GenerateContentResponse) *genai.Candidate {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	return resp.Candidates[0]
}

// candidateText joins the text parts of a candidate with sep. Thought parts
// are never relayed.
func candidateText(c *genai.Candidate, sep string) string {
	if c == nil || c.Content == nil {
		return ""
	}

	var texts []string
	for _, part := range c.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		texts = append(texts, part.Text)
	}
	return strings.Join(texts, sep)
}

// extractCitations returns one citation per grounding chunk that has a web
// reference. Missing metadata yields nil.
func extractCitations(c *genai.Candidate) []model.Citation {
	if c == nil || c.GroundingMetadata == nil {
		return nil
	}

	var citations []model.Citation
	for _, chunk := range c.GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		citations = append(citations, model.Citation{
			Source: chunk.Web.Title,
			URL:    chunk.Web.URI,
		})
	}
	return citations
}

// normalizeResponse converts a single-shot provider response into an
// AnswerResult. It never fails.
func normalizeResponse(resp *genai.GenerateContentResponse) *model.AnswerResult {
	candidate := firstCandidate(resp)
	if candidate == nil {
		return &model.AnswerResult{
			Answer:    model.NoResponseAnswer,
			Citations: []model.Citation{},
		}
	}

	citations := extractCitations(candidate)
	if citations == nil {
		citations = []model.Citation{}
	}

	return &model.AnswerResult{
		Answer:    candidateText(candidate, "\n"),
		Citations: citations,
	}
}
