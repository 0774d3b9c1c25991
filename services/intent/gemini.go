// Package intent extracts structured booking intents from free-form user
// messages with a Gemini model held to a strict JSON schema.
package intent

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"busmitra/models"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// --- Extractor Implementation ---
type GeminiExtractor struct {
	model  *genai.GenerativeModel
	logger *zap.Logger
	now    func() time.Time
}

// NewGeminiExtractor builds the extractor over a JSON-mode Gemini model.
// Temperature is pinned to zero; extraction is classification, not writing.
func NewGeminiExtractor(ctx context.Context, apiKey string, logger *zap.Logger) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel("gemini-1.5-flash")
	model.ResponseMIMEType = "application/json"
	temp := float32(0)
	model.Temperature = &temp

	return &GeminiExtractor{
		model:  model,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (g *GeminiExtractor) Extract(ctx context.Context, utterance string, sess *models.Session) models.CandidateIntent {
	prompt := BuildPrompt(utterance, sess, g.now())

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		g.logger.Warn("intent extraction call failed",
			zap.String("session", sess.ID), zap.Error(err))
		return models.CandidateIntent{}
	}

	raw := collectText(resp)
	if raw == "" {
		g.logger.Warn("intent extraction returned no text", zap.String("session", sess.ID))
		return models.CandidateIntent{}
	}

	candidate, err := parseCandidate(raw)
	if err != nil {
		g.logger.Warn("intent extraction returned unparseable JSON",
			zap.String("session", sess.ID), zap.Error(err))
		return models.CandidateIntent{}
	}
	return candidate
}

func collectText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}

// wireIntent is the model's snake_case JSON shape.
type wireIntent struct {
	Slots map[string][]struct {
		Value      string  `json:"value"`
		Confidence float64 `json:"confidence"`
	} `json:"slots"`
	ReferencedSlots   []string `json:"referenced_slots"`
	OverallConfidence float64  `json:"overall_confidence"`
	WantsHuman        bool     `json:"wants_human"`
	SelectedOption    string   `json:"selected_option"`
}

// parseCandidate decodes model output into a CandidateIntent, tolerating
// markdown fences and normalising confidences into [0,1] with candidates
// ranked best first.
func parseCandidate(raw string) (models.CandidateIntent, error) {
	cleaned := stripFences(raw)

	var wire wireIntent
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return models.CandidateIntent{}, err
	}

	out := models.CandidateIntent{
		Overall:        clamp(wire.OverallConfidence),
		WantsHuman:     wire.WantsHuman,
		SelectedOption: strings.TrimSpace(wire.SelectedOption),
	}

	if len(wire.Slots) > 0 {
		out.Slots = make(map[models.SlotName][]models.SlotCandidate, len(wire.Slots))
		for name, ranked := range wire.Slots {
			slot, ok := knownSlot(name)
			if !ok {
				continue
			}
			var cands []models.SlotCandidate
			for _, c := range ranked {
				v := strings.TrimSpace(c.Value)
				if v == "" {
					continue
				}
				cands = append(cands, models.SlotCandidate{Value: v, Confidence: clamp(c.Confidence)})
			}
			if len(cands) == 0 {
				continue
			}
			sort.SliceStable(cands, func(i, j int) bool { return cands[i].Confidence > cands[j].Confidence })
			out.Slots[slot] = cands
		}
		if len(out.Slots) == 0 {
			out.Slots = nil
		}
	}

	for _, name := range wire.ReferencedSlots {
		if slot, ok := knownSlot(name); ok {
			out.ReferencedSlots = append(out.ReferencedSlots, slot)
		}
	}
	return out, nil
}

func knownSlot(name string) (models.SlotName, bool) {
	switch s := models.SlotName(name); s {
	case models.SlotOrigin, models.SlotDestination, models.SlotDate, models.SlotTimeWindow,
		models.SlotPassengerCount, models.SlotSeatPreference, models.SlotPaymentMethod,
		models.SlotBudget:
		return s, true
	}
	return "", false
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// stripFences removes a ```json ... ``` wrapper some model responses carry
// despite JSON mode.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
