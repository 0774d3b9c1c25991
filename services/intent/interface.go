package intent

import (
	"context"

	"busmitra/models"
)

// --- Interfaces ---

// Extractor turns one utterance into a structured candidate intent. It never
// returns an error: any model or parse failure yields an empty candidate with
// zero confidence, which the dialogue layer answers with a clarification.
type Extractor interface {
	Extract(ctx context.Context, utterance string, sess *models.Session) models.CandidateIntent
}
