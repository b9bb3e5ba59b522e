package port

import (
	"context"

	"github.com/samoht625/cursor-eng-ctx/internal/domain"
)

// AnalysisSink persists final change records, upserting by merge hash.
type AnalysisSink interface {
	UpsertAnalysis(ctx context.Context, ch *domain.ReconstructedChange) error
}

// ResponseCache is the content-addressed LLM response cache, keyed by
// (model, exact prompt). Overwrite semantics on key collision.
type ResponseCache interface {
	// Lookup returns the cached response for (prompt, model), if any.
	Lookup(ctx context.Context, prompt, model string) (string, bool, error)

	// Store caches a response, replacing any existing entry for the key.
	Store(ctx context.Context, prompt, model, response string) error
}
