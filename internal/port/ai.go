package port

import "context"

// Scorer abstracts the LLM backend used for impact scoring.
// Implementations can target OpenAI, Ollama, or any compatible chat API.
type Scorer interface {
	// ModelName returns the identifier of the model being used.
	ModelName() string

	// Chat sends a system and user prompt and returns the raw response text.
	Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
