package answer

import (
	"context"
	"log"
	"strings"

	"github.com/layaask/answerbot/internal/classify"
	"github.com/layaask/answerbot/provider"
)

// Question is the discussion content handed to the synthesizer.
type Question struct {
	Title    string
	Body     string
	Username string
	Tags     []string
}

// Result is a synthesized reply. Success is false when the fallback text was
// used; the Markdown is publishable either way.
type Result struct {
	Success          bool
	Markdown         string
	Version          string
	PromptTokens     int
	CompletionTokens int
}

// Synthesizer produces forum replies through an LLM provider.
type Synthesizer struct {
	provider provider.Provider
	logger   *log.Logger
}

// NewSynthesizer builds a Synthesizer.
func NewSynthesizer(p provider.Provider, logger *log.Logger) *Synthesizer {
	if logger == nil {
		logger = log.New(log.Writer(), "[ANSWER] ", log.LstdFlags)
	}
	return &Synthesizer{provider: p, logger: logger}
}

// Synthesize generates a reply for the question, grounded on the retrieved
// knowledge context when present. The category steers the prompt: multi
// question posts get an answer-each-in-turn instruction. Provider failures
// and empty completions degrade to the fallback answer rather than erroring:
// by the time we are here the discussion deserves some reply.
func (s *Synthesizer) Synthesize(ctx context.Context, q Question, knowledgeContext string, category classify.Category) Result {
	version := DetectVersion(q.Title, q.Body)
	s.logger.Printf("synthesizing reply for %q (version %s, category %s, grounded=%t)",
		q.Title, version, category, strings.TrimSpace(knowledgeContext) != "")

	messages := []provider.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserPrompt(q, knowledgeContext, version, category == classify.MultiQuestion)},
	}

	completion, err := s.provider.ChatCompletion(ctx, messages)
	if err != nil {
		s.logger.Printf("completion failed: %v", err)
		return Result{Success: false, Markdown: fallbackAnswer(version), Version: version}
	}
	if strings.TrimSpace(completion.Content) == "" {
		s.logger.Printf("completion returned empty content, using fallback")
		return Result{
			Success:          false,
			Markdown:         fallbackAnswer(version),
			Version:          version,
			PromptTokens:     completion.PromptTokens,
			CompletionTokens: completion.CompletionTokens,
		}
	}

	return Result{
		Success:          true,
		Markdown:         completion.Content,
		Version:          version,
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
	}
}
