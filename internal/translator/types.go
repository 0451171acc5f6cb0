package translator

import (
	"context"

	"github.com/MimeLyc/doc-translator/internal/llm"
)

// Request is one chunk of texts to translate together.
type Request struct {
	Texts          []string
	SourceLang     string // language tag, or "auto"
	TargetLang     string
	PromptTemplate string // optional, supports {{sourceLang}} and {{targetLang}}
	Model          string // optional, overrides the client model
}

// Translator translates a chunk of texts. It returns exactly one result per
// input text in input order, or a single error for the whole chunk.
type Translator interface {
	TranslateBatch(ctx context.Context, req Request) ([]string, error)
}

// Completer is the provider call the translator is built on.
type Completer interface {
	Complete(ctx context.Context, req llm.Completion) (string, error)
}
