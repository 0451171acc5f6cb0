package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/MimeLyc/doc-translator/internal/llm"
	"github.com/MimeLyc/doc-translator/pkg/log"
)

const DefaultPromptTemplate = "You are a professional translator. Translate every text from {{sourceLang}} to {{targetLang}}. " +
	"Keep placeholders, markup, URLs and numbers unchanged, and keep the tone of the original."

// llmTranslator is the AI layer behind the coordinator.
type llmTranslator struct {
	client Completer
}

// NewLLMTranslator creates a translator on top of a provider client
func NewLLMTranslator(client Completer) Translator {
	return &llmTranslator{client: client}
}

func (t *llmTranslator) TranslateBatch(ctx context.Context, req Request) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	sourceLang := req.SourceLang
	if sourceLang == "" || strings.EqualFold(sourceLang, "auto") {
		if tag := DetectLanguage(req.Texts); tag.String() != "und" {
			sourceLang = tag.String()
		}
	}

	systemPrompt := buildSystemPrompt(req.PromptTemplate, sourceLang, req.TargetLang)
	userMessage, err := buildTranslationUserMessage(req.Texts)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindValidation, "failed to build translation payload")
	}

	content, err := t.client.Complete(ctx, llm.Completion{
		Model:        req.Model,
		SystemPrompt: systemPrompt,
		UserPrompt:   userMessage,
	})
	if err != nil {
		return nil, err
	}

	translations, err := parseTranslationOutput(content, len(req.Texts))
	if err != nil {
		log.Warn("Discarding provider output for %d texts: %v", len(req.Texts), err)
		return nil, err
	}
	return translations, nil
}

// buildSystemPrompt fills the template and appends the output contract.
func buildSystemPrompt(template, sourceLang, targetLang string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultPromptTemplate
	}
	source := DisplayName(sourceLang)
	if source == "" {
		source = "the detected source language"
	}

	var prompt strings.Builder
	prompt.WriteString(strings.NewReplacer(
		"{{sourceLang}}", source,
		"{{targetLang}}", DisplayName(targetLang),
	).Replace(template))

	prompt.WriteString("\n\n=== INPUT FORMAT ===\n")
	prompt.WriteString("The user message is a JSON object {\"lines\":[{\"index\":n,\"text\":\"...\"}]}.\n")
	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	prompt.WriteString("Return ONLY a JSON array [{\"index\":n,\"text\":\"translation\"}] with one item per input index.\n")
	prompt.WriteString("Do NOT merge, split, reorder, or drop lines.\n")
	prompt.WriteString("Line breaks inside a text must be written as \\n in the JSON string.\n")
	prompt.WriteString("Do not include any explanations, notes, or additional text.\n")
	return prompt.String()
}

type indexedLine struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// buildTranslationUserMessage encodes texts as 1-based indexed lines.
func buildTranslationUserMessage(texts []string) (string, error) {
	payload := struct {
		Lines []indexedLine `json:"lines"`
	}{Lines: make([]indexedLine, 0, len(texts))}
	for i, text := range texts {
		payload.Lines = append(payload.Lines, indexedLine{Index: i + 1, Text: text})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// parseTranslationOutput accepts an indexed JSON array, or a plain string
// array as fallback. Any count mismatch rejects the whole chunk.
func parseTranslationOutput(content string, expected int) ([]string, error) {
	content = stripCodeFence(strings.TrimSpace(content))
	if content == "" {
		return nil, rejection("empty json output", expected, 0)
	}

	var indexed []indexedLine
	if err := json.Unmarshal([]byte(content), &indexed); err == nil && isIndexed(content) {
		sort.SliceStable(indexed, func(i, j int) bool { return indexed[i].Index < indexed[j].Index })
		if len(indexed) != expected {
			return nil, rejection("translation count mismatch", expected, len(indexed))
		}
		out := make([]string, expected)
		for i, line := range indexed {
			if line.Index != i+1 {
				return nil, rejection(fmt.Sprintf("unexpected index %d", line.Index), expected, len(indexed))
			}
			out[i] = line.Text
		}
		return out, nil
	}

	var plain []string
	if err := json.Unmarshal([]byte(content), &plain); err != nil {
		return nil, apperr.Wrap(err, apperr.KindProviderRejection, "provider output is not a json array").
			WithContext("expected", expected)
	}
	if len(plain) != expected {
		return nil, rejection("translation count mismatch", expected, len(plain))
	}
	return plain, nil
}

func isIndexed(content string) bool {
	var probe []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &probe); err != nil {
		return false
	}
	for _, item := range probe {
		if _, ok := item["index"]; !ok {
			return false
		}
	}
	return true
}

func rejection(msg string, expected, got int) error {
	return apperr.New(apperr.KindProviderRejection, "%s", msg).
		WithContext("expected", expected).
		WithContext("got", got)
}

// stripCodeFence unwraps ```json ... ``` blocks that some models add.
func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	inner := content[3:]
	if nl := strings.Index(inner, "\n"); nl >= 0 {
		inner = inner[nl+1:]
	}
	if end := strings.LastIndex(inner, "```"); end >= 0 {
		inner = inner[:end]
	}
	return strings.TrimSpace(inner)
}
