package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/MimeLyc/doc-translator/internal/document"
	"github.com/MimeLyc/doc-translator/internal/persistence"
	"github.com/MimeLyc/doc-translator/internal/translator"
	"github.com/MimeLyc/doc-translator/pkg/log"
)

// CacheStore is the part of the cache the coordinator reads and writes.
type CacheStore interface {
	Lookup(ctx context.Context, source string) (*persistence.CacheEntry, bool, error)
	Upsert(ctx context.Context, p persistence.UpsertParams) (int64, error)
}

// UnitState is the progress of one distinct source text within a batch.
type UnitState int

const (
	StatePending UnitState = iota
	StateCacheHit
	StateDispatched
	StateSucceeded
	StateFailed
)

func (s UnitState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCacheHit:
		return "cache_hit"
	case StateDispatched:
		return "dispatched"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Batch is one coordinator run over the units of a request.
type Batch struct {
	Units          []document.TextUnit
	SourceLang     string
	TargetLang     string
	PromptTemplate string
	Model          string
	ChunkSize      int
	Concurrency    int
	FileInfoID     *int64
}

// BatchResult holds one translated unit per input unit, in input order.
type BatchResult struct {
	ID     string
	Units  []document.TranslatedUnit
	Hits   int
	Failed int
}

// text is one distinct source string and the units that carry it.
type text struct {
	source string
	units  []int
	state  UnitState
	target string
	err    error
}

type Coordinator struct {
	store CacheStore
}

func NewCoordinator(store CacheStore) *Coordinator {
	return &Coordinator{store: store}
}

// Run translates the batch. Provider and store failures never abort the
// run: every input unit gets a result, failed ones carry their source text.
func (c *Coordinator) Run(ctx context.Context, tr translator.Translator, b Batch) *BatchResult {
	result := &BatchResult{
		ID:    uuid.NewString(),
		Units: make([]document.TranslatedUnit, len(b.Units)),
	}
	if len(b.Units) == 0 {
		return result
	}

	texts := groupTexts(b.Units)
	misses := make([]*text, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t.source) == "" {
			// nothing to translate
			t.state = StateSucceeded
			t.target = t.source
			continue
		}
		entry, ok, err := c.store.Lookup(ctx, t.source)
		if err != nil {
			log.Warn("Batch %s: cache lookup failed, translating anyway: %v", result.ID, err)
		}
		if err == nil && ok && entry.Success {
			t.state = StateCacheHit
			t.target = entry.Target
			continue
		}
		misses = append(misses, t)
	}
	log.Info("Batch %s: %d units, %d distinct texts, %d cache misses", result.ID, len(b.Units), len(texts), len(misses))

	chunkSize := max(b.ChunkSize, 1)
	var g errgroup.Group
	g.SetLimit(max(b.Concurrency, 1))
	for start := 0; start < len(misses); start += chunkSize {
		chunk := misses[start:min(start+chunkSize, len(misses))]
		for _, t := range chunk {
			t.state = StateDispatched
		}
		g.Go(func() error {
			c.runChunk(ctx, tr, b, result.ID, chunk)
			return nil
		})
	}
	_ = g.Wait()

	for _, t := range texts {
		for _, idx := range t.units {
			unit := b.Units[idx]
			out := document.TranslatedUnit{
				Path:           unit.Path,
				SourceText:     unit.SourceText,
				TranslatedText: t.target,
				Success:        t.state == StateCacheHit || t.state == StateSucceeded,
				FromCache:      t.state == StateCacheHit,
			}
			if !out.Success {
				out.TranslatedText = unit.SourceText
				if t.err != nil {
					out.Error = t.err.Error()
				}
				result.Failed++
			}
			if out.FromCache {
				result.Hits++
			}
			result.Units[idx] = out
		}
	}
	log.Info("Batch %s finished: %d from cache, %d failed", result.ID, result.Hits, result.Failed)
	return result
}

// runChunk translates one chunk and records every attempt. Each chunk writes
// only its own texts.
func (c *Coordinator) runChunk(ctx context.Context, tr translator.Translator, b Batch, batchID string, chunk []*text) {
	sources := make([]string, len(chunk))
	for i, t := range chunk {
		sources[i] = t.source
	}

	translations, err := tr.TranslateBatch(ctx, translator.Request{
		Texts:          sources,
		SourceLang:     b.SourceLang,
		TargetLang:     b.TargetLang,
		PromptTemplate: b.PromptTemplate,
		Model:          b.Model,
	})
	if err == nil && len(translations) != len(chunk) {
		err = apperr.New(apperr.KindProviderRejection, "expected %d translations, got %d", len(chunk), len(translations))
	}
	if err != nil {
		log.Warn("Batch %s: chunk of %d texts failed (%s): %v", batchID, len(chunk), apperr.KindOf(err), err)
	}

	for i, t := range chunk {
		params := persistence.UpsertParams{
			Source:     t.source,
			Model:      b.Model,
			FileInfoID: b.FileInfoID,
		}
		if err != nil {
			t.state = StateFailed
			t.err = err
			params.Target = t.source
			params.Error = err.Error()
		} else {
			t.state = StateSucceeded
			t.target = translations[i]
			params.Target = translations[i]
			params.Success = true
		}
		// A cancelled request still records what it learned.
		if _, uerr := c.store.Upsert(context.WithoutCancel(ctx), params); uerr != nil {
			logStoreError(batchID, t.source, uerr)
		}
	}
}

func logStoreError(batchID, source string, err error) {
	if apperr.IsKind(err, apperr.KindCacheIntegrity) {
		log.Warn("Batch %s: cache integrity conflict for %q: %v", batchID, truncate(source, 40), err)
		return
	}
	log.Error("Batch %s: failed to record translation of %q: %v", batchID, truncate(source, 40), err)
}

// groupTexts collapses identical source texts, keeping first-seen order.
func groupTexts(units []document.TextUnit) []*text {
	index := make(map[string]*text, len(units))
	ret := make([]*text, 0, len(units))
	for i, u := range units {
		t, ok := index[u.SourceText]
		if !ok {
			t = &text{source: u.SourceText}
			index[u.SourceText] = t
			ret = append(ret, t)
		}
		t.units = append(t.units, i)
	}
	return ret
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:n]))
}
