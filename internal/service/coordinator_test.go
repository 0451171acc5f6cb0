package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/MimeLyc/doc-translator/internal/document"
	"github.com/MimeLyc/doc-translator/internal/persistence"
	"github.com/MimeLyc/doc-translator/internal/translator"
)

type mockTranslator struct {
	mock.Mock
}

func (m *mockTranslator) TranslateBatch(ctx context.Context, req translator.Request) ([]string, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// funcTranslator answers each chunk with fn and records the chunks it saw.
type funcTranslator struct {
	fn func(texts []string) ([]string, error)

	mu     sync.Mutex
	chunks [][]string
}

func (f *funcTranslator) TranslateBatch(_ context.Context, req translator.Request) ([]string, error) {
	f.mu.Lock()
	f.chunks = append(f.chunks, append([]string(nil), req.Texts...))
	f.mu.Unlock()
	return f.fn(req.Texts)
}

func upper(texts []string) ([]string, error) {
	ret := make([]string, len(texts))
	for i, t := range texts {
		ret[i] = strings.ToUpper(t)
	}
	return ret, nil
}

func newStore(t *testing.T) *persistence.SQLiteStore {
	t.Helper()
	store, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "doc-translator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func unitsOf(texts ...string) []document.TextUnit {
	ret := make([]document.TextUnit, len(texts))
	for i, text := range texts {
		ret[i] = document.TextUnit{Path: document.Path{string(rune('a' + i))}, SourceText: text}
	}
	return ret
}

func TestCoordinator_PartialFailureIsolation(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	tr := &funcTranslator{fn: func(texts []string) ([]string, error) {
		if texts[0] == "three" {
			return nil, apperr.New(apperr.KindProviderTransport, "connection reset")
		}
		return upper(texts)
	}}

	res := NewCoordinator(store).Run(ctx, tr, Batch{
		Units:       unitsOf("one", "two", "three", "four", "five"),
		TargetLang:  "fr",
		Model:       "m",
		ChunkSize:   2,
		Concurrency: 2,
	})

	require.Len(t, res.Units, 5)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 2, res.Failed)
	assert.Len(t, tr.chunks, 3)

	want := []struct {
		text    string
		success bool
	}{
		{"ONE", true},
		{"TWO", true},
		{"three", false},
		{"four", false},
		{"FIVE", true},
	}
	for i, w := range want {
		u := res.Units[i]
		assert.Equal(t, document.Path{string(rune('a' + i))}, u.Path)
		assert.Equal(t, w.text, u.TranslatedText, u.SourceText)
		assert.Equal(t, w.success, u.Success, u.SourceText)
		if !w.success {
			assert.Contains(t, u.Error, "connection reset")
		}
	}

	failed, ok, err := store.Lookup(ctx, "three")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, failed.Success)

	history, err := store.GetHistory(ctx, failed.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Contains(t, history[0].Error, "connection reset")

	ok1, _, err := store.Lookup(ctx, "one")
	require.NoError(t, err)
	assert.True(t, ok1.Success)
	assert.Equal(t, "ONE", ok1.Target)
}

func TestCoordinator_CacheHitSkipsProvider(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	_, err := store.Upsert(ctx, persistence.UpsertParams{Source: "Hello", Target: "Bonjour", Success: true})
	require.NoError(t, err)

	tr := &mockTranslator{}
	tr.On("TranslateBatch", mock.Anything, mock.MatchedBy(func(r translator.Request) bool {
		return len(r.Texts) == 1 && r.Texts[0] == "World"
	})).Return([]string{"Monde"}, nil).Once()

	res := NewCoordinator(store).Run(ctx, tr, Batch{
		Units:      unitsOf("Hello", "World"),
		TargetLang: "fr",
		ChunkSize:  10,
	})

	tr.AssertExpectations(t)
	assert.Equal(t, 1, res.Hits)
	assert.Equal(t, 0, res.Failed)
	assert.True(t, res.Units[0].FromCache)
	assert.Equal(t, "Bonjour", res.Units[0].TranslatedText)
	assert.False(t, res.Units[1].FromCache)
	assert.Equal(t, "Monde", res.Units[1].TranslatedText)
}

func TestCoordinator_FailedEntryIsRetranslated(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	_, err := store.Upsert(ctx, persistence.UpsertParams{Source: "Hello", Target: "Hello", Success: false, Error: "timeout"})
	require.NoError(t, err)

	tr := &mockTranslator{}
	tr.On("TranslateBatch", mock.Anything, mock.Anything).Return([]string{"Salut"}, nil).Once()

	res := NewCoordinator(store).Run(ctx, tr, Batch{Units: unitsOf("Hello"), ChunkSize: 5})
	tr.AssertExpectations(t)
	require.True(t, res.Units[0].Success)
	assert.Equal(t, "Salut", res.Units[0].TranslatedText)

	entry, _, err := store.Lookup(ctx, "Hello")
	require.NoError(t, err)
	assert.True(t, entry.Success)
	assert.Equal(t, "Salut", entry.Target)
}

func TestCoordinator_IdenticalTextsDispatchedOnce(t *testing.T) {
	store := newStore(t)
	tr := &funcTranslator{fn: upper}

	res := NewCoordinator(store).Run(context.Background(), tr, Batch{
		Units:     unitsOf("same", "other", "same"),
		ChunkSize: 10,
	})

	require.Len(t, tr.chunks, 1)
	assert.Equal(t, []string{"same", "other"}, tr.chunks[0])
	assert.Equal(t, "SAME", res.Units[0].TranslatedText)
	assert.Equal(t, "SAME", res.Units[2].TranslatedText)
	assert.Equal(t, document.Path{"c"}, res.Units[2].Path)

	page, err := store.Query(context.Background(), persistence.Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestCoordinator_CountMismatchFailsChunk(t *testing.T) {
	store := newStore(t)
	tr := &funcTranslator{fn: func(texts []string) ([]string, error) {
		return []string{"only one"}, nil
	}}

	res := NewCoordinator(store).Run(context.Background(), tr, Batch{Units: unitsOf("a", "b"), ChunkSize: 2})
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, "a", res.Units[0].TranslatedText)
	assert.Contains(t, res.Units[0].Error, "expected 2 translations")
}

func TestCoordinator_BlankTextsPassThrough(t *testing.T) {
	tr := &mockTranslator{}
	res := NewCoordinator(newStore(t)).Run(context.Background(), tr, Batch{Units: unitsOf("  "), ChunkSize: 2})

	tr.AssertNotCalled(t, "TranslateBatch", mock.Anything, mock.Anything)
	require.Len(t, res.Units, 1)
	assert.True(t, res.Units[0].Success)
	assert.Equal(t, "  ", res.Units[0].TranslatedText)
}

func TestCoordinator_EmptyBatch(t *testing.T) {
	res := NewCoordinator(newStore(t)).Run(context.Background(), &mockTranslator{}, Batch{})
	assert.Empty(t, res.Units)
	assert.Equal(t, 0, res.Failed)
}

type brokenStore struct{}

func (brokenStore) Lookup(context.Context, string) (*persistence.CacheEntry, bool, error) {
	return nil, false, apperr.New(apperr.KindStorage, "disk I/O error")
}

func (brokenStore) Upsert(context.Context, persistence.UpsertParams) (int64, error) {
	return 0, apperr.Wrap(errors.New("UNIQUE constraint failed"), apperr.KindCacheIntegrity, "upsert translation")
}

func TestCoordinator_StoreErrorsDoNotFailUnits(t *testing.T) {
	tr := &funcTranslator{fn: upper}
	res := NewCoordinator(brokenStore{}).Run(context.Background(), tr, Batch{Units: unitsOf("x", "y"), ChunkSize: 1, Concurrency: 2})

	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, "X", res.Units[0].TranslatedText)
	assert.Equal(t, "Y", res.Units[1].TranslatedText)
}

func TestUnitState_String(t *testing.T) {
	assert.Equal(t, "cache_hit", StateCacheHit.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", UnitState(42).String())
}
