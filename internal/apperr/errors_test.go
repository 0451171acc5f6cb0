package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MessageIncludesSortedContextAndCause(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Wrap(cause, KindParse, "invalid %s", "json").
		WithContext("line", 3).
		WithContext("format", "json")

	assert.Equal(t, "[Parse] invalid json | context: format=json, line=3 | cause: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestKindOf_WrappedChain(t *testing.T) {
	inner := New(KindProviderRejection, "count mismatch")
	outer := fmt.Errorf("chunk 2: %w", inner)

	assert.Equal(t, KindProviderRejection, KindOf(outer))
	assert.True(t, IsKind(outer, KindProviderRejection))
	assert.False(t, IsKind(outer, KindParse))
	assert.False(t, IsKind(nil, KindUnknown))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestIsDocumentLevel(t *testing.T) {
	assert.True(t, IsDocumentLevel(New(KindParse, "x")))
	assert.True(t, IsDocumentLevel(New(KindValidation, "x")))
	assert.True(t, IsDocumentLevel(New(KindConfig, "x")))
	assert.False(t, IsDocumentLevel(New(KindProviderTransport, "x")))
	assert.False(t, IsDocumentLevel(errors.New("x")))
}
