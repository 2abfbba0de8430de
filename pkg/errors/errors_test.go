package errors

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexRead_WrapsSentinelAndCause(t *testing.T) {
	err := IndexRead("reading postings", io.ErrUnexpectedEOF)

	assert.ErrorIs(t, err, ErrIndexRead)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "reading postings")
	assert.NoError(t, IndexRead("noop", nil))
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error wins", New(ErrInvalidInput, http.StatusTeapot, "short and stout"), http.StatusTeapot},
		{"invalid query", fmt.Errorf("parsing: %w", ErrInvalidQuery), http.StatusBadRequest},
		{"too many clauses", ErrTooManyClauses, http.StatusBadRequest},
		{"settings missing", ErrSettingsNotFound, http.StatusNotFound},
		{"shard down", ErrShardUnavailable, http.StatusServiceUnavailable},
		{"index read", IndexRead("x", errors.New("disk")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}
