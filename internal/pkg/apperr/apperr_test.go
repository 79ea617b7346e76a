// internal/pkg/apperr/apperr_test.go
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	err := New(NotFound, "order not found")
	wrapped := fmt.Errorf("loading order 7: %w", err)

	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, NotFound))
	assert.Equal(t, "order not found", Message(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Upstream, "payment charge failed", cause)

	assert.Equal(t, Upstream, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "payment charge failed", Message(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestUnclassifiedErrorsStayGeneric(t *testing.T) {
	err := errors.New("pq: duplicate key value violates unique constraint")

	assert.Equal(t, Internal, KindOf(err))
	assert.Equal(t, "internal server error", Message(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		Validation: http.StatusBadRequest,
		NotFound:   http.StatusNotFound,
		Conflict:   http.StatusConflict,
		Upstream:   http.StatusBadGateway,
		Internal:   http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(New(kind, "x")))
	}
}
