package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(New(KindNotFound, "missing")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindInternal, KindOf(nil))

	// Classification survives wrapping with %w.
	wrapped := fmt.Errorf("outer: %w", New(KindConflict, "duplicate"))
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(KindUnavailable, "service down", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "service down")
	assert.Contains(t, err.Error(), "underlying")
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "variable not found", MessageOf(New(KindNotFound, "variable not found")))
	// Unclassified error messages never reach clients verbatim.
	assert.Equal(t, "internal server error", MessageOf(errors.New("pq: connection refused")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:     http.StatusBadRequest,
		KindAuthentication: http.StatusUnauthorized,
		KindAuthorization:  http.StatusForbidden,
		KindNotFound:       http.StatusNotFound,
		KindConflict:       http.StatusConflict,
		KindQuotaExceeded:  http.StatusPaymentRequired,
		KindRateLimited:    http.StatusTooManyRequests,
		KindUnavailable:    http.StatusServiceUnavailable,
		KindInternal:       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), "kind %v", kind)
	}
}

func TestIs(t *testing.T) {
	err := Newf(KindQuotaExceeded, "maximum %d variables allowed", 50)
	assert.True(t, Is(err, KindQuotaExceeded))
	assert.False(t, Is(err, KindConflict))
	assert.False(t, Is(errors.New("plain"), KindQuotaExceeded))
}
