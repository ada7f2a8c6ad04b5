package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-gitbridge/gitbridge/internal/errdefs"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errdefs.BadRequestf("bad"), http.StatusBadRequest},
		{errdefs.NotFoundf("gone"), http.StatusNotFound},
		{errdefs.RefreshFailedf("rejected"), http.StatusUnauthorized},
		{fmt.Errorf("wrap: %w", errdefs.ErrDecryptionFailed), http.StatusUnauthorized},
		{fmt.Errorf("wrap: %w", errdefs.ErrTimeout), http.StatusGatewayTimeout},
		{fmt.Errorf("wrap: %w", errdefs.ErrUnavailable), http.StatusServiceUnavailable},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), "for error %v", tc.err)
	}
}
