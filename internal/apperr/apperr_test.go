package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:      http.StatusBadRequest,
		KindAuthentication:  http.StatusUnauthorized,
		KindAuthorization:   http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindConflict:        http.StatusConflict,
		KindRateLimit:       http.StatusTooManyRequests,
		KindExternalService: http.StatusInternalServerError,
		KindInternal:        http.StatusInternalServerError,
	}
	for k, want := range cases {
		require.Equal(t, want, k.Status(), k.String())
	}
}

func TestErrorWrapsCause(t *testing.T) {
	cause := errors.New("smtp down")
	err := fmt.Errorf("signup: %w", External("email failed", cause))

	require.ErrorIs(t, err, cause)
	require.Equal(t, KindExternalService, KindOf(err))

	ae, ok := As(err)
	require.True(t, ok)
	require.Equal(t, "email failed", ae.Message)
}

func TestKindOfUnclassified(t *testing.T) {
	require.Equal(t, KindInternal, KindOf(errors.New("boom")))
	require.Equal(t, "not logged in", Authentication("not logged in").Error())
}
