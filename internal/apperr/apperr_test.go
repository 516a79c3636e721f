package apperr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/accented-ai/quadsparql/internal/apperr"
)

func TestNewCarriesKindAndMessage(t *testing.T) {
	t.Parallel()

	err := apperr.New(apperr.KindUnknownSpace, "drop space", "myspace")

	require.Equal(t, apperr.KindUnknownSpace, apperr.KindOf(err))
	require.Contains(t, err.Error(), "myspace")
	require.Contains(t, err.Error(), "drop space")
}

func TestWrapReturnsNilForNilErr(t *testing.T) {
	t.Parallel()

	require.NoError(t, apperr.Wrap(apperr.KindStorageError, "op", nil))
}

func TestWrapPreservesKindOfUnderlyingError(t *testing.T) {
	t.Parallel()

	root := errors.New("connection refused")
	wrapped := apperr.Wrap(apperr.KindStorageError, "insert quads", root)

	require.Equal(t, apperr.KindStorageError, apperr.KindOf(wrapped))
	require.ErrorIs(t, wrapped, root)
}

func TestWrapOfAlreadyWrappedErrorPrependsOp(t *testing.T) {
	t.Parallel()

	inner := apperr.Wrap(apperr.KindStorageError, "insert quads", errors.New("boom"))
	outer := apperr.Wrap(apperr.KindTranslationError, "execute update", inner)

	require.Equal(t, apperr.KindTranslationError, apperr.KindOf(outer))

	var asErr *apperr.Error
	require.True(t, errors.As(outer, &asErr))
	require.Contains(t, asErr.Op, "execute update")
	require.Contains(t, asErr.Op, "insert quads")
}

func TestKindOfUnknownForPlainError(t *testing.T) {
	t.Parallel()

	require.Equal(t, apperr.KindUnknown, apperr.KindOf(errors.New("plain")))
}
