package quadstore_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/accented-ai/quadsparql/internal/quadstore"
)

func TestQuadUUIDDeterministic(t *testing.T) {
	t.Parallel()

	s := uuid.New()
	p := uuid.New()
	o := uuid.New()
	c := uuid.New()

	require.Equal(t, quadstore.QuadUUID(s, p, o, c), quadstore.QuadUUID(s, p, o, c))
}

func TestQuadUUIDDistinguishesPosition(t *testing.T) {
	t.Parallel()

	a := uuid.New()
	b := uuid.New()

	// Swapping which position holds a vs b must change the quad UUID;
	// a quad's identity depends on term order, not just term set.
	require.NotEqual(t, quadstore.QuadUUID(a, b, a, b), quadstore.QuadUUID(b, a, b, a))
}
