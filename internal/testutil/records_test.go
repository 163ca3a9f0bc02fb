package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/phaseforge/internal/ir"
)

func TestFixtureDocumentsDecode(t *testing.T) {
	doc, err := ir.DecodeDocument([]byte(PoolsToBracket))
	require.NoError(t, err)
	assert.Len(t, doc.Phases, 2)
	assert.Len(t, doc.AdvancementRules, 2)
}

func TestTemplateFixtures(t *testing.T) {
	user := UserTemplate("Cup", "u1")
	assert.True(t, user.IsNew())
	assert.False(t, user.IsSystemTemplate)
	assert.Equal(t, "u1", user.OwnerID)

	sys := SystemTemplate("Official")
	assert.True(t, sys.IsSystemTemplate)
	assert.Empty(t, sys.OwnerID)
	assert.Equal(t, PoolsToBracket, sys.StructureJSON)
}
