package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/phaseforge/internal/taxonomy"
	"github.com/roach88/phaseforge/internal/testutil"
)

func TestCheckSchemaAcceptsValidDocuments(t *testing.T) {
	docs := []string{
		taxonomy.DefaultStructure,
		testutil.PoolsToBracket,
		`{"phases":[]}`,
		`{"phases":[{"name":"X","seeding":"random"}],"advancementRules":[],"isFlexible":true,"venue":"Hall 2"}`,
		`{"phases":[{"name":"A","sortOrder":1}],"advancementRules":[{"sourcePhaseOrder":1,"targetPhaseOrder":1,"slotMapping":null}]}`,
	}
	for _, doc := range docs {
		assert.Empty(t, CheckSchema(doc), doc)
	}
}

func TestCheckSchemaReportsViolations(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"missing phases", `{"advancementRules":[]}`, "phases"},
		{"string sort order", `{"phases":[{"name":"A","sortOrder":"1"}]}`, "phases.0.sortOrder"},
		{"float slots", `{"phases":[{"name":"A","incomingSlotCount":8.5}]}`, "phases.0.incomingSlotCount"},
		{"rule without target", `{"phases":[],"advancementRules":[{"sourcePhaseOrder":1}]}`, "advancementRules.0.targetPhaseOrder"},
		{"flexible not bool", `{"phases":[],"isFlexible":"yes"}`, "isFlexible"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := CheckSchema(tt.doc)
			require.NotEmpty(t, errs)
			assert.Equal(t, ErrSchemaViolation, errs[0].Code)
			assert.Equal(t, SeverityError, errs[0].Severity)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestCheckSchemaRejectsNonJSON(t *testing.T) {
	errs := CheckSchema(`{"phases": [`)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrSchemaViolation, errs[0].Code)
	assert.True(t, HasErrors(errs))
}
