package typesense

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssessmentSchema(t *testing.T) {
	schema := AssessmentSchema()

	assert.Equal(t, AssessmentsCollection, schema.Name)
	require.NotNil(t, schema.DefaultSortingField)
	assert.Equal(t, "submitted_at", *schema.DefaultSortingField)

	fields := map[string]string{}
	for _, field := range schema.Fields {
		fields[field.Name] = field.Type
	}
	assert.Equal(t, "string", fields["claim_number"])
	assert.Equal(t, "int64", fields["submitted_at"])
	assert.Equal(t, "string[]", fields["tags"])
	assert.Contains(t, fields, "risk_level")
}
