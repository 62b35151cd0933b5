package coa

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
)

func TestTemplateCSVRoundTrip(t *testing.T) {
	in := DefaultTemplates()

	var buf bytes.Buffer
	require.NoError(t, WriteTemplates(&buf, in))

	out, err := ReadTemplates(&buf)
	require.NoError(t, err)
	require.Len(t, out, len(in))

	assert.Equal(t, "1000", out[0].Number)
	assert.Equal(t, model.AccountTypeAsset, out[0].Type)
	for i := range in {
		assert.Equal(t, in[i].Number, out[i].Number)
		assert.Equal(t, in[i].ParentNumber, out[i].ParentNumber)
		assert.Equal(t, in[i].Intercompany, out[i].Intercompany)
	}
}

func TestReadTemplatesRejectsUnknownType(t *testing.T) {
	csv := "number,name,type,fsli,subledger,parent_number,intercompany\n" +
		"1000,Cash,contra,,,,false\n"
	_, err := ReadTemplates(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown account type")
}

func TestReadTemplatesEmpty(t *testing.T) {
	out, err := ReadTemplates(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, out)
}
