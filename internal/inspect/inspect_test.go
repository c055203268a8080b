package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/docx_templater/internal/testutil"
)

func TestBuild(t *testing.T) {
	outline, err := Build(testutil.Document(testutil.StaffBody()))
	require.NoError(t, err)

	assert.Equal(t, 6, outline.Paragraphs)
	assert.Equal(t, []string{"first_name", "last_name", "footer"}, outline.Markers)
	require.Len(t, outline.Tables, 1)

	table := outline.Tables[0]
	assert.Equal(t, 0, table.Index)
	assert.Equal(t, []int{2, 2}, table.Cells)
	assert.True(t, table.Regular)
	assert.False(t, table.Nested)
	assert.Equal(t, []string{"first_name", "last_name"}, table.Markers)

	assert.Empty(t, outline.Fragmented)
	assert.Empty(t, outline.Problems)
}

func TestBuild_Fragmented(t *testing.T) {
	body := `<w:p><w:r><w:t>${first</w:t></w:r><w:proofErr w:type="spellStart"/>` +
		`<w:r><w:t>_name}</w:t></w:r><w:proofErr w:type="spellEnd"/></w:p>`
	outline, err := Build(testutil.Document(body))
	require.NoError(t, err)

	// 被拆分的标记无法按字面找到
	assert.Empty(t, outline.Markers)
	require.Len(t, outline.Fragmented, 1)
	assert.Equal(t, "first_name", outline.Fragmented[0].Marker)
	assert.Equal(t, 2, outline.Fragmented[0].Fragments)
}

func TestBuild_Problems(t *testing.T) {
	body := testutil.Table(
		testutil.Row("a", "b", "c"),
		testutil.Row("${x}"),
	) + `<w:p><w:r><w:t>${never</w:t></w:r></w:p>`

	outline, err := Build(testutil.Document(body))
	require.NoError(t, err)

	require.Len(t, outline.Tables, 1)
	assert.Equal(t, []int{3, 1}, outline.Tables[0].Cells)
	assert.False(t, outline.Tables[0].Regular)
	assert.Len(t, outline.Problems, 2)
}

func TestBuild_NestedTable(t *testing.T) {
	inner := testutil.Table(testutil.Row("${inner}"))
	outer := testutil.Table(
		`<w:tr><w:tc>` + inner + testutil.Paragraph("") + `</w:tc></w:tr>`,
	)

	outline, err := Build(testutil.Document(outer))
	require.NoError(t, err)

	require.Len(t, outline.Tables, 2)
	assert.False(t, outline.Tables[0].Nested)
	assert.True(t, outline.Tables[1].Nested)
	assert.Equal(t, []int{1}, outline.Tables[0].Cells)
	assert.Equal(t, []int{1}, outline.Tables[1].Cells)
}

func TestBuild_InvalidXML(t *testing.T) {
	_, err := Build("<w:document><w:body>")
	assert.Error(t, err)
}

func TestBuild_TableFragments(t *testing.T) {
	fragmentedCell := `<w:tc><w:p><w:r><w:t>${first</w:t></w:r><w:r><w:t>_name}</w:t></w:r></w:p></w:tc>`
	body := testutil.Table(testutil.Row("Name"), `<w:tr>`+fragmentedCell+`</w:tr>`) +
		testutil.Table(testutil.Row("${clean}")) +
		`<w:p><w:r><w:t>${foo</w:t></w:r><w:r><w:t>ter}</w:t></w:r></w:p>`

	outline, err := Build(testutil.Document(body))
	require.NoError(t, err)

	require.Len(t, outline.Fragmented, 2)
	require.Len(t, outline.Tables, 2)
	assert.Equal(t, 1, outline.Tables[0].Fragmented)
	assert.Equal(t, 0, outline.Tables[1].Fragmented)
}
