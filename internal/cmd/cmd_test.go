package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/docx_templater/internal/config"
	"github.com/allanpk716/docx_templater/internal/testutil"
)

const fragmentedBody = `<w:p><w:r><w:t>${first</w:t></w:r><w:proofErr w:type="spellStart"/>` +
	`<w:r><w:t>_name}</w:t></w:r><w:proofErr w:type="spellEnd"/></w:p>`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, AppName+" v"+AppVersion+"\n", stdout)
}

func TestInvalidLogFormat(t *testing.T) {
	_, _, err := run(t, "--log-format", "xml", "version")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDocx(t, dir, "staff.docx", testutil.Document(testutil.StaffBody()))

	configData := `project_name: demo
jobs:
  - name: staff
    template: staff.docx
    output:
      filename: staff-out
    operations:
      - type: rows
        marker: first_name
        rows:
          - first_name: Ada
            last_name: Lovelace
      - type: set
        marker: footer
        value: "Total: 1"
      - type: set
        marker: missing
        value: x
        optional: true
`
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0644))

	stdout, stderr, err := run(t, "--log-format", "json", "render", "--config", configPath)
	require.NoError(t, err)

	output := filepath.Join(dir, "staff-out.docx")
	assert.True(t, strings.HasPrefix(stdout, "staff\t"+output+"\t"))
	assert.Contains(t, stdout, "blake3:")
	assert.Contains(t, stderr, `"job":"staff"`)

	saved := testutil.ReadDocumentXML(t, output)
	assert.Contains(t, saved, "<w:t>Ada</w:t>")
	assert.Contains(t, saved, "<w:t>Lovelace</w:t>")
	assert.Contains(t, saved, "Total: 1")
	assert.NotContains(t, saved, "${")
}

func TestRender_FailedJob(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDocx(t, dir, "plain.docx", testutil.Document(testutil.Paragraph("${a}")))

	configData := `{
  // 第一个任务引用了不存在的标记
  "project_name": "demo",
  "jobs": [
    {"name": "broken", "template": "plain.docx", "output": {"filename": "broken"},
     "operations": [{"type": "set", "marker": "missing", "value": "x"}]},
    {"name": "ok", "template": "plain.docx", "output": {"filename": "ok"},
     "operations": [{"type": "set", "marker": "a", "value": "b"}]}
  ]
}`
	configPath := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0644))

	stdout, _, err := run(t, "render", "-c", configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1/2")

	assert.Contains(t, stdout, "ok\t")
	assert.NotContains(t, stdout, "broken\t")
	assert.FileExists(t, filepath.Join(dir, "ok.docx"))
	assert.NoFileExists(t, filepath.Join(dir, "broken.docx"))
}

func TestRender_SelectJob(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDocx(t, dir, "plain.docx", testutil.Document(testutil.Paragraph("${a}")))

	configData := `{"project_name": "demo", "jobs": [
  {"name": "one", "template": "plain.docx", "output": {"filename": "one"}, "operations": []},
  {"name": "two", "template": "plain.docx", "output": {"filename": "two"}, "operations": []}
]}`
	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0644))

	_, _, err := run(t, "render", "-c", configPath, "--job", "two")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "one.docx"))
	assert.FileExists(t, filepath.Join(dir, "two.docx"))

	_, _, err = run(t, "render", "-c", configPath, "--job", "three")
	assert.Error(t, err)
}

func TestRepair_File(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteDocx(t, dir, "letter.docx", testutil.Document(fragmentedBody))

	stdout, _, err := run(t, "repair", input)
	require.NoError(t, err)

	output := filepath.Join(dir, "letter_repaired.docx")
	assert.True(t, strings.HasPrefix(stdout, output+"\t1\t"))
	assert.Contains(t, testutil.ReadDocumentXML(t, output), "<w:t>${first_name}</w:t>")

	// 原文件不变
	assert.NotContains(t, testutil.ReadDocumentXML(t, input), "${first_name}")
}

func TestRepair_InPlace(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteDocx(t, dir, "letter.docx", testutil.Document(fragmentedBody))

	_, _, err := run(t, "repair", input, "-o", input)
	require.NoError(t, err)
	assert.Contains(t, testutil.ReadDocumentXML(t, input), "<w:t>${first_name}</w:t>")
}

func TestRepair_Dir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	testutil.WriteDocx(t, dir, "a.docx", testutil.Document(fragmentedBody))
	testutil.WriteDocx(t, filepath.Join(dir, "sub"), "b.docx", testutil.Document(testutil.Paragraph("${clean}")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$a.docx"), []byte("lock"), 0644))

	outDir := filepath.Join(t.TempDir(), "out")
	_, _, err := run(t, "repair", dir, "-o", outDir)
	require.NoError(t, err)

	assert.Contains(t, testutil.ReadDocumentXML(t, filepath.Join(outDir, "a.docx")), "${first_name}")
	assert.Contains(t, testutil.ReadDocumentXML(t, filepath.Join(outDir, "sub", "b.docx")), "${clean}")
	assert.NoFileExists(t, filepath.Join(outDir, "~$a.docx"))
}

func TestRepair_Malformed(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteDocx(t, dir, "broken.docx",
		testutil.Document(`<w:p><w:r><w:t>${broken</w:t></w:r></w:p>`))

	_, _, err := run(t, "repair", input)
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "broken_repaired.docx"))
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	input := testutil.WriteDocx(t, dir, "staff.docx", testutil.Document(testutil.StaffBody()))

	stdout, _, err := run(t, "inspect", input, "--pretty")
	require.NoError(t, err)

	var got struct {
		File    string   `json:"file"`
		Size    string   `json:"size"`
		Markers []string `json:"markers"`
		Tables  []struct {
			Cells   []int `json:"cells"`
			Regular bool  `json:"regular"`
		} `json:"tables"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))

	assert.Equal(t, input, got.File)
	assert.NotEmpty(t, got.Size)
	assert.Equal(t, []string{"first_name", "last_name", "footer"}, got.Markers)
	require.Len(t, got.Tables, 1)
	assert.Equal(t, []int{2, 2}, got.Tables[0].Cells)
	assert.True(t, got.Tables[0].Regular)
}

func TestInspect_Missing(t *testing.T) {
	_, _, err := run(t, "inspect", filepath.Join(t.TempDir(), "missing.docx"))
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	stdout, _, err := run(t, "config", "init", path, "--kind", "table")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", stdout)

	cfg, err := config.NewConfigManager().LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.CurrentVersion, cfg.Version)
	assert.Equal(t, "staff", cfg.Jobs[0].Name)

	_, _, err = run(t, "config", "init", path)
	assert.Error(t, err)

	_, _, err = run(t, "config", "init", path, "--force")
	require.NoError(t, err)
	backups, err := filepath.Glob(filepath.Join(dir, "config_backup_*.yaml"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	_, _, err = run(t, "config", "init", filepath.Join(dir, "other.yaml"), "--kind", "fancy")
	assert.Error(t, err)
}

func TestGenerateOutputFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"test.docx", "test_repaired.docx"},
		{filepath.Join("dir", "report.DOCX"), filepath.Join("dir", "report_repaired.DOCX")},
		{"noext", "noext_repaired"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, GenerateOutputFileName(tt.input))
	}
}

func TestFindDocxFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.docx", "B.DOCX", "~$a.docx", "a_repaired.docx", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	files, err := FindDocxFiles(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.docx"),
		filepath.Join(dir, "B.DOCX"),
	}, files)
}
