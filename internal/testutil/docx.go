// Package testutil 提供测试用的最小 DOCX 文档和 document.xml 片段
package testutil

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WordNamespace WordprocessingML 主命名空间
const WordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// Document 用 body 片段构造完整的 document.xml
func Document(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document xmlns:w="` + WordNamespace + `"><w:body>` + body +
		`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`
}

// Paragraph 单个 run 的段落
func Paragraph(text string) string {
	return `<w:p w:rsidR="00A1B2C3"><w:r><w:t>` + text + `</w:t></w:r></w:p>`
}

// Cell 包含一个段落的单元格
func Cell(text string) string {
	return `<w:tc><w:tcPr><w:tcW w:w="2000" w:type="dxa"/></w:tcPr>` + Paragraph(text) + `</w:tc>`
}

// Row 每个文本一个单元格的表格行
func Row(texts ...string) string {
	var b strings.Builder
	b.WriteString(`<w:tr w:rsidR="00D4E5F6">`)
	for _, text := range texts {
		b.WriteString(Cell(text))
	}
	b.WriteString(`</w:tr>`)
	return b.String()
}

// Table 由若干行组成的表格
func Table(rows ...string) string {
	return `<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/></w:tblPr><w:tblGrid/>` +
		strings.Join(rows, "") + `</w:tbl>`
}

// StaffBody 表头加一行模板行的示例表格
func StaffBody() string {
	return Paragraph("Staff list") +
		Table(
			Row("First name", "Last name"),
			Row("${first_name}", "${last_name}"),
		) +
		Paragraph("${footer}")
}

var packageParts = map[string]string{
	"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
	"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`,
	"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
</Relationships>`,
}

// WriteDocx 在 dir 下写入只包含给定 document.xml 的 DOCX 文件并返回路径
func WriteDocx(t testing.TB, dir, name, documentXML string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("创建测试文件失败: %v", err)
	}
	defer file.Close()

	zipWriter := zip.NewWriter(file)

	names := []string{"[Content_Types].xml", "_rels/.rels", "word/_rels/document.xml.rels"}
	for _, partName := range names {
		writePart(t, zipWriter, partName, packageParts[partName])
	}
	writePart(t, zipWriter, "word/document.xml", documentXML)

	if err := zipWriter.Close(); err != nil {
		t.Fatalf("关闭ZIP写入器失败: %v", err)
	}
	return path
}

func writePart(t testing.TB, zipWriter *zip.Writer, name, content string) {
	t.Helper()
	writer, err := zipWriter.Create(name)
	if err != nil {
		t.Fatalf("创建文件 %s 失败: %v", name, err)
	}
	if _, err := writer.Write([]byte(content)); err != nil {
		t.Fatalf("写入文件 %s 失败: %v", name, err)
	}
}

// ReadDocumentXML 读取 DOCX 文件中的 word/document.xml
func ReadDocumentXML(t testing.TB, path string) string {
	t.Helper()

	reader, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("打开DOCX文件失败: %v", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			t.Fatalf("打开document.xml失败: %v", err)
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("读取document.xml失败: %v", err)
		}
		return string(content)
	}

	t.Fatalf("未找到document.xml文件")
	return ""
}
