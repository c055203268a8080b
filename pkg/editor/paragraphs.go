package editor

import (
	"strings"

	"github.com/allanpk716/docx_templater/internal/matcher"
	"github.com/allanpk716/docx_templater/pkg/markup"
)

// CloneParagraph 把包含 ${name} 的段落按 data 复制，每份中的标记替换为对应的清理后的值。
// data 为空时该段落被删除。
func CloneParagraph(src, name string, data []string) (string, error) {
	doc, err := markup.Parse(src)
	if err != nil {
		return "", err
	}
	paragraph, err := doc.Locate(name, markup.KindParagraph)
	if err != nil {
		return "", err
	}

	code := doc.Markup(paragraph)
	mm := matcher.NewMarkerMatcher()

	var b strings.Builder
	for _, item := range data {
		value := matcher.EscapeText(matcher.CleanValue(item))
		matches := mm.FindMatches(code, map[string]string{name: value})
		b.WriteString(mm.ReplaceMatches(code, matches))
	}

	return markup.Splice(src, paragraph.Start, paragraph.End, b.String()), nil
}
