// Package editor 对 document.xml 做结构性修改：克隆行、删除行、删除列、克隆段落。
//
// 每个函数读取完整文本、一次解析、计算出新的完整文本后返回；失败时不返回任何部分结果。
package editor

import (
	"fmt"
	"strings"

	"github.com/allanpk716/docx_templater/internal/domain"
	"github.com/allanpk716/docx_templater/internal/matcher"
	"github.com/allanpk716/docx_templater/pkg/markup"
)

const (
	vMergeRestart      = `<w:vMerge w:val="restart"/>`
	vMergeContinuation = `<w:vMerge/>`
)

// CloneRow 把包含 ${name} 的表格行复制 count 次，第 i 份中的 ${x} 改名为 ${x#i}，count 为 0 时删除该行
func CloneRow(src, name string, count int) (string, error) {
	if count < 0 {
		return "", fmt.Errorf("克隆行数不能为负数: %d", count)
	}

	doc, err := markup.Parse(src)
	if err != nil {
		return "", err
	}
	row, err := doc.Locate(name, markup.KindRow)
	if err != nil {
		return "", err
	}

	rowXML := doc.Markup(row)
	mm := matcher.NewMarkerMatcher()
	found := unsuffixed(mm.FindAll(rowXML))

	var b strings.Builder
	for i := 1; i <= count; i++ {
		renamed := make([]domain.Match, len(found))
		for j, m := range found {
			m.Replacement = matcher.FormatMarker(matcher.Suffix(m.Marker, i))
			renamed[j] = m
		}
		clone := mm.ReplaceMatches(rowXML, renamed)
		if i > 1 {
			// 纵向合并只能从第一份开始
			clone = strings.ReplaceAll(clone, vMergeRestart, vMergeContinuation)
		}
		b.WriteString(clone)
	}

	return markup.Splice(src, row.Start, row.End, b.String()), nil
}

// RowMarkers 返回包含 ${name} 的表格行中所有未带序号的标记名
func RowMarkers(src, name string) ([]string, error) {
	doc, err := markup.Parse(src)
	if err != nil {
		return nil, err
	}
	row, err := doc.Locate(name, markup.KindRow)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, marker := range matcher.Names(doc.Markup(row)) {
		if !matcher.IsSuffixed(marker) {
			names = append(names, marker)
		}
	}
	return names, nil
}

// RemoveRow 删除包含 ${name} 的表格行
func RemoveRow(src, name string) (string, error) {
	doc, err := markup.Parse(src)
	if err != nil {
		return "", err
	}
	row, err := doc.Locate(name, markup.KindRow)
	if err != nil {
		return "", err
	}
	return markup.Splice(src, row.Start, row.End, ""), nil
}

func unsuffixed(matches []domain.Match) []domain.Match {
	out := matches[:0]
	for _, m := range matches {
		if !matcher.IsSuffixed(m.Marker) {
			out = append(out, m)
		}
	}
	return out
}
