// Package repair 合并被 Word 拆分到多个 run 中的标记。
//
// Word 的拼写检查和自动更正经常在 ${name} 中间插入 w:proofErr、新的 w:r 或 w:rPr，
// 使得按字面查找标记失败。Repair 把这类标记还原为单个 w:t 中的完整文本，
// 应在模板编辑后、任何消耗标记的操作之前运行一次。
package repair

import (
	"strings"

	"github.com/allanpk716/docx_templater/internal/matcher"
	"github.com/allanpk716/docx_templater/pkg/markup"
)

// Span 一个被拆分的标记在原文中的区间及其修复结果
type Span struct {
	// Start/End 从起始 w:t 的开始标签到结束 w:t 的结束标签
	Start int
	End   int
	// Marker 修复后的标记名
	Marker string
	// Fragments 标记被拆成的 w:t 个数
	Fragments int
	// Replacement 替换 [Start, End) 的单个 w:t
	Replacement string
}

const preserveSpace = ` xml:space="preserve"`

// Scan 找出文档中所有被拆分的标记，按文档顺序返回
func Scan(src string) ([]Span, error) {
	doc, err := markup.Parse(src)
	if err != nil {
		return nil, err
	}

	texts := doc.Nodes(markup.KindText)
	var spans []Span

	for i := 0; i < len(texts); i++ {
		start := texts[i]
		inner := doc.Inner(start)
		if !opensFragment(inner) {
			continue
		}

		j, err := terminator(doc, texts, i, i)
		if err != nil {
			// 未闭合的 ${ 位于文本开头时才一定是标记，正文中的 ${ 找不到结束位置时按普通文本跳过
			if strings.LastIndex(inner, matcher.MarkerOpen) == 0 {
				return nil, err
			}
			continue
		}

		// 结束片段中可能又开始了下一个被拆分的标记，找不到结束位置时只合并已闭合的部分
		text := joinInner(doc, texts[i:j+1])
		for opensFragment(text) {
			next, err := terminator(doc, texts, i, j)
			if err != nil {
				break
			}
			j = next
			text = joinInner(doc, texts[i:j+1])
		}

		open := src[start.Start:start.ContentStart]
		if text != strings.TrimSpace(text) && !strings.Contains(open, "xml:space") {
			open = strings.TrimSuffix(open, ">") + preserveSpace + ">"
		}

		span := Span{
			Start:       start.Start,
			End:         texts[j].End,
			Fragments:   j - i + 1,
			Replacement: open + text + "</" + start.Name + ">",
		}
		if names := matcher.Names(text); len(names) > 0 {
			span.Marker = names[len(names)-1]
		}
		spans = append(spans, span)

		// 区间内的其他起点已被合并
		i = j
	}

	return spans, nil
}

// Repair 返回合并了所有被拆分标记的新文本；位于文本开头的 ${ 没有结束位置时返回 MalformedSpanError，不做任何修改
func Repair(src string) (string, error) {
	spans, err := Scan(src)
	if err != nil {
		return "", err
	}
	return Apply(src, spans), nil
}

// Apply 按倒序把 Scan 的结果写回 src，spans 必须来自对同一 src 的扫描
func Apply(src string, spans []Span) string {
	result := src
	for i := len(spans) - 1; i >= 0; i-- {
		result = markup.Splice(result, spans[i].Start, spans[i].End, spans[i].Replacement)
	}
	return result
}

// opensFragment 文本中最后一个 ${ 之后没有 }
func opensFragment(inner string) bool {
	pos := strings.LastIndex(inner, matcher.MarkerOpen)
	if pos < 0 {
		return false
	}
	return !strings.Contains(inner[pos:], matcher.MarkerClose)
}

func joinInner(doc *markup.Document, texts []*markup.Node) string {
	var b strings.Builder
	for _, t := range texts {
		b.WriteString(doc.Inner(t))
	}
	return b.String()
}

// terminator 返回 from 之后同一段落中第一个包含 } 的 w:t 的下标
func terminator(doc *markup.Document, texts []*markup.Node, i, from int) (int, error) {
	start := texts[i]
	run := start.Parent
	if run == nil || run.Kind != markup.KindRun {
		return -1, &markup.MalformedSpanError{Offset: start.Start, Reason: "marker text is not inside a run"}
	}
	paragraph := start.Ancestor(markup.KindParagraph)
	if paragraph == nil {
		return -1, &markup.MalformedSpanError{Offset: start.Start, Reason: "marker text is not inside a paragraph"}
	}

	for j := from + 1; j < len(texts); j++ {
		end := texts[j]
		if !paragraph.Contains(end.Start) {
			break
		}
		if !strings.Contains(doc.Inner(end), matcher.MarkerClose) {
			continue
		}
		if end.Parent == nil || end.Parent.Kind != markup.KindRun || end.Parent.Parent != run.Parent {
			return -1, &markup.MalformedSpanError{Offset: start.Start, Reason: "marker closes in a different container"}
		}
		return j, nil
	}

	return -1, &markup.MalformedSpanError{Offset: start.Start, Reason: "marker is never closed in its paragraph"}
}
