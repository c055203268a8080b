package markup

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/allanpk716/docx_templater/internal/matcher"
)

// Document 一次解析得到的节点树，只读
type Document struct {
	src  string
	root *Node
}

// Parse 解析文档标记，记录每个元素在原文中的区间
func Parse(src string) (*Document, error) {
	decoder := xml.NewDecoder(strings.NewReader(src))

	root := &Node{
		Kind:       KindElement,
		End:        len(src),
		ContentEnd: len(src),
	}
	stack := []*Node{root}

	for {
		offset := int(decoder.InputOffset())
		token, err := decoder.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &SyntaxError{Offset: offset, Cause: err}
		}

		switch t := token.(type) {
		case xml.StartElement:
			parent := stack[len(stack)-1]
			node := &Node{
				Kind:         kindOf(t.Name),
				Name:         qualifiedName(t.Name),
				Start:        offset,
				ContentStart: int(decoder.InputOffset()),
				Parent:       parent,
			}
			parent.Children = append(parent.Children, node)
			stack = append(stack, node)
		case xml.EndElement:
			name := qualifiedName(t.Name)
			if len(stack) == 1 {
				return nil, &SyntaxError{Offset: offset, Cause: fmt.Errorf("unexpected </%s>", name)}
			}
			node := stack[len(stack)-1]
			if node.Name != name {
				return nil, &SyntaxError{Offset: offset, Cause: fmt.Errorf("</%s> closes <%s>", name, node.Name)}
			}
			node.ContentEnd = offset
			node.End = int(decoder.InputOffset())
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) != 1 {
		open := stack[len(stack)-1]
		return nil, &SyntaxError{Offset: open.Start, Cause: fmt.Errorf("<%s> is never closed", open.Name)}
	}

	return &Document{src: src, root: root}, nil
}

func kindOf(name xml.Name) Kind {
	if name.Space != WordPrefix {
		return KindElement
	}
	if kind, ok := localKinds[name.Local]; ok {
		return kind
	}
	return KindElement
}

func qualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

// Source 返回解析时的原文
func (d *Document) Source() string {
	return d.src
}

// Root 返回覆盖整个原文的虚拟根节点
func (d *Document) Root() *Node {
	return d.root
}

// Markup 返回元素的完整原文
func (d *Document) Markup(n *Node) string {
	return d.src[n.Start:n.End]
}

// Inner 返回元素起止标签之间的原文
func (d *Document) Inner(n *Node) string {
	return d.src[n.ContentStart:n.ContentEnd]
}

// Text 返回元素内所有 w:t 的文本（未反转义）
func (d *Document) Text(n *Node) string {
	var b strings.Builder
	n.walk(func(c *Node) {
		if c.Kind == KindText {
			b.WriteString(d.Inner(c))
		}
	})
	return b.String()
}

// Nodes 按文档顺序返回指定类型的全部节点
func (d *Document) Nodes(kind Kind) []*Node {
	var out []*Node
	d.root.walk(func(n *Node) {
		if n.Kind == kind && n != d.root {
			out = append(out, n)
		}
	})
	return out
}

// NodeAt 返回包含 pos 的最内层元素，pos 不在任何元素内时返回根节点
func (d *Document) NodeAt(pos int) *Node {
	cur := d.root
	for {
		var next *Node
		for _, child := range cur.Children {
			if child.Contains(pos) {
				next = child
				break
			}
		}
		if next == nil {
			return cur
		}
		cur = next
	}
}

// FindMarker 返回标记 ${name} 第一次出现的位置
func (d *Document) FindMarker(name string) (int, error) {
	return FindMarker(d.src, name)
}

// Enclosing 返回包含 pos 的最内层指定类型结构块
func (d *Document) Enclosing(pos int, kind Kind) (*Node, error) {
	if pos < 0 || pos >= len(d.src) {
		return nil, &BoundaryNotFoundError{Kind: kind, Offset: pos}
	}
	node := d.NodeAt(pos).Ancestor(kind)
	if node == nil {
		return nil, &BoundaryNotFoundError{Kind: kind, Offset: pos}
	}
	return node, nil
}

// Locate 查找标记并返回包含它的指定类型结构块
func (d *Document) Locate(name string, kind Kind) (*Node, error) {
	pos, err := d.FindMarker(name)
	if err != nil {
		return nil, err
	}
	node, err := d.Enclosing(pos, kind)
	if err != nil {
		return nil, &BoundaryNotFoundError{Marker: name, Kind: kind, Offset: pos}
	}
	return node, nil
}

// FindMarker 在原文中按字面查找 ${name}，被拆分到多个 run 的标记无法找到
func FindMarker(src, name string) (int, error) {
	if !matcher.ValidateMarkerName(name) && !matcher.ValidateMarkerFormat(name) {
		return -1, &MarkerNotFoundError{Marker: name}
	}
	pos := strings.Index(src, matcher.FormatMarker(name))
	if pos < 0 {
		return -1, &MarkerNotFoundError{Marker: name}
	}
	return pos, nil
}

// FindEnclosingBlock 返回包含 pos 的最内层指定类型结构块的区间
func FindEnclosingBlock(src string, pos int, kind Kind) (int, int, error) {
	doc, err := Parse(src)
	if err != nil {
		return -1, -1, err
	}
	node, err := doc.Enclosing(pos, kind)
	if err != nil {
		return -1, -1, err
	}
	return node.Start, node.End, nil
}

// Splice 用 replacement 替换原文中 [start, end) 区间，返回新文本
func Splice(src string, start, end int, replacement string) string {
	return src[:start] + replacement + src[end:]
}
