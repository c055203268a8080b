// Package markup 在 document.xml 原文之上建立结构节点树，用于定位标记及其所在的表格、行、单元格和段落。
//
// 节点只记录原文中的字节区间，不复制内容；所有修改都通过拼接原文区间生成新的文本。
package markup

// Kind 结构块类型
type Kind int

const (
	KindElement Kind = iota
	KindTable
	KindRow
	KindCell
	KindParagraph
	KindRun
	KindText
)

var kindNames = map[Kind]string{
	KindElement:   "element",
	KindTable:     "table",
	KindRow:       "row",
	KindCell:      "cell",
	KindParagraph: "paragraph",
	KindRun:       "run",
	KindText:      "text",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// WordprocessingML 中各结构块的本地名
var localKinds = map[string]Kind{
	"tbl": KindTable,
	"tr":  KindRow,
	"tc":  KindCell,
	"p":   KindParagraph,
	"r":   KindRun,
	"t":   KindText,
}

// WordPrefix 正文元素使用的命名空间前缀
const WordPrefix = "w"

// Node 文档中的一个元素
type Node struct {
	Kind Kind
	Name string

	// Start/End 为整个元素（含起止标签）的区间，End 不含
	Start int
	End   int
	// ContentStart/ContentEnd 为起止标签之间内容的区间，自闭合元素两者相等
	ContentStart int
	ContentEnd   int

	Parent   *Node
	Children []*Node
}

// Contains 判断偏移是否落在元素区间内
func (n *Node) Contains(pos int) bool {
	return n.Start <= pos && pos < n.End
}

// Ancestor 返回自身或最近的指定类型祖先
func (n *Node) Ancestor(kind Kind) *Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Kind == kind {
			return cur
		}
	}
	return nil
}

// ChildrenOf 返回指定类型的直接子节点
func (n *Node) ChildrenOf(kind Kind) []*Node {
	var out []*Node
	for _, child := range n.Children {
		if child.Kind == kind {
			out = append(out, child)
		}
	}
	return out
}

// IndexOf 返回 child 在同类型兄弟节点中的位置，不是直接子节点时返回 -1
func (n *Node) IndexOf(child *Node) int {
	i := 0
	for _, c := range n.Children {
		if c.Kind != child.Kind {
			continue
		}
		if c == child {
			return i
		}
		i++
	}
	return -1
}

// walk 按文档顺序遍历
func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		child.walk(fn)
	}
}
