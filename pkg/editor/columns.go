package editor

import (
	"strings"

	"github.com/allanpk716/docx_templater/pkg/markup"
)

// RemoveColumn 删除包含 ${name} 的单元格所在的整列。
//
// 列号取标记所在单元格在其行中的位置；表格所有行的单元格数必须一致，否则返回 IrregularTableError。
// 不调整 w:tblGrid 和表格宽度。
func RemoveColumn(src, name string) (string, error) {
	doc, err := markup.Parse(src)
	if err != nil {
		return "", err
	}
	cell, err := doc.Locate(name, markup.KindCell)
	if err != nil {
		return "", err
	}
	row := cell.Ancestor(markup.KindRow)
	if row == nil || cell.Parent != row {
		return "", &markup.BoundaryNotFoundError{Marker: name, Kind: markup.KindRow, Offset: cell.Start}
	}
	table := row.Ancestor(markup.KindTable)
	if table == nil || row.Parent != table {
		return "", &markup.BoundaryNotFoundError{Marker: name, Kind: markup.KindTable, Offset: row.Start}
	}

	column := row.IndexOf(cell)
	width := len(row.ChildrenOf(markup.KindCell))

	rows := table.ChildrenOf(markup.KindRow)
	targets := make([]*markup.Node, 0, len(rows))
	for i, r := range rows {
		cells := r.ChildrenOf(markup.KindCell)
		if len(cells) != width {
			return "", &markup.IrregularTableError{Marker: name, Row: i, Want: width, Got: len(cells)}
		}
		targets = append(targets, cells[column])
	}

	// 倒序删除，前面的偏移保持有效
	var b strings.Builder
	b.Grow(len(src))
	next := len(src)
	parts := make([]string, 0, len(targets)+1)
	for i := len(targets) - 1; i >= 0; i-- {
		parts = append(parts, src[targets[i].End:next])
		next = targets[i].Start
	}
	parts = append(parts, src[:next])
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString(parts[i])
	}
	return b.String(), nil
}
