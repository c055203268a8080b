// Package inspect 生成文档结构概要：表格、每行单元格数、标记以及被拆分的标记
package inspect

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/allanpk716/docx_templater/internal/matcher"
	"github.com/allanpk716/docx_templater/pkg/markup"
	"github.com/allanpk716/docx_templater/pkg/repair"
)

var (
	tableExpr     = xpath.MustCompile("//*[local-name()='tbl']")
	rowExpr       = xpath.MustCompile("./*[local-name()='tr']")
	cellExpr      = xpath.MustCompile("./*[local-name()='tc']")
	paragraphExpr = xpath.MustCompile("//*[local-name()='body']//*[local-name()='p']")
	nestedExpr    = xpath.MustCompile("ancestor::*[local-name()='tbl']")
)

// Outline 文档结构概要
type Outline struct {
	Paragraphs int        `json:"paragraphs"`
	Tables     []Table    `json:"tables"`
	Markers    []string   `json:"markers"`
	Fragmented []Fragment `json:"fragmented,omitempty"`
	Problems   []string   `json:"problems,omitempty"`
}

// Table 一个表格的概要
type Table struct {
	Index int `json:"index"`
	// Nested 表格位于另一个表格的单元格中
	Nested bool `json:"nested,omitempty"`
	// Cells 每一行的单元格数
	Cells []int `json:"cells"`
	// Regular 所有行单元格数相同，可以删除列
	Regular bool     `json:"regular"`
	Markers []string `json:"markers,omitempty"`
	// Fragmented 表格内被拆分的标记数
	Fragmented int `json:"fragmented,omitempty"`
}

// Fragment 一个被拆分的标记
type Fragment struct {
	Marker    string `json:"marker"`
	Offset    int    `json:"offset"`
	Fragments int    `json:"fragments"`
}

// Build 分析 document.xml
func Build(xml string) (*Outline, error) {
	doc, err := xmlquery.Parse(strings.NewReader(xml))
	if err != nil {
		return nil, fmt.Errorf("解析文档失败: %w", err)
	}

	outline := &Outline{
		Paragraphs: len(xmlquery.QuerySelectorAll(doc, paragraphExpr)),
		Tables:     []Table{},
		Markers:    matcher.Names(xml),
	}
	if outline.Markers == nil {
		outline.Markers = []string{}
	}

	for i, tbl := range xmlquery.QuerySelectorAll(doc, tableExpr) {
		outline.Tables = append(outline.Tables, describeTable(i, tbl))
	}

	spans, err := repair.Scan(xml)
	if err != nil {
		outline.Problems = append(outline.Problems, err.Error())
	}
	for _, span := range spans {
		outline.Fragmented = append(outline.Fragmented, Fragment{
			Marker:    span.Marker,
			Offset:    span.Start,
			Fragments: span.Fragments,
		})
	}

	countTableFragments(xml, outline)

	for _, table := range outline.Tables {
		if !table.Regular {
			outline.Problems = append(outline.Problems, fmt.Sprintf("table %d has rows with different cell counts %v", table.Index, table.Cells))
		}
	}

	return outline, nil
}

func describeTable(index int, tbl *xmlquery.Node) Table {
	table := Table{
		Index:   index,
		Nested:  xmlquery.QuerySelector(tbl, nestedExpr) != nil,
		Cells:   []int{},
		Regular: true,
		Markers: matcher.Names(tbl.InnerText()),
	}

	for _, row := range xmlquery.QuerySelectorAll(tbl, rowExpr) {
		count := len(xmlquery.QuerySelectorAll(row, cellExpr))
		if len(table.Cells) > 0 && count != table.Cells[0] {
			table.Regular = false
		}
		table.Cells = append(table.Cells, count)
	}
	return table
}

// countTableFragments 按区间把被拆分的标记计入所在的表格，嵌套表格同时计入外层表格
func countTableFragments(xml string, outline *Outline) {
	if len(outline.Fragmented) == 0 {
		return
	}
	doc, err := markup.Parse(xml)
	if err != nil {
		return
	}

	// 两种遍历都是文档顺序
	tables := doc.Nodes(markup.KindTable)
	for i := range outline.Tables {
		if i >= len(tables) {
			break
		}
		for _, fragment := range outline.Fragmented {
			if tables[i].Contains(fragment.Offset) {
				outline.Tables[i].Fragmented++
			}
		}
	}
}
