// Package dataset 从 xlsx 工作表读取表格行数据，首行为标记名
package dataset

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/allanpk716/docx_templater/internal/matcher"
)

// LoadRows 读取工作表中的数据行，sheet 为空时使用第一个工作表。
// 首行的每个非空单元格是一个标记名（可以写成 name 或 ${name}），之后每个非空行生成一条记录；
// 较短的行缺少的单元格记为空字符串。
func LoadRows(path, sheet string) ([]map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开xlsx文件失败: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx文件中没有工作表: %s", path)
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if !contains(sheets, sheet) {
		return nil, fmt.Errorf("工作表不存在: %s", sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("读取工作表 %s 失败: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("工作表 %s 为空", sheet)
	}

	header, err := parseHeader(rows[0])
	if err != nil {
		return nil, fmt.Errorf("工作表 %s: %w", sheet, err)
	}

	var records []map[string]string
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		record := make(map[string]string, len(header))
		for col, name := range header {
			if name == "" {
				continue
			}
			value := ""
			if col < len(row) {
				value = row[col]
			}
			record[name] = value
		}
		records = append(records, record)
	}

	return records, nil
}

// parseHeader 返回每列的标记名，空列为 ""
func parseHeader(cells []string) ([]string, error) {
	header := make([]string, len(cells))
	seen := make(map[string]bool)
	count := 0

	for i, cell := range cells {
		name := matcher.ExtractMarkerName(strings.TrimSpace(cell))
		if name == "" {
			continue
		}
		if !matcher.ValidateMarkerName(name) {
			return nil, fmt.Errorf("第 %d 列的标记名无效: %s", i+1, cell)
		}
		if seen[name] {
			return nil, fmt.Errorf("标记名重复: %s", name)
		}
		seen[name] = true
		header[i] = name
		count++
	}

	if count == 0 {
		return nil, fmt.Errorf("首行没有标记名")
	}
	return header, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
