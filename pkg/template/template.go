// Package template 提供 DOCX 模板会话：替换标记、展开表格行、删除行和列、复制段落、修复被拆分的标记并保存。
//
// 一个 Template 独占一份 document.xml，调用方负责顺序调用；不同 Template 之间互不影响，可以并发处理。
// 消耗标记的操作（SetTag、SetRepeatingRows、CloneParagraph）对同一标记只能调用一次，
// 第二次调用会返回 ErrMarkerNotFound。
package template

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/allanpk716/docx_templater/internal/matcher"
	"github.com/allanpk716/docx_templater/pkg/docx"
	"github.com/allanpk716/docx_templater/pkg/editor"
	"github.com/allanpk716/docx_templater/pkg/markup"
	"github.com/allanpk716/docx_templater/pkg/repair"
)

// MimeType 输出文件的 MIME 类型
const MimeType = docx.MimeType

const docxExt = ".docx"

var (
	ErrMarkerNotFound   = markup.ErrMarkerNotFound
	ErrBoundaryNotFound = markup.ErrBoundaryNotFound
	ErrMalformedSpan    = markup.ErrMalformedSpan
	ErrIrregularTable   = markup.ErrIrregularTable
)

// Source 模板背后的文档，*docx.File 是默认实现
type Source interface {
	GetXML() string
	SetXML(xml string)
	// SetValue 替换所有 ${name}，value 由实现负责转义
	SetValue(name, value string) error
	CloneRow(name string, count int) error
	Save(path string) error
	Close() error
}

// Row 一行数据：单元格标记名 -> 值
type Row map[string]string

// Output 输出位置
type Output struct {
	Dir      string
	Filename string
}

// FullPath 返回 Dir/Filename.docx，文件名已带扩展名时不再追加
func (o Output) FullPath() string {
	name := o.Filename
	if !strings.EqualFold(filepath.Ext(name), docxExt) {
		name += docxExt
	}
	return filepath.Join(o.Dir, name)
}

// SaveResult 保存结果
type SaveResult struct {
	Path string
	Size int64
	// Digest 输出文件的 BLAKE3-256 十六进制摘要
	Digest string
}

// Option 模板选项
type Option func(*Template)

// WithLogger 设置日志记录器
func WithLogger(logger *slog.Logger) Option {
	return func(t *Template) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithRepairOnOpen 创建后立即修复被拆分的标记，适合模板仍在编辑的开发阶段
func WithRepairOnOpen() Option {
	return func(t *Template) {
		t.repairOnOpen = true
	}
}

// Template 一次模板填充会话
type Template struct {
	id           string
	source       Source
	output       Output
	logger       *slog.Logger
	repairOnOpen bool
}

// Open 打开模板文件
func Open(path string, output Output, opts ...Option) (*Template, error) {
	file, err := docx.Open(path)
	if err != nil {
		return nil, err
	}

	t, err := New(file, output, opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	return t, nil
}

// New 用已打开的文档创建模板
func New(source Source, output Output, opts ...Option) (*Template, error) {
	if source == nil {
		return nil, fmt.Errorf("文档源不能为空")
	}

	t := &Template{
		id:     uuid.NewString(),
		source: source,
		output: output,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("template", t.id)

	if t.repairOnOpen {
		if _, err := t.Repair(); err != nil {
			return nil, fmt.Errorf("打开时修复模板失败: %w", err)
		}
	}
	return t, nil
}

// ID 会话标识
func (t *Template) ID() string {
	return t.id
}

// Output 输出位置
func (t *Template) Output() Output {
	return t.output
}

// XML 当前的 document.xml
func (t *Template) XML() string {
	return t.source.GetXML()
}

// Markers 当前文档中的标记名，去重并按出现顺序排列
func (t *Template) Markers() []string {
	return matcher.Names(t.source.GetXML())
}

// SetTag 把所有 ${name} 替换为清理后的 value
func (t *Template) SetTag(name, value string) error {
	if _, err := markup.FindMarker(t.source.GetXML(), name); err != nil {
		return err
	}

	if err := t.source.SetValue(name, matcher.CleanValue(value)); err != nil {
		return fmt.Errorf("设置标记 %s 失败: %w", name, err)
	}

	t.logger.Debug("标记已替换", "marker", name)
	return nil
}

// SetRepeatingRows 把包含 ${name} 的表格行按 rows 展开，第 i 行（从 1 开始）的 ${key} 替换为 rows[i-1][key]
func (t *Template) SetRepeatingRows(name string, rows []Row) error {
	available, err := editor.RowMarkers(t.source.GetXML(), name)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(available))
	for _, marker := range available {
		known[marker] = true
	}

	// 先检查全部数据，避免克隆后才发现错误
	for i, row := range rows {
		for key := range row {
			if !known[key] {
				return &markup.MarkerNotFoundError{Marker: matcher.Suffix(key, i+1)}
			}
		}
	}

	if err := t.source.CloneRow(name, len(rows)); err != nil {
		return fmt.Errorf("克隆表格行失败: %w", err)
	}

	for i, row := range rows {
		keys := make([]string, 0, len(row))
		for key := range row {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			marker := matcher.Suffix(key, i+1)
			if err := t.source.SetValue(marker, matcher.CleanValue(row[key])); err != nil {
				return fmt.Errorf("设置标记 %s 失败: %w", marker, err)
			}
		}
	}

	t.logger.Debug("表格行已展开", "marker", name, "rows", len(rows))
	return nil
}

// RemoveRow 删除包含 ${name} 的表格行
func (t *Template) RemoveRow(name string) error {
	return t.edit("表格行已删除", name, func(xml string) (string, error) {
		return editor.RemoveRow(xml, name)
	})
}

// RemoveColumn 删除包含 ${name} 的单元格所在的列
func (t *Template) RemoveColumn(name string) error {
	return t.edit("表格列已删除", name, func(xml string) (string, error) {
		return editor.RemoveColumn(xml, name)
	})
}

// CloneParagraph 把包含 ${name} 的段落按 data 复制，每份替换为一个值
func (t *Template) CloneParagraph(name string, data []string) error {
	return t.edit("段落已复制", name, func(xml string) (string, error) {
		return editor.CloneParagraph(xml, name, data)
	})
}

// Repair 修复被拆分到多个 run 的标记，返回修复的标记数
func (t *Template) Repair() (int, error) {
	xml := t.source.GetXML()
	spans, err := repair.Scan(xml)
	if err != nil {
		return 0, err
	}
	if len(spans) == 0 {
		return 0, nil
	}

	t.source.SetXML(repair.Apply(xml, spans))
	for _, span := range spans {
		t.logger.Debug("标记已修复", "marker", span.Marker, "fragments", span.Fragments)
	}
	return len(spans), nil
}

// Save 保存到输出位置，是会话的最后一步
func (t *Template) Save() (*SaveResult, error) {
	if t.output.Filename == "" {
		return nil, fmt.Errorf("输出文件名不能为空")
	}

	path := t.output.FullPath()
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建输出目录失败: %w", err)
		}
	}

	if err := t.source.Save(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取输出文件失败: %w", err)
	}
	sum := blake3.Sum256(data)

	result := &SaveResult{
		Path:   path,
		Size:   int64(len(data)),
		Digest: hex.EncodeToString(sum[:]),
	}
	t.logger.Info("模板已保存", "path", result.Path, "size", result.Size, "digest", result.Digest)
	return result, nil
}

// Close 释放文档
func (t *Template) Close() error {
	return t.source.Close()
}

// edit 对当前文本做一次完整的结构修改，失败时不写回
func (t *Template) edit(msg, name string, fn func(string) (string, error)) error {
	xml, err := fn(t.source.GetXML())
	if err != nil {
		return err
	}
	t.source.SetXML(xml)
	t.logger.Debug(msg, "marker", name)
	return nil
}
