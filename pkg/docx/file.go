// Package docx 基于 nguyenthenguyen/docx 提供模板所需的文档源：读取、改写 document.xml 并另存为新文件。
package docx

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nguyenthenguyen/docx"

	"github.com/allanpk716/docx_templater/internal/matcher"
	"github.com/allanpk716/docx_templater/pkg/editor"
)

// MimeType DOCX 文件的 MIME 类型
const MimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// File 一个已打开的 DOCX 文件
type File struct {
	reader   *docx.ReplaceDocx
	editable *docx.Docx
	path     string
}

// Open 打开 DOCX 文件
func Open(path string) (*File, error) {
	reader, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开docx文件失败: %w", err)
	}

	return &File{
		reader:   reader,
		editable: reader.Editable(),
		path:     path,
	}, nil
}

// Path 返回打开时的路径
func (f *File) Path() string {
	return f.path
}

// GetXML 返回当前的 document.xml 内容
func (f *File) GetXML() string {
	if f.editable == nil {
		return ""
	}
	return f.editable.GetContent()
}

// SetXML 用新的内容替换 document.xml
func (f *File) SetXML(xml string) {
	if f.editable == nil {
		return
	}
	f.editable.SetContent(xml)
}

// SetValue 把正文、页眉和页脚中所有 ${name} 替换为 value，value 会被转义
func (f *File) SetValue(name, value string) error {
	if f.editable == nil {
		return fmt.Errorf("文档未初始化")
	}

	marker := matcher.FormatMarker(name)
	if err := f.editable.Replace(marker, value, -1); err != nil {
		return fmt.Errorf("替换标记 %s 失败: %w", marker, err)
	}
	if err := f.editable.ReplaceHeader(marker, value); err != nil {
		return fmt.Errorf("替换页眉中的标记 %s 失败: %w", marker, err)
	}
	if err := f.editable.ReplaceFooter(marker, value); err != nil {
		return fmt.Errorf("替换页脚中的标记 %s 失败: %w", marker, err)
	}
	return nil
}

// CloneRow 复制包含 ${name} 的表格行 count 次
func (f *File) CloneRow(name string, count int) error {
	if f.editable == nil {
		return fmt.Errorf("文档未初始化")
	}

	xml, err := editor.CloneRow(f.editable.GetContent(), name, count)
	if err != nil {
		return err
	}
	f.editable.SetContent(xml)
	return nil
}

// Save 保存到指定路径
func (f *File) Save(path string) error {
	if f.editable == nil {
		return fmt.Errorf("文档未初始化")
	}

	// 先写临时文件再改名，输出路径与模板相同时读取中的原文件不会被截断
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := tmp.Name()

	if err := f.editable.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("保存文档失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("保存文档失败: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("保存文档失败: %w", err)
	}
	return nil
}

// Close 关闭文档
func (f *File) Close() error {
	if f.reader != nil {
		err := f.reader.Close()
		f.reader = nil
		f.editable = nil
		return err
	}
	return nil
}
