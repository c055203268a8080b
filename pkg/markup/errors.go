package markup

import (
	"errors"
	"fmt"

	"github.com/allanpk716/docx_templater/internal/matcher"
)

var (
	// ErrMarkerNotFound 标记不在当前文档中（从未存在、已被消耗或被拆分）
	ErrMarkerNotFound = errors.New("marker not found")
	// ErrBoundaryNotFound 标记周围找不到所需的结构块
	ErrBoundaryNotFound = errors.New("structural boundary not found")
	// ErrMalformedSpan 修复扫描找到了起点但没有匹配的终点
	ErrMalformedSpan = errors.New("malformed marker span")
	// ErrIrregularTable 表格各行的单元格数量不一致
	ErrIrregularTable = errors.New("irregular table")
)

// MarkerNotFoundError 标记未找到
type MarkerNotFoundError struct {
	Marker string
}

func (e *MarkerNotFoundError) Error() string {
	return fmt.Sprintf("marker %s not found", matcher.FormatMarker(e.Marker))
}

func (e *MarkerNotFoundError) Is(target error) bool {
	return target == ErrMarkerNotFound
}

// BoundaryNotFoundError 找不到包围标记的结构块
type BoundaryNotFoundError struct {
	Marker string
	Kind   Kind
	Offset int
}

func (e *BoundaryNotFoundError) Error() string {
	if e.Marker != "" {
		return fmt.Sprintf("no enclosing %s around marker %s at offset %d", e.Kind, matcher.FormatMarker(e.Marker), e.Offset)
	}
	return fmt.Sprintf("no enclosing %s at offset %d", e.Kind, e.Offset)
}

func (e *BoundaryNotFoundError) Is(target error) bool {
	return target == ErrBoundaryNotFound
}

// MalformedSpanError 被拆分的标记没有结束位置
type MalformedSpanError struct {
	Offset int
	Reason string
}

func (e *MalformedSpanError) Error() string {
	return fmt.Sprintf("malformed marker span at offset %d: %s", e.Offset, e.Reason)
}

func (e *MalformedSpanError) Is(target error) bool {
	return target == ErrMalformedSpan
}

// IrregularTableError 表格某一行的单元格数量与标记所在行不同
type IrregularTableError struct {
	Marker string
	Row    int
	Want   int
	Got    int
}

func (e *IrregularTableError) Error() string {
	return fmt.Sprintf("table around marker %s is irregular: row %d has %d cells, expected %d",
		matcher.FormatMarker(e.Marker), e.Row, e.Got, e.Want)
}

func (e *IrregularTableError) Is(target error) bool {
	return target == ErrIrregularTable
}

// SyntaxError 文档标记无法解析
type SyntaxError struct {
	Offset int
	Cause  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("markup syntax error at offset %d: %v", e.Offset, e.Cause)
}

func (e *SyntaxError) Unwrap() error {
	return e.Cause
}
