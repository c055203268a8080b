package domain

import (
	"context"
	"errors"

	"github.com/allanpk716/docx_templater/internal/config"
)

// JobProcessor 渲染任务处理器接口
type JobProcessor interface {
	ProcessJob(ctx context.Context, job *config.Job) (*JobResult, error)
}

// MarkerMatcher 标记匹配器接口
type MarkerMatcher interface {
	// FindMatches 查找指定标记的所有出现位置，Replacement 取自 markers
	FindMatches(content string, markers map[string]string) []Match
	// FindAll 查找内容中的所有标记，Replacement 为空
	FindAll(content string) []Match
	ReplaceMatches(content string, matches []Match) string
}

// Match 表示一个标记匹配项
type Match struct {
	Marker      string // 标记名称 (如 first_name 或 first_name#2)
	Replacement string // 替换值
	StartPos    int    // 开始位置
	EndPos      int    // 结束位置
}

// JobResult 单个任务的处理结果
type JobResult struct {
	Job        string
	OutputPath string
	Size       int64
	Digest     string
	Applied    int
	Skipped    int
}

// BatchResult 批量处理结果
type BatchResult struct {
	Results []*JobResult
	Errors  []error
}

// Succeeded 返回成功的任务数
func (br *BatchResult) Succeeded() int {
	return len(br.Results)
}

// Err 合并所有失败任务的错误，没有失败时返回 nil
func (br *BatchResult) Err() error {
	return errors.Join(br.Errors...)
}
