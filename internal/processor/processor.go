package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/allanpk716/docx_templater/internal/config"
	"github.com/allanpk716/docx_templater/internal/dataset"
	"github.com/allanpk716/docx_templater/internal/domain"
	"github.com/allanpk716/docx_templater/pkg/template"
)

// RowLoader 读取外部表格行数据
type RowLoader func(path, sheet string) ([]map[string]string, error)

// jobProcessor 渲染任务处理器实现
type jobProcessor struct {
	logger   *slog.Logger
	loadRows RowLoader
}

// Option 处理器选项
type Option func(*jobProcessor)

// WithRowLoader 替换默认的 xlsx 行数据读取
func WithRowLoader(loader RowLoader) Option {
	return func(jp *jobProcessor) {
		jp.loadRows = loader
	}
}

// NewJobProcessor 创建新的任务处理器
func NewJobProcessor(logger *slog.Logger, opts ...Option) domain.JobProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	jp := &jobProcessor{
		logger:   logger,
		loadRows: dataset.LoadRows,
	}
	for _, opt := range opts {
		opt(jp)
	}
	return jp
}

// ProcessJob 打开模板，按顺序执行操作并保存
func (jp *jobProcessor) ProcessJob(ctx context.Context, job *config.Job) (*domain.JobResult, error) {
	if job == nil {
		return nil, fmt.Errorf("任务不能为空")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	logger := jp.logger.With("job", job.Name)
	opts := []template.Option{template.WithLogger(logger)}
	if job.Repair {
		opts = append(opts, template.WithRepairOnOpen())
	}

	output := template.Output{Dir: job.Output.Dir, Filename: job.Output.Filename}
	tmpl, err := template.Open(job.Template, output, opts...)
	if err != nil {
		return nil, fmt.Errorf("打开模板失败: %w", err)
	}
	defer tmpl.Close()

	logger.Info("开始处理任务", "path", job.Template, "operations", len(job.Operations))

	result := &domain.JobResult{Job: job.Name}
	for i, op := range job.Operations {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := jp.apply(tmpl, op); err != nil {
			if op.Optional && errors.Is(err, template.ErrMarkerNotFound) {
				logger.Warn("可选操作的标记不存在，已跳过", "type", op.Type, "marker", op.Marker)
				result.Skipped++
				continue
			}
			return nil, fmt.Errorf("第 %d 个操作 %s 失败: %w", i+1, op.Type, err)
		}
		result.Applied++
	}

	saved, err := tmpl.Save()
	if err != nil {
		return nil, fmt.Errorf("保存失败: %w", err)
	}

	result.OutputPath = saved.Path
	result.Size = saved.Size
	result.Digest = saved.Digest
	return result, nil
}

func (jp *jobProcessor) apply(tmpl *template.Template, op config.Operation) error {
	switch op.Type {
	case config.OpSet:
		return tmpl.SetTag(op.Marker, op.Value)
	case config.OpRows:
		rows, err := jp.rows(op)
		if err != nil {
			return err
		}
		return tmpl.SetRepeatingRows(op.Marker, rows)
	case config.OpRemoveRow:
		return tmpl.RemoveRow(op.Marker)
	case config.OpRemoveColumn:
		return tmpl.RemoveColumn(op.Marker)
	case config.OpParagraphs:
		return tmpl.CloneParagraph(op.Marker, op.Values)
	case config.OpRepair:
		_, err := tmpl.Repair()
		return err
	default:
		return fmt.Errorf("未知的操作类型: %s", op.Type)
	}
}

// rows 返回内联数据或从数据源读取的数据
func (jp *jobProcessor) rows(op config.Operation) ([]template.Row, error) {
	records := op.Rows
	if op.Source != nil && op.Source.Path != "" {
		loaded, err := jp.loadRows(op.Source.Path, op.Source.Sheet)
		if err != nil {
			return nil, fmt.Errorf("读取行数据失败: %w", err)
		}
		records = loaded
	}

	rows := make([]template.Row, len(records))
	for i, record := range records {
		rows[i] = template.Row(record)
	}
	return rows, nil
}

// ProcessBatch 依次处理多个任务，单个任务失败时记录错误并继续
func ProcessBatch(ctx context.Context, jp domain.JobProcessor, jobs []*config.Job, logger *slog.Logger) (*domain.BatchResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	batch := &domain.BatchResult{}
	for i, job := range jobs {
		select {
		case <-ctx.Done():
			return batch, ctx.Err()
		default:
		}

		logger.Info("处理任务", "index", i+1, "total", len(jobs), "job", job.Name)

		result, err := jp.ProcessJob(ctx, job)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return batch, ctxErr
			}
			logger.Error("任务处理失败", "job", job.Name, "error", err)
			batch.Errors = append(batch.Errors, fmt.Errorf("任务 %s: %w", job.Name, err))
			continue
		}
		batch.Results = append(batch.Results, result)
	}

	logger.Info("批量处理完成", "succeeded", batch.Succeeded(), "total", len(jobs))
	return batch, nil
}
