package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// OperationType 模板操作类型
type OperationType string

const (
	OpSet          OperationType = "set"
	OpRows         OperationType = "rows"
	OpRemoveRow    OperationType = "remove_row"
	OpRemoveColumn OperationType = "remove_column"
	OpParagraphs   OperationType = "paragraphs"
	OpRepair       OperationType = "repair"
)

// RowSource 表格行数据来源（xlsx 工作表，首行为标记名）
type RowSource struct {
	Path  string `json:"path" yaml:"path"`
	Sheet string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
}

// Operation 一个模板操作
type Operation struct {
	Type     OperationType       `json:"type" yaml:"type"`
	Marker   string              `json:"marker,omitempty" yaml:"marker,omitempty"`
	Value    string              `json:"value,omitempty" yaml:"value,omitempty"`
	Rows     []map[string]string `json:"rows,omitempty" yaml:"rows,omitempty"`
	Source   *RowSource          `json:"source,omitempty" yaml:"source,omitempty"`
	Values   []string            `json:"values,omitempty" yaml:"values,omitempty"`
	Optional bool                `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Output 输出位置
type Output struct {
	Dir      string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Filename string `json:"filename" yaml:"filename"`
}

// Job 一个渲染任务：一个模板、一组按顺序执行的操作和一个输出文件
type Job struct {
	Name       string      `json:"name" yaml:"name"`
	Template   string      `json:"template" yaml:"template"`
	Output     Output      `json:"output" yaml:"output"`
	Repair     bool        `json:"repair,omitempty" yaml:"repair,omitempty"`
	Operations []Operation `json:"operations" yaml:"operations"`
}

// Config 表示完整的配置文件结构
type Config struct {
	ProjectName string `json:"project_name" yaml:"project_name"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Jobs        []Job  `json:"jobs" yaml:"jobs"`
}

// ConfigManager 配置管理接口
type ConfigManager interface {
	LoadConfig(filePath string) (*Config, error)
	ValidateConfig(config *Config) error
	SelectJobs(config *Config, names []string) ([]*Job, error)
	SaveConfig(config *Config, filePath string) error
	GenerateTemplate(templateType string) (*Config, error)
}

// configManager 配置管理器实现
type configManager struct {
	migrationHandlers map[string]MigrationHandler
}

// NewConfigManager 创建新的配置管理器
func NewConfigManager() ConfigManager {
	cm := &configManager{
		migrationHandlers: make(map[string]MigrationHandler),
	}

	// 注册迁移处理器
	cm.registerMigrationHandlers()
	return cm
}

// LoadConfig 从 JSON、JSONC 或 YAML 文件加载配置，相对路径按配置文件所在目录解析
func (cm *configManager) LoadConfig(filePath string) (*Config, error) {
	if filePath == "" {
		return nil, fmt.Errorf("配置文件路径不能为空")
	}

	// 检查文件是否存在
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("配置文件不存在: %s", filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := cm.migrate(&config); err != nil {
		return nil, fmt.Errorf("配置迁移失败: %w", err)
	}

	if err := cm.ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	resolvePaths(&config, filepath.Dir(filePath))
	return &config, nil
}

// ValidateConfig 验证配置的有效性
func (cm *configManager) ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("配置不能为空")
	}

	if config.ProjectName == "" {
		return fmt.Errorf("项目名称不能为空")
	}

	if config.Version != "" && config.Version != CurrentVersion {
		return fmt.Errorf("不支持的配置版本: %s", config.Version)
	}

	if len(config.Jobs) == 0 {
		return fmt.Errorf("任务列表不能为空")
	}

	// 检查任务名重复
	names := make(map[string]bool)
	for i := range config.Jobs {
		job := &config.Jobs[i]
		if job.Name == "" {
			return fmt.Errorf("第 %d 个任务的 name 不能为空", i+1)
		}
		if names[job.Name] {
			return fmt.Errorf("任务名重复: %s", job.Name)
		}
		names[job.Name] = true

		if err := validateJob(job); err != nil {
			return fmt.Errorf("任务 %s: %w", job.Name, err)
		}
	}

	return nil
}

func validateJob(job *Job) error {
	if job.Template == "" {
		return fmt.Errorf("template 不能为空")
	}
	if job.Output.Filename == "" {
		return fmt.Errorf("output.filename 不能为空")
	}

	for i, op := range job.Operations {
		if err := validateOperation(op); err != nil {
			return fmt.Errorf("第 %d 个操作: %w", i+1, err)
		}
	}
	return nil
}

func validateOperation(op Operation) error {
	switch op.Type {
	case OpRepair:
		return nil
	case OpSet, OpRows, OpRemoveRow, OpRemoveColumn, OpParagraphs:
	case "":
		return fmt.Errorf("type 不能为空")
	default:
		return fmt.Errorf("未知的操作类型: %s", op.Type)
	}

	if op.Marker == "" {
		return fmt.Errorf("%s 操作的 marker 不能为空", op.Type)
	}
	// 标记名不能包含定界符和写入 XML 时会被转义的字符
	if strings.ContainsAny(op.Marker, "${}<>&'\"") {
		return fmt.Errorf("无效的标记名: %s", op.Marker)
	}

	if op.Type == OpRows {
		hasRows := len(op.Rows) > 0
		hasSource := op.Source != nil && op.Source.Path != ""
		if hasRows == hasSource {
			return fmt.Errorf("rows 操作必须且只能指定 rows 或 source 之一")
		}
	}
	return nil
}

// resolvePaths 把相对路径解析为相对配置文件目录的路径
func resolvePaths(config *Config, base string) {
	for i := range config.Jobs {
		job := &config.Jobs[i]
		job.Template = resolve(base, job.Template)
		job.Output.Dir = resolve(base, job.Output.Dir)
		for j := range job.Operations {
			if src := job.Operations[j].Source; src != nil {
				src.Path = resolve(base, src.Path)
			}
		}
	}
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// SelectJobs 按名称选择任务，names 为空时返回全部任务
func (cm *configManager) SelectJobs(config *Config, names []string) ([]*Job, error) {
	if config == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	if len(names) == 0 {
		jobs := make([]*Job, 0, len(config.Jobs))
		for i := range config.Jobs {
			jobs = append(jobs, &config.Jobs[i])
		}
		return jobs, nil
	}

	jobs := make([]*Job, 0, len(names))
	for _, name := range names {
		var found *Job
		for i := range config.Jobs {
			if config.Jobs[i].Name == name {
				found = &config.Jobs[i]
				break
			}
		}
		if found == nil {
			return nil, fmt.Errorf("任务不存在: %s", name)
		}
		jobs = append(jobs, found)
	}
	return jobs, nil
}
