package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SaveConfig 按扩展名保存配置，已有文件会先备份
func (cm *configManager) SaveConfig(config *Config, filePath string) error {
	if config == nil {
		return fmt.Errorf("配置不能为空")
	}
	if config.Version == "" {
		config.Version = CurrentVersion
	}

	// 验证配置
	if err := cm.ValidateConfig(config); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	var data []byte
	var err error
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".json", ".jsonc":
		data, err = json.MarshalIndent(config, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		return fmt.Errorf("不支持的配置文件格式: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	// 确保目录存在
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	if _, err := createBackup(filePath); err != nil {
		return err
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}

// createBackup 把已有的配置文件复制为 name_backup_时间戳.ext，文件不存在时返回空路径
func createBackup(filePath string) (string, error) {
	src, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("读取原文件失败: %w", err)
	}

	dir := filepath.Dir(filePath)
	base := filepath.Base(filePath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	timestamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(dir, fmt.Sprintf("%s_backup_%s%s", name, timestamp, ext))

	if err := os.WriteFile(backupPath, src, 0644); err != nil {
		return "", fmt.Errorf("写入备份文件失败: %w", err)
	}
	return backupPath, nil
}

// GenerateTemplate 生成示例配置：basic 只替换文本，table 演示表格和段落操作
func (cm *configManager) GenerateTemplate(templateType string) (*Config, error) {
	switch templateType {
	case "basic":
		return generateBasicTemplate(), nil
	case "table":
		return generateTableTemplate(), nil
	default:
		return nil, fmt.Errorf("未知的模板类型: %s", templateType)
	}
}

func generateBasicTemplate() *Config {
	return &Config{
		ProjectName: "示例项目",
		Version:     CurrentVersion,
		Jobs: []Job{{
			Name:     "letter",
			Template: "templates/letter.docx",
			Output:   Output{Dir: "out", Filename: "letter"},
			Repair:   true,
			Operations: []Operation{
				{Type: OpSet, Marker: "company", Value: "示例公司"},
				{Type: OpSet, Marker: "date", Value: "2024-01-01"},
			},
		}},
	}
}

func generateTableTemplate() *Config {
	config := generateBasicTemplate()

	job := &config.Jobs[0]
	job.Name = "staff"
	job.Template = "templates/staff.docx"
	job.Output.Filename = "staff-list"
	job.Operations = append(job.Operations,
		Operation{Type: OpRows, Marker: "first_name", Rows: []map[string]string{
			{"first_name": "First", "last_name": "Name"},
			{"first_name": "Another", "last_name": "Name"},
		}},
		Operation{Type: OpRemoveColumn, Marker: "notes", Optional: true},
		Operation{Type: OpParagraphs, Marker: "bullet", Values: []string{"one", "two"}},
	)
	return config
}
