package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("写入临时文件失败: %v", err)
	}
	return path
}

func TestConfigManager_LoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		configData  string
		wantErr     bool
		wantProject string
		wantJobs    int
		wantOps     int
	}{
		{
			name: "valid json",
			file: "config.json",
			configData: `{
				"project_name": "Test Project",
				"jobs": [{
					"name": "staff",
					"template": "staff.docx",
					"output": {"dir": "out", "filename": "staff"},
					"operations": [
						{"type": "set", "marker": "title", "value": "Staff"},
						{"type": "rows", "marker": "first_name", "rows": [{"first_name": "First", "last_name": "Name"}]}
					]
				}]
			}`,
			wantProject: "Test Project",
			wantJobs:    1,
			wantOps:     2,
		},
		{
			name: "jsonc with comments and trailing commas",
			file: "config.jsonc",
			configData: `{
				// 项目名称
				"project_name": "Test Project",
				"jobs": [{
					"name": "staff",
					"template": "staff.docx",
					"output": {"filename": "staff"},
					/* 操作列表 */
					"operations": [
						{"type": "repair"},
						{"type": "remove_row", "marker": "obsolete",},
					],
				}],
			}`,
			wantProject: "Test Project",
			wantJobs:    1,
			wantOps:     2,
		},
		{
			name: "valid yaml",
			file: "config.yaml",
			configData: `project_name: Reports
jobs:
  - name: staff
    template: staff.docx
    output: {dir: out, filename: staff-list}
    repair: true
    operations:
      - {type: set, marker: title, value: "Staff & Friends"}
      - {type: rows, marker: sku, source: {path: items.xlsx, sheet: Items}}
      - {type: remove_column, marker: notes, optional: true}
      - {type: paragraphs, marker: bullet, values: [one, two]}
  - name: empty
    template: empty.docx
    output: {filename: empty}
`,
			wantProject: "Reports",
			wantJobs:    2,
			wantOps:     4,
		},
		{
			name:        "yml extension",
			file:        "config.yml",
			configData:  "project_name: P\njobs:\n  - {name: a, template: a.docx, output: {filename: a}}\n",
			wantProject: "P",
			wantJobs:    1,
		},
		{
			name: "empty project name",
			file: "config.json",
			configData: `{
				"project_name": "",
				"jobs": [{"name": "a", "template": "a.docx", "output": {"filename": "a"}}]
			}`,
			wantErr: true,
		},
		{
			name:       "empty jobs",
			file:       "config.json",
			configData: `{"project_name": "Test Project", "jobs": []}`,
			wantErr:    true,
		},
		{
			name: "invalid json",
			file: "config.json",
			configData: `{
				"project_name": "Test Project",
				"jobs": [
			}`,
			wantErr: true,
		},
		{
			name:       "trailing comma in strict json",
			file:       "config.json",
			configData: `{"project_name": "P", "jobs": [{"name": "a", "template": "a.docx", "output": {"filename": "a"}},]}`,
			wantErr:    true,
		},
		{
			name:       "unsupported extension",
			file:       "config.toml",
			configData: `project_name = "P"`,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.configData)

			manager := NewConfigManager()
			config, err := manager.LoadConfig(path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("期望出现错误，但没有错误")
				}
				return
			}

			if err != nil {
				t.Errorf("不期望出现错误，但出现了错误: %v", err)
				return
			}

			if config.ProjectName != tt.wantProject {
				t.Errorf("项目名称 = %v, 期望 %v", config.ProjectName, tt.wantProject)
			}

			if len(config.Jobs) != tt.wantJobs {
				t.Fatalf("任务数量 = %v, 期望 %v", len(config.Jobs), tt.wantJobs)
			}

			if len(config.Jobs[0].Operations) != tt.wantOps {
				t.Errorf("操作数量 = %v, 期望 %v", len(config.Jobs[0].Operations), tt.wantOps)
			}
		})
	}
}

func TestConfigManager_LoadConfig_YAMLFields(t *testing.T) {
	path := writeConfig(t, "config.yaml", `project_name: Reports
jobs:
  - name: staff
    template: templates/staff.docx
    output: {dir: out, filename: staff-list}
    repair: true
    operations:
      - {type: set, marker: title, value: "Staff & Friends"}
      - {type: rows, marker: sku, source: {path: data/items.xlsx, sheet: Items}}
      - {type: remove_column, marker: notes, optional: true}
      - {type: paragraphs, marker: bullet, values: [one, two]}
`)
	base := filepath.Dir(path)

	config, err := NewConfigManager().LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	job := config.Jobs[0]
	if !job.Repair {
		t.Errorf("repair 应为 true")
	}
	if job.Template != filepath.Join(base, "templates", "staff.docx") {
		t.Errorf("模板路径 = %v", job.Template)
	}
	if job.Output.Dir != filepath.Join(base, "out") {
		t.Errorf("输出目录 = %v", job.Output.Dir)
	}

	ops := job.Operations
	if ops[0].Type != OpSet || ops[0].Value != "Staff & Friends" {
		t.Errorf("set 操作解析错误: %+v", ops[0])
	}
	if ops[1].Source == nil || ops[1].Source.Path != filepath.Join(base, "data", "items.xlsx") || ops[1].Source.Sheet != "Items" {
		t.Errorf("rows 数据源解析错误: %+v", ops[1].Source)
	}
	if !ops[2].Optional {
		t.Errorf("optional 应为 true")
	}
	if len(ops[3].Values) != 2 || ops[3].Values[1] != "two" {
		t.Errorf("paragraphs 值解析错误: %v", ops[3].Values)
	}
}

func TestConfigManager_LoadConfig_AbsolutePathsKept(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "abs.docx")
	path := writeConfig(t, "config.json", `{"project_name": "P", "jobs": [{"name": "a", "template": "`+filepath.ToSlash(abs)+`", "output": {"filename": "a"}}]}`)

	config, err := NewConfigManager().LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if config.Jobs[0].Template != filepath.ToSlash(abs) {
		t.Errorf("绝对路径被修改: %v", config.Jobs[0].Template)
	}
	// 未指定输出目录时使用配置文件所在目录
	if config.Jobs[0].Output.Dir != filepath.Dir(path) {
		t.Errorf("输出目录 = %v, 期望 %v", config.Jobs[0].Output.Dir, filepath.Dir(path))
	}
}

func TestConfigManager_LoadConfig_FileNotFound(t *testing.T) {
	manager := NewConfigManager()
	_, err := manager.LoadConfig("nonexistent.json")
	if err == nil {
		t.Errorf("期望文件不存在错误，但没有错误")
	}
}

func TestConfigManager_LoadConfig_InvalidPath(t *testing.T) {
	manager := NewConfigManager()
	_, err := manager.LoadConfig("")
	if err == nil {
		t.Errorf("期望路径无效错误，但没有错误")
	}
}

func TestConfigManager_SelectJobs(t *testing.T) {
	config := &Config{
		ProjectName: "P",
		Jobs: []Job{
			{Name: "a", Template: "a.docx", Output: Output{Filename: "a"}},
			{Name: "b", Template: "b.docx", Output: Output{Filename: "b"}},
		},
	}
	manager := NewConfigManager()

	all, err := manager.SelectJobs(config, nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("选择全部任务失败: %v, %d", err, len(all))
	}

	picked, err := manager.SelectJobs(config, []string{"b"})
	if err != nil || len(picked) != 1 || picked[0].Name != "b" {
		t.Fatalf("按名称选择任务失败: %v", err)
	}
	// 返回的是配置中的任务本身
	if picked[0] != &config.Jobs[1] {
		t.Errorf("应返回配置中的任务指针")
	}

	if _, err := manager.SelectJobs(config, []string{"missing"}); err == nil {
		t.Errorf("期望任务不存在错误，但没有错误")
	}
}
