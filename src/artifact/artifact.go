package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"PredictingDelays/src/model"
	"PredictingDelays/src/pipeline"
)

// 工件文件名。每个文件都可以单独加载，推理端按需取用。
const (
	ManifestFile       = "manifest.json"
	ColumnsFile        = "columns.json"
	AirportsFile       = "airports.json"
	ScalingFile        = "scaling.json"
	PipelineConfigFile = "pipeline_config.json"
	PositiveRateFile   = "positive_rate.json"
	ModelFile          = "model.json"

	// ReportFile 人读报表，不参与Load
	ReportFile = "report.xlsx"
)

// Manifest 一次运行的概要信息
type Manifest struct {
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	TrainRange string    `json:"train_range"`
	ValidRange string    `json:"valid_range"`
	TrainRows  int       `json:"train_rows"`
	ValidRows  int       `json:"valid_rows"`
	Accuracy   float64   `json:"accuracy"`
}

// Bundle 推理端复现训练期特征空间所需的全套工件
type Bundle struct {
	Manifest     Manifest
	Columns      []string             // 训练矩阵的权威列序
	Airports     pipeline.AirportSet  // 训练语料上拟合的机场集合
	Scaler       *pipeline.Scaler     // 连续列缩放参数
	Pipeline     pipeline.Config      // 本次运行使用的流水线配置
	PositiveRate float64              // 训练集正类占比
	Model        *model.LogisticModel // 训练好的分类器
}

type positiveRate struct {
	Rate float64 `json:"positive_rate"`
}

// Save 把全部工件写入dir。先写进同级临时目录，全部成功后整体改名，
// 任何一步失败都不会留下半套工件。dir已存在时报错，运行目录不允许覆盖。
func Save(dir string, b *Bundle) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("创建工件目录失败: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, ".artifact-")
	if err != nil {
		return fmt.Errorf("创建临时目录失败: %w", err)
	}
	// 改名成功后tmp已不存在，RemoveAll成为空操作
	defer os.RemoveAll(tmp)

	files := []struct {
		name string
		v    interface{}
	}{
		{ManifestFile, b.Manifest},
		{ColumnsFile, b.Columns},
		{AirportsFile, b.Airports},
		{ScalingFile, b.Scaler},
		{PipelineConfigFile, b.Pipeline},
		{PositiveRateFile, positiveRate{Rate: b.PositiveRate}},
		{ModelFile, b.Model},
	}
	for _, f := range files {
		if err := writeJSON(filepath.Join(tmp, f.name), f.v); err != nil {
			return err
		}
	}

	if err := os.Rename(tmp, dir); err != nil {
		return fmt.Errorf("发布工件目录失败: %w", err)
	}
	return nil
}

// Load 读取整套工件
func Load(dir string) (*Bundle, error) {
	b := &Bundle{}
	if err := readJSON(filepath.Join(dir, ManifestFile), &b.Manifest); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, ColumnsFile), &b.Columns); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, AirportsFile), &b.Airports); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, ScalingFile), &b.Scaler); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, PipelineConfigFile), &b.Pipeline); err != nil {
		return nil, err
	}
	var rate positiveRate
	if err := readJSON(filepath.Join(dir, PositiveRateFile), &rate); err != nil {
		return nil, err
	}
	b.PositiveRate = rate.Rate
	if err := readJSON(filepath.Join(dir, ModelFile), &b.Model); err != nil {
		return nil, err
	}
	return b, nil
}

// 以下是单工件加载器，推理端不必拖全套工件

func LoadManifest(dir string) (Manifest, error) {
	var m Manifest
	err := readJSON(filepath.Join(dir, ManifestFile), &m)
	return m, err
}

func LoadColumns(dir string) ([]string, error) {
	var cols []string
	err := readJSON(filepath.Join(dir, ColumnsFile), &cols)
	return cols, err
}

func LoadAirports(dir string) (pipeline.AirportSet, error) {
	var set pipeline.AirportSet
	err := readJSON(filepath.Join(dir, AirportsFile), &set)
	return set, err
}

func LoadScaler(dir string) (*pipeline.Scaler, error) {
	var sc pipeline.Scaler
	if err := readJSON(filepath.Join(dir, ScalingFile), &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func LoadPipelineConfig(dir string) (pipeline.Config, error) {
	var cfg pipeline.Config
	err := readJSON(filepath.Join(dir, PipelineConfigFile), &cfg)
	return cfg, err
}

func LoadPositiveRate(dir string) (float64, error) {
	var rate positiveRate
	err := readJSON(filepath.Join(dir, PositiveRateFile), &rate)
	return rate.Rate, err
}

func LoadModel(dir string) (*model.LogisticModel, error) {
	var m model.LogisticModel
	if err := readJSON(filepath.Join(dir, ModelFile), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化 %s 失败: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取工件失败: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("解析 %s 失败: %w", filepath.Base(path), err)
	}
	return nil
}
