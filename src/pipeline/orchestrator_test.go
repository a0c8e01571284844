package pipeline

import (
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"

	"PredictingDelays/src/storage"
)

// fakeSource 内存数据源，按月份键返回预置的表
type fakeSource struct {
	frames map[string]dataframe.DataFrame
}

func (f fakeSource) Load(months []string) (dataframe.DataFrame, error) {
	out := f.frames[months[0]]
	for _, m := range months[1:] {
		out = out.RBind(f.frames[m])
	}
	return out, nil
}

func orchestratorConfig() Config {
	return Config{
		Predictors:     []string{"MONTH", "CARRIER", "ORIGIN", "DEST", "DEP_TIME", "ELAPSED"},
		Categoricals:   []string{"CARRIER", "ORIGIN", "DEST"},
		HourColumns:    []string{"DEP_TIME"},
		Cyclical:       map[string]float64{"MONTH": 12, "DEP_TIME": 24},
		Normalize:      []string{"ELAPSED"},
		LogScale:       []string{"ELAPSED"},
		CarrierColumn:  "CARRIER",
		OriginColumn:   "ORIGIN",
		DestColumn:     "DEST",
		LabelColumn:    "DELAY",
		DelayThreshold: 15,
		AirportCount:   2,
		SampleFraction: 1,
		Seed:           7,
		Mergers:        map[string]string{"Virgin America": "Alaska Airlines Inc."},
	}
}

func testLookup() map[string]string {
	return map[string]string{
		"AS": "Alaska Airlines Inc.",
		"VX": "Virgin America",
		"DL": "Delta Air Lines Inc.",
	}
}

func flightTypes() map[string]series.Type {
	return map[string]series.Type{
		"MONTH":    series.Float,
		"DEP_TIME": series.Int,
		"ELAPSED":  series.Float,
		"DELAY":    series.Float,
	}
}

func newTestOrchestrator(t *testing.T, cfg Config) *Orchestrator {
	t.Helper()
	logger, err := storage.NewLogger(filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	t.Cleanup(func() { logger.Close() })

	header := []string{"MONTH", "CARRIER", "ORIGIN", "DEST", "DEP_TIME", "ELAPSED", "DELAY"}
	train := testFrame([][]string{
		header,
		{"1", "AS", "SEA", "SFO", "900", "100", "30"},
		{"2", "DL", "SFO", "SEA", "1415", "120", "0"},
		{"3", "VX", "SEA", "SFO", "630", "110", "20"},
		{"4", "DL", "SEA", "JFK", "800", "500", "0"},  // JFK不够繁忙，应被排除
		{"5", "AS", "SFO", "SEA", "1000", "105", "5"},
		{"6", "ZZ", "SEA", "SFO", "1100", "115", "60"}, // 未知承运人，清洗阶段丢弃
	}, flightTypes())
	valid := testFrame([][]string{
		header,
		{"7", "DL", "SFO", "SEA", "1200", "130", "40"},
		{"8", "UA", "SEA", "SFO", "900", "100", "0"}, // 未知承运人
		{"9", "AS", "SEA", "BOS", "700", "90", "0"},  // BOS不在机场集合内
		{"10", "AS", "SFO", "SEA", "1500", "95", "10"},
	}, flightTypes())

	src := fakeSource{frames: map[string]dataframe.DataFrame{
		"201801": train,
		"201901": valid,
	}}
	return NewOrchestrator(cfg, src, testLookup(), logger)
}

func TestOrchestratorRun(t *testing.T) {
	orch := newTestOrchestrator(t, orchestratorConfig())
	out, err := orch.Run([]string{"201801"}, []string{"201901"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 列序由预测列顺序唯一决定
	wantCols := []string{
		"MONTH_sin", "MONTH_cos",
		"CARRIER_Alaska Airlines Inc.", "CARRIER_Delta Air Lines Inc.",
		"ORIGIN_SEA", "ORIGIN_SFO",
		"DEST_SEA", "DEST_SFO",
		"DEP_TIME_sin", "DEP_TIME_cos",
		"ELAPSED",
	}
	if !reflect.DeepEqual(out.Columns, wantCols) {
		t.Fatalf("训练列 = %v\n期望 = %v", out.Columns, wantCols)
	}

	// 未知承运人与JFK航班被剔除后剩4行训练数据
	if out.Train.Len() != 4 {
		t.Fatalf("训练行数 = %d, 期望 4", out.Train.Len())
	}
	if out.PositiveRate != 0.5 {
		t.Errorf("正类占比 = %v, 期望 0.5", out.PositiveRate)
	}

	// 机场集合按吞吐量拟合
	if !reflect.DeepEqual(out.Airports.Codes, []string{"SEA", "SFO"}) {
		t.Errorf("机场集合 = %v", out.Airports.Codes)
	}
	if out.AirportCounts["SEA"] != 5 {
		t.Errorf("SEA吞吐量 = %d, 期望 5", out.AirportCounts["SEA"])
	}

	// 训练矩阵上ELAPSED已标准化
	scaled := out.Train.Features.Col("ELAPSED").Float()
	if m := stat.Mean(scaled, nil); math.Abs(m) > 1e-9 {
		t.Errorf("ELAPSED均值 = %v", m)
	}
	if s := stat.StdDev(scaled, nil); math.Abs(s-1) > 1e-9 {
		t.Errorf("ELAPSED标准差 = %v", s)
	}

	// 验证集对齐到训练列序，标签顺序与清洗后的行序一致
	if !reflect.DeepEqual(out.Valid.Features.Names(), wantCols) {
		t.Fatalf("验证列 = %v", out.Valid.Features.Names())
	}
	if out.Valid.Len() != 2 {
		t.Fatalf("验证行数 = %d, 期望 2", out.Valid.Len())
	}
	if !reflect.DeepEqual(out.Valid.Labels, []bool{true, false}) {
		t.Errorf("验证标签 = %v", out.Valid.Labels)
	}

	// 验证集里没有SEA起飞的航班，补零列应全为0
	for _, v := range out.Valid.Features.Col("ORIGIN_SEA").Float() {
		if v != 0 {
			t.Error("ORIGIN_SEA应全为0")
		}
	}

	// 同配置重跑结果一致
	again, err := newTestOrchestrator(t, orchestratorConfig()).Run([]string{"201801"}, []string{"201901"})
	if err != nil {
		t.Fatalf("重跑: %v", err)
	}
	if !reflect.DeepEqual(again.Columns, out.Columns) {
		t.Error("两次运行列序不一致")
	}
	if !reflect.DeepEqual(again.Train.Labels, out.Train.Labels) {
		t.Error("两次运行训练标签不一致")
	}
}

func TestOrchestratorAirportCountTooLarge(t *testing.T) {
	cfg := orchestratorConfig()
	cfg.AirportCount = 10
	_, err := newTestOrchestrator(t, cfg).Run([]string{"201801"}, []string{"201901"})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("期望ConfigurationError, 实际 %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	base := orchestratorConfig()
	if err := base.Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"空预测列", func(c *Config) { c.Predictors = nil }},
		{"类别列不在预测列", func(c *Config) { c.Categoricals = []string{"NO_SUCH"} }},
		{"时刻列不在预测列", func(c *Config) { c.HourColumns = []string{"NO_SUCH"} }},
		{"周期列不在预测列", func(c *Config) { c.Cyclical = map[string]float64{"NO_SUCH": 12} }},
		{"周期非正", func(c *Config) { c.Cyclical = map[string]float64{"MONTH": -1} }},
		{"归一化类别列", func(c *Config) { c.Normalize = []string{"CARRIER"} }},
		{"对数列未归一化", func(c *Config) { c.LogScale = []string{"MONTH"} }},
		{"标签列为空", func(c *Config) { c.LabelColumn = "" }},
		{"机场数非正", func(c *Config) { c.AirportCount = 0 }},
		{"抽样比例越界", func(c *Config) { c.SampleFraction = 2 }},
	}
	for _, tc := range cases {
		cfg := orchestratorConfig()
		tc.mutate(&cfg)
		var cfgErr *ConfigurationError
		if err := cfg.Validate(); !errors.As(err, &cfgErr) {
			t.Errorf("%s: 期望ConfigurationError, 实际 %v", tc.name, err)
		}
	}
}
