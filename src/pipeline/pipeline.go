package pipeline

import (
	"fmt"

	"github.com/go-gota/gota/series"
)

// Config 流水线配置，从 dataconfig.json 解析后在整个运行期间只读。
// 一次运行内所有阶段共享同一份配置值，运行中途不热更新。
type Config struct {
	Predictors     []string           `json:"predictors"`      // 预测列，顺序决定特征矩阵列序
	Categoricals   []string           `json:"categoricals"`    // 需要one-hot展开的类别列
	HourColumns    []string           `json:"hour_columns"`    // HHMM整数时刻列
	Cyclical       map[string]float64 `json:"cyclical"`        // 周期列 -> 周期长度(月=12 星期=7 小时=24)
	Normalize      []string           `json:"normalize"`       // 需要标准化的连续列
	LogScale       []string           `json:"log_scale"`       // 标准化前先取对数的列
	CarrierColumn  string             `json:"carrier_column"`  // 承运人代码列
	OriginColumn   string             `json:"origin_column"`   // 起飞机场列
	DestColumn     string             `json:"dest_column"`     // 到达机场列
	LabelColumn    string             `json:"label_column"`    // 到达延误分钟数列
	DelayThreshold float64            `json:"delay_threshold"` // 延误判定阈值(分钟)，>=阈值记为正类
	AirportCount   int                `json:"airport_count"`   // 保留最繁忙的前K个机场
	SampleFraction float64            `json:"sample_fraction"` // 训练集抽样比例，(0,1]
	Imbalanced     bool               `json:"imbalanced"`      // true时按类均衡抽样
	Seed           int64              `json:"seed"`            // 抽样随机种子
	Mergers        map[string]string  `json:"mergers"`         // 已并购航司名称 -> 存续航司名称
}

// Validate 运行开始前做一次整体校验，错误立即终止，不做带病运行。
func (c Config) Validate() error {
	if len(c.Predictors) == 0 {
		return &ConfigurationError{Field: "predictors", Reason: "预测列列表不能为空"}
	}
	inPredictors := make(map[string]bool, len(c.Predictors))
	for _, p := range c.Predictors {
		inPredictors[p] = true
	}
	for _, col := range c.Categoricals {
		if !inPredictors[col] {
			return &ConfigurationError{Field: "categoricals", Reason: fmt.Sprintf("类别列 %q 不在预测列中", col)}
		}
	}
	for _, col := range c.HourColumns {
		if !inPredictors[col] {
			return &ConfigurationError{Field: "hour_columns", Reason: fmt.Sprintf("时刻列 %q 不在预测列中", col)}
		}
	}
	for col, period := range c.Cyclical {
		if !inPredictors[col] {
			return &ConfigurationError{Field: "cyclical", Reason: fmt.Sprintf("周期列 %q 不在预测列中", col)}
		}
		if period <= 0 {
			return &ConfigurationError{Field: "cyclical." + col, Reason: "周期长度必须为正数"}
		}
	}
	catSet := make(map[string]bool, len(c.Categoricals))
	for _, col := range c.Categoricals {
		catSet[col] = true
	}
	for _, col := range c.Normalize {
		if !inPredictors[col] {
			return &ConfigurationError{Field: "normalize", Reason: fmt.Sprintf("归一化列 %q 不在预测列中", col)}
		}
		if catSet[col] {
			return &ConfigurationError{Field: "normalize", Reason: fmt.Sprintf("类别列 %q 不能参与标准化", col)}
		}
	}
	normSet := make(map[string]bool, len(c.Normalize))
	for _, col := range c.Normalize {
		normSet[col] = true
	}
	for _, col := range c.LogScale {
		if !normSet[col] {
			return &ConfigurationError{Field: "log_scale", Reason: fmt.Sprintf("对数列 %q 必须同时出现在 normalize 中", col)}
		}
	}
	for _, col := range []struct{ field, value string }{
		{"carrier_column", c.CarrierColumn},
		{"origin_column", c.OriginColumn},
		{"dest_column", c.DestColumn},
		{"label_column", c.LabelColumn},
	} {
		if col.value == "" {
			return &ConfigurationError{Field: col.field, Reason: "不能为空"}
		}
	}
	if c.AirportCount <= 0 {
		return &ConfigurationError{Field: "airport_count", Reason: "机场数必须为正整数"}
	}
	if c.SampleFraction <= 0 || c.SampleFraction > 1 {
		return &ConfigurationError{Field: "sample_fraction", Reason: "抽样比例必须在(0,1]区间内"}
	}
	return nil
}

// ColumnTypes 源表各列的读取类型：时刻列按整数读，类别列按字符串读，
// 其余预测列与标签列按浮点读。交给CSV/XLSX装载器做类型化解析。
func (c Config) ColumnTypes() map[string]series.Type {
	hourSet := make(map[string]bool, len(c.HourColumns))
	for _, col := range c.HourColumns {
		hourSet[col] = true
	}
	catSet := make(map[string]bool, len(c.Categoricals))
	for _, col := range c.Categoricals {
		catSet[col] = true
	}
	types := make(map[string]series.Type, len(c.Predictors)+1)
	for _, col := range c.Predictors {
		switch {
		case hourSet[col]:
			types[col] = series.Int
		case catSet[col]:
			types[col] = series.String
		default:
			types[col] = series.Float
		}
	}
	types[c.LabelColumn] = series.Float
	return types
}

// RequiredColumns 任何一列缺值就整行丢弃的必填列集合
func (c Config) RequiredColumns() []string {
	cols := make([]string, 0, len(c.Predictors)+1)
	cols = append(cols, c.Predictors...)
	return append(cols, c.LabelColumn)
}
