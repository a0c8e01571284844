package pipeline

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"
)

// ColumnScale 单个连续列的缩放参数。Log为真表示先取自然对数再中心化。
type ColumnScale struct {
	Name string  `json:"name"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Log  bool    `json:"log"`
}

// Scaler 连续列标准化器。在训练矩阵上拟合一次后参数不可变，
// 验证与推理数据只能复用这组参数，绝不在新数据上重新拟合。
type Scaler struct {
	Columns []ColumnScale `json:"columns"`
}

// FitScaler 在训练矩阵上拟合各列的均值与样本标准差(除n-1)。
// 标记为对数缩放的列要求全部取值严格为正，否则DomainError；
// 零方差列是退化特征，直接报ConfigurationError而不是除零。
func FitScaler(df dataframe.DataFrame, normalize, logScale []string) (*Scaler, error) {
	logSet := make(map[string]bool, len(logScale))
	for _, col := range logScale {
		logSet[col] = true
	}
	sc := &Scaler{Columns: make([]ColumnScale, 0, len(normalize))}
	for _, name := range normalize {
		col := df.Col(name)
		if col.Err != nil {
			return nil, &SchemaError{Column: name, Reason: "归一化列不存在"}
		}
		vals := col.Float()
		useLog := logSet[name]
		if useLog {
			for i, v := range vals {
				if v <= 0 {
					return nil, &DomainError{Column: name, Value: v, Reason: "对数变换要求取值严格为正"}
				}
				vals[i] = math.Log(v)
			}
		}
		mean := stat.Mean(vals, nil)
		std := stat.StdDev(vals, nil)
		if std == 0 || math.IsNaN(std) {
			return nil, &ConfigurationError{Field: name, Reason: "零方差列无法标准化"}
		}
		sc.Columns = append(sc.Columns, ColumnScale{Name: name, Mean: mean, Std: std, Log: useLog})
	}
	return sc, nil
}

// Transform 应用已拟合的参数：可选对数后按 (v-mean)/std 缩放。
// 训练、验证、推理共用同一组参数，列缺失报SchemaError。
func (s *Scaler) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	out := df
	for _, cs := range s.Columns {
		col := out.Col(cs.Name)
		if col.Err != nil {
			return out, &SchemaError{Column: cs.Name, Reason: "待缩放列不存在"}
		}
		vals := col.Float()
		for i, v := range vals {
			if cs.Log {
				if v <= 0 {
					return out, &DomainError{Column: cs.Name, Value: v, Reason: "对数变换要求取值严格为正"}
				}
				v = math.Log(v)
			}
			vals[i] = (v - cs.Mean) / cs.Std
		}
		out = out.Mutate(series.New(vals, series.Float, cs.Name))
		if out.Err != nil {
			return out, fmt.Errorf("缩放 %s 列失败: %w", cs.Name, out.Err)
		}
	}
	return out, nil
}
