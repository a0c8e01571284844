package pipeline

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"PredictingDelays/src/utils"
)

// DecodeTimes 把HHMM整数时刻列原位转换为十进制小时，列名与列位不变。
// 例: 1415 -> 14.25, 630 -> 6.5, 5 -> 0.0833...
// 输入假定落在[0,2359]，范围外的值结果未定义，本层不做校验与纠正。
func DecodeTimes(df dataframe.DataFrame, cols []string) (dataframe.DataFrame, error) {
	out := df
	for _, col := range cols {
		s := out.Col(col)
		if s.Err != nil {
			return out, &SchemaError{Column: col, Reason: "时刻列不存在"}
		}
		raw := s.Float()
		decoded := make([]float64, len(raw))
		for i, v := range raw {
			hhmm := int(v)
			decoded[i] = float64(hhmm/100) + float64(hhmm%100)/60.0
		}
		out = out.Mutate(series.New(decoded, series.Float, col))
		if out.Err != nil {
			return out, fmt.Errorf("解码时刻列 %s 失败: %w", col, out.Err)
		}
	}
	return out, nil
}

// EncodeCyclical 把周期性列编码为正弦/余弦对，让月末与月初、23点与0点
// 在特征空间里相邻。每个周期列被 <列名>_sin 和 <列名>_cos 两列替换，
// 新列占据原列的位置，其余列顺序不动。
//
// periods 给出各列的周期长度：月=12、星期=7、十进制小时=24。
func EncodeCyclical(df dataframe.DataFrame, periods map[string]float64) (dataframe.DataFrame, error) {
	for col, period := range periods {
		if period <= 0 {
			return df, &ConfigurationError{Field: "cyclical." + col, Reason: "周期长度必须为正数"}
		}
		if !utils.HasColumn(df, col) {
			return df, &SchemaError{Column: col, Reason: "周期列不存在"}
		}
	}
	cols := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		period, ok := periods[name]
		if !ok {
			cols = append(cols, df.Col(name))
			continue
		}
		raw := df.Col(name).Float()
		sin := make([]float64, len(raw))
		cos := make([]float64, len(raw))
		for i, v := range raw {
			angle := 2 * math.Pi * v / period
			sin[i] = math.Sin(angle)
			cos[i] = math.Cos(angle)
		}
		cols = append(cols,
			series.New(sin, series.Float, name+"_sin"),
			series.New(cos, series.Float, name+"_cos"))
	}
	out := dataframe.New(cols...)
	if out.Err != nil {
		return out, fmt.Errorf("周期编码失败: %w", out.Err)
	}
	return out, nil
}
