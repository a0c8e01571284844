package pipeline

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"PredictingDelays/src/utils"
)

// AlignSchema 把目标矩阵对齐到参考(训练)矩阵的列集合与列序：
// 参考中存在而目标缺失的列补零，目标独有的列整列丢弃，行数不变。
//
// 只出现在验证集里的类别取值会因此被静默丢掉。这是记录在案的取舍：
// 模型对训练期未见过的类别本来就没有对应权重，丢弃和全零编码等价。
func AlignSchema(reference, target dataframe.DataFrame) (dataframe.DataFrame, error) {
	refNames := reference.Names()
	refTypes := reference.Types()
	rows := target.Nrow()
	cols := make([]series.Series, 0, len(refNames))
	for i, name := range refNames {
		if utils.HasColumn(target, name) {
			cols = append(cols, target.Col(name))
			continue
		}
		cols = append(cols, zeroSeries(rows, refTypes[i], name))
	}
	out := dataframe.New(cols...)
	if out.Err != nil {
		return out, fmt.Errorf("模式对齐失败: %w", out.Err)
	}
	return out, nil
}

func zeroSeries(n int, t series.Type, name string) series.Series {
	if t == series.Int {
		return series.New(make([]int, n), series.Int, name)
	}
	return series.New(make([]float64, n), series.Float, name)
}
