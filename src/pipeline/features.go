package pipeline

import (
	"fmt"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"PredictingDelays/src/utils"
)

// DropIncomplete 丢弃任一必填列取值缺失(NA或空串)的行。
// 源数据中的缺值在读入时已统一成NA，承运人规范化产生的空串也在这里清掉。
func DropIncomplete(df dataframe.DataFrame, cols []string) (dataframe.DataFrame, error) {
	out := df
	for _, col := range cols {
		if !utils.HasColumn(out, col) {
			return out, &SchemaError{Column: col, Reason: "必填列不存在"}
		}
		out = out.Filter(dataframe.F{
			Colname:    col,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool { return !el.IsNA() && el.String() != "" },
		})
		if out.Err != nil {
			return out, fmt.Errorf("清洗 %s 列缺值行失败: %w", col, out.Err)
		}
	}
	return out, nil
}

// BuildFeatures 从清洗后的源表构建特征矩阵与标签向量：
// 1. 按配置顺序选取预测列，缺列立即报SchemaError
// 2. 类别列做one-hot展开，指示列命名为 <源列>_<取值>，取值按字典序排列
// 3. 连续列原值通过，不在此处变换
// 4. 标签 = 到达延误分钟数 >= 阈值，行序与输入保持一致
//
// one-hot只展开本表中观测到的取值，模式差异交给AlignSchema处理。
func BuildFeatures(df dataframe.DataFrame, cfg Config) (Dataset, error) {
	for _, col := range cfg.RequiredColumns() {
		if !utils.HasColumn(df, col) {
			return Dataset{}, &SchemaError{Column: col, Reason: "预测列或标签列在输入表中不存在"}
		}
	}

	catSet := make(map[string]bool, len(cfg.Categoricals))
	for _, col := range cfg.Categoricals {
		catSet[col] = true
	}

	cols := make([]series.Series, 0, len(cfg.Predictors))
	for _, p := range cfg.Predictors {
		src := df.Col(p)
		if !catSet[p] {
			cols = append(cols, series.New(src.Float(), series.Float, p))
			continue
		}
		values := src.Records()
		for _, v := range distinctSorted(values) {
			indicator := make([]int, len(values))
			for i, observed := range values {
				if observed == v {
					indicator[i] = 1
				}
			}
			cols = append(cols, series.New(indicator, series.Int, p+"_"+v))
		}
	}

	delays := df.Col(cfg.LabelColumn).Float()
	labels := make([]bool, len(delays))
	for i, d := range delays {
		labels[i] = d >= cfg.DelayThreshold
	}

	out := dataframe.New(cols...)
	if out.Err != nil {
		return Dataset{}, fmt.Errorf("特征矩阵构建失败: %w", out.Err)
	}
	return Dataset{Features: out, Labels: labels}, nil
}

func distinctSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	distinct := make([]string, 0)
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			distinct = append(distinct, v)
		}
	}
	sort.Strings(distinct)
	return distinct
}
