package pipeline

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// AirlineNormalizer 把承运人代码改写为航空公司规范名称，并把已并购
// 公司的名称无条件映射到存续公司。
//
// 并购映射不看航班日期：并购完成前的历史航班同样会被改写到存续公司
// 名下。这是有意的简化，代价是并购前的数据有轻微归属误差，换来的是
// 训练与验证集共享同一套类别取值。
type AirlineNormalizer struct {
	Lookup  map[string]string // 承运人代码 -> 规范名称
	Mergers map[string]string // 被并购公司名称 -> 存续公司名称
}

// Apply 原位改写承运人列。查不到的代码置为空串，交给下游的
// DropIncomplete丢弃整行，本层不报错。
func (n AirlineNormalizer) Apply(df dataframe.DataFrame, carrierCol string) (dataframe.DataFrame, error) {
	col := df.Col(carrierCol)
	if col.Err != nil {
		return df, &SchemaError{Column: carrierCol, Reason: "承运人列不存在"}
	}
	codes := col.Records()
	names := make([]string, len(codes))
	for i, code := range codes {
		name := n.Lookup[code]
		if successor, ok := n.Mergers[name]; ok {
			name = successor
		}
		names[i] = name
	}
	out := df.Mutate(series.New(names, series.String, carrierCol))
	if out.Err != nil {
		return out, fmt.Errorf("改写承运人列失败: %w", out.Err)
	}
	return out, nil
}
