package pipeline

import (
	"fmt"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// AirportSet 按吞吐量从高到低排序的机场代码集合。
// 只在训练语料上拟合一次，验证与推理阶段原样复用，绝不重新拟合。
type AirportSet struct {
	Codes []string `json:"codes"`
}

func (a AirportSet) Has(code string) bool {
	for _, c := range a.Codes {
		if c == code {
			return true
		}
	}
	return false
}

// CountAirports 统计每个机场作为起飞或到达机场出现的总次数。
// 一个机场的吞吐量 = 它在起飞列出现的次数 + 在到达列出现的次数。
func CountAirports(df dataframe.DataFrame, originCol, destCol string) (map[string]int, error) {
	counts := make(map[string]int)
	for _, col := range []string{originCol, destCol} {
		s := df.Col(col)
		if s.Err != nil {
			return nil, &SchemaError{Column: col, Reason: "机场列不存在"}
		}
		for _, code := range s.Records() {
			if code == "" {
				continue
			}
			counts[code]++
		}
	}
	return counts, nil
}

// MergeAirportCounts 把src的计数累加进dst。
// 加法可交换可结合，分片并行统计后按任意顺序合并结果一致。
func MergeAirportCounts(dst, src map[string]int) {
	for code, n := range src {
		dst[code] += n
	}
}

// TopAirports 取吞吐量前K的机场；吞吐量并列时按机场代码升序，保证结果确定。
// K超过观测到的机场总数属于配置错误，不做静默截断。
func TopAirports(counts map[string]int, k int) (AirportSet, error) {
	if k <= 0 {
		return AirportSet{}, &ConfigurationError{Field: "airport_count", Reason: "机场数必须为正整数"}
	}
	if k > len(counts) {
		return AirportSet{}, &ConfigurationError{
			Field:  "airport_count",
			Reason: fmt.Sprintf("要求%d个机场，但数据中只观测到%d个", k, len(counts)),
		}
	}
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		if counts[codes[i]] != counts[codes[j]] {
			return counts[codes[i]] > counts[codes[j]]
		}
		return codes[i] < codes[j]
	})
	return AirportSet{Codes: codes[:k]}, nil
}

// SelectAirports 在一张表上直接完成统计加取前K
func SelectAirports(df dataframe.DataFrame, originCol, destCol string, k int) (AirportSet, error) {
	counts, err := CountAirports(df, originCol, destCol)
	if err != nil {
		return AirportSet{}, err
	}
	return TopAirports(counts, k)
}

// RestrictToAirports 只保留起飞和到达机场都在集合内的航班行，行序不变
func RestrictToAirports(df dataframe.DataFrame, set AirportSet, originCol, destCol string) (dataframe.DataFrame, error) {
	member := make(map[string]bool, len(set.Codes))
	for _, code := range set.Codes {
		member[code] = true
	}
	out := df
	for _, col := range []string{originCol, destCol} {
		out = out.Filter(dataframe.F{
			Colname:    col,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool { return member[el.String()] },
		})
		if out.Err != nil {
			return out, fmt.Errorf("按机场集合过滤 %s 列失败: %w", col, out.Err)
		}
	}
	return out, nil
}
