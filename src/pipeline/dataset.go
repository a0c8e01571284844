package pipeline

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
)

// Dataset 特征矩阵与标签向量，按行下标一一对应。
// 所有按行操作(抽样、过滤)必须对两者施加同一组下标，保证对应关系不被破坏。
type Dataset struct {
	Features dataframe.DataFrame
	Labels   []bool
}

func (d Dataset) Len() int {
	return len(d.Labels)
}

// PositiveRate 正类(延误)标签占比；空数据集返回0
func (d Dataset) PositiveRate() float64 {
	if len(d.Labels) == 0 {
		return 0
	}
	pos := 0
	for _, l := range d.Labels {
		if l {
			pos++
		}
	}
	return float64(pos) / float64(len(d.Labels))
}

// subset 按下标同时截取矩阵行与标签，idx必须是有效行号
func (d Dataset) subset(idx []int) (Dataset, error) {
	sub := d.Features.Subset(idx)
	if sub.Err != nil {
		return Dataset{}, fmt.Errorf("行抽取失败: %w", sub.Err)
	}
	labels := make([]bool, len(idx))
	for i, ix := range idx {
		labels[i] = d.Labels[ix]
	}
	return Dataset{Features: sub, Labels: labels}, nil
}
