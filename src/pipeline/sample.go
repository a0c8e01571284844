package pipeline

import (
	"math/rand"
	"sort"
)

// 抽样只用于缩减训练集，验证集永远全量使用。
// 随机源由配置中的种子决定，同一份配置跑两次产出完全相同的子集。

// SampleUniform 不放回均匀抽样 floor(n*fraction) 行，保持原有行序。
// fraction为1时返回逐行相同的拷贝，特征与标签仍然按下标一一对应。
func SampleUniform(ds Dataset, fraction float64, seed int64) (Dataset, error) {
	if err := checkFraction(fraction); err != nil {
		return Dataset{}, err
	}
	n := ds.Len()
	if fraction == 1 {
		return Dataset{
			Features: ds.Features.Copy(),
			Labels:   append([]bool(nil), ds.Labels...),
		}, nil
	}
	k := int(float64(n) * fraction)
	rng := rand.New(rand.NewSource(seed))
	idx := rng.Perm(n)[:k]
	sort.Ints(idx)
	return ds.subset(idx)
}

// SampleBalanced 类均衡抽样：目标总行数 floor(n*fraction)，正负类各取
// 一半；某一类行数不足一半时按该类现有行数全取，不报错也不用另一类补齐。
// 输出先排正类行再排负类行，各类内部保持原有行序。
func SampleBalanced(ds Dataset, fraction float64, seed int64) (Dataset, error) {
	if err := checkFraction(fraction); err != nil {
		return Dataset{}, err
	}
	var pos, neg []int
	for i, label := range ds.Labels {
		if label {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	half := int(float64(ds.Len())*fraction) / 2
	rng := rand.New(rand.NewSource(seed))
	idx := drawClass(rng, pos, half)
	idx = append(idx, drawClass(rng, neg, half)...)
	return ds.subset(idx)
}

// drawClass 从一个类的行号中不放回抽取want个，类内行序保持升序
func drawClass(rng *rand.Rand, idx []int, want int) []int {
	if want >= len(idx) {
		return append([]int(nil), idx...)
	}
	picked := rng.Perm(len(idx))[:want]
	sort.Ints(picked)
	out := make([]int, want)
	for i, p := range picked {
		out[i] = idx[p]
	}
	return out
}

func checkFraction(fraction float64) error {
	if fraction <= 0 || fraction > 1 {
		return &ConfigurationError{Field: "sample_fraction", Reason: "抽样比例必须在(0,1]区间内"}
	}
	return nil
}
