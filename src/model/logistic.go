package model

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"

	"PredictingDelays/src/pipeline"
)

// LogisticModel 二分类逻辑回归模型。
// Columns记录训练时的列序，推理输入必须先对齐到同一列序。
type LogisticModel struct {
	Columns []string  `json:"columns"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Metrics 验证集上的评估结果
type Metrics struct {
	Rows         int     `json:"rows"`
	Accuracy     float64 `json:"accuracy"`      // 0.5判定阈值下的准确率
	LogLoss      float64 `json:"log_loss"`      // 平均二元交叉熵
	PositiveRate float64 `json:"positive_rate"` // 预测为正类的占比
}

// Train 全量梯度下降训练逻辑回归。权重零初始化，因此结果完全确定，
// 同一训练集训练两次得到同一组权重。
func Train(ds pipeline.Dataset, epochs int, learningRate float64) (*LogisticModel, error) {
	n := ds.Len()
	if n == 0 {
		return nil, fmt.Errorf("训练集为空")
	}
	if epochs <= 0 || learningRate <= 0 {
		return nil, fmt.Errorf("训练轮数与学习率必须为正: epochs=%d lr=%v", epochs, learningRate)
	}

	columns := ds.Features.Names()
	d := len(columns)
	x := matrixFromFrame(ds.Features)
	y := make([]float64, n)
	for i, label := range ds.Labels {
		if label {
			y[i] = 1
		}
	}

	w := mat.NewVecDense(d, nil)
	grad := mat.NewVecDense(d, nil)
	logits := mat.NewVecDense(n, nil)
	resid := mat.NewVecDense(n, nil)
	bias := 0.0

	for epoch := 0; epoch < epochs; epoch++ {
		// 1. 前向: p = sigmoid(Xw + b)，残差 p - y
		logits.MulVec(x, w)
		for i := 0; i < n; i++ {
			p := sigmoid(logits.AtVec(i) + bias)
			resid.SetVec(i, p-y[i])
		}
		// 2. 梯度: Xᵀ(p-y)/n，同步更新权重与截距
		grad.MulVec(x.T(), resid)
		w.AddScaledVec(w, -learningRate/float64(n), grad)
		bias -= learningRate * mat.Sum(resid) / float64(n)
	}

	weights := make([]float64, d)
	copy(weights, w.RawVector().Data)
	return &LogisticModel{Columns: columns, Weights: weights, Bias: bias}, nil
}

// Predict 对已对齐的特征矩阵输出延误概率。
// 列序必须与训练时完全一致，这里只做核对不做重排。
func (m *LogisticModel) Predict(df dataframe.DataFrame) ([]float64, error) {
	if !reflect.DeepEqual(df.Names(), m.Columns) {
		return nil, fmt.Errorf("特征列与训练列序不一致: %v", df.Names())
	}
	if df.Nrow() == 0 {
		return nil, fmt.Errorf("输入矩阵为空")
	}
	x := matrixFromFrame(df)
	n, _ := x.Dims()
	w := mat.NewVecDense(len(m.Weights), m.Weights)
	logits := mat.NewVecDense(n, nil)
	logits.MulVec(x, w)

	probs := make([]float64, n)
	for i := range probs {
		probs[i] = sigmoid(logits.AtVec(i) + m.Bias)
	}
	return probs, nil
}

// Evaluate 在带标签的数据集上计算准确率与平均交叉熵
func (m *LogisticModel) Evaluate(ds pipeline.Dataset) (Metrics, error) {
	probs, err := m.Predict(ds.Features)
	if err != nil {
		return Metrics{}, err
	}
	if len(probs) == 0 {
		return Metrics{}, fmt.Errorf("评估集为空")
	}

	correct, predictedPos := 0, 0
	loss := 0.0
	for i, p := range probs {
		predicted := p >= 0.5
		if predicted {
			predictedPos++
		}
		if predicted == ds.Labels[i] {
			correct++
		}
		yi := 0.0
		if ds.Labels[i] {
			yi = 1
		}
		pc := clampProb(p)
		loss += -(yi*math.Log(pc) + (1-yi)*math.Log(1-pc))
	}
	n := float64(len(probs))
	return Metrics{
		Rows:         len(probs),
		Accuracy:     float64(correct) / n,
		LogLoss:      loss / n,
		PositiveRate: float64(predictedPos) / n,
	}, nil
}

// matrixFromFrame 列主序取数转成gonum稠密矩阵
func matrixFromFrame(df dataframe.DataFrame) *mat.Dense {
	rows, cols := df.Dims()
	data := make([]float64, rows*cols)
	for j, name := range df.Names() {
		col := df.Col(name).Float()
		for i, v := range col {
			data[i*cols+j] = v
		}
	}
	return mat.NewDense(rows, cols, data)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func clampProb(p float64) float64 {
	const eps = 1e-12
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}
