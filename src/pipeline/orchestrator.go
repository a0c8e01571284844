package pipeline

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"

	"PredictingDelays/src/storage"
)

// Source 月度源数据装载器，由 datasource/file 实现。
// months 为 "YYYYMM" 形式的月份列表，返回按月序合并后的单张表。
type Source interface {
	Load(months []string) (dataframe.DataFrame, error)
}

// Orchestrator 按固定顺序驱动各个纯转换阶段：
// 装载 -> 清洗 -> 承运人规范化 -> 机场限定 -> 特征构建 -> 时刻解码 ->
// 周期编码 -> 抽样 -> 标准化 -> 模式对齐。
// 单次批处理，任一阶段出错立即终止整个运行，不会留下部分结果。
type Orchestrator struct {
	cfg    Config
	src    Source
	lookup map[string]string // 承运人代码 -> 规范名称
	log    *storage.Logger
}

func NewOrchestrator(cfg Config, src Source, lookup map[string]string, logger *storage.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, src: src, lookup: lookup, log: logger}
}

// Output 一次运行的全部产物：可直接喂给模型的训练/验证对，
// 以及推理时复现同一特征空间所需的全部拟合参数。
type Output struct {
	Train Dataset
	Valid Dataset

	Airports      AirportSet     // 训练语料上拟合的机场集合
	AirportCounts map[string]int // 各机场吞吐量，供报表使用
	Scaler        *Scaler        // 训练矩阵上拟合的缩放参数
	Columns       []string       // 训练矩阵的权威列序
	PositiveRate  float64        // 抽样后训练集的正类占比
}

// Run 执行一次完整的特征工程流水线
func (o *Orchestrator) Run(trainMonths, validMonths []string) (*Output, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	// 1. 装载并清洗训练语料
	o.log.Info(fmt.Sprintf("开始装载训练数据，共%d个月份", len(trainMonths)))
	trainDF, err := o.prepare(trainMonths)
	if err != nil {
		return nil, fmt.Errorf("准备训练数据失败: %w", err)
	}

	// 2. 在训练语料上拟合机场集合，然后把航班限定在集合内
	counts, err := CountAirports(trainDF, o.cfg.OriginColumn, o.cfg.DestColumn)
	if err != nil {
		return nil, err
	}
	airports, err := TopAirports(counts, o.cfg.AirportCount)
	if err != nil {
		return nil, err
	}
	o.log.Info(fmt.Sprintf("选出最繁忙的%d个机场，吞吐量第一为 %s", len(airports.Codes), airports.Codes[0]))
	trainDF, err = RestrictToAirports(trainDF, airports, o.cfg.OriginColumn, o.cfg.DestColumn)
	if err != nil {
		return nil, err
	}

	// 3. 构建训练特征矩阵
	train, err := o.buildMatrix(trainDF)
	if err != nil {
		return nil, fmt.Errorf("构建训练特征失败: %w", err)
	}

	// 4. 抽样缩减训练集，类均衡模式用于缓解延误样本偏少的问题
	if o.cfg.Imbalanced {
		train, err = SampleBalanced(train, o.cfg.SampleFraction, o.cfg.Seed)
	} else {
		train, err = SampleUniform(train, o.cfg.SampleFraction, o.cfg.Seed)
	}
	if err != nil {
		return nil, err
	}
	if train.Len() == 0 {
		return nil, fmt.Errorf("抽样后训练集为空")
	}
	o.log.Info(fmt.Sprintf("训练集%d行，正类占比%.4f", train.Len(), train.PositiveRate()))

	// 5. 在抽样后的训练矩阵上拟合缩放参数并就地应用
	scaler, err := FitScaler(train.Features, o.cfg.Normalize, o.cfg.LogScale)
	if err != nil {
		return nil, err
	}
	train.Features, err = scaler.Transform(train.Features)
	if err != nil {
		return nil, err
	}
	columns := train.Features.Names()

	// 6. 验证语料走同一条路径，但机场集合与缩放参数只复用不重拟合
	o.log.Info(fmt.Sprintf("开始装载验证数据，共%d个月份", len(validMonths)))
	validDF, err := o.prepare(validMonths)
	if err != nil {
		return nil, fmt.Errorf("准备验证数据失败: %w", err)
	}
	validDF, err = RestrictToAirports(validDF, airports, o.cfg.OriginColumn, o.cfg.DestColumn)
	if err != nil {
		return nil, err
	}
	valid, err := o.buildMatrix(validDF)
	if err != nil {
		return nil, fmt.Errorf("构建验证特征失败: %w", err)
	}

	// 7. 对齐到训练列序后应用训练期缩放参数
	valid.Features, err = AlignSchema(train.Features, valid.Features)
	if err != nil {
		return nil, err
	}
	valid.Features, err = scaler.Transform(valid.Features)
	if err != nil {
		return nil, err
	}
	o.log.Info(fmt.Sprintf("验证集%d行，正类占比%.4f", valid.Len(), valid.PositiveRate()))

	return &Output{
		Train:         train,
		Valid:         valid,
		Airports:      airports,
		AirportCounts: counts,
		Scaler:        scaler,
		Columns:       columns,
		PositiveRate:  train.PositiveRate(),
	}, nil
}

// prepare 装载月度文件并做行级清洗：先丢必填列缺值的行，再做承运人
// 规范化，规范化产生的空名称行随即丢弃。
func (o *Orchestrator) prepare(months []string) (dataframe.DataFrame, error) {
	df, err := o.src.Load(months)
	if err != nil {
		return df, err
	}
	df, err = DropIncomplete(df, o.cfg.RequiredColumns())
	if err != nil {
		return df, err
	}
	normalizer := AirlineNormalizer{Lookup: o.lookup, Mergers: o.cfg.Mergers}
	df, err = normalizer.Apply(df, o.cfg.CarrierColumn)
	if err != nil {
		return df, err
	}
	df, err = DropIncomplete(df, []string{o.cfg.CarrierColumn})
	if err != nil {
		return df, err
	}
	if df.Nrow() == 0 {
		return df, fmt.Errorf("清洗后没有剩余数据行")
	}
	return df, nil
}

// buildMatrix 选列、one-hot、打标签，然后解码时刻列并做周期编码
func (o *Orchestrator) buildMatrix(df dataframe.DataFrame) (Dataset, error) {
	ds, err := BuildFeatures(df, o.cfg)
	if err != nil {
		return Dataset{}, err
	}
	ds.Features, err = DecodeTimes(ds.Features, o.cfg.HourColumns)
	if err != nil {
		return Dataset{}, err
	}
	ds.Features, err = EncodeCyclical(ds.Features, o.cfg.Cyclical)
	if err != nil {
		return Dataset{}, err
	}
	return ds, nil
}
