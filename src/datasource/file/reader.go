// reader.go
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"

	"PredictingDelays/src/storage"
	"PredictingDelays/src/utils"
)

// Reader 月度航班数据装载器。文件按模板命名放在同一目录下，
// 支持.csv与.xlsx两种格式，读入时按配置的列类型做类型化解析。
type Reader struct {
	Dir       string                 // 数据目录
	Pattern   string                 // 文件名模板，%s处填入YYYYMM
	SheetName string                 // xlsx数据页名，空则取第一页
	Types     map[string]series.Type // 列名 -> 读取类型
	NaN       []string               // 视为缺值的字面量
	Logger    *storage.Logger
}

// Load 并行读取各月份文件，再按月份顺序合并成一张表。
// 任一文件读取失败都让整次装载失败，缺月份不允许静默跳过。
func (r *Reader) Load(months []string) (dataframe.DataFrame, error) {
	if len(months) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("月份列表为空")
	}

	type result struct {
		idx int
		df  dataframe.DataFrame
		err error
	}

	// 1. 每个月份一个goroutine并行读取
	resultChan := make(chan result, len(months))
	for i, month := range months {
		go func(idx int, month string) {
			df, err := r.readMonth(month)
			resultChan <- result{idx: idx, df: df, err: err}
		}(i, month)
	}

	// 2. 收集结果，按提交顺序归位，保证合并顺序与月份顺序一致
	frames := make([]dataframe.DataFrame, len(months))
	for range months {
		res := <-resultChan
		if res.err != nil {
			return dataframe.DataFrame{}, res.err
		}
		frames[res.idx] = res.df
	}

	// 3. 逐月拼接
	combined := frames[0]
	for _, f := range frames[1:] {
		combined = combined.RBind(f)
		if combined.Err != nil {
			return combined, fmt.Errorf("合并月度数据失败: %w", combined.Err)
		}
	}
	r.Logger.Info(fmt.Sprintf("装载完成: %d个月份共%d行", len(months), combined.Nrow()))
	return combined, nil
}

func (r *Reader) readMonth(month string) (dataframe.DataFrame, error) {
	name := fmt.Sprintf(r.Pattern, month)
	path := filepath.Join(r.Dir, name)
	ext := strings.ToLower(filepath.Ext(name))
	if !utils.Contains([]string{".csv", ".xlsx"}, ext) {
		return dataframe.DataFrame{}, fmt.Errorf("不支持的数据文件类型: %s", name)
	}
	if ext == ".xlsx" {
		return r.readXLSX(path)
	}
	return r.readCSV(path)
}

func (r *Reader) readCSV(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("打开 %s 失败: %w", path, err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(r.Types),
		dataframe.NaNValues(r.nanValues()),
	)
	if df.Err != nil {
		return df, fmt.Errorf("解析 %s 失败: %w", path, df.Err)
	}
	return df, nil
}

func (r *Reader) readXLSX(path string) (dataframe.DataFrame, error) {
	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenFile(path)
	if err != nil {
		return dataframe.New(), fmt.Errorf("打开 %s 失败: %w", path, err)
	}

	// 2. 取配置指定的工作表，未配置则取第一个
	var sheet *xlsx.Sheet
	if r.SheetName != "" {
		sheet = xlFile.Sheet[r.SheetName]
		if sheet == nil {
			return dataframe.New(), fmt.Errorf("%s 中没有工作表 %q", path, r.SheetName)
		}
	} else {
		if len(xlFile.Sheets) == 0 {
			return dataframe.New(), fmt.Errorf("%s 中没有工作表", path)
		}
		sheet = xlFile.Sheets[0]
	}

	// 3. 转换为Gota DataFrame后按配置列类型重建
	df := convertSheetToDataFrame(sheet)
	if df.Err != nil {
		return df, fmt.Errorf("转换 %s 失败: %w", path, df.Err)
	}
	df = r.applyTypes(df)
	if df.Err != nil {
		return df, fmt.Errorf("类型化 %s 失败: %w", path, df.Err)
	}
	return df, nil
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
// 第一行为标题行，数据从第二行开始，短行右侧补空
func convertSheetToDataFrame(sheet *xlsx.Sheet) dataframe.DataFrame {
	if len(sheet.Rows) < 2 {
		return dataframe.New()
	}

	// 获取列名
	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.Value)
	}

	// 准备数据列
	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	// 填充数据
	for _, row := range sheet.Rows[1:] {
		for i := range headers {
			value := ""
			if i < len(row.Cells) {
				value = row.Cells[i].Value
			}
			columns[i] = append(columns[i], value)
		}
	}

	// 创建Series切片
	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	return dataframe.New(seriesList...)
}

// applyTypes 按配置把字符串列重建成目标类型，缺值字面量统一转成NA
func (r *Reader) applyTypes(df dataframe.DataFrame) dataframe.DataFrame {
	nan := r.nanValues()
	out := df
	for name, t := range r.Types {
		if !utils.HasColumn(out, name) {
			continue
		}
		values := out.Col(name).Records()
		for i, v := range values {
			if utils.Contains(nan, v) {
				values[i] = "NaN"
			}
		}
		out = out.Mutate(series.New(values, t, name))
		if out.Err != nil {
			return out
		}
	}
	return out
}

func (r *Reader) nanValues() []string {
	if len(r.NaN) > 0 {
		return r.NaN
	}
	return []string{"", "NA", "NaN"}
}
