package artifact

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"PredictingDelays/src/model"
)

// WriteReport 生成xlsx运行报表：概要页、机场吞吐页、缩放参数页。
// 报表面向人读，工件目录里的JSON才是机器接口。
func WriteReport(path string, b *Bundle, metrics model.Metrics, counts map[string]int) error {
	f := excelize.NewFile()
	defer f.Close()

	// 1. 概要页
	summary := "Sheet1"
	rows := [][]interface{}{
		{"run_id", b.Manifest.RunID},
		{"created_at", b.Manifest.CreatedAt.Format("2006-01-02 15:04:05")},
		{"train_range", b.Manifest.TrainRange},
		{"valid_range", b.Manifest.ValidRange},
		{"train_rows", b.Manifest.TrainRows},
		{"valid_rows", b.Manifest.ValidRows},
		{"train_positive_rate", b.PositiveRate},
		{"valid_accuracy", metrics.Accuracy},
		{"valid_log_loss", metrics.LogLoss},
		{"feature_columns", len(b.Columns)},
		{"airport_count", len(b.Airports.Codes)},
	}
	for rowIdx, row := range rows {
		for colIdx, val := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			f.SetCellValue(summary, cell, val)
		}
	}

	// 2. 机场吞吐页，按拟合时的排名列出
	airportSheet := "机场吞吐量"
	if _, err := f.NewSheet(airportSheet); err != nil {
		return fmt.Errorf("创建工作表失败: %w", err)
	}
	for colIdx, name := range []string{"排名", "机场", "吞吐量"} {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 1)
		f.SetCellValue(airportSheet, cell, name)
	}
	for i, code := range b.Airports.Codes {
		values := []interface{}{i + 1, code, counts[code]}
		for colIdx, val := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, i+2)
			f.SetCellValue(airportSheet, cell, val)
		}
	}

	// 3. 缩放参数页
	scaleSheet := "缩放参数"
	if _, err := f.NewSheet(scaleSheet); err != nil {
		return fmt.Errorf("创建工作表失败: %w", err)
	}
	for colIdx, name := range []string{"列名", "均值", "标准差", "对数"} {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 1)
		f.SetCellValue(scaleSheet, cell, name)
	}
	if b.Scaler != nil {
		for i, cs := range b.Scaler.Columns {
			values := []interface{}{cs.Name, cs.Mean, cs.Std, cs.Log}
			for colIdx, val := range values {
				cell, _ := excelize.CoordinatesToCellName(colIdx+1, i+2)
				f.SetCellValue(scaleSheet, cell, val)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存报表失败: %w", err)
	}
	return nil
}
