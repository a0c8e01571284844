package pipeline

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 构造测试用源表，第一行为列名
func testFrame(records [][]string, types map[string]series.Type) dataframe.DataFrame {
	return dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
	)
}

func testConfig() Config {
	return Config{
		Predictors:     []string{"MONTH", "CARRIER", "ELAPSED"},
		Categoricals:   []string{"CARRIER"},
		Cyclical:       map[string]float64{"MONTH": 12},
		Normalize:      []string{"ELAPSED"},
		CarrierColumn:  "CARRIER",
		OriginColumn:   "ORIGIN",
		DestColumn:     "DEST",
		LabelColumn:    "DELAY",
		DelayThreshold: 15,
		AirportCount:   1,
		SampleFraction: 1,
		Seed:           1,
	}
}

func TestBuildFeaturesOneHot(t *testing.T) {
	df := testFrame([][]string{
		{"MONTH", "CARRIER", "ELAPSED", "DELAY"},
		{"1", "DL", "100", "30"},
		{"2", "AA", "110", "0"},
		{"3", "DL", "120", "15"},
	}, map[string]series.Type{"MONTH": series.Float, "ELAPSED": series.Float, "DELAY": series.Float})

	ds, err := BuildFeatures(df, testConfig())
	if err != nil {
		t.Fatalf("BuildFeatures: %v", err)
	}

	// 类别列展开为 <源列>_<取值>，取值按字典序；连续列原样保留
	wantCols := []string{"MONTH", "CARRIER_AA", "CARRIER_DL", "ELAPSED"}
	if !reflect.DeepEqual(ds.Features.Names(), wantCols) {
		t.Fatalf("列序 = %v, 期望 %v", ds.Features.Names(), wantCols)
	}
	if ds.Features.Nrow() != 3 {
		t.Fatalf("行数 = %d, 期望 3", ds.Features.Nrow())
	}

	// 指示列每行恰好一个1
	aa := ds.Features.Col("CARRIER_AA").Float()
	dl := ds.Features.Col("CARRIER_DL").Float()
	wantAA := []float64{0, 1, 0}
	wantDL := []float64{1, 0, 1}
	for i := range wantAA {
		if aa[i] != wantAA[i] || dl[i] != wantDL[i] {
			t.Errorf("第%d行指示值 AA=%v DL=%v", i, aa[i], dl[i])
		}
	}
}

func TestBuildFeaturesLabelThreshold(t *testing.T) {
	df := testFrame([][]string{
		{"MONTH", "CARRIER", "ELAPSED", "DELAY"},
		{"1", "DL", "100", "14.9"},
		{"1", "DL", "100", "15"},
		{"1", "DL", "100", "15.1"},
		{"1", "DL", "100", "-5"},
	}, map[string]series.Type{"MONTH": series.Float, "ELAPSED": series.Float, "DELAY": series.Float})

	ds, err := BuildFeatures(df, testConfig())
	if err != nil {
		t.Fatalf("BuildFeatures: %v", err)
	}
	// 阈值本身算作延误(>=)
	want := []bool{false, true, true, false}
	if !reflect.DeepEqual(ds.Labels, want) {
		t.Fatalf("标签 = %v, 期望 %v", ds.Labels, want)
	}
}

func TestBuildFeaturesMissingColumn(t *testing.T) {
	df := testFrame([][]string{
		{"MONTH", "ELAPSED", "DELAY"},
		{"1", "100", "0"},
	}, map[string]series.Type{"MONTH": series.Float, "ELAPSED": series.Float, "DELAY": series.Float})

	_, err := BuildFeatures(df, testConfig())
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("期望SchemaError, 实际 %v", err)
	}
	if schemaErr.Column != "CARRIER" {
		t.Errorf("出错列 = %q, 期望 CARRIER", schemaErr.Column)
	}
}

func TestDropIncomplete(t *testing.T) {
	df := testFrame([][]string{
		{"CARRIER", "DELAY"},
		{"DL", "30"},
		{"", "30"},   // 空串
		{"AA", "NA"}, // 缺值
		{"UA", "0"},
	}, map[string]series.Type{"DELAY": series.Float})

	out, err := DropIncomplete(df, []string{"CARRIER", "DELAY"})
	if err != nil {
		t.Fatalf("DropIncomplete: %v", err)
	}
	if out.Nrow() != 2 {
		t.Fatalf("行数 = %d, 期望 2", out.Nrow())
	}
	carriers := out.Col("CARRIER").Records()
	if !reflect.DeepEqual(carriers, []string{"DL", "UA"}) {
		t.Errorf("剩余行 = %v", carriers)
	}

	_, err = DropIncomplete(df, []string{"NO_SUCH"})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("缺列期望SchemaError, 实际 %v", err)
	}
}
