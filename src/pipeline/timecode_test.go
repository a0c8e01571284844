package pipeline

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func TestDecodeTimes(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{1415, 630, 0, 5, 2359}, series.Float, "DEP_TIME"),
	)
	out, err := DecodeTimes(df, []string{"DEP_TIME"})
	if err != nil {
		t.Fatalf("DecodeTimes: %v", err)
	}
	got := out.Col("DEP_TIME").Float()
	want := []float64{14.25, 6.5, 0, 5.0 / 60.0, 23 + 59.0/60.0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("第%d个值 = %v, 期望 %v", i, got[i], want[i])
		}
	}

	_, err = DecodeTimes(df, []string{"ARR_TIME"})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Errorf("缺列期望SchemaError, 实际 %v", err)
	}
}

func TestEncodeCyclicalMonths(t *testing.T) {
	months := make([]float64, 12)
	for i := range months {
		months[i] = float64(i + 1)
	}
	df := dataframe.New(series.New(months, series.Float, "MONTH"))

	out, err := EncodeCyclical(df, map[string]float64{"MONTH": 12})
	if err != nil {
		t.Fatalf("EncodeCyclical: %v", err)
	}
	if !reflect.DeepEqual(out.Names(), []string{"MONTH_sin", "MONTH_cos"}) {
		t.Fatalf("列 = %v", out.Names())
	}

	sin := out.Col("MONTH_sin").Float()
	cos := out.Col("MONTH_cos").Float()

	// 12个月必须映射到单位圆上12个互不相同的点
	for i := 0; i < 12; i++ {
		if r := sin[i]*sin[i] + cos[i]*cos[i]; math.Abs(r-1) > 1e-9 {
			t.Errorf("月份%d不在单位圆上: %v", i+1, r)
		}
		for j := i + 1; j < 12; j++ {
			if math.Abs(sin[i]-sin[j]) < 1e-9 && math.Abs(cos[i]-cos[j]) < 1e-9 {
				t.Errorf("月份%d与%d映射到同一点", i+1, j+1)
			}
		}
	}

	// 12月与1月的距离应当等于相邻月份的距离(周期闭合)
	dist := func(i, j int) float64 {
		return math.Hypot(sin[i]-sin[j], cos[i]-cos[j])
	}
	if math.Abs(dist(11, 0)-dist(0, 1)) > 1e-9 {
		t.Errorf("12月-1月距离 %v != 1月-2月距离 %v", dist(11, 0), dist(0, 1))
	}
}

func TestEncodeCyclicalRecoversAngle(t *testing.T) {
	const period = 12.0
	vals := make([]float64, 12)
	for i := range vals {
		vals[i] = float64(i)
	}
	df := dataframe.New(series.New(vals, series.Float, "MONTH"))
	out, err := EncodeCyclical(df, map[string]float64{"MONTH": period})
	if err != nil {
		t.Fatalf("EncodeCyclical: %v", err)
	}

	sin := out.Col("MONTH_sin").Float()
	cos := out.Col("MONTH_cos").Float()
	// [0,周期)内的取值经atan2应能还原出原始角度
	for i, v := range vals {
		got := math.Atan2(sin[i], cos[i])
		if got < 0 {
			got += 2 * math.Pi
		}
		want := 2 * math.Pi * v / period
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("取值%v还原角度 = %v, 期望 %v", v, got, want)
		}
	}
}

func TestEncodeCyclicalKeepsColumnPosition(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{1, 2}, series.Float, "A"),
		series.New([]float64{3, 6}, series.Float, "MONTH"),
		series.New([]float64{5, 6}, series.Float, "B"),
	)
	out, err := EncodeCyclical(df, map[string]float64{"MONTH": 12})
	if err != nil {
		t.Fatalf("EncodeCyclical: %v", err)
	}
	want := []string{"A", "MONTH_sin", "MONTH_cos", "B"}
	if !reflect.DeepEqual(out.Names(), want) {
		t.Fatalf("列序 = %v, 期望 %v", out.Names(), want)
	}
}

func TestEncodeCyclicalBadPeriod(t *testing.T) {
	df := dataframe.New(series.New([]float64{1}, series.Float, "MONTH"))
	_, err := EncodeCyclical(df, map[string]float64{"MONTH": 0})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("期望ConfigurationError, 实际 %v", err)
	}
}
