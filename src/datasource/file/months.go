package file

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ExpandMonthRange 把 "YYYYMM..YYYYMM" 区间展开为逐月的 "YYYYMM" 列表，
// 两端都包含。例: "201801..201803" -> ["201801" "201802" "201803"]
func ExpandMonthRange(expr string) ([]string, error) {
	parts := strings.Split(expr, "..")
	if len(parts) != 2 {
		return nil, fmt.Errorf("月份区间 %q 格式应为 YYYYMM..YYYYMM", expr)
	}
	start, err := time.Parse("200601", strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("起始月份无效: %w", err)
	}
	end, err := time.Parse("200601", strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("结束月份无效: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("月份区间 %q 的结束月早于起始月", expr)
	}

	var months []string
	for t := start; !t.After(end); t = t.AddDate(0, 1, 0) {
		months = append(months, t.Format("200601"))
	}
	return months, nil
}

// MonthFileMatcher 由文件名模板生成匹配函数，模板中%s处要求6位月份数字。
// watch模式用它过滤目录事件，只有月度数据文件会触发重跑。
func MonthFileMatcher(pattern string) func(name string) bool {
	re := regexp.MustCompile("^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), "%s", `\d{6}`) + "$")
	return func(name string) bool {
		return re.MatchString(filepath.Base(name))
	}
}
