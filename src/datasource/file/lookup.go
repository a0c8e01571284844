package file

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// LoadCarrierLookup 读取承运人代码对照表。
// 两列CSV：第一列代码，第二列规范名称，首行可以是表头。
// 重复代码后出现的覆盖先出现的。
func LoadCarrierLookup(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开承运人对照表失败: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("解析承运人对照表失败: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("承运人对照表 %s 为空", path)
	}

	lookup := make(map[string]string, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("承运人对照表第%d行不足两列", i+1)
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "Code") {
			continue // 表头行
		}
		code := strings.TrimSpace(row[0])
		if code == "" {
			continue
		}
		lookup[code] = strings.TrimSpace(row[1])
	}
	return lookup, nil
}
