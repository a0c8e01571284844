package main

import (
	"flag"
	"fmt"
	"log"

	"PredictingDelays/src/storage"
)

// 运维小工具：列出最近的运行记录，核对状态与工件位置
func main() {
	dbPath := flag.String("db", "runs.db", "运行记录库路径")
	limit := flag.Int("n", 10, "显示条数")
	flag.Parse()

	store, err := storage.OpenRunStore(*dbPath)
	if err != nil {
		log.Fatal("打开运行记录库失败:", err)
	}
	defer store.Close()

	runs, err := store.Recent(*limit)
	if err != nil {
		log.Fatal("查询运行记录失败:", err)
	}
	if len(runs) == 0 {
		fmt.Println("没有运行记录")
		return
	}

	for _, r := range runs {
		line := fmt.Sprintf("%s  %-9s  %s  训练%s 验证%s", r.ID, r.Status, r.StartedAt, r.TrainRange, r.ValidRange)
		switch r.Status {
		case "completed":
			line += fmt.Sprintf("  行数%d/%d 准确率%.4f  %s", r.TrainRows, r.ValidRows, r.Accuracy, r.ArtifactDir)
		case "failed":
			line += "  " + r.ErrorMessage
		}
		fmt.Println(line)
	}
}
