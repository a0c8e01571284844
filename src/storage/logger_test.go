package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerWritesEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	logger.Info("任务开始")
	logger.Error("出错了")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "INFO: 任务开始") {
		t.Errorf("缺少INFO条目: %q", content)
	}
	if !strings.Contains(content, "ERROR: 出错了") {
		t.Errorf("缺少ERROR条目: %q", content)
	}
}

func TestLoggerSubscribe(t *testing.T) {
	logger, err := NewLogger(filepath.Join(t.TempDir(), "app.log"))
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	ch := logger.Subscribe()
	logger.Warning("注意")

	select {
	case entry := <-ch:
		if !strings.Contains(entry, "WARNING: 注意") {
			t.Errorf("订阅收到 %q", entry)
		}
	case <-time.After(time.Second):
		t.Fatal("订阅者未收到日志")
	}
}

func TestLoggerRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	for i := 0; i < 10; i++ {
		logger.Info("填充日志内容直到超过轮转阈值")
	}
	// 阈值1字节，必然触发轮转
	logger.CheckRotate("1")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	rotated := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "app.log.") {
			rotated = true
		}
	}
	if !rotated {
		t.Fatal("未发现轮转出的日志文件")
	}

	// 轮转后继续可写
	logger.Info("轮转之后")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "轮转之后") {
		t.Error("轮转后的新文件不可写")
	}
}

func TestEval(t *testing.T) {
	if got := eval("10 * 1024 * 1024"); got != 10*1024*1024 {
		t.Errorf("eval = %d", got)
	}
	if got := eval("2048"); got != 2048 {
		t.Errorf("eval = %d", got)
	}
}
