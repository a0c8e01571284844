package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileMonitorTriggersOnMonthFile(t *testing.T) {
	dir := t.TempDir()
	monitor, err := NewFileMonitor(dir, MonthFileMatcher("%s.csv"))
	if err != nil {
		t.Fatalf("NewFileMonitor: %v", err)
	}
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	triggered := make(chan string, 4)
	go func() {
		_ = monitor.Watch(ctx, func(path string) { triggered <- path })
	}()

	// 非月度文件不应触发
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	// 月度文件应触发
	target := filepath.Join(dir, "201801.csv")
	if err := os.WriteFile(target, []byte("A,B\n1,2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-triggered:
		if filepath.Base(got) != "201801.csv" {
			t.Fatalf("触发文件 = %s", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("月度文件写入未触发回调")
	}

	// 确认notes.txt没有混进来
	select {
	case got := <-triggered:
		if filepath.Base(got) == "notes.txt" {
			t.Fatal("非月度文件不应触发")
		}
	case <-time.After(200 * time.Millisecond):
	}
}
