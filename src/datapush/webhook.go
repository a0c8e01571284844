package datapush

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// 常量定义
const (
	REQUEST_TIMEOUT = 10 * time.Second
	RETRY_TIMES     = 5
	RETRY_INTERVAL  = 2 * time.Second
)

// RunSummary 推送给外部系统的运行摘要
type RunSummary struct {
	RunID        string  `json:"run_id"`
	Status       string  `json:"status"`
	TrainRange   string  `json:"train_range"`
	ValidRange   string  `json:"valid_range"`
	TrainRows    int     `json:"train_rows"`
	ValidRows    int     `json:"valid_rows"`
	PositiveRate float64 `json:"positive_rate"`
	Accuracy     float64 `json:"accuracy"`
	ArtifactDir  string  `json:"artifact_dir"`
	Error        string  `json:"error,omitempty"`
	FinishedAt   string  `json:"finished_at"`
}

// PushRunSummary 把运行摘要POST到webhook地址
// url为空表示未配置通知，直接跳过。
func PushRunSummary(url string, summary *RunSummary) error {
	if url == "" {
		return nil
	}

	payloadBytes, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("序列化运行摘要失败: %w", err)
	}

	return retry(func() error {
		return postJSON(url, payloadBytes)
	}, RETRY_TIMES, RETRY_INTERVAL)
}

// postJSON 发送单次JSON推送
func postJSON(url string, payload []byte) error {
	req, err := http.NewRequest("POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: REQUEST_TIMEOUT}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	// 响应体只用于拼错误信息，限长防止对端返回超大内容
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("推送被拒绝: %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	return nil
}

// 重试函数
func retry(fn func() error, times int, interval time.Duration) error {
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < times-1 {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %v", times, err)
}
