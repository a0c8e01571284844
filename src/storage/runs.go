package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// RunStore 训练运行登记库。每次运行一行，状态流转
// running -> completed / failed，保留关键指标与工件位置供排障查询。
type RunStore struct {
	db *sql.DB
}

const runsSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	train_range   TEXT NOT NULL DEFAULT '',
	valid_range   TEXT NOT NULL DEFAULT '',
	train_rows    INTEGER NOT NULL DEFAULT 0,
	valid_rows    INTEGER NOT NULL DEFAULT 0,
	positive_rate REAL NOT NULL DEFAULT 0,
	accuracy      REAL NOT NULL DEFAULT 0,
	artifact_dir  TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	started_at    TEXT NOT NULL,
	finished_at   TEXT NOT NULL DEFAULT ''
);`

// OpenRunStore 打开(必要时初始化)运行登记库
func OpenRunStore(path string) (*RunStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开运行记录库失败: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置WAL模式失败: %w", err)
	}
	if _, err := db.Exec(runsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化runs表失败: %w", err)
	}
	return &RunStore{db: db}, nil
}

func (s *RunStore) Close() error {
	return s.db.Close()
}

// MarkRunning 登记一次新的运行
func (s *RunStore) MarkRunning(id, trainRange, validRange string) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, status, train_range, valid_range, started_at) VALUES (?, 'running', ?, ?, ?)`,
		id, trainRange, validRange, now())
	if err != nil {
		return fmt.Errorf("登记运行 %s 失败: %w", id, err)
	}
	return nil
}

// MarkCompleted 标记运行成功并记录指标
func (s *RunStore) MarkCompleted(id string, trainRows, validRows int, positiveRate, accuracy float64, artifactDir string) error {
	_, err := s.db.Exec(
		`UPDATE runs SET status = 'completed', train_rows = ?, valid_rows = ?,
			positive_rate = ?, accuracy = ?, artifact_dir = ?, finished_at = ?
		 WHERE id = ?`,
		trainRows, validRows, positiveRate, accuracy, artifactDir, now(), id)
	if err != nil {
		return fmt.Errorf("更新运行 %s 状态失败: %w", id, err)
	}
	return nil
}

// MarkFailed 标记运行失败并保留错误信息
func (s *RunStore) MarkFailed(id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := s.db.Exec(
		`UPDATE runs SET status = 'failed', error_message = ?, finished_at = ? WHERE id = ?`,
		msg, now(), id)
	if err != nil {
		return fmt.Errorf("更新运行 %s 状态失败: %w", id, err)
	}
	return nil
}

// Run 登记库里的一行
type Run struct {
	ID           string
	Status       string
	TrainRange   string
	ValidRange   string
	TrainRows    int
	ValidRows    int
	PositiveRate float64
	Accuracy     float64
	ArtifactDir  string
	ErrorMessage string
	StartedAt    string
	FinishedAt   string
}

// Recent 返回最近的若干次运行，新的在前
func (s *RunStore) Recent(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, status, train_range, valid_range, train_rows, valid_rows,
			positive_rate, accuracy, artifact_dir, error_message, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询运行记录失败: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Status, &r.TrainRange, &r.ValidRange,
			&r.TrainRows, &r.ValidRows, &r.PositiveRate, &r.Accuracy,
			&r.ArtifactDir, &r.ErrorMessage, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("读取运行记录失败: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func now() string {
	return time.Now().Format("2006-01-02 15:04:05")
}
