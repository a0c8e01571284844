package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"PredictingDelays/src/artifact"
	"PredictingDelays/src/config"
	"PredictingDelays/src/datapush"
	"PredictingDelays/src/datasource/email"
	"PredictingDelays/src/datasource/file"
	"PredictingDelays/src/model"
	"PredictingDelays/src/pipeline"
	"PredictingDelays/src/storage"
)

// executeRun 执行一次完整批处理：取数、特征工程、训练、评估、
// 落盘工件并向外通知结果。每次运行有独立的run id与工件目录。
func executeRun(cfg *config.Config, pcfg *pipeline.Config, logger *storage.Logger, store *storage.RunStore) error {
	defer logger.CheckRotate(cfg.LogMaxSize)

	runID := "run-" + uuid.NewString()
	t1 := time.Now()
	logger.Info(fmt.Sprintf("开始运行%s: 训练%s 验证%s", runID, cfg.TrainRange, cfg.ValidRange))

	if err := store.MarkRunning(runID, cfg.TrainRange, cfg.ValidRange); err != nil {
		return fmt.Errorf("登记运行失败: %w", err)
	}

	out, metrics, artifactDir, err := runPipeline(cfg, pcfg, logger, runID)
	if err != nil {
		logger.Error(fmt.Sprintf("运行%s失败: %v", runID, err))
		if dbErr := store.MarkFailed(runID, err); dbErr != nil {
			logger.Error("记录失败状态出错: " + dbErr.Error())
		}
		pushSummary(cfg, logger, &datapush.RunSummary{
			RunID:      runID,
			Status:     "failed",
			TrainRange: cfg.TrainRange,
			ValidRange: cfg.ValidRange,
			Error:      err.Error(),
			FinishedAt: time.Now().Format("2006-01-02 15:04:05"),
		})
		return err
	}

	if err := store.MarkCompleted(runID, out.Train.Len(), out.Valid.Len(), out.PositiveRate, metrics.Accuracy, artifactDir); err != nil {
		logger.Error("记录完成状态出错: " + err.Error())
	}

	pushSummary(cfg, logger, &datapush.RunSummary{
		RunID:        runID,
		Status:       "completed",
		TrainRange:   cfg.TrainRange,
		ValidRange:   cfg.ValidRange,
		TrainRows:    out.Train.Len(),
		ValidRows:    out.Valid.Len(),
		PositiveRate: out.PositiveRate,
		Accuracy:     metrics.Accuracy,
		ArtifactDir:  artifactDir,
		FinishedAt:   time.Now().Format("2006-01-02 15:04:05"),
	})

	mailReport(cfg, logger, runID, metrics, filepath.Join(artifactDir, artifact.ReportFile))

	logger.Info(fmt.Sprintf("运行%s完成: 验证准确率%.4f，耗时%v", runID, metrics.Accuracy, time.Since(t1)))
	return nil
}

// runPipeline 数据到工件的主链路
func runPipeline(cfg *config.Config, pcfg *pipeline.Config, logger *storage.Logger, runID string) (*pipeline.Output, model.Metrics, string, error) {
	// 1. 邮箱取数(可选)，失败不阻塞本地已有数据的运行
	if cfg.Email.Server != "" {
		fetcher := email.NewFetcher(cfg.Email.Server, cfg.Email.Username, cfg.Email.Password)
		saver := email.NewAttachmentSaver(cfg.Email.TargetSubject, cfg.DataDir, file.MonthFileMatcher(cfg.FilePattern))
		if _, err := email.CheckAndFetch(fetcher, saver, logger); err != nil {
			logger.Warning("邮箱取数失败: " + err.Error())
		}
	}

	// 2. 解析月份区间
	trainMonths, err := file.ExpandMonthRange(cfg.TrainRange)
	if err != nil {
		return nil, model.Metrics{}, "", fmt.Errorf("训练区间无效: %w", err)
	}
	validMonths, err := file.ExpandMonthRange(cfg.ValidRange)
	if err != nil {
		return nil, model.Metrics{}, "", fmt.Errorf("验证区间无效: %w", err)
	}

	// 3. 承运人代码对照表
	lookup, err := file.LoadCarrierLookup(cfg.LookupPath)
	if err != nil {
		return nil, model.Metrics{}, "", err
	}

	// 4. 特征工程
	reader := &file.Reader{
		Dir:       cfg.DataDir,
		Pattern:   cfg.FilePattern,
		SheetName: cfg.SheetName,
		Types:     pcfg.ColumnTypes(),
		Logger:    logger,
	}
	orch := pipeline.NewOrchestrator(*pcfg, reader, lookup, logger)
	out, err := orch.Run(trainMonths, validMonths)
	if err != nil {
		return nil, model.Metrics{}, "", err
	}

	// 5. 训练与评估
	mdl, err := model.Train(out.Train, cfg.Epochs, cfg.LearningRate)
	if err != nil {
		return nil, model.Metrics{}, "", err
	}
	metrics, err := mdl.Evaluate(out.Valid)
	if err != nil {
		return nil, model.Metrics{}, "", err
	}

	// 6. 落盘工件与报表
	bundle := &artifact.Bundle{
		Manifest: artifact.Manifest{
			RunID:      runID,
			CreatedAt:  time.Now(),
			TrainRange: cfg.TrainRange,
			ValidRange: cfg.ValidRange,
			TrainRows:  out.Train.Len(),
			ValidRows:  out.Valid.Len(),
			Accuracy:   metrics.Accuracy,
		},
		Columns:      out.Columns,
		Airports:     out.Airports,
		Scaler:       out.Scaler,
		Pipeline:     *pcfg,
		PositiveRate: out.PositiveRate,
		Model:        mdl,
	}
	dir := filepath.Join(cfg.ArtifactsDir, runID)
	if err := artifact.Save(dir, bundle); err != nil {
		return nil, model.Metrics{}, "", err
	}
	if err := artifact.WriteReport(filepath.Join(dir, artifact.ReportFile), bundle, metrics, out.AirportCounts); err != nil {
		return nil, model.Metrics{}, "", err
	}

	return out, metrics, dir, nil
}

// pushSummary 推送运行摘要，通知失败只记日志不影响运行结果
func pushSummary(cfg *config.Config, logger *storage.Logger, summary *datapush.RunSummary) {
	if err := datapush.PushRunSummary(cfg.Webhook, summary); err != nil {
		logger.Error("推送运行摘要失败: " + err.Error())
	}
}

// mailReport 把运行报表发给配置的收件人，未配置发信账号时跳过
func mailReport(cfg *config.Config, logger *storage.Logger, runID string, metrics model.Metrics, reportPath string) {
	if cfg.SendEmail.Server == "" || cfg.SendEmail.To == "" {
		return
	}
	subject := fmt.Sprintf("航班延误模型运行报告 %s", runID)
	body := fmt.Sprintf("训练区间: %s\n验证区间: %s\n验证集准确率: %.4f\n平均交叉熵: %.4f\n",
		cfg.TrainRange, cfg.ValidRange, metrics.Accuracy, metrics.LogLoss)
	if err := email.SendReport(cfg, subject, body, []string{reportPath}); err != nil {
		logger.Error("发送报表邮件失败: " + err.Error())
	}
}
