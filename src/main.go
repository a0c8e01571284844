package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron"

	"PredictingDelays/src/config"
	"PredictingDelays/src/datasource/email"
	"PredictingDelays/src/datasource/file"
	"PredictingDelays/src/pipeline"
	"PredictingDelays/src/storage"
)

func main() {
	configDir := flag.String("config", "./config", "配置文件目录")
	mode := flag.String("mode", "run", "运行模式: run|watch|schedule")
	flag.Parse()

	// .env中的密码类环境变量优先于配置文件里的明文
	_ = godotenv.Load()

	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, pcfg, err := config.LoadConfig(*configDir, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Close()

	// 日志回显到控制台
	go echoLogs(logger)

	// SIGHUP触发日志重开，配合外部归档工具
	go handleSighup(logger, cfg.LogName)

	store, err := storage.OpenRunStore(cfg.RunDBPath)
	if err != nil {
		log.Fatal("打开运行记录库失败:", err)
	}
	defer store.Close()

	switch *mode {
	case "run":
		if err := executeRun(cfg, pcfg, logger, store); err != nil {
			os.Exit(1)
		}
	case "watch":
		go startWebUI(logger)
		watchMode(cfg, pcfg, logger, store)
	case "schedule":
		go startWebUI(logger)
		scheduleMode(cfg, pcfg, logger, store)
	default:
		log.Fatalf("未知模式: %s", *mode)
	}
}

// watchMode 监视数据目录，新月度文件落盘后自动触发一次运行
func watchMode(cfg *config.Config, pcfg *pipeline.Config, logger *storage.Logger, store *storage.RunStore) {
	monitor, err := file.NewFileMonitor(cfg.DataDir, file.MonthFileMatcher(cfg.FilePattern))
	if err != nil {
		logger.Error("创建文件监控失败: " + err.Error())
		os.Exit(1)
	}
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 多个月份文件同时落盘时只允许一次运行在跑
	var runMu sync.Mutex
	go func() {
		err := monitor.Watch(ctx, func(path string) {
			logger.Info("检测到新数据文件: " + path)
			runMu.Lock()
			defer runMu.Unlock()
			if err := executeRun(cfg, pcfg, logger, store); err != nil {
				logger.Error("运行失败: " + err.Error())
			}
		})
		if err != nil {
			logger.Error("文件监控错误: " + err.Error())
		}
	}()

	logger.Info(fmt.Sprintf("文件监控已启动(目录: %s)，按Ctrl+C退出", cfg.DataDir))
	waitForShutdown(logger)
}

// scheduleMode 按cron表达式定期运行。
// 邮箱配置存在时另起一条定时线收取数据邮件，附件先于跑批落盘。
func scheduleMode(cfg *config.Config, pcfg *pipeline.Config, logger *storage.Logger, store *storage.RunStore) {
	// 设置定时任务
	c := cron.New()

	err := c.AddFunc(cfg.Schedule, func() {
		if err := executeRun(cfg, pcfg, logger, store); err != nil {
			logger.Error("定时运行失败: " + err.Error())
		}
	})
	if err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		return // 重要错误应该终止程序
	}

	if cfg.Email.Server != "" && cfg.Email.CheckInterval > 0 {
		// 使用配置中的检查间隔而不是硬编码的1分钟
		interval := time.Duration(cfg.Email.CheckInterval).String() // 例如 "5m0s"
		cronSpec := fmt.Sprintf("@every %s", interval)

		fetcher := email.NewFetcher(cfg.Email.Server, cfg.Email.Username, cfg.Email.Password)
		saver := email.NewAttachmentSaver(cfg.Email.TargetSubject, cfg.DataDir, file.MonthFileMatcher(cfg.FilePattern))

		// 添加定时任务
		err = c.AddFunc(cronSpec, func() {
			logger.Info(fmt.Sprintf("开始定时检查(间隔: %v)...", cronSpec))
			if _, err := email.CheckAndFetch(fetcher, saver, logger); err != nil {
				logger.Error("检查处理邮件失败: " + err.Error())
			}
		})
		if err != nil {
			logger.Error("创建邮件定时任务失败: " + err.Error())
			return
		}
	}

	// 启动定时任务
	c.Start()
	defer c.Stop()

	logger.Info(fmt.Sprintf("定时任务已启动(表达式: %s)，按Ctrl+C退出", cfg.Schedule))
	waitForShutdown(logger)
}

// echoLogs 订阅日志并回显到控制台，条目自带换行
func echoLogs(logger *storage.Logger) {
	for entry := range logger.Subscribe() {
		fmt.Print(entry)
	}
}

// handleSighup SIGHUP时重开日志文件，外部把旧文件挪走后句柄切到新文件
func handleSighup(logger *storage.Logger, filename string) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	for range hup {
		if err := logger.Reopen(filename); err != nil {
			log.Printf("重开日志文件失败: %v", err)
			continue
		}
		logger.Info("日志文件已重开")
	}
}

// startWebUI 启动一个简单的Web界面来显示实时日志
// 参数:
//
//	logger: 日志记录器实例，用于订阅日志消息
func startWebUI(logger *storage.Logger) {
	// 注册/logs路由的处理函数
	http.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		// 设置响应头
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Transfer-Encoding", "chunked")

		// 创建日志订阅通道
		logChan := logger.Subscribe()

		// 无限循环，持续接收日志消息
		for {
			select {
			case msg := <-logChan:
				// 将日志消息写入HTTP响应
				_, err := fmt.Fprintln(w, msg)
				if err != nil {
					// 如果写入失败(如客户端断开连接)，则退出循环
					return
				}
				// 刷新响应缓冲区，确保消息立即发送到客户端
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			case <-r.Context().Done():
				// 如果客户端断开连接，则退出循环
				return
			}
		}
	})

	// 可以在这里添加更多路由或启动服务器的代码
	http.ListenAndServe(":8080", nil)
}

func waitForShutdown(logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Received signal: " + sig.String() + ", shutting down...")
	logger.Close()
	os.Exit(0)
}
