package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"PredictingDelays/src/pipeline"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataDir      string `json:"data_dir"`      // 月度航班数据目录
	FilePattern  string `json:"file_pattern"`  // 月度文件名模板，%s处填入YYYYMM
	SheetName    string `json:"sheet_name"`    // xlsx数据所在工作表
	TrainRange   string `json:"train_range"`   // 训练月份区间 YYYYMM..YYYYMM
	ValidRange   string `json:"valid_range"`   // 验证月份区间 YYYYMM..YYYYMM
	LookupPath   string `json:"lookup_path"`   // 承运人代码对照表CSV
	ArtifactsDir string `json:"artifacts_dir"` // 运行工件输出目录
	RunDBPath    string `json:"run_db_path"`   // 运行记录sqlite库
	LogName      string `json:"log_name"`
	LogMaxSize   string `json:"log_max_size"`
	Epochs       int    `json:"epochs"`        // 模型训练轮数
	LearningRate float64 `json:"learning_rate"` // 梯度下降步长
	Schedule     string `json:"schedule"`      // schedule模式的cron表达式
	Webhook      string `json:"webhook"`       // 运行结果通知地址，可为空

	Email struct {
		Server        string   `json:"server"`         // 邮件服务器地址
		Username      string   `json:"username"`       // 邮箱用户名
		Password      string   `json:"password"`       // 邮箱密码，建议放环境变量
		TargetSubject string   `json:"target_subject"` // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email"`

	SendEmail struct {
		Server   string `json:"server"`   // 发信服务器地址
		Username string `json:"username"` // 发信邮箱
		Password string `json:"password"` // 发信密码，建议放环境变量
		To       string `json:"to"`       // 报表收件人
	} `json:"send_email"`
}

var (
	once             sync.Once
	instance         *Config
	pipelineInstance *pipeline.Config
)

// LoadConfig 加载应用配置与流水线配置，进程内只加载一次。
// 流水线配置单独放在dataJsonFile里，加载后在整个运行期间只读。
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *pipeline.Config, error) {
	var err error
	once.Do(func() {
		instance, pipelineInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, pipelineInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *pipeline.Config, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	pcfgChan := make(chan *pipeline.Config, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parsePipelineConfig(dataConfigData, pcfgChan, errChan)

	cfg, pcfg, err := waitForResults(cfgChan, pcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	cfg.applyDefaults()
	cfg.applySecrets()
	if err := pcfg.Validate(); err != nil {
		return nil, nil, err
	}

	return cfg, pcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- &cfg
}

func parsePipelineConfig(data []byte, resultChan chan<- *pipeline.Config, errChan chan<- error) {
	var pcfg pipeline.Config
	if err := json.Unmarshal(data, &pcfg); err != nil {
		errChan <- fmt.Errorf("解析流水线配置失败: %w", err)
		return
	}
	resultChan <- &pcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	pcfgChan <-chan *pipeline.Config,
	errChan <-chan error,
) (*Config, *pipeline.Config, error) {
	var (
		cfg    *Config
		pcfg   *pipeline.Config
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
			fmt.Println("Config 配置文件加载完毕")
		case p := <-pcfgChan:
			pcfg = p
			fmt.Println("流水线配置文件加载完毕")
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || pcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, pcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	// 使用固定格式字符串
	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// applyDefaults 给未填写的字段补上默认值
func (c *Config) applyDefaults() {
	if c.FilePattern == "" {
		c.FilePattern = "%s.csv"
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = "10 * 1024 * 1024"
	}
	if c.ArtifactsDir == "" {
		c.ArtifactsDir = "artifacts"
	}
	if c.Epochs <= 0 {
		c.Epochs = 300
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.1
	}
}

// applySecrets 密码类字段优先取环境变量，避免明文写进配置文件。
// 环境变量可由.env文件提供，main启动时用godotenv加载。
func (c *Config) applySecrets() {
	if v := os.Getenv("IMAP_PASSWORD"); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SendEmail.Password = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		c.Webhook = v
	}
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
