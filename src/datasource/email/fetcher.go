// fetcher.go
package email

import (
	// 标准库导入
	"bytes"
	"fmt"
	"io"
	"log"
	"mime"
	"sort"
	"strings"
	"sync"
	"time"

	// 第三方库导入
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	// 项目内部导入
	"PredictingDelays/src/storage"
)

/******************** 常量定义 ********************/
const (
	MaxFetchMessages = 100 // 单次最大获取邮件数量，防止内存溢出
	FetchBufferSize  = 10  // 邮件获取通道缓冲区大小

	// RecentMailDuration 判定为"新邮件"的时间范围。
	// 月度数据按月投递，窗口给足45天覆盖跨月补发。
	RecentMailDuration = 45 * 24 * time.Hour
)

/******************** 接口定义 ********************/

// Mailbox 邮件数据源核心接口
type Mailbox interface {
	// Connect 建立与邮件服务器的连接
	// 返回: 连接错误信息
	Connect() error

	// Disconnect 安全断开与邮件服务器的连接
	Disconnect()

	// FetchUnread 获取未读邮件列表
	// 返回: 邮件列表，错误信息
	FetchUnread() ([]*Email, error)
}

/******************** 数据结构 ********************/

// Email 邮件基础数据结构
type Email struct {
	UID         uint32        // 邮件唯一标识符(IMAP UID)
	Date        time.Time     // 邮件发送时间
	From        string        // 发件人信息(已解码)
	Subject     string        // 邮件主题(已解码)
	Attachments []*Attachment // 邮件附件列表
}

// Attachment 邮件附件数据结构
type Attachment struct {
	Filename string // 附件文件名(已解码)
	Content  []byte // 附件二进制内容
}

/******************** 邮件客户端实现 ********************/

// Fetcher IMAP邮件客户端，从收件箱拉取数据方投递的月度数据邮件
type Fetcher struct {
	server    string         // IMAP服务器地址(包含端口)
	username  string         // 登录用户名
	password  string         // 登录密码/授权码
	client    *client.Client // IMAP客户端实例
	mu        sync.Mutex     // 线程安全锁
	connected bool           // 连接状态标记
}

// NewFetcher 构造函数：创建邮件客户端实例
// 参数:
//   - server: 服务器地址(如"imap.example.com:993")
//   - username: 邮箱账号
//   - password: 密码/授权码
//
// 返回: 初始化后的邮件客户端指针
func NewFetcher(server, username, password string) *Fetcher {
	return &Fetcher{
		server:   server,
		username: username,
		password: password,
	}
}

// Connect 建立安全连接(线程安全)
// 实现流程:
// 1. 检查现有连接有效性
// 2. 创建TLS连接
// 3. 执行登录认证
// 4. 更新连接状态
func (s *Fetcher) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 连接有效性检查
	if s.connected {
		if _, err := s.client.Capability(); err == nil {
			return nil
		}
		// 连接已失效则重置
		s.client.Logout()
		s.client = nil
	}

	c, err := client.DialTLS(s.server, nil)
	if err != nil {
		return fmt.Errorf("连接服务器失败: %w", err)
	}

	// 登录认证
	if err := c.Login(s.username, s.password); err != nil {
		c.Logout()
		return fmt.Errorf("登录失败: %w", err)
	}

	// 更新状态
	s.client = c
	s.connected = true
	return nil
}

// Disconnect 安全断开连接(线程安全)
func (s *Fetcher) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.Logout()
		s.client = nil
	}
	s.connected = false
}

// FetchUnread 获取未读邮件(线程安全)
// 实现逻辑:
// 1. 检查连接状态
// 2. 选择INBOX邮箱
// 3. 设置搜索条件(未读+时间窗口内)
// 4. 执行搜索并获取邮件内容
func (s *Fetcher) FetchUnread() ([]*Email, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, fmt.Errorf("未连接到邮件服务器")
	}

	// 选择收件箱
	if _, err := s.client.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("选择邮箱失败: %w", err)
	}

	// 构建搜索条件
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = time.Now().Add(-RecentMailDuration)

	// 执行搜索
	ids, err := s.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("搜索邮件失败: %w", err)
	}

	// 空结果处理
	if len(ids) == 0 {
		return nil, nil
	}

	// 限制获取数量
	if len(ids) > MaxFetchMessages {
		ids = ids[:MaxFetchMessages]
	}

	return s.fetchMessages(ids)
}

// fetchMessages 获取指定ID的邮件内容
// 参数:
//   - ids: 邮件ID序列
//
// 返回: 解析后的邮件列表
func (s *Fetcher) fetchMessages(ids []uint32) ([]*Email, error) {
	// 准备获取请求
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{
		imap.FetchEnvelope,     // 信封信息(发件人、主题等)
		imap.FetchFlags,        // 邮件标志
		imap.FetchInternalDate, // 内部日期
		imap.FetchUid,          // 唯一标识
		section.FetchItem(),    // 正文内容
	}

	// 异步获取通道
	messages := make(chan *imap.Message, FetchBufferSize)
	done := make(chan error, 1)

	// 启动异步获取
	go func() {
		done <- s.client.Fetch(seqset, items, messages)
	}()

	// 处理获取结果
	var emails []*Email
	for msg := range messages {
		m, err := s.parseEmail(msg, section)
		if err != nil {
			log.Printf("解析邮件失败: %v", err)
			continue
		}
		emails = append(emails, m)
	}

	// 检查获取错误
	if err := <-done; err != nil {
		return nil, fmt.Errorf("获取邮件内容失败: %w", err)
	}

	return emails, nil
}

/******************** 邮件解析相关 ********************/

// parseEmail 解析单个邮件
// 参数:
//   - msg: 原始邮件数据
//   - section: 正文部分标识
//
// 返回: 解析后的邮件对象
func (s *Fetcher) parseEmail(msg *imap.Message, section *imap.BodySectionName) (*Email, error) {
	r := msg.GetBody(section)
	if r == nil {
		return nil, fmt.Errorf("邮件正文为空")
	}

	// 创建邮件阅读器
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("创建邮件阅读器失败: %w", err)
	}

	// 解析基础信息
	header := mr.Header
	date, _ := header.Date() // 日期解析错误不影响后续处理

	m := &Email{
		UID:     msg.Uid,
		Date:    date,
		From:    decodeHeader(header.Get("From")),
		Subject: decodeHeader(header.Get("Subject")),
	}

	// 解析邮件各部分
	if err := s.parseEmailParts(mr, m); err != nil {
		return nil, err
	}

	return m, nil
}

// parseEmailParts 解析邮件正文和附件
// 参数:
//   - mr: 邮件阅读器
//   - m: 待补充的邮件对象
func (s *Fetcher) parseEmailParts(mr *mail.Reader, m *Email) error {
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // 跳过解析失败的部分
		}

		// 处理附件部分
		if h, ok := p.Header.(*mail.AttachmentHeader); ok {
			if err := s.parseAttachment(h, p.Body, m); err != nil {
				log.Printf("解析附件失败: %v", err)
			}
		}
	}
	return nil
}

// parseAttachment 解析单个附件
// 参数:
//   - h: 附件头信息
//   - body: 附件内容流
//   - m: 所属邮件对象
func (s *Fetcher) parseAttachment(h *mail.AttachmentHeader, body io.Reader, m *Email) error {
	filename, err := h.Filename()
	if err != nil || filename == "" {
		return fmt.Errorf("无效的附件名")
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return fmt.Errorf("读取附件内容失败: %w", err)
	}

	m.Attachments = append(m.Attachments, &Attachment{
		Filename: decodeHeader(filename),
		Content:  buf.Bytes(),
	})
	return nil
}

/******************** 工具函数 ********************/

// decodeHeader 解码邮件头特殊编码
// 支持格式: =?charset?encoding?encoded-text?=
func decodeHeader(header string) string {
	decoder := mime.WordDecoder{
		CharsetReader: charsetReader,
	}

	decoded, err := decoder.DecodeHeader(header)
	if err != nil {
		return header // 解码失败返回原始内容
	}
	return decoded
}

// charsetReader 字符集转换器
// 按WHATWG字符集索引查找解码器，覆盖GBK/GB2312等常见标签
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(strings.ToLower(charset))
	if err != nil || enc == nil {
		return input, nil // 未知编码原样返回
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

/******************** 业务逻辑函数 ********************/

// CheckAndFetch 邮件取数主流程
// 连接邮箱，拉取未读邮件，把主题匹配的邮件交给saver落盘附件。
// 参数:
//   - box: 邮件服务实例
//   - saver: 附件落盘处理器
//   - logger: 日志记录器
//
// 返回: 本次保存的文件路径列表，处理过程中的错误
func CheckAndFetch(box Mailbox, saver *AttachmentSaver, logger *storage.Logger) ([]string, error) {
	startTime := time.Now()
	logger.Info("开始检查邮箱...")

	// 建立连接
	if err := box.Connect(); err != nil {
		return nil, fmt.Errorf("连接失败: %w", err)
	}
	defer box.Disconnect() // 确保连接关闭

	// 获取未读邮件
	emails, err := box.FetchUnread()
	if err != nil {
		return nil, fmt.Errorf("获取邮件失败: %w", err)
	}

	// 空结果处理
	if len(emails) == 0 {
		logger.Info("没有新邮件")
		return nil, nil
	}

	// 过滤目标邮件
	targets := filterTargetEmails(emails, saver.TargetSubject)
	if len(targets) == 0 {
		logger.Info("没有目标邮件")
		return nil, nil
	}

	var saved []string
	for _, m := range targets {
		files, err := saver.Handle(m)
		if err != nil {
			logger.Error(fmt.Sprintf("处理邮件失败(UID:%d): %v", m.UID, err))
			continue
		}
		saved = append(saved, files...)
	}

	logger.Info(fmt.Sprintf("邮箱检查完成，新增文件%d个，耗时: %v", len(saved), time.Since(startTime)))
	return saved, nil
}

// filterTargetEmails 过滤主题匹配的邮件
// 参数:
//   - emails: 待过滤邮件列表
//   - keyword: 主题关键词
//
// 返回: 按日期升序排列的目标邮件，先到的月份先落盘，同名文件由后到的覆盖
func filterTargetEmails(emails []*Email, keyword string) []*Email {
	var targets []*Email
	for _, m := range emails {
		if strings.Contains(m.Subject, keyword) {
			targets = append(targets, m)
		}
	}

	// 按日期升序排序
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Date.Before(targets[j].Date)
	})

	return targets
}
