// attachments.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ====================== 附件落盘处理器 ======================

// AttachmentSaver 把数据邮件的附件保存到数据目录
type AttachmentSaver struct {
	TargetSubject string                 // 目标邮件主题关键词
	DataDir       string                 // 附件保存目录
	Accept        func(name string) bool // 附件文件名过滤，nil时按扩展名放行
	processedUIDs map[uint32]bool        // 已处理邮件UID记录
	mu            sync.RWMutex           // 保护processedUIDs的读写锁
}

func NewAttachmentSaver(subject, dataDir string, accept func(string) bool) *AttachmentSaver {
	return &AttachmentSaver{
		TargetSubject: subject,
		DataDir:       dataDir,
		Accept:        accept,
		processedUIDs: make(map[uint32]bool), // 初始化映射
	}
}

// isProcessed 检查邮件是否已处理过（线程安全）
func (h *AttachmentSaver) isProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

// markAsProcessed 标记邮件为已处理（线程安全）
func (h *AttachmentSaver) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// accepts 判断附件是否属于数据文件
func (h *AttachmentSaver) accepts(name string) bool {
	if h.Accept != nil {
		return h.Accept(name)
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv" || ext == ".xlsx"
}

// Handle 处理单个邮件
// 主题匹配的邮件中，文件名通过过滤的附件写入数据目录。
// 返回本次保存的文件路径。
func (h *AttachmentSaver) Handle(m *Email) ([]string, error) {
	// 检查是否已处理过该邮件
	if h.isProcessed(m.UID) {
		return nil, nil
	}

	// 检查邮件主题是否包含目标关键词
	if !strings.Contains(m.Subject, h.TargetSubject) {
		return nil, nil
	}

	// 确保保存目录存在
	if err := os.MkdirAll(h.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	// 处理附件
	var saved []string
	for _, attachment := range m.Attachments {
		if !h.accepts(attachment.Filename) {
			continue
		}

		// 附件名来自外部，丢弃目录部分
		filePath := filepath.Join(h.DataDir, filepath.Base(attachment.Filename))

		// 保存文件
		if err := os.WriteFile(filePath, attachment.Content, 0644); err != nil {
			return saved, fmt.Errorf("保存附件失败: %w", err)
		}
		saved = append(saved, filePath)
	}

	// 有数据附件落盘才标记为已处理，空邮件留待人工排查
	if len(saved) > 0 {
		h.markAsProcessed(m.UID)
	}

	return saved, nil
}
