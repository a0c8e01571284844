// send.go
package email

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"github.com/jordan-wright/email"

	"PredictingDelays/src/config"
)

// SendReport 把运行报表发给配置的收件人
// 参数:
//   - c: 应用配置，取send_email段的服务器与账号
//   - subject: 邮件主题
//   - body: 正文
//   - attachments: 附件路径列表，通常是运行报表xlsx
func SendReport(c *config.Config, subject, body string, attachments []string) error {
	from := c.SendEmail.Username

	e := email.NewEmail()
	e.From = fmt.Sprintf("航班延误流水线 <%s>", from)
	e.To = []string{c.SendEmail.To}
	e.Subject = subject
	e.Text = []byte(body)

	// 添加附件
	for _, path := range attachments {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("附件文件不存在: %s", path)
		}
		if _, err := e.AttachFile(path); err != nil {
			return fmt.Errorf("附件添加失败: %w", err)
		}
	}

	smtpAddr := smtpAddress(c.SendEmail.Server)
	host := strings.Split(smtpAddr, ":")[0]

	// 发送邮件（显式 TLS）
	if err := e.SendWithTLS(
		smtpAddr,
		smtp.PlainAuth("", from, c.SendEmail.Password, host),
		&tls.Config{ServerName: host},
	); err != nil {
		return fmt.Errorf("邮件发送失败: %w (Server: %s)", err, smtpAddr)
	}
	return nil
}

// smtpAddress 确保服务器地址包含端口
func smtpAddress(server string) string {
	if !strings.Contains(server, ":") {
		return server + ":465" // 默认 SSL 端口
	}
	return server
}
