package email

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleEmail(uid uint32, subject string, files map[string][]byte) *Email {
	m := &Email{
		UID:     uid,
		Date:    time.Date(2018, 6, 3, 9, 0, 0, 0, time.UTC),
		From:    "data@example.com",
		Subject: subject,
	}
	for name, content := range files {
		m.Attachments = append(m.Attachments, &Attachment{Filename: name, Content: content})
	}
	return m
}

func TestAttachmentSaverHandle(t *testing.T) {
	dir := t.TempDir()
	saver := NewAttachmentSaver("航班月报", dir, nil)

	m := sampleEmail(7, "航班月报 201805", map[string][]byte{
		"201805.csv": []byte("MONTH,ORIGIN\n5,SEA\n"),
		"readme.txt": []byte("说明"),
	})

	saved, err := saver.Handle(m)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("保存文件数 = %d, 想要 1", len(saved))
	}

	content, err := os.ReadFile(filepath.Join(dir, "201805.csv"))
	if err != nil {
		t.Fatalf("附件未落盘: %v", err)
	}
	if string(content) != "MONTH,ORIGIN\n5,SEA\n" {
		t.Errorf("附件内容 = %q", content)
	}

	// txt附件不属于数据文件
	if _, err := os.Stat(filepath.Join(dir, "readme.txt")); err == nil {
		t.Error("txt附件不应落盘")
	}

	// 同一UID第二次处理直接跳过
	saved, err = saver.Handle(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 0 {
		t.Errorf("重复处理保存了%d个文件", len(saved))
	}
}

func TestAttachmentSaverSubjectMismatch(t *testing.T) {
	dir := t.TempDir()
	saver := NewAttachmentSaver("航班月报", dir, nil)

	m := sampleEmail(3, "会议纪要", map[string][]byte{"201805.csv": []byte("x")})
	saved, err := saver.Handle(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 0 {
		t.Errorf("主题不匹配仍保存了%d个文件", len(saved))
	}

	// 主题不匹配不算已处理，后续匹配主题的同UID邮件不受影响
	m2 := sampleEmail(3, "航班月报 201805", map[string][]byte{"201805.csv": []byte("x")})
	saved, err = saver.Handle(m2)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 {
		t.Errorf("保存文件数 = %d", len(saved))
	}
}

func TestAttachmentSaverAcceptFilter(t *testing.T) {
	dir := t.TempDir()
	accept := func(name string) bool { return name == "201806.csv" }
	saver := NewAttachmentSaver("航班月报", dir, accept)

	m := sampleEmail(9, "航班月报", map[string][]byte{
		"201806.csv": []byte("a"),
		"杂项.xlsx":    []byte("b"),
	})
	saved, err := saver.Handle(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 || filepath.Base(saved[0]) != "201806.csv" {
		t.Errorf("saved = %v", saved)
	}
}

func TestAttachmentSaverStripsDirectory(t *testing.T) {
	dir := t.TempDir()
	saver := NewAttachmentSaver("航班月报", dir, nil)

	m := sampleEmail(11, "航班月报", map[string][]byte{
		"../escape/201807.csv": []byte("x"),
	})
	saved, err := saver.Handle(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 {
		t.Fatalf("saved = %v", saved)
	}
	if saved[0] != filepath.Join(dir, "201807.csv") {
		t.Errorf("附件路径 = %s, 目录部分未剥离", saved[0])
	}
}
