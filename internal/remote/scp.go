// Package remote 远程会话能力边界
//
// scp.go 实现基于 SCP 协议（scp -t 接收端）的文件上传。
package remote

import (
	"fmt"
	"io"
	"os"
	"path"
)

// Upload 将本地文件以 0644 权限传输到远程路径
//
// 失败来源分两类：本地文件不可读（打开/stat 失败），
// 或远程传输被拒（scp 接收端报错）。两类都返回 error，
// 由部署流水线映射为 DeployCopyFailed。
func (s *sshSession) Upload(localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat local file: %w", err)
	}

	session, err := s.client.NewSession()
	if err != nil {
		return fmt.Errorf("new session: %w", err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}

	copyErr := make(chan error, 1)
	go func() {
		defer stdin.Close()
		if _, err := fmt.Fprintf(stdin, "C0644 %d %s\n", st.Size(), path.Base(remotePath)); err != nil {
			copyErr <- err
			return
		}
		if _, err := io.Copy(stdin, f); err != nil {
			copyErr <- err
			return
		}
		// 传输结束标记
		_, err := fmt.Fprint(stdin, "\x00")
		copyErr <- err
	}()

	if err := session.Run("scp -qt " + path.Dir(remotePath)); err != nil {
		return fmt.Errorf("remote transfer rejected: %w", err)
	}
	if err := <-copyErr; err != nil {
		return fmt.Errorf("stream local file: %w", err)
	}
	return nil
}
