// Package remote 远程会话能力边界
//
// ssh.go 是 Dialer/Session 的生产实现，基于 golang.org/x/crypto/ssh：
//   - 密码认证，10 秒拨号超时
//   - 每次 Exec 新建一个 SSH session，只读取标准输出
//   - ExecScript 通过 stdin 管道驱动单个交互式 shell
package remote

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHDialer 基于 SSH 的会话建立器
type SSHDialer struct {
	// Timeout 拨号超时；零值时使用 10 秒
	Timeout time.Duration
}

// NewSSHDialer 创建 SSH 拨号器
func NewSSHDialer() *SSHDialer {
	return &SSHDialer{Timeout: 10 * time.Second}
}

// Dial 建立 TCP 连接、完成 SSH 握手并做密码认证
func (d *SSHDialer) Dial(addr, username, password string) (Session, error) {
	timeout := d.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	config := &ssh.ClientConfig{
		User: username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &sshSession{client: client}, nil
}

// sshSession Session 的 SSH 实现，独占持有一条客户端连接
type sshSession struct {
	client *ssh.Client
}

// Exec 执行单条远程命令
//
// 只返回标准输出：流水线以输出内容判定成败，stderr 噪声
// （shell 报错、诊断信息）不得混入判定依据。命令退出码
// 非零时仍返回已产生的 stdout；会话建立失败返回空串。
func (s *sshSession) Exec(cmd string) string {
	session, err := s.client.NewSession()
	if err != nil {
		return ""
	}
	defer session.Close()

	output, _ := session.Output(cmd)
	return string(output)
}

// ExecScript 在单个交互式 shell 中按序执行多条命令
//
// 与 Exec 相同，只捕获标准输出；stderr 丢弃。
func (s *sshSession) ExecScript(cmds []string) string {
	session, err := s.client.NewSession()
	if err != nil {
		return ""
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return ""
	}

	var output bytes.Buffer
	session.Stdout = &output
	session.Stderr = io.Discard

	if err := session.Shell(); err != nil {
		return ""
	}

	for _, cmd := range cmds {
		fmt.Fprintln(stdin, cmd)
	}
	stdin.Close()

	// shell 读到 EOF 后自行退出；Wait 返回后输出完整
	_ = session.Wait()
	return output.String()
}

// Close 关闭底层连接
func (s *sshSession) Close() error {
	return s.client.Close()
}
