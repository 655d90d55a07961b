// Package remote SSH 会话实现测试
//
// 测试使用进程内 SSH 服务端（x/crypto/ssh 服务端组件），
// 不依赖外部 sshd。
package remote

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// startTestSSHServer 启动进程内 SSH 服务端并返回监听地址。
// 密码 secret 可登录；shell/exec 请求回放预置的 stdout/stderr。
func startTestSSHServer(t *testing.T, stdout, stderr string) string {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PasswordCallback: func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if string(password) == "secret" {
				return nil, nil
			}
			return nil, errors.New("wrong password")
		},
	}
	config.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveConn(conn, config, stdout, stderr)
		}
	}()
	return ln.Addr().String()
}

func serveConn(conn net.Conn, config *ssh.ServerConfig, stdout, stderr string) {
	sconn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go serveSession(ch, chReqs, stdout, stderr)
	}
}

func serveSession(ch ssh.Channel, reqs <-chan *ssh.Request, stdout, stderr string) {
	defer ch.Close()
	for req := range reqs {
		switch req.Type {
		case "shell", "exec":
			req.Reply(true, nil)
			if req.Type == "shell" {
				// 客户端写完命令后关闭写端，读到 EOF 再回放输出
				io.Copy(io.Discard, ch)
			}
			ch.Stderr().Write([]byte(stderr))
			ch.Write([]byte(stdout))
			ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0}))
			return
		default:
			req.Reply(false, nil)
		}
	}
}

// TestExecScript_StderrNotReturned 脚本输出只含 stdout。
// 启动失败时 bash 会在 stderr 上报出含哨兵路径（含 pid 字样）的
// 错误文本，这类噪声绝不能混入运行流水线扫描的输出。
func TestExecScript_StderrNotReturned(t *testing.T) {
	addr := startTestSSHServer(t, "launch attempted\n",
		"bash: /tmp/visao/pid: No such file or directory\n")

	sess, err := NewSSHDialer().Dial(addr, "root", "secret")
	require.NoError(t, err)
	defer sess.Close()

	out := sess.ExecScript([]string{"echo launch attempted"})
	assert.Contains(t, out, "launch attempted")
	assert.NotContains(t, out, "pid")
}

// TestExec_StdoutOnly 单命令同样只返回 stdout
func TestExec_StdoutOnly(t *testing.T) {
	addr := startTestSSHServer(t, "ok\n",
		"tar: Ignoring unknown extended header keyword\n")

	sess, err := NewSSHDialer().Dial(addr, "root", "secret")
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, "ok\n", sess.Exec("tar xvf /tmp/visao-archive.tar.xz"))
}

// TestDial_BadPassword 凭据被拒时返回错误，不返回会话
func TestDial_BadPassword(t *testing.T) {
	addr := startTestSSHServer(t, "", "")

	sess, err := NewSSHDialer().Dial(addr, "root", "wrong")
	require.Error(t, err)
	assert.Nil(t, sess)
	assert.Contains(t, err.Error(), "dial")
}
