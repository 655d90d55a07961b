// Package pool 节点池状态机测试
package pool

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delta-admin/internal/model"
	"delta-admin/internal/remote"
	"delta-admin/pkg/logging"
)

// ============================================================================
// 进程内伪实现（remote.Dialer / remote.Session）
// ============================================================================

// fakeSession 记录所有远程调用的伪会话
type fakeSession struct {
	execOutputs map[string]string // 精确命令 → 输出
	execLog     []string
	scriptOut   string
	scriptLog   [][]string
	uploadErr   error
	uploads     [][2]string
	closed      int
}

func newFakeSession() *fakeSession {
	return &fakeSession{execOutputs: make(map[string]string)}
}

func (s *fakeSession) Exec(cmd string) string {
	s.execLog = append(s.execLog, cmd)
	return s.execOutputs[cmd]
}

func (s *fakeSession) ExecScript(cmds []string) string {
	copied := make([]string, len(cmds))
	copy(copied, cmds)
	s.scriptLog = append(s.scriptLog, copied)
	return s.scriptOut
}

func (s *fakeSession) Upload(localPath, remotePath string) error {
	s.uploads = append(s.uploads, [2]string{localPath, remotePath})
	return s.uploadErr
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

// fakeDialer 按拨号顺序返回预置会话
type fakeDialer struct {
	sessions []*fakeSession
	dialErr  error
	dials    []string
}

func (d *fakeDialer) Dial(addr, username, password string) (remote.Session, error) {
	d.dials = append(d.dials, fmt.Sprintf("%s@%s:%s", username, addr, password))
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	if len(d.sessions) == 0 {
		return nil, errors.New("fake dialer: no session queued")
	}
	sess := d.sessions[0]
	d.sessions = d.sessions[1:]
	return sess, nil
}

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: "error", Output: "stderr", Component: "pool-test"})
}

// newTestPool 返回池和首个预置会话
func newTestPool(t *testing.T, sessions ...*fakeSession) (*Pool, *fakeDialer) {
	t.Helper()
	if len(sessions) == 0 {
		sessions = []*fakeSession{newFakeSession()}
	}
	d := &fakeDialer{sessions: sessions}
	return New(d, testLogger()), d
}

// ============================================================================
// 注册表 / 参数解析
// ============================================================================

// TestUnknownNode_AllOpsReturnNotFound 未注册名称的所有操作都报未找到
func TestUnknownNode_AllOpsReturnNotFound(t *testing.T) {
	p, _ := newTestPool(t)

	assert.Equal(t, model.ConnectNodeNotFound, p.Connect("ghost"))
	assert.Equal(t, model.DisconnectNodeNotFound, p.Disconnect("ghost"))
	assert.Equal(t, model.RemoveNodeNotFound, p.Remove("ghost"))
	assert.Equal(t, model.DeployNodeNotFound, p.Deploy("ghost", model.SubjectVisao))
	assert.Equal(t, model.RunNodeNotFound, p.Run("ghost", model.SubjectVisao))

	cs := p.IsConnected("ghost")
	assert.False(t, cs.Connected)
	assert.Empty(t, cs.Platform)

	alive := p.IsAlive("ghost")
	assert.False(t, alive.Alive)
}

// TestAdd_NotIdempotent 重复 add 返回已存在且不覆盖原参数
func TestAdd_NotIdempotent(t *testing.T) {
	p, _ := newTestPool(t)

	assert.Equal(t, model.AddOk, p.Add("n1", "host1:22", map[string]string{"username": "alice"}))
	assert.Equal(t, model.AddNodeAlreadyExists, p.Add("n1", "host2:22", map[string]string{"username": "mallory"}))

	assert.Equal(t, "alice", p.GetParam("n1", model.ParamUsername))
	assert.Equal(t, "host1:22", p.Nodes()["n1"].FQDN)
}

// TestGetParam_TwoLevelFallback 节点覆盖 → 池默认 → 空串
func TestGetParam_TwoLevelFallback(t *testing.T) {
	p, _ := newTestPool(t)
	p.SetDefault(model.ParamUsername, "pool-user")
	p.SetDefault(model.ParamDistr, "/srv/dist.tar.xz")

	require.Equal(t, model.AddOk, p.Add("n1", "host:22", map[string]string{"username": "node-user"}))

	// 节点覆盖优先
	assert.Equal(t, "node-user", p.GetParam("n1", model.ParamUsername))
	// 只有池默认值时返回池默认值
	assert.Equal(t, "/srv/dist.tar.xz", p.GetParam("n1", model.ParamDistr))
	// 两级都未设置时返回空串
	assert.Equal(t, "", p.GetParam("n1", model.ParamBindAddr))
}

// TestAdd_CopiesParams 注册时拷贝参数映射，调用方后续修改不影响注册表
func TestAdd_CopiesParams(t *testing.T) {
	p, _ := newTestPool(t)
	params := map[string]string{"username": "alice"}
	require.Equal(t, model.AddOk, p.Add("n1", "host:22", params))

	params["username"] = "mallory"
	assert.Equal(t, "alice", p.GetParam("n1", model.ParamUsername))
}

// ============================================================================
// 会话管理
// ============================================================================

// TestConnect_CapturesPlatform 连接成功后一次性采集平台识别串
func TestConnect_CapturesPlatform(t *testing.T) {
	sess := newFakeSession()
	sess.execOutputs[platformProbeCmd] = "Linux n1 6.1.0 x86_64"
	p, d := newTestPool(t, sess)
	p.SetDefault(model.ParamUsername, "root")
	p.SetDefault(model.ParamPassword, "secret")

	require.Equal(t, model.AddOk, p.Add("n1", "host:22", nil))
	assert.Equal(t, model.ConnectOk, p.Connect("n1"))

	cs := p.IsConnected("n1")
	assert.True(t, cs.Connected)
	assert.Equal(t, "Linux n1 6.1.0 x86_64", cs.Platform)

	// 凭据由参数解析器提供
	require.Len(t, d.dials, 1)
	assert.Equal(t, "root@host:22:secret", d.dials[0])
}

// TestConnect_ReplacesPriorSession 二次 connect 整体替换会话
func TestConnect_ReplacesPriorSession(t *testing.T) {
	first := newFakeSession()
	first.execOutputs[platformProbeCmd] = "platform-one"
	second := newFakeSession()
	second.execOutputs[platformProbeCmd] = "platform-two"
	p, _ := newTestPool(t, first, second)

	require.Equal(t, model.AddOk, p.Add("n1", "host:22", nil))
	require.Equal(t, model.ConnectOk, p.Connect("n1"))
	require.Equal(t, model.ConnectOk, p.Connect("n1"))

	// 旧会话被拆除，无句柄泄漏
	assert.Equal(t, 1, first.closed)
	assert.Zero(t, second.closed)

	// 新实例反映新采集的平台串
	assert.Equal(t, "platform-two", p.IsConnected("n1").Platform)
}

// TestConnect_AuthFailure 认证失败不创建实例
func TestConnect_AuthFailure(t *testing.T) {
	p, d := newTestPool(t)
	d.dialErr = errors.New("ssh: unable to authenticate, attempted methods [password]")

	require.Equal(t, model.AddOk, p.Add("n1", "host:22", nil))
	assert.Equal(t, model.ConnectNotAuthenticated, p.Connect("n1"))
	assert.False(t, p.IsConnected("n1").Connected)
}

// TestConnect_TransportFailure 传输故障同样映射为 NotAuthenticated
func TestConnect_TransportFailure(t *testing.T) {
	p, d := newTestPool(t)
	d.dialErr = errors.New("dial tcp: connection refused")

	require.Equal(t, model.AddOk, p.Add("n1", "host:22", nil))
	assert.Equal(t, model.ConnectNotAuthenticated, p.Connect("n1"))
	assert.False(t, p.IsConnected("n1").Connected)
}

// TestDisconnect_Idempotent 名称合法时重复 disconnect 仍返回 Ok
func TestDisconnect_Idempotent(t *testing.T) {
	sess := newFakeSession()
	p, _ := newTestPool(t, sess)

	require.Equal(t, model.AddOk, p.Add("n1", "host:22", nil))
	require.Equal(t, model.ConnectOk, p.Connect("n1"))

	assert.Equal(t, model.DisconnectOk, p.Disconnect("n1"))
	assert.Equal(t, 1, sess.closed)
	assert.Equal(t, model.DisconnectOk, p.Disconnect("n1"))
	assert.Equal(t, 1, sess.closed)
}

// TestRemove_CascadesSessionTeardown remove 级联拆除会话，之后 connect 报未找到
func TestRemove_CascadesSessionTeardown(t *testing.T) {
	sess := newFakeSession()
	p, _ := newTestPool(t, sess)

	require.Equal(t, model.AddOk, p.Add("n1", "host:22", nil))
	require.Equal(t, model.ConnectOk, p.Connect("n1"))

	assert.Equal(t, model.RemoveOk, p.Remove("n1"))
	assert.Equal(t, 1, sess.closed)

	// 无残留会话，名称已注销
	assert.Equal(t, model.ConnectNodeNotFound, p.Connect("n1"))
	assert.False(t, p.IsConnected("n1").Connected)
}
