// Package pool 存活探测测试
package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delta-admin/internal/model"
)

// aliveReadyPool 注册并连接好 n1 的池
func aliveReadyPool(t *testing.T) (*Pool, *fakeSession) {
	t.Helper()
	sess := newFakeSession()
	p, _ := newTestPool(t, sess)
	require.Equal(t, model.AddOk, p.Add("n1", "host:22", nil))
	require.Equal(t, model.ConnectOk, p.Connect("n1"))
	return p, sess
}

// TestIsAlive_Disconnected 无会话返回默认值，不算错误
func TestIsAlive_Disconnected(t *testing.T) {
	p, _ := newTestPool(t)
	require.Equal(t, model.AddOk, p.Add("n1", "host:22", nil))

	alive := p.IsAlive("n1")
	assert.False(t, alive.Alive)
	assert.Empty(t, alive.BindAddr)
	assert.Zero(t, alive.BindPort)
}

// TestIsAlive_PidSentinelMissing pid 哨兵缺失或非数值 → 不存活
func TestIsAlive_PidSentinelMissing(t *testing.T) {
	p, sess := aliveReadyPool(t)
	sess.execOutputs["cat "+pidFile] = "cat: /tmp/visao/pid: No such file or directory"

	assert.False(t, p.IsAlive("n1").Alive)
}

// TestIsAlive_ProcessGone pid 合法但探活未确认 → 不存活
func TestIsAlive_ProcessGone(t *testing.T) {
	p, sess := aliveReadyPool(t)
	sess.execOutputs["cat "+pidFile] = "4242\n"
	// kill -0 无回显

	assert.False(t, p.IsAlive("n1").Alive)
}

// TestIsAlive_MalformedBindPort 端口哨兵畸形 → 不完全存活
func TestIsAlive_MalformedBindPort(t *testing.T) {
	p, sess := aliveReadyPool(t)
	sess.execOutputs["cat "+pidFile] = "4242\n"
	sess.execOutputs["kill -0 4242 && echo runs"] = "runs\n"
	sess.execOutputs["cat "+bindAddrFile] = "10.0.0.5\n"
	sess.execOutputs["cat "+bindPortFile] = "banana\n"

	alive := p.IsAlive("n1")
	assert.False(t, alive.Alive)
	assert.Empty(t, alive.BindAddr)
	assert.Zero(t, alive.BindPort)
}

// TestIsAlive_Confirmed 进程存活且端点合法
func TestIsAlive_Confirmed(t *testing.T) {
	p, sess := aliveReadyPool(t)
	sess.execOutputs["cat "+pidFile] = "4242\n"
	sess.execOutputs["kill -0 4242 && echo runs"] = "runs\n"
	sess.execOutputs["cat "+bindAddrFile] = "10.0.0.5\n"
	sess.execOutputs["cat "+bindPortFile] = "6100\n"

	alive := p.IsAlive("n1")
	assert.True(t, alive.Alive)
	assert.Equal(t, "10.0.0.5", alive.BindAddr)
	assert.Equal(t, uint16(6100), alive.BindPort)
}

// TestIsAlive_NeverCached 每次探测都现场派生
func TestIsAlive_NeverCached(t *testing.T) {
	p, sess := aliveReadyPool(t)
	sess.execOutputs["cat "+pidFile] = "4242\n"
	sess.execOutputs["kill -0 4242 && echo runs"] = "runs\n"
	sess.execOutputs["cat "+bindAddrFile] = "10.0.0.5\n"
	sess.execOutputs["cat "+bindPortFile] = "6100\n"
	require.True(t, p.IsAlive("n1").Alive)

	// 进程退出后下一次探测立即反映
	delete(sess.execOutputs, "kill -0 4242 && echo runs")
	assert.False(t, p.IsAlive("n1").Alive)
}

// TestEndToEnd add → connect → deploy → run → is_alive 全链路
func TestEndToEnd(t *testing.T) {
	sess := newFakeSession()
	sess.execOutputs[platformProbeCmd] = "Linux n1 6.1.0 x86_64"
	sess.execOutputs[extractCmd] = "ok\n"
	sess.execOutputs[smokeTestCmd] = "visao 1.4.2\n"
	sess.scriptOut = "pid 4242\n"
	sess.execOutputs["cat "+pidFile] = "4242\n"
	sess.execOutputs["kill -0 4242 && echo runs"] = "runs\n"
	sess.execOutputs["cat "+bindAddrFile] = "10.0.0.5\n"
	sess.execOutputs["cat "+bindPortFile] = "6100\n"

	p, _ := newTestPool(t, sess)
	require.Equal(t, model.AddOk, p.Add("n1", "host:22", map[string]string{
		"username":  "root",
		"password":  "secret",
		"distr":     "/srv/visao.tar.xz",
		"bind_addr": "10.0.0.5",
		"bind_port": "6100",
	}))
	require.Equal(t, model.ConnectOk, p.Connect("n1"))
	require.Equal(t, model.DeployOk, p.Deploy("n1", model.SubjectVisao))
	require.Equal(t, model.RunOk, p.Run("n1", model.SubjectVisao))

	st := p.IsConnected("n1").Subject(model.SubjectVisao)
	assert.True(t, st.Deployed)
	assert.True(t, st.Running)

	alive := p.IsAlive("n1")
	assert.True(t, alive.Alive)
	assert.Equal(t, "10.0.0.5", alive.BindAddr)
	assert.Equal(t, uint16(6100), alive.BindPort)
}
