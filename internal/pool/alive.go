// Package pool 节点池状态机
//
// alive.go 实现存活探测：读取远程哨兵文件，现场派生存活状态。
package pool

import (
	"fmt"
	"strconv"
	"strings"

	"delta-admin/internal/model"
)

// IsAlive 探测节点上部署进程的存活状态（只读，不改写任何状态）
//
// 无会话时返回默认值（不存活、空端点），不算错误。否则：
//  1. 读 pid 哨兵；缺失或非数值 → 不存活
//  2. kill -0 探活；未确认 → 不存活
//  3. 读地址/端口哨兵；端口无法解析为合法 16 位无符号整数时
//     视为不完全存活（无法上报安全端点）
//
// 结果每次都从远程节点现场派生，绝不缓存。
func (p *Pool) IsAlive(name string) model.SubjectAliveStatus {
	var status model.SubjectAliveStatus

	p.mu.RLock()
	inst, ok := p.instances[name]
	p.mu.RUnlock()
	if !ok {
		return status
	}
	sess := inst.session

	pid := strings.TrimSpace(sess.Exec("cat " + pidFile))
	if _, err := strconv.ParseUint(pid, 10, 64); err != nil {
		return status
	}

	runs := sess.Exec(fmt.Sprintf("kill -0 %s && echo runs", pid))
	if !strings.Contains(runs, "runs") {
		return status
	}

	bindAddr := strings.TrimSpace(sess.Exec("cat " + bindAddrFile))
	bindPort := strings.TrimSpace(sess.Exec("cat " + bindPortFile))

	port, err := strconv.ParseUint(bindPort, 10, 16)
	if err != nil {
		p.log.WithNode(name).Warn("malformed bind port sentinel", "bind_port", bindPort)
		return status
	}

	status.Alive = true
	status.BindAddr = bindAddr
	status.BindPort = uint16(port)
	return status
}
