// Package pool 节点池状态机
//
// run.go 实现运行/生命周期控制：终止旧实例、解析并校验监听
// 端点、后台启动新实例并通过哨兵文件确认存活。
package pool

import (
	"fmt"
	"strconv"
	"strings"

	"delta-admin/internal/model"
)

const (
	// defaultBindAddr 监听地址安全默认值（回环地址）
	defaultBindAddr = "127.0.0.1"

	// defaultBindPort 监听端口安全默认值
	defaultBindPort = "5700"

	// killPriorCmd 尽力终止上一个实例：pid 哨兵存在且为正整数时发送信号。
	// 哨兵缺失或终止失败不影响本次运行尝试。
	killPriorCmd = "/bin/bash -c 'test -f " + pidFile +
		" && test $(cat " + pidFile + ") -gt 0 && kill $(cat " + pidFile + ")'"

	// aliveMarker 启动确认标记：只有进程存活时远程脚本才会回显
	aliveMarker = "pid"
)

// Run 对节点执行运行流水线
//
// 算法：
//  1. 以 running=false 作为待定状态
//  2. 尽力终止哨兵记录的旧实例（失败不致命）
//  3. 解析并校验监听地址/端口（见 inferConnParams）
//  4. 单个交互式 shell 按序执行：后台启动、写 pid/地址/端口
//     哨兵、启动等待、kill -0 探活并回显标记
//  5. 合并输出缺失标记则 running=false 返回 RunFailed，
//     否则 running=true 返回 Ok
func (p *Pool) Run(name string, subject model.DeploySubject) model.RunResult {
	sess, cs, nodeOK, connOK := p.lookupSession(name)
	if !nodeOK {
		p.log.WithNode(name).Error("node doesn't exist")
		return model.RunNodeNotFound
	}
	if !connOK {
		p.log.WithNode(name).Error("node not connected")
		return model.RunNodeNotConnected
	}

	log := p.log.WithNode(name).WithSubject(subject.String())

	st := cs.Subject(subject)
	st.Running = false

	// 终止旧实例（尽力而为）
	sess.Exec(killPriorCmd)

	bindAddr, bindPort := p.inferConnParams(name)

	pause := int(p.startupPause.Seconds())
	if pause < 1 {
		pause = 1
	}

	cmds := []string{
		fmt.Sprintf("%s --server 'tcp://%s:%s' < /dev/null > /dev/null 2> /dev/null &",
			visaoBinary, bindAddr, bindPort),
		"echo $! > " + pidFile,
		fmt.Sprintf("echo %s > %s", bindAddr, bindAddrFile),
		fmt.Sprintf("echo %s > %s", bindPort, bindPortFile),
		fmt.Sprintf("sleep %d", pause),
		fmt.Sprintf(`kill -0 "$(cat %s)" && echo %s "$(cat %s)"`, pidFile, aliveMarker, pidFile),
	}

	out := sess.ExecScript(cmds)

	if !strings.Contains(out, aliveMarker) {
		cs.SetSubject(subject, st)
		p.setStatus(name, cs)
		log.Error("run failed", "bind_addr", bindAddr, "bind_port", bindPort)
		return model.RunFailed
	}

	st.Running = true
	cs.SetSubject(subject, st)
	p.setStatus(name, cs)

	log.Info("running", "bind_addr", bindAddr, "bind_port", bindPort)
	return model.RunOk
}

// inferConnParams 解析并校验本次运行的监听端点
//
// 解析值会被插入远程 shell 命令串，因此做注入防护：
// 含引号的地址被拒绝并回退到回环地址；无法解析为 16 位
// 无符号整数的端口被拒绝并回退到默认端口。
func (p *Pool) inferConnParams(name string) (string, string) {
	bindAddr := p.GetParam(name, model.ParamBindAddr)
	if strings.ContainsAny(bindAddr, `'"`) {
		p.log.WithNode(name).Error("reset bind address due to bad symbols", "bind_addr", bindAddr)
		bindAddr = ""
	}
	if bindAddr == "" {
		bindAddr = defaultBindAddr
	}

	bindPort := p.GetParam(name, model.ParamBindPort)
	if _, err := strconv.ParseUint(bindPort, 10, 16); err != nil {
		if bindPort != "" {
			p.log.WithNode(name).Error("reset bind port due to bad symbols", "bind_port", bindPort)
		}
		bindPort = ""
	}
	if bindPort == "" {
		bindPort = defaultBindPort
	}

	return bindAddr, bindPort
}
