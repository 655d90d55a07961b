// Package pool 节点池状态机
//
// 本包是控制面的核心：节点注册表、按名称跟踪的活动会话、
// 按节点/按部署对象的流水线状态，以及建立在远程命令执行和
// 文件传输之上的部署/运行/存活探测协议。
//
// 并发模型：
//   - 池级互斥锁串行化结构性写入（add/remove/connect/disconnect）
//   - 读操作并发安全（RLock）
//   - 同一节点名至多一个在途操作由调用方保证，池自身不做
//     按节点加锁
//
// 文件组织：
//   - pool.go: 池结构、注册表、参数解析、会话管理
//   - deploy.go: 部署流水线（复制→解包→冒烟测试）
//   - run.go: 运行/生命周期控制
//   - alive.go: 存活探测（只读）
package pool

import (
	"sync"
	"time"

	"delta-admin/internal/model"
	"delta-admin/internal/remote"
	"delta-admin/pkg/logging"
)

// instance 单节点的活动会话槽
//
// 会话为单一属主资源：同名节点至多存在一个 instance，
// 重连时旧会话先整体关闭丢弃，绝不复用或合并。
type instance struct {
	session    remote.Session
	connStatus model.ConnStatus
}

// Pool 节点池
type Pool struct {
	mu        sync.RWMutex
	nodes     map[string]*model.Node
	instances map[string]*instance
	strParams map[string]string

	dialer remote.Dialer
	log    *logging.Logger

	// startupPause 运行流水线中的启动等待。这是一个启发式等待，
	// 不是真正的就绪信号，可按部署环境调整。
	startupPause time.Duration
}

// New 创建节点池
func New(dialer remote.Dialer, log *logging.Logger) *Pool {
	if log == nil {
		log = logging.Default("pool")
	}
	return &Pool{
		nodes:        make(map[string]*model.Node),
		instances:    make(map[string]*instance),
		strParams:    make(map[string]string),
		dialer:       dialer,
		log:          log,
		startupPause: 4 * time.Second,
	}
}

// SetStartupPause 调整运行流水线的启动等待时长
func (p *Pool) SetStartupPause(d time.Duration) {
	p.startupPause = d
}

// SetDefault 设置池级默认参数
func (p *Pool) SetDefault(param model.NodeParam, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.strParams[param.String()] = value
}

// GetParam 解析节点参数：节点级覆盖 → 池级默认 → 空串
//
// 永不失败；节点不存在时按两级都未设置处理。
func (p *Pool) GetParam(name string, param model.NodeParam) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if node, ok := p.nodes[name]; ok {
		return p.nodeParamLocked(node, param)
	}
	if v, ok := p.strParams[param.String()]; ok {
		return v
	}
	return ""
}

// nodeParamLocked 两级回退解析；调用方必须持有读锁
func (p *Pool) nodeParamLocked(node *model.Node, param model.NodeParam) string {
	key := param.String()
	if v, ok := node.Params[key]; ok {
		return v
	}
	if v, ok := p.strParams[key]; ok {
		return v
	}
	return ""
}

// Add 注册节点
//
// 名称在注册表内唯一；重复注册返回 NodeAlreadyExists，
// 且不修改原有节点参数。
func (p *Pool) Add(name, fqdn string, params map[string]string) model.AddResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.nodes[name]; ok {
		p.log.WithNode(name).Error("node already exists")
		return model.AddNodeAlreadyExists
	}

	nodeParams := make(map[string]string, len(params))
	for k, v := range params {
		nodeParams[k] = v
	}
	p.nodes[name] = &model.Node{FQDN: fqdn, Params: nodeParams}

	p.log.WithNode(name).Info("added node", "fqdn", fqdn)
	return model.AddOk
}

// Remove 注销节点，并级联拆除其活动会话
//
// 注销后不允许存在引用已删除节点的悬挂会话。
func (p *Pool) Remove(name string) model.RemoveResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.nodes[name]; !ok {
		p.log.WithNode(name).Error("node doesn't exist")
		return model.RemoveNodeNotFound
	}

	delete(p.nodes, name)
	p.dropInstanceLocked(name)

	p.log.WithNode(name).Info("removed node")
	return model.RemoveOk
}

// Connect 建立节点会话
//
// 契约：
//  1. 名称未注册返回 NodeNotFound
//  2. 已有会话无条件先拆除（替换语义，不合并）
//  3. 拨号 + 握手 + 密码认证，凭据来自参数解析
//  4. 拨号/握手/认证任一失败返回 NotAuthenticated，不创建实例
//  5. 成功后一次性采集平台识别串，标记 connected
func (p *Pool) Connect(name string) model.ConnectResult {
	p.mu.Lock()
	node, ok := p.nodes[name]
	if !ok {
		p.mu.Unlock()
		p.log.WithNode(name).Error("node doesn't exist")
		return model.ConnectNodeNotFound
	}

	p.dropInstanceLocked(name)

	fqdn := node.FQDN
	username := p.nodeParamLocked(node, model.ParamUsername)
	password := p.nodeParamLocked(node, model.ParamPassword)
	p.mu.Unlock()

	// 拨号在锁外进行：阻塞的远程调用不应挡住其他节点的操作
	sess, err := p.dialer.Dial(fqdn, username, password)
	if err != nil {
		p.log.WithNode(name).WithError(err).Error("connect failed")
		return model.ConnectNotAuthenticated
	}

	platform := sess.Exec(platformProbeCmd)

	p.mu.Lock()
	defer p.mu.Unlock()

	// 拨号期间节点可能已被注销；不留下悬挂会话
	if _, ok := p.nodes[name]; !ok {
		sess.Close()
		p.log.WithNode(name).Error("node removed during connect")
		return model.ConnectNodeNotFound
	}
	p.dropInstanceLocked(name)

	cs := model.NewConnStatus(true)
	cs.Platform = platform
	p.instances[name] = &instance{session: sess, connStatus: cs}

	p.log.WithNode(name).Info("connected node")
	return model.ConnectOk
}

// Disconnect 拆除节点会话
//
// 幂等：名称合法但无会话时同样返回 Ok。
func (p *Pool) Disconnect(name string) model.DisconnectResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.nodes[name]; !ok {
		p.log.WithNode(name).Error("node doesn't exist")
		return model.DisconnectNodeNotFound
	}

	p.dropInstanceLocked(name)

	p.log.WithNode(name).Info("disconnected node")
	return model.DisconnectOk
}

// IsConnected 查询节点连接状态（纯读取）
//
// 无会话时返回断开的默认状态，永不失败。
func (p *Pool) IsConnected(name string) model.ConnStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if inst, ok := p.instances[name]; ok {
		return inst.connStatus.Clone()
	}
	return model.NewConnStatus(false)
}

// Nodes 返回注册表快照（节点名 → 节点副本）
func (p *Pool) Nodes() map[string]model.Node {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]model.Node, len(p.nodes))
	for name, node := range p.nodes {
		n := model.Node{FQDN: node.FQDN, Params: make(map[string]string, len(node.Params))}
		for k, v := range node.Params {
			n.Params[k] = v
		}
		out[name] = n
	}
	return out
}

// Stats 返回注册节点数与已连接节点数（供指标导出）
func (p *Pool) Stats() (nodes, connected int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.nodes), len(p.instances)
}

// dropInstanceLocked 关闭并移除会话槽；调用方必须持有写锁
func (p *Pool) dropInstanceLocked(name string) {
	inst, ok := p.instances[name]
	if !ok {
		return
	}
	if err := inst.session.Close(); err != nil {
		p.log.WithNode(name).WithError(err).Warn("session close failed")
	}
	delete(p.instances, name)
}

// lookupSession 读取会话与状态副本；部署/运行流水线的共用前置检查
func (p *Pool) lookupSession(name string) (sess remote.Session, cs model.ConnStatus, nodeOK, connOK bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, ok := p.nodes[name]; !ok {
		return nil, model.ConnStatus{}, false, false
	}
	inst, ok := p.instances[name]
	if !ok {
		return nil, model.ConnStatus{}, true, false
	}
	return inst.session, inst.connStatus.Clone(), true, true
}

// setStatus 将连接状态整体写回实例
//
// 流水线的每个终局（成功或失败）都必须写回，保证调用方
// 总能看到流水线推进到了哪一步。
func (p *Pool) setStatus(name string, cs model.ConnStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if inst, ok := p.instances[name]; ok {
		inst.connStatus = cs
	}
}
