// Package model 定义节点池核心数据模型
//
// node.go 包含节点相关的数据模型定义：
//   - Node：受管的远程计算节点
//   - NodeParam：节点参数键枚举
package model

// Node 受管的远程计算节点
//
// Node 只保存静态的连接/配置参数，不持有任何会话状态；
// 会话由节点池按名称单独跟踪（见 pool.Instance）。
type Node struct {
	// FQDN 节点网络地址（host:port 形式，SSH 可达）
	FQDN string `json:"fqdn"`

	// Params 节点级参数覆盖（字符串键值，覆盖池级默认值）
	Params map[string]string `json:"params,omitempty"`
}

// NodeParam 节点参数键
//
// 参数解析顺序固定为两级回退：
//  1. 节点级覆盖（Node.Params）
//  2. 池级默认值
//  3. 空字符串（两级都未设置）
type NodeParam string

const (
	// ParamUsername SSH 登录用户名
	ParamUsername NodeParam = "username"

	// ParamPassword SSH 登录密码
	ParamPassword NodeParam = "password"

	// ParamDistr 本地分发归档路径（部署时上传）
	ParamDistr NodeParam = "distr"

	// ParamBindAddr 远程进程监听地址
	ParamBindAddr NodeParam = "bind_addr"

	// ParamBindPort 远程进程监听端口
	ParamBindPort NodeParam = "bind_port"
)

// String 返回参数键的字符串形式
func (p NodeParam) String() string {
	return string(p)
}
