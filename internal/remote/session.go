// Package remote 远程会话能力边界
//
// 节点池通过本包的抽象接口消费远程 shell 传输能力：
//   - Dialer：建立并认证远程会话
//   - Session：命令执行、交互式脚本、文件上传
//
// 池核心只依赖接口，生产实现基于 SSH（见 ssh.go），
// 测试使用进程内伪实现。传输层故障在实现内部捕获，
// 以空输出 / error 返回呈现，绝不 panic 跨越池边界。
package remote

// Session 已认证的远程会话
//
// 会话由单个节点实例独占持有，重连时整体丢弃重建，
// 绝不跨重连复用。所有调用为阻塞调用，超时行为由
// 底层传输自身决定。
type Session interface {
	// Exec 执行单条远程命令，返回标准输出；stderr 不混入
	// 返回值。传输故障时返回空串
	Exec(cmd string) string

	// ExecScript 在单个交互式 shell 中按序执行多条命令，
	// 返回标准输出；传输故障时返回空串
	ExecScript(cmds []string) string

	// Upload 将本地文件传输到远程路径（SCP 语义，0644）
	Upload(localPath, remotePath string) error

	// Close 优雅关闭会话（先通道后连接），丢弃前必须调用
	Close() error
}

// Dialer 远程会话建立器
//
// 拨号、握手或认证的任何失败都返回 error；调用方不区分
// 失败类别（池将全部拨号失败映射为同一结果变体）。
type Dialer interface {
	Dial(addr, username, password string) (Session, error)
}
