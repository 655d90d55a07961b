// Package pool 节点池状态机
//
// deploy.go 实现部署流水线：归档传输 → 远程解包 → 冒烟测试。
package pool

import (
	"delta-admin/internal/model"
)

// 远程部署布局。哨兵文件由运行流水线写入、存活探测读取，
// 格式为纯文本、每文件一个值。
const (
	// remoteArchivePath 归档固定暂存路径
	remoteArchivePath = "/tmp/visao-archive.tar.xz"

	// deployDir 远程部署目录
	deployDir = "/tmp/visao"

	// pidFile 进程号哨兵文件
	pidFile = deployDir + "/pid"

	// bindAddrFile 监听地址哨兵文件
	bindAddrFile = deployDir + "/bind_addr"

	// bindPortFile 监听端口哨兵文件
	bindPortFile = deployDir + "/bind_port"

	// visaoBinary 部署后的载荷二进制
	visaoBinary = deployDir + "/bin/visao"

	// platformProbeCmd 连接时一次性采集平台识别串
	platformProbeCmd = "uname -a"

	// extractCmd 远程解包命令；成功时输出 ok，失败时输出为空
	extractCmd = "mkdir -p " + deployDir +
		" && tar xvf " + remoteArchivePath + " -C " + deployDir +
		" > /dev/null 2> /dev/null && echo ok"

	// smokeTestCmd 部署后冒烟测试；输出为空视为失败
	smokeTestCmd = visaoBinary + " --version"
)

// Deploy 对节点执行部署流水线
//
// 前置检查按序：保留对象（或集合外对象）返回 InvalidArgument；
// 节点未注册返回 NodeNotFound；无活动会话返回 NodeNotConnected。
//
// 流水线入口处复位全部部署阶段标志，随后严格按
// copied → extracted → tested 推进；任一阶段失败即停止，
// 已达到的部分进度写回状态后返回对应阶段失败变体。
// Running 标志不属于部署流水线，保持原值。
func (p *Pool) Deploy(name string, subject model.DeploySubject) model.DeployResult {
	if subject == model.SubjectDelta || !subject.Valid() {
		p.log.WithNode(name).Error("invalid deploy subject", "subject", subject.String())
		return model.DeployInvalidArgument
	}

	sess, cs, nodeOK, connOK := p.lookupSession(name)
	if !nodeOK {
		p.log.WithNode(name).Error("node doesn't exist")
		return model.DeployNodeNotFound
	}
	if !connOK {
		p.log.WithNode(name).Error("node not connected")
		return model.DeployNodeNotConnected
	}

	log := p.log.WithNode(name).WithSubject(subject.String())

	st := cs.Subject(subject)
	st.Deployed = false
	st.DeployArchiveCopied = false
	st.DeployArchiveExtracted = false
	st.DeployArchiveTested = false

	distr := p.GetParam(name, model.ParamDistr)

	if err := sess.Upload(distr, remoteArchivePath); err != nil {
		cs.SetSubject(subject, st)
		p.setStatus(name, cs)
		log.WithError(err).Error("archive copy failed", "distr", distr)
		return model.DeployCopyFailed
	}
	st.DeployArchiveCopied = true

	if sess.Exec(extractCmd) == "" {
		cs.SetSubject(subject, st)
		p.setStatus(name, cs)
		log.Error("archive extraction failed")
		return model.DeployExtractionFailed
	}
	st.DeployArchiveExtracted = true

	if sess.Exec(smokeTestCmd) == "" {
		cs.SetSubject(subject, st)
		p.setStatus(name, cs)
		log.Error("deploy smoke test failed")
		return model.DeployTestFailed
	}
	st.DeployArchiveTested = true

	st.Deployed = true
	cs.SetSubject(subject, st)
	p.setStatus(name, cs)

	log.Info("deployed")
	return model.DeployOk
}
