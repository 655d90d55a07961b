// Package model 定义节点池核心数据模型
//
// subject.go 包含部署对象与状态跟踪相关的模型：
//   - DeploySubject：部署对象枚举（封闭集合）
//   - SubjectStatus：单对象的部署/运行流水线状态
//   - ConnStatus：单节点的连接状态记录
//   - SubjectAliveStatus：存活探测结果（查询时派生，不持久化）
package model

import (
	"fmt"
)

// ============================================================================
// DeploySubject - 部署对象
// ============================================================================

// DeploySubject 标识在节点上部署/运行的逻辑对象
//
// 枚举为封闭集合。SubjectDelta 保留给控制面自身，
// 不是合法的部署目标：对其调用 deploy 返回 InvalidArgument。
type DeploySubject string

const (
	// SubjectDelta 控制面自身（保留值，禁止作为部署目标）
	SubjectDelta DeploySubject = "delta"

	// SubjectVisao visao 载荷二进制
	SubjectVisao DeploySubject = "visao"
)

// Valid 判断枚举值是否在封闭集合内
func (s DeploySubject) Valid() bool {
	switch s {
	case SubjectDelta, SubjectVisao:
		return true
	}
	return false
}

// String 返回部署对象的字符串形式
func (s DeploySubject) String() string {
	return string(s)
}

// ParseDeploySubject 解析部署对象字符串
func ParseDeploySubject(s string) (DeploySubject, error) {
	sub := DeploySubject(s)
	if !sub.Valid() {
		return "", fmt.Errorf("unknown deploy subject: %q", s)
	}
	return sub, nil
}

// ============================================================================
// SubjectStatus - 单对象流水线状态
// ============================================================================

// SubjectStatus 单个部署对象的流水线进度标志
//
// 部署三阶段严格有序：copied → extracted → tested，全部成功后
// Deployed 才置位。每次新的 deploy 尝试开始时全部标志复位，
// 失败时保留已达到的阶段，供调用方诊断失败位置。
// Running 由 run 流水线独立设置。
type SubjectStatus struct {
	DeployArchiveCopied    bool `json:"deploy_archive_copied"`
	DeployArchiveExtracted bool `json:"deploy_archive_extracted"`
	DeployArchiveTested    bool `json:"deploy_archive_tested"`
	Deployed               bool `json:"deployed"`
	Running                bool `json:"running"`
}

// ============================================================================
// ConnStatus - 节点连接状态
// ============================================================================

// ConnStatus 单节点的连接状态记录
//
// Platform 在连接建立时一次性采集（远程识别命令的输出），
// Subjects 按部署对象独立跟踪流水线状态。
type ConnStatus struct {
	Connected bool                            `json:"connected"`
	Platform  string                          `json:"platform"`
	Subjects  map[DeploySubject]SubjectStatus `json:"subjects,omitempty"`
}

// NewConnStatus 创建连接状态记录
func NewConnStatus(connected bool) ConnStatus {
	return ConnStatus{
		Connected: connected,
		Subjects:  make(map[DeploySubject]SubjectStatus),
	}
}

// Subject 读取某对象的状态；未跟踪过时返回全 false 的默认值
func (c ConnStatus) Subject(s DeploySubject) SubjectStatus {
	if st, ok := c.Subjects[s]; ok {
		return st
	}
	return SubjectStatus{}
}

// SetSubject 整体覆盖某对象的状态
func (c *ConnStatus) SetSubject(s DeploySubject, st SubjectStatus) {
	if c.Subjects == nil {
		c.Subjects = make(map[DeploySubject]SubjectStatus)
	}
	c.Subjects[s] = st
}

// Clone 深拷贝连接状态（用于读-改-写回）
func (c ConnStatus) Clone() ConnStatus {
	out := c
	out.Subjects = make(map[DeploySubject]SubjectStatus, len(c.Subjects))
	for k, v := range c.Subjects {
		out.Subjects[k] = v
	}
	return out
}

// ============================================================================
// SubjectAliveStatus - 存活探测结果
// ============================================================================

// SubjectAliveStatus 存活探测结果
//
// 每次探测都从远程节点现场派生，绝不缓存。只有进程确认存活
// 且 bind_port 哨兵文件能解析为合法 16 位无符号整数时，
// Alive 才为 true；端口畸形的节点视为不可用。
type SubjectAliveStatus struct {
	Alive    bool   `json:"alive"`
	BindAddr string `json:"bind_addr"`
	BindPort uint16 `json:"bind_port"`
}
