// Package model 定义节点池核心数据模型
//
// result.go 包含所有池操作的结果枚举。结果以封闭变体表示，
// 绝不以异常/panic 跨越池边界（错误分类见各枚举注释）：
//   - 未找到类：NodeNotFound
//   - 状态前置类：NodeNotConnected、NodeAlreadyExists
//   - 认证类：NotAuthenticated
//   - 流水线阶段类：DeployCopyFailed / DeployExtractionFailed /
//     DeployTestFailed / RunFailed（总是伴随留存的部分状态）
//   - 参数校验类：InvalidArgument
package model

// ============================================================================
// AddResult
// ============================================================================

// AddResult add 操作结果
type AddResult string

const (
	AddOk                AddResult = "ok"
	AddNodeAlreadyExists AddResult = "node_already_exists"
)

// String 返回结果的字符串形式
func (r AddResult) String() string { return string(r) }

// ============================================================================
// RemoveResult
// ============================================================================

// RemoveResult remove 操作结果
type RemoveResult string

const (
	RemoveOk           RemoveResult = "ok"
	RemoveNodeNotFound RemoveResult = "node_not_found"
)

func (r RemoveResult) String() string { return string(r) }

// ============================================================================
// ConnectResult
// ============================================================================

// ConnectResult connect 操作结果
type ConnectResult string

const (
	ConnectOk               ConnectResult = "ok"
	ConnectNodeNotFound     ConnectResult = "node_not_found"
	ConnectNotAuthenticated ConnectResult = "not_authenticated"
)

func (r ConnectResult) String() string { return string(r) }

// ============================================================================
// DisconnectResult
// ============================================================================

// DisconnectResult disconnect 操作结果
type DisconnectResult string

const (
	DisconnectOk           DisconnectResult = "ok"
	DisconnectNodeNotFound DisconnectResult = "node_not_found"
)

func (r DisconnectResult) String() string { return string(r) }

// ============================================================================
// DeployResult
// ============================================================================

// DeployResult deploy 操作结果
//
// 阶段失败变体与流水线阶段一一对应；返回失败时，调用方仍可通过
// IsConnected 查看留存的部分状态，定位失败阶段。
type DeployResult string

const (
	DeployOk               DeployResult = "ok"
	DeployInvalidArgument  DeployResult = "invalid_argument"
	DeployNodeNotFound     DeployResult = "node_not_found"
	DeployNodeNotConnected DeployResult = "node_not_connected"
	DeployCopyFailed       DeployResult = "deploy_copy_failed"
	DeployExtractionFailed DeployResult = "deploy_extraction_failed"
	DeployTestFailed       DeployResult = "deploy_test_failed"
)

func (r DeployResult) String() string { return string(r) }

// ============================================================================
// RunResult
// ============================================================================

// RunResult run 操作结果
type RunResult string

const (
	RunOk               RunResult = "ok"
	RunNodeNotFound     RunResult = "node_not_found"
	RunNodeNotConnected RunResult = "node_not_connected"
	RunFailed           RunResult = "run_failed"
)

func (r RunResult) String() string { return string(r) }
