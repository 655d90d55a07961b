// Package api 节点池操作接口
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"delta-admin/internal/model"
)

// ============================================================================
// 请求/响应结构体
// ============================================================================

// AddNodeRequest 注册节点请求体
//
// 字段说明：
//   - Name: 节点名（注册表内唯一，必填）
//   - FQDN: 节点网络地址 host:port（必填）
//   - Params: 节点级参数覆盖（username/password/distr/bind_addr/bind_port）
type AddNodeRequest struct {
	Name   string            `json:"name"`
	FQDN   string            `json:"fqdn"`
	Params map[string]string `json:"params,omitempty"`
}

// SubjectRequest 部署/运行请求体
type SubjectRequest struct {
	Subject string `json:"subject"`
}

// resultResponse 所有池操作的统一响应体
type resultResponse struct {
	Result string `json:"result"`
}

// pipelineResponse 流水线操作响应体：结果 + 留存的对象状态
type pipelineResponse struct {
	Result string              `json:"result"`
	Status model.SubjectStatus `json:"status"`
}

// ============================================================================
// 节点注册表接口
// ============================================================================

// ListNodes 列出注册表
//
// 路由: GET /api/v1/nodes
//
// 响应中的节点参数做脱敏处理（password 不回显）。
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	nodes := h.pool.Nodes()
	out := make(map[string]interface{}, len(nodes))
	for name, node := range nodes {
		params := make(map[string]string, len(node.Params))
		for k, v := range node.Params {
			if k == model.ParamPassword.String() {
				v = "***"
			}
			params[k] = v
		}
		out[name] = map[string]interface{}{
			"fqdn":      node.FQDN,
			"params":    params,
			"connected": h.pool.IsConnected(name).Connected,
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"nodes": out})
}

// AddNode 注册节点
//
// 路由: POST /api/v1/nodes
//
// 响应:
//   - 201 Created: {"result": "ok"}
//   - 400 Bad Request: 请求体格式错误或缺少必填字段
//   - 409 Conflict: 名称已存在（原节点参数保持不变）
func (h *Handler) AddNode(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req AddNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.FQDN == "" {
		h.writeError(w, http.StatusBadRequest, "name and fqdn are required")
		return
	}

	result := h.pool.Add(req.Name, req.FQDN, req.Params)
	h.observe(r.Context(), "add", req.Name, "", result.String(), started)

	status := http.StatusCreated
	if result == model.AddNodeAlreadyExists {
		status = http.StatusConflict
	}
	h.writeJSON(w, status, resultResponse{Result: result.String()})
}

// RemoveNode 注销节点（级联拆除会话）
//
// 路由: DELETE /api/v1/nodes/{name}
func (h *Handler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	name := r.PathValue("name")

	result := h.pool.Remove(name)
	h.observe(r.Context(), "remove", name, "", result.String(), started)

	status := http.StatusOK
	if result == model.RemoveNodeNotFound {
		status = http.StatusNotFound
	}
	h.writeJSON(w, status, resultResponse{Result: result.String()})
}

// ============================================================================
// 会话管理接口
// ============================================================================

// ConnectNode 建立节点会话
//
// 路由: POST /api/v1/nodes/{name}/connect
//
// 响应:
//   - 200 OK: 已连接（重复 connect 为替换语义）
//   - 404 Not Found: 节点未注册
//   - 502 Bad Gateway: 认证失败或传输故障
func (h *Handler) ConnectNode(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	name := r.PathValue("name")

	result := h.pool.Connect(name)
	h.observe(r.Context(), "connect", name, "", result.String(), started)

	status := http.StatusOK
	switch result {
	case model.ConnectNodeNotFound:
		status = http.StatusNotFound
	case model.ConnectNotAuthenticated:
		status = http.StatusBadGateway
	}
	h.writeJSON(w, status, resultResponse{Result: result.String()})
}

// DisconnectNode 拆除节点会话（幂等）
//
// 路由: POST /api/v1/nodes/{name}/disconnect
func (h *Handler) DisconnectNode(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	name := r.PathValue("name")

	result := h.pool.Disconnect(name)
	h.observe(r.Context(), "disconnect", name, "", result.String(), started)

	status := http.StatusOK
	if result == model.DisconnectNodeNotFound {
		status = http.StatusNotFound
	}
	h.writeJSON(w, status, resultResponse{Result: result.String()})
}

// NodeStatus 查询节点连接状态（纯读取，永不失败）
//
// 路由: GET /api/v1/nodes/{name}/status
func (h *Handler) NodeStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.pool.IsConnected(r.PathValue("name")))
}

// ============================================================================
// 流水线接口
// ============================================================================

// DeployNode 执行部署流水线
//
// 路由: POST /api/v1/nodes/{name}/deploy
//
// 请求体: {"subject": "visao"}
//
// 响应:
//   - 200 OK: 部署完成，四个阶段标志全部置位
//   - 400 Bad Request: 保留对象或集合外对象
//   - 404 Not Found: 节点未注册
//   - 409 Conflict: 节点未连接
//   - 502 Bad Gateway: 某阶段失败；响应附带留存的部分状态
func (h *Handler) DeployNode(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	name := r.PathValue("name")

	subject, ok := h.decodeSubject(w, r)
	if !ok {
		return
	}

	result := h.pool.Deploy(name, subject)
	h.observe(r.Context(), "deploy", name, subject.String(), result.String(), started)

	var status int
	switch result {
	case model.DeployOk:
		status = http.StatusOK
	case model.DeployInvalidArgument:
		status = http.StatusBadRequest
	case model.DeployNodeNotFound:
		status = http.StatusNotFound
	case model.DeployNodeNotConnected:
		status = http.StatusConflict
	default:
		status = http.StatusBadGateway
	}
	h.writeJSON(w, status, pipelineResponse{
		Result: result.String(),
		Status: h.pool.IsConnected(name).Subject(subject),
	})
}

// RunNode 执行运行流水线
//
// 路由: POST /api/v1/nodes/{name}/run
//
// 请求体: {"subject": "visao"}
func (h *Handler) RunNode(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	name := r.PathValue("name")

	subject, ok := h.decodeSubject(w, r)
	if !ok {
		return
	}

	result := h.pool.Run(name, subject)
	h.observe(r.Context(), "run", name, subject.String(), result.String(), started)

	var status int
	switch result {
	case model.RunOk:
		status = http.StatusOK
	case model.RunNodeNotFound:
		status = http.StatusNotFound
	case model.RunNodeNotConnected:
		status = http.StatusConflict
	default:
		status = http.StatusBadGateway
	}
	h.writeJSON(w, status, pipelineResponse{
		Result: result.String(),
		Status: h.pool.IsConnected(name).Subject(subject),
	})
}

// NodeAlive 存活探测（只读，现场派生，绝不缓存）
//
// 路由: GET /api/v1/nodes/{name}/alive
func (h *Handler) NodeAlive(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.pool.IsAlive(r.PathValue("name")))
}

// decodeSubject 解析请求体中的部署对象
func (h *Handler) decodeSubject(w http.ResponseWriter, r *http.Request) (model.DeploySubject, bool) {
	var req SubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	subject, err := model.ParseDeploySubject(req.Subject)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return subject, true
}

// ============================================================================
// 审计接口
// ============================================================================

// ListAudit 查询审计记录
//
// 路由: GET /api/v1/audit?node=n1&limit=50
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		h.writeError(w, http.StatusNotFound, "audit log disabled")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	node := r.URL.Query().Get("node")

	var (
		entries interface{}
		err     error
	)
	if node != "" {
		entries, err = h.audit.ListByNode(r.Context(), node, limit)
	} else {
		entries, err = h.audit.List(r.Context(), limit)
	}
	if err != nil {
		h.log.WithError(err).Error("list audit entries failed")
		h.writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
