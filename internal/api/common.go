// Package api 提供 HTTP API 处理器
//
// 本包实现节点池控制面的 RESTful API，包括：
//   - 节点注册/注销接口
//   - 会话管理（connect/disconnect/status）接口
//   - 部署与运行流水线接口
//   - 存活探测接口
//   - 审计记录查询接口
//   - WebSocket 实时事件推送
//
// 文件组织：
//   - common.go: 通用工具函数、Handler 定义、路由
//   - nodes.go: 节点池操作接口
//   - metrics.go: Prometheus 指标
//   - events.go: WebSocket 事件网关
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"delta-admin/internal/auth"
	"delta-admin/internal/model"
	"delta-admin/internal/storage"
	"delta-admin/pkg/logging"
)

// NodePool 处理器消费的节点池能力
//
// *pool.Pool 满足此接口；测试使用进程内桩实现。
type NodePool interface {
	Add(name, fqdn string, params map[string]string) model.AddResult
	Remove(name string) model.RemoveResult
	Connect(name string) model.ConnectResult
	Disconnect(name string) model.DisconnectResult
	IsConnected(name string) model.ConnStatus
	Deploy(name string, subject model.DeploySubject) model.DeployResult
	Run(name string, subject model.DeploySubject) model.RunResult
	IsAlive(name string) model.SubjectAliveStatus
	Nodes() map[string]model.Node
	Stats() (nodes, connected int)
}

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 路由请求到对应的处理函数
//   - 每次池操作后写审计记录、更新指标、推送事件
type Handler struct {
	pool    NodePool
	audit   *storage.AuditStore // 可为 nil（审计关闭）
	gateway *EventGateway
	metrics *Metrics
	authCfg auth.Config
	log     *logging.Logger
}

// NewHandler 创建 Handler 实例
func NewHandler(p NodePool, audit *storage.AuditStore, authCfg auth.Config, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default("api")
	}
	return &Handler{
		pool:    p,
		audit:   audit,
		gateway: NewEventGateway(logger),
		metrics: NewMetrics("delta"),
		authCfg: authCfg,
		log:     logger,
	}
}

// Router 构建路由（含认证中间件）
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("POST /api/v1/auth/login", auth.LoginHandler(h.authCfg))

	mux.HandleFunc("GET /api/v1/nodes", h.ListNodes)
	mux.HandleFunc("POST /api/v1/nodes", h.AddNode)
	mux.HandleFunc("DELETE /api/v1/nodes/{name}", h.RemoveNode)
	mux.HandleFunc("POST /api/v1/nodes/{name}/connect", h.ConnectNode)
	mux.HandleFunc("POST /api/v1/nodes/{name}/disconnect", h.DisconnectNode)
	mux.HandleFunc("GET /api/v1/nodes/{name}/status", h.NodeStatus)
	mux.HandleFunc("POST /api/v1/nodes/{name}/deploy", h.DeployNode)
	mux.HandleFunc("POST /api/v1/nodes/{name}/run", h.RunNode)
	mux.HandleFunc("GET /api/v1/nodes/{name}/alive", h.NodeAlive)

	mux.HandleFunc("GET /api/v1/audit", h.ListAudit)
	mux.HandleFunc("GET /ws/events", h.gateway.HandleWS)

	return auth.Middleware(h.authCfg)(mux)
}

// Gateway 返回事件网关（用于关停）
func (h *Handler) Gateway() *EventGateway {
	return h.gateway
}

// Health 健康检查
//
// 路由: GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	nodes, connected := h.pool.Stats()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"nodes":     nodes,
		"connected": connected,
	})
}

// observe 统一的操作观测出口：审计记录 + 指标 + 事件推送
//
// 纯观测旁路，对返回结果无影响。
func (h *Handler) observe(ctx context.Context, op, node, subject, result string, started time.Time) {
	h.metrics.OperationsTotal.WithLabelValues(op, result).Inc()
	h.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())

	nodes, connected := h.pool.Stats()
	h.metrics.NodesRegistered.Set(float64(nodes))
	h.metrics.NodesConnected.Set(float64(connected))

	if h.audit != nil {
		entry := &storage.AuditEntry{Node: node, Op: op, Subject: subject, Result: result}
		if err := h.audit.RecordOperation(ctx, entry); err != nil {
			h.log.WithError(err).Error("audit record failed", "op", op, "node", node)
		}
	}

	h.gateway.Publish(Event{
		Type:    op,
		Node:    node,
		Subject: subject,
		Result:  result,
		Time:    time.Now(),
	})
}

// writeJSON 输出 JSON 响应
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Error("write response failed")
	}
}

// writeError 输出错误响应
func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
