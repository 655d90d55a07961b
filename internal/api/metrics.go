// Package api Prometheus 指标导出
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 包含所有池操作指标
type Metrics struct {
	registry *prometheus.Registry

	// 操作指标
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// 池规模指标
	NodesRegistered prometheus.Gauge
	NodesConnected  prometheus.Gauge
}

// NewMetrics 创建指标实例（独立 Registry，可重复创建）
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pool_operations_total",
				Help:      "Total pool operations by op and result",
			},
			[]string{"op", "result"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pool_operation_duration_seconds",
				Help:      "Pool operation duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"op"},
		),
		NodesRegistered: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_nodes",
				Help:      "Registered nodes in the pool",
			},
		),
		NodesConnected: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_connected_nodes",
				Help:      "Nodes with a live session",
			},
		),
	}
}

// Registry 返回指标注册表（供 /metrics 导出）
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
