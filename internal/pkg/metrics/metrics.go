package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Server Metrics

	// APIRequestsTotal API请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitflow_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIRequestDuration API请求处理时长
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recruitflow_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Approval Chain Metrics

	// ChainMutationsTotal 审批链变更次数，result 为 ok 或错误类型
	ChainMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitflow_chain_mutations_total",
			Help: "Total number of approval chain mutations",
		},
		[]string{"action", "result"},
	)

	// ChainDiagnosticsTotal 解析与读取过程中产生的诊断
	ChainDiagnosticsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitflow_chain_diagnostics_total",
			Help: "Total number of approval chain diagnostics",
		},
		[]string{"kind"},
	)

	// ChainResolutionsTotal 审批人解析次数
	ChainResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitflow_chain_resolutions_total",
			Help: "Total number of approver resolutions",
		},
		[]string{"result"},
	)

	// ResolvedApprovers 单个步骤解析出的审批人数
	ResolvedApprovers = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recruitflow_resolved_approvers",
			Help:    "Number of effective approvers per resolved step",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	// DirectoryLookupsTotal 审批组目录查询，hit/miss
	DirectoryLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitflow_directory_lookups_total",
			Help: "Total number of group directory lookups",
		},
		[]string{"kind", "cache"},
	)
)
