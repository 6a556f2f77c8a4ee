// Package metrics 提供进程内指标收集
//
// 基于 prometheus 客户端，所有指标注册在注入的 Registry 上，
// 避免多实例（测试中常见）冲突全局默认注册表。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 丢包原因标签值
const (
	ReasonMalformed        = "malformed"
	ReasonUnknownPartition = "unknown_partition"
	ReasonNoSession        = "no_session"
	ReasonAuthFailure      = "auth_failure"
	ReasonReplay           = "replay"
	ReasonCounterDesync    = "counter_desync"
	ReasonUnknownProtocol  = "unknown_protocol"
	ReasonQueueFull        = "queue_full"
)

// Recorder 指标记录器
//
// 方法对 nil 接收者安全，组件可以在无指标环境（单元测试）下直接使用。
type Recorder struct {
	inboundPackets    prometheus.Counter
	outboundPackets   prometheus.Counter
	droppedPackets    *prometheus.CounterVec
	exchangesOpened   prometheus.Counter
	exchangesTimedOut prometheus.Counter
	echoRequests      prometheus.Counter
	announcements     prometheus.Counter
	duplicateAnnounce prometheus.Counter
	sendFailures      prometheus.Counter
}

// NewRecorder 创建指标记录器并注册所有指标
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		inboundPackets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "secmsg", Name: "inbound_packets_total",
			Help: "Inbound packets handed to the session layer.",
		}),
		outboundPackets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "secmsg", Name: "outbound_packets_total",
			Help: "Packets queued for transmission.",
		}),
		droppedPackets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "secmsg", Name: "dropped_packets_total",
			Help: "Packets dropped during steady-state operation, by reason.",
		}, []string{"reason"}),
		exchangesOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "secmsg", Name: "exchanges_opened_total",
			Help: "Exchanges opened, both initiator and responder side.",
		}),
		exchangesTimedOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "secmsg", Name: "exchanges_timed_out_total",
			Help: "Initiator exchanges closed by the response deadline.",
		}),
		echoRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "secmsg", Name: "echo_requests_total",
			Help: "Echo requests served.",
		}),
		announcements: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "secmsg", Name: "announcements_total",
			Help: "Discovery announcements received.",
		}),
		duplicateAnnounce: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "secmsg", Name: "duplicate_announcements_total",
			Help: "Discovery announcements coalesced by the dedup cache.",
		}),
		sendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "secmsg", Name: "send_failures_total",
			Help: "Asynchronous transport delivery failures.",
		}),
	}
}

// IncInbound 记录一个入站报文
func (r *Recorder) IncInbound() {
	if r != nil {
		r.inboundPackets.Inc()
	}
}

// IncOutbound 记录一个出站报文
func (r *Recorder) IncOutbound() {
	if r != nil {
		r.outboundPackets.Inc()
	}
}

// IncDropped 记录一次丢包
func (r *Recorder) IncDropped(reason string) {
	if r != nil {
		r.droppedPackets.WithLabelValues(reason).Inc()
	}
}

// IncExchangeOpened 记录一次 Exchange 打开
func (r *Recorder) IncExchangeOpened() {
	if r != nil {
		r.exchangesOpened.Inc()
	}
}

// IncExchangeTimedOut 记录一次 Exchange 超时
func (r *Recorder) IncExchangeTimedOut() {
	if r != nil {
		r.exchangesTimedOut.Inc()
	}
}

// IncEchoRequest 记录一次 Echo 请求
func (r *Recorder) IncEchoRequest() {
	if r != nil {
		r.echoRequests.Inc()
	}
}

// IncAnnouncement 记录一次通告
func (r *Recorder) IncAnnouncement() {
	if r != nil {
		r.announcements.Inc()
	}
}

// IncDuplicateAnnouncement 记录一次被去重的通告
func (r *Recorder) IncDuplicateAnnouncement() {
	if r != nil {
		r.duplicateAnnounce.Inc()
	}
}

// IncSendFailure 记录一次异步投递失败
func (r *Recorder) IncSendFailure() {
	if r != nil {
		r.sendFailures.Inc()
	}
}
