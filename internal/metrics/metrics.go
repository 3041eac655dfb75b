// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 各サービス層から利用する。
type MetricsCollector interface {
	RecordFollow()
	RecordUnfollow()
	RecordConversationCreated()
	RecordMessageSent()
	AddActiveChatSubscriptions(delta int)
	RecordFeedFetchFailure()
	RecordFeedLatency(d time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	follows             prometheus.Counter
	unfollows           prometheus.Counter
	conversations       prometheus.Counter
	messagesSent        prometheus.Counter
	activeSubscriptions prometheus.Gauge
	feedFetchFail       prometheus.Counter
	feedLatency         prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		follows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ichiba_follows_total",
			Help: "フォロー操作成功の合計数",
		}),
		unfollows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ichiba_unfollows_total",
			Help: "アンフォロー操作成功の合計数",
		}),
		conversations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ichiba_conversations_created_total",
			Help: "新規作成された会話の合計数",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ichiba_messages_sent_total",
			Help: "送信されたメッセージの合計数",
		}),
		activeSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ichiba_active_chat_subscriptions",
			Help: "アクティブな会話購読の現在数",
		}),
		feedFetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ichiba_feed_fetch_fail_total",
			Help: "フィード取得失敗の合計数",
		}),
		feedLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ichiba_feed_latency_seconds",
			Help:    "フィード導出のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.follows,
		c.unfollows,
		c.conversations,
		c.messagesSent,
		c.activeSubscriptions,
		c.feedFetchFail,
		c.feedLatency,
	)

	return c
}

// RecordFollow はフォロー操作の成功を記録する。
func (c *Collector) RecordFollow() {
	c.follows.Inc()
}

// RecordUnfollow はアンフォロー操作の成功を記録する。
func (c *Collector) RecordUnfollow() {
	c.unfollows.Inc()
}

// RecordConversationCreated は新規会話の作成を記録する。
func (c *Collector) RecordConversationCreated() {
	c.conversations.Inc()
}

// RecordMessageSent はメッセージ送信を記録する。
func (c *Collector) RecordMessageSent() {
	c.messagesSent.Inc()
}

// AddActiveChatSubscriptions はアクティブな会話購読数を増減する。
func (c *Collector) AddActiveChatSubscriptions(delta int) {
	c.activeSubscriptions.Add(float64(delta))
}

// RecordFeedFetchFailure はフィード取得失敗を記録する。
func (c *Collector) RecordFeedFetchFailure() {
	c.feedFetchFail.Inc()
}

// RecordFeedLatency はフィード導出のレイテンシを記録する。
func (c *Collector) RecordFeedLatency(d time.Duration) {
	c.feedLatency.Observe(d.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
