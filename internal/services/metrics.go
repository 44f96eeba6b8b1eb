package services

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Metrics groups the Prometheus collectors exported on /metrics. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	onboarding      *prometheus.CounterVec
	photoUploads    *prometheus.CounterVec
	photoBytes      prometheus.Counter
	transitions     *prometheus.CounterVec
	detailFallbacks prometheus.Counter
	cleanupTasks    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		onboarding: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "viprasethu_onboarding_submissions_total",
			Help: "Provider onboarding submissions by result.",
		}, []string{"result"}),
		photoUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "viprasethu_photo_uploads_total",
			Help: "Provider photo uploads by result.",
		}, []string{"result"}),
		photoBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "viprasethu_photo_upload_bytes_total",
			Help: "Bytes of original photos stored.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "viprasethu_moderation_transitions_total",
			Help: "Moderation state transitions by entity and action.",
		}, []string{"entity", "action"}),
		detailFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "viprasethu_provider_detail_fallbacks_total",
			Help: "Detail lookups served by the joined-select fallback after the RPC failed.",
		}),
		cleanupTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "viprasethu_photo_cleanup_tasks_total",
			Help: "Photo object cleanup tasks by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.onboarding, m.photoUploads, m.photoBytes, m.transitions, m.detailFallbacks, m.cleanupTasks)
	return m
}

// RegisterDB exports connection pool stats for db.
func (m *Metrics) RegisterDB(db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		m.registry.MustRegister(collectors.NewDBStatsCollector(sqlDB, db.Dialector.Name()))
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveOnboarding(result string) {
	if m != nil {
		m.onboarding.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObservePhotoUpload(result string, size int64) {
	if m == nil {
		return
	}
	m.photoUploads.WithLabelValues(result).Inc()
	if result == "ok" && size > 0 {
		m.photoBytes.Add(float64(size))
	}
}

func (m *Metrics) ObserveTransition(entity, action string) {
	if m != nil {
		m.transitions.WithLabelValues(entity, action).Inc()
	}
}

func (m *Metrics) ObserveDetailFallback() {
	if m != nil {
		m.detailFallbacks.Inc()
	}
}

func (m *Metrics) ObserveCleanup(result string) {
	if m != nil {
		m.cleanupTasks.WithLabelValues(result).Inc()
	}
}
