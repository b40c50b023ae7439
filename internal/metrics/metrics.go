// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package metrics exposes bridge counters to Prometheus
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Frame results
const (
	ResultOK       = "ok"
	ResultChecksum = "checksum"
	ResultLength   = "length"
)

// NewRegistry creates a registry with the Go and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus text format
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// BridgeMetrics are the counters updated by the bridge
type BridgeMetrics struct {
	Frames          *prometheus.CounterVec // labels: result=ok|checksum|length
	FieldsPublished prometheus.Counter
	Commands        *prometheus.CounterVec // labels: kind, result=ok|error
	BytesReceived   prometheus.Counter
	LastFrame       prometheus.Gauge // unix seconds of the last valid frame
}

// NewBridgeMetrics registers and returns the bridge metrics
func NewBridgeMetrics(reg prometheus.Registerer) *BridgeMetrics {
	m := &BridgeMetrics{
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aldes_frames_total",
			Help: "Frames read from the controller by decode result.",
		}, []string{"result"}),
		FieldsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aldes_fields_published_total",
			Help: "Decoded field values published to MQTT.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aldes_commands_total",
			Help: "Commands handled by kind and result.",
		}, []string{"kind", "result"}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aldes_bytes_received_total",
			Help: "Bytes read from the controller connection.",
		}),
		LastFrame: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aldes_last_frame_timestamp_seconds",
			Help: "Unix time of the last valid frame.",
		}),
	}
	reg.MustRegister(m.Frames, m.FieldsPublished, m.Commands, m.BytesReceived, m.LastFrame)
	return m
}

// ObserveFrame counts one decode with its result label
func (m *BridgeMetrics) ObserveFrame(result string, at time.Time) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.LastFrame.Set(float64(at.UnixNano()) / 1e9)
	}
}

// ObserveCommand counts one command
func (m *BridgeMetrics) ObserveCommand(kind string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = "error"
	}
	m.Commands.WithLabelValues(kind, result).Inc()
}

// AddBytes counts bytes read from the connection
func (m *BridgeMetrics) AddBytes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesReceived.Add(float64(n))
}

// AddPublished counts field values published
func (m *BridgeMetrics) AddPublished(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.FieldsPublished.Add(float64(n))
}
