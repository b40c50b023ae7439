// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewBridgeMetrics(reg)

	at := time.Unix(1700000000, 0)
	m.ObserveFrame(ResultOK, at)
	m.ObserveFrame(ResultOK, at)
	m.ObserveFrame(ResultChecksum, at)
	m.ObserveCommand("auto", nil)
	m.ObserveCommand("temp", errors.New("encoding error"))
	m.AddBytes(77)
	m.AddBytes(-1)
	m.AddPublished(12)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Frames.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Frames.WithLabelValues(ResultChecksum)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("temp", "error")))
	assert.Equal(t, 77.0, testutil.ToFloat64(m.BytesReceived))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.FieldsPublished))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(m.LastFrame))
}

func TestBridgeMetrics_NilSafe(t *testing.T) {
	var m *BridgeMetrics
	assert.NotPanics(t, func() {
		m.ObserveFrame(ResultOK, time.Now())
		m.ObserveCommand("auto", nil)
		m.AddBytes(1)
		m.AddPublished(1)
	})
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := NewBridgeMetrics(reg)
	m.ObserveFrame(ResultOK, time.Now())

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `aldes_frames_total{result="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
