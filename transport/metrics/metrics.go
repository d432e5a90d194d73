// Copyright 2024 Chipflow. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics wraps a transport with Prometheus instrumentation:
// exchange counts, error counts, bytes moved and exchange latency,
// labelled by exchange mode.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/chipflow/crosec/transport"
)

const (
	modeCommand  = "command"
	modePacket   = "packet"
	modeSwitches = "switches"
)

// Transport counts every exchange on the wrapped backend. Unsupported
// capabilities pass through without being counted as errors.
type Transport struct {
	t transport.Transport

	exchanges *prometheus.CounterVec
	failures  *prometheus.CounterVec
	bytesOut  prometheus.Counter
	bytesIn   prometheus.Counter
	latency   *prometheus.HistogramVec
}

// New registers the collectors with reg and returns the wrapped
// transport. The device label distinguishes multiple controllers.
func New(reg prometheus.Registerer, device string, t transport.Transport) *Transport {
	labels := prometheus.Labels{"device": device, "transport": t.Name()}
	m := &Transport{
		t: t,
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crosec", Name: "exchanges_total",
			Help:        "Completed protocol exchanges.",
			ConstLabels: labels,
		}, []string{"mode"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crosec", Name: "exchange_failures_total",
			Help:        "Protocol exchanges that returned an error.",
			ConstLabels: labels,
		}, []string{"mode"}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crosec", Name: "bytes_out_total",
			Help:        "Bytes sent to the controller.",
			ConstLabels: labels,
		}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crosec", Name: "bytes_in_total",
			Help:        "Bytes received from the controller.",
			ConstLabels: labels,
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crosec", Name: "exchange_seconds",
			Help:        "Wall time of one exchange.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"mode"}),
	}
	reg.MustRegister(m.exchanges, m.failures, m.bytesOut, m.bytesIn, m.latency)
	return m
}

func (m *Transport) Name() string {
	return m.t.Name()
}

func (m *Transport) CheckVersion() (int, error) {
	return m.t.CheckVersion()
}

func (m *Transport) Command(cmd uint8, version uint8, req []byte, resp []byte) (int, error) {
	start := time.Now()
	n, err := m.t.Command(cmd, version, req, resp)
	m.observe(modeCommand, len(req), n, start, err)
	return n, err
}

func (m *Transport) Packet(req []byte, resp []byte) (int, error) {
	start := time.Now()
	n, err := m.t.Packet(req, resp)
	m.observe(modePacket, len(req), n, start, err)
	return n, err
}

func (m *Transport) Switches() (uint8, error) {
	s, err := m.t.Switches()
	if err == nil {
		m.exchanges.WithLabelValues(modeSwitches).Inc()
	} else if !errors.Is(err, transport.ErrUnsupported) {
		m.failures.WithLabelValues(modeSwitches).Inc()
	}
	return s, err
}

func (m *Transport) Close() error {
	return m.t.Close()
}

func (m *Transport) observe(mode string, out, in int, start time.Time, err error) {
	if errors.Is(err, transport.ErrUnsupported) {
		return
	}
	m.exchanges.WithLabelValues(mode).Inc()
	m.latency.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	m.bytesOut.Add(float64(out))
	if in > 0 {
		m.bytesIn.Add(float64(in))
	}
	if err != nil {
		m.failures.WithLabelValues(mode).Inc()
	}
}
