// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes server-health counters and gauges over HTTP
// for scraping, plus a plain /healthz liveness endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ClientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "katcpd_clients_connected",
		Help: "Number of TCP clients currently connected.",
	})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "katcpd_requests_total",
		Help: "Requests dispatched, by request name and outcome.",
	}, []string{"request", "result"})

	SensorUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "katcpd_sensor_updates_total",
		Help: "Sensor value updates, by sensor name.",
	}, []string{"sensor"})

	StrategiesArmed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "katcpd_strategies_armed",
		Help: "Number of sampling strategies currently installed across all clients.",
	})
)

// Serve starts an HTTP listener exposing /metrics and /healthz on addr.
// It runs until the listener fails or the process exits; callers
// typically launch it in its own goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return http.ListenAndServe(addr, mux)
}
