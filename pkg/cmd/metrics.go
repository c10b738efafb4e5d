// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/consensys/go-axprof/pkg/z3log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// parseMetrics records statistics about parsed logs, which can be dumped in
// the Prometheus text format (e.g. for a node exporter textfile collector).
type parseMetrics struct {
	registry *prometheus.Registry
	// Events processed, by tag.
	events *prometheus.CounterVec
	// Instantiations, by quantifier.
	instantiations *prometheus.CounterVec
	// Failed logs, by error kind.
	failures *prometheus.CounterVec
	// Logs which were only partially parsed.
	timeouts prometheus.Counter
	// Wall-clock time spent parsing each log.
	duration prometheus.Histogram
	// Lines in each log.
	lines prometheus.Histogram
}

func newParseMetrics() *parseMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	//
	return &parseMetrics{
		registry: registry,
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "axprof_events_total",
			Help: "Number of log events processed, by tag.",
		}, []string{"tag"}),
		instantiations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "axprof_instantiations_total",
			Help: "Number of quantifier instantiations, by quantifier.",
		}, []string{"quantifier"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "axprof_parse_failures_total",
			Help: "Number of logs which failed to parse, by error kind.",
		}, []string{"kind"}),
		timeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "axprof_parse_timeouts_total",
			Help: "Number of logs only partially parsed before timing out.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "axprof_parse_duration_seconds",
			Help:    "Time taken to parse a log.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		lines: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "axprof_log_lines",
			Help:    "Number of lines in each log.",
			Buckets: prometheus.ExponentialBuckets(100, 4, 12),
		}),
	}
}

// record the outcome of parsing one log.  This is safe for concurrent use.
func (p *parseMetrics) record(log *z3log.Parser, elapsed time.Duration, timedOut bool, err error) {
	var perr *z3log.ParseError
	//
	p.duration.Observe(elapsed.Seconds())
	p.lines.Observe(float64(log.Line()))
	//
	if timedOut {
		p.timeouts.Inc()
	}
	//
	if errors.As(err, &perr) {
		p.failures.WithLabelValues(perr.Kind.String()).Inc()
	} else if err != nil {
		p.failures.WithLabelValues("io").Inc()
	}
	//
	for tag, n := range log.EventCounts() {
		p.events.WithLabelValues(tag).Add(float64(n))
	}
	//
	for i, q := range log.Quantifiers() {
		if len(q.Instances) > 0 {
			p.instantiations.WithLabelValues(log.QuantName(z3log.QuantIdx(i))).Add(float64(len(q.Instances)))
		}
	}
}

// write all metrics in the Prometheus text format.
func (p *parseMetrics) write(w io.Writer) error {
	families, err := p.registry.Gather()
	if err != nil {
		return err
	}
	//
	encoder := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	//
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return err
		}
	}
	//
	return nil
}

// writeFile writes all metrics to a given file, or to stdout for "-".
func (p *parseMetrics) writeFile(filename string) error {
	if filename == "-" {
		return p.write(os.Stdout)
	}
	//
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	//
	if err := p.write(file); err != nil {
		file.Close()
		return fmt.Errorf("writing metrics: %w", err)
	}
	//
	return file.Close()
}
