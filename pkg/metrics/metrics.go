// Copyright The cachetopo Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes the discovered cache topology as prometheus
// metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hwtools/cachetopo/pkg/cachetopo"
	logger "github.com/hwtools/cachetopo/pkg/log"
	"github.com/hwtools/cachetopo/pkg/version"
)

var log = logger.Get("metrics")

var (
	cacheSizeDesc = prometheus.NewDesc(
		"cachetopo_cache_size_bytes",
		"Size of a CPU cache in bytes.",
		[]string{"cpu", "index", "level", "type"}, nil,
	)
	cacheLineDesc = prometheus.NewDesc(
		"cachetopo_cache_line_size_bytes",
		"Line size of a CPU cache in bytes.",
		[]string{"cpu", "index", "level", "type"}, nil,
	)
	cacheWaysDesc = prometheus.NewDesc(
		"cachetopo_cache_ways",
		"Associativity degree of a CPU cache, 0 if unknown.",
		[]string{"cpu", "index", "level", "type"}, nil,
	)
	cpuOnlineDesc = prometheus.NewDesc(
		"cachetopo_cpu_online",
		"Whether the CPU was online at discovery time.",
		[]string{"cpu"}, nil,
	)
)

// collector emits metrics for one discovered topology.
type collector struct {
	info *cachetopo.Info
}

// NewCollector returns a prometheus collector for the given topology.
// The collector borrows the topology; the caller must not release it
// while the collector is registered.
func NewCollector(info *cachetopo.Info) prometheus.Collector {
	return &collector{info: info}
}

// NewVersionInfoCollector returns a collector with a constant version
// info metric.
func NewVersionInfoCollector() prometheus.Collector {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "cachetopo_version_info",
			Help: "A metric with constant '1' value labeled by version and build info.",
			ConstLabels: prometheus.Labels{
				"version": version.Version,
				"build":   version.Build,
			},
		},
		func() float64 { return 1 },
	)
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheSizeDesc
	ch <- cacheLineDesc
	ch <- cacheWaysDesc
	ch <- cpuOnlineDesc
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	if c.info == nil {
		return
	}

	for _, cpu := range c.info.CPUs {
		id := strconv.Itoa(cpu.ID)

		online := 0.0
		if cpu.Online {
			online = 1.0
		}
		ch <- prometheus.MustNewConstMetric(cpuOnlineDesc, prometheus.GaugeValue, online, id)

		for idx, cch := range cpu.Caches {
			labels := []string{id, strconv.Itoa(idx), strconv.Itoa(int(cch.Level)), cch.Kind.String()}

			ch <- prometheus.MustNewConstMetric(cacheSizeDesc,
				prometheus.GaugeValue, float64(cch.Size), labels...)
			ch <- prometheus.MustNewConstMetric(cacheLineDesc,
				prometheus.GaugeValue, float64(cch.LineSize), labels...)
			ch <- prometheus.MustNewConstMetric(cacheWaysDesc,
				prometheus.GaugeValue, float64(cch.Ways), labels...)
		}
	}
}

// Register registers topology and version collectors with the given
// registry.
func Register(reg prometheus.Registerer, info *cachetopo.Info) error {
	for _, c := range []prometheus.Collector{
		NewCollector(info),
		NewVersionInfoCollector(),
	} {
		if err := reg.Register(c); err != nil {
			log.Error("failed to register collector: %v", err)
			return err
		}
	}
	return nil
}
