// Copyright 2024 The beaconsync Authors
// This file is part of the beaconsync library.
//
// The beaconsync library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The beaconsync library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the beaconsync library. If not, see <http://www.gnu.org/licenses/>.

package downloader

import "github.com/prometheus/client_golang/prometheus"

// metricsSet is the prometheus gauge set an external reporter scrapes;
// the downloader itself never decides cadence, it only keeps these
// current each time Collect is called, matching §1's "ticker/metrics reporter
// is out of scope, only the accessor is ours".
type metricsSet struct {
	base, latest, coupler, dangling, head, target prometheus.Gauge
	hdrStaged, hdrUnprocessed, hdrUnprocFragments  prometheus.Gauge
	blkStaged, blkUnprocessed, blkUnprocFragments  prometheus.Gauge
	reorg, buddies                                 prometheus.Gauge
}

func newMetricsSet(reg prometheus.Registerer) *metricsSet {
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beaconsync",
			Subsystem: "downloader",
			Name:      name,
			Help:      help,
		})
		if reg != nil {
			reg.MustRegister(g)
		}
		return g
	}
	return &metricsSet{
		base:               gauge("base", "Lowest block number known to forkchoice"),
		latest:             gauge("latest", "Current head number imported by forkchoice"),
		coupler:            gauge("coupler", "Anchor where the downloaded header chain meets forkchoice"),
		dangling:           gauge("dangling", "Lowest block number of the contiguous staged header chain"),
		head:               gauge("head", "Top of the current sync target"),
		target:             gauge("target", "Finalised block number of the current sync target"),
		hdrStaged:          gauge("headers_staged", "Number of staged header chain entries"),
		hdrUnprocessed:     gauge("headers_unprocessed", "Total unprocessed header count"),
		hdrUnprocFragments: gauge("headers_unprocessed_fragments", "Number of disjoint unprocessed header ranges"),
		blkStaged:          gauge("blocks_staged", "Number of staged block list entries"),
		blkUnprocessed:     gauge("blocks_unprocessed", "Total unprocessed block count"),
		blkUnprocFragments: gauge("blocks_unprocessed_fragments", "Number of disjoint unprocessed block ranges"),
		reorg:              gauge("pool_mode", "1 while a pool-mode reorg is in progress"),
		buddies:            gauge("buddies", "Number of known peers"),
	}
}

func (m *metricsSet) update(s TickerStats) {
	m.base.Set(float64(s.Base))
	m.latest.Set(float64(s.Latest))
	m.coupler.Set(float64(s.Coupler))
	m.dangling.Set(float64(s.Dangling))
	m.head.Set(float64(s.Head))
	m.target.Set(float64(s.Target))
	m.hdrStaged.Set(float64(s.NHdrStaged))
	m.hdrUnprocessed.Set(float64(s.NHdrUnprocessed))
	m.hdrUnprocFragments.Set(float64(s.NHdrUnprocFragm))
	m.blkStaged.Set(float64(s.NBlkStaged))
	m.blkUnprocessed.Set(float64(s.NBlkUnprocessed))
	m.blkUnprocFragments.Set(float64(s.NBlkUnprocFragm))
	if s.Reorg {
		m.reorg.Set(1)
	} else {
		m.reorg.Set(0)
	}
	m.buddies.Set(float64(s.NBuddies))
}

// Metrics wires Stats into a prometheus registry, to be polled
// periodically by the owning process (outside this core's scope) or via
// an internal ticker goroutine started by the caller.
type Metrics struct {
	s *Syncer
	m *metricsSet
}

// NewMetrics registers the downloader's gauge set against reg.
func NewMetrics(s *Syncer, reg prometheus.Registerer) *Metrics {
	return &Metrics{s: s, m: newMetricsSet(reg)}
}

// Collect refreshes every gauge from the syncer's current stats.
func (m *Metrics) Collect() {
	m.m.update(m.s.Stats())
}
