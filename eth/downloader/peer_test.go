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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	cfg := DefaultConfig
	return &cfg
}

func TestPeerStateHeaderRespErrThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.FetchHeadersReqErrThresholdCount = 2
	p := NewPeerState("p1", cfg)

	p.RecordHeaderRespErr()
	require.False(t, p.Zombie())
	p.RecordHeaderRespErr()
	require.False(t, p.Zombie())
	p.RecordHeaderRespErr()
	require.True(t, p.Zombie())
	require.True(t, p.Stopped())
}

func TestPeerStateHeaderProcErrThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.FetchHeadersProcessErrThresholdCount = 1
	p := NewPeerState("p1", cfg)
	p.RecordHeaderProcErr()
	require.False(t, p.Zombie())
	p.RecordHeaderProcErr()
	require.True(t, p.Zombie())
}

func TestPeerStateBodyErrThresholds(t *testing.T) {
	cfg := testConfig()
	cfg.FetchBodiesReqErrThresholdCount = 1
	cfg.FetchBodiesProcessErrThresholdCount = 1
	p := NewPeerState("p1", cfg)

	p.RecordBodyRespErr()
	p.RecordBodyRespErr()
	require.True(t, p.Zombie())

	p2 := NewPeerState("p2", cfg)
	p2.RecordBodyProcErr()
	p2.RecordBodyProcErr()
	require.True(t, p2.Zombie())
}

func TestPeerStateSlowPeerThreeStrikes(t *testing.T) {
	cfg := testConfig()
	cfg.SlowPeerThreshold = 10 * time.Millisecond
	p := NewPeerState("p1", cfg)

	p.ObserveLatency(20 * time.Millisecond)
	require.False(t, p.Zombie())
	p.ObserveLatency(20 * time.Millisecond)
	require.False(t, p.Zombie())
	p.ObserveLatency(20 * time.Millisecond)
	require.True(t, p.Zombie())
}

func TestPeerStateSlowPeerRecoversBeforeThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.SlowPeerThreshold = 10 * time.Millisecond
	p := NewPeerState("p1", cfg)

	p.ObserveLatency(20 * time.Millisecond)
	p.ObserveLatency(1 * time.Millisecond) // fast reply decrements the strike count
	p.ObserveLatency(20 * time.Millisecond)
	require.False(t, p.Zombie())
}

func TestPeerStateStopShortOfZombie(t *testing.T) {
	p := NewPeerState("p1", testConfig())
	p.Stop()
	require.True(t, p.Stopped())
	require.False(t, p.Zombie())
}

func TestPeerSetRegisterUnregisterActive(t *testing.T) {
	s := NewPeerSet()
	cfg := testConfig()

	p1 := s.Register("p1", cfg)
	s.Register("p2", cfg)
	require.Equal(t, 2, s.Len())
	require.ElementsMatch(t, []string{"p1", "p2"}, s.Active())

	p1.Stop()
	require.ElementsMatch(t, []string{"p2"}, s.Active())

	s.Unregister("p2")
	require.Equal(t, 1, s.Len())
}

func TestPeerSetRegisterIsIdempotent(t *testing.T) {
	s := NewPeerSet()
	cfg := testConfig()
	p1 := s.Register("p1", cfg)
	p2 := s.Register("p1", cfg)
	require.Same(t, p1, p2)
	require.Equal(t, 1, s.Len())
}
