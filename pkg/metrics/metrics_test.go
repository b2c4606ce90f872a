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

package metrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwtools/cachetopo/pkg/cachetopo"
	"github.com/hwtools/cachetopo/pkg/metrics"
)

func testInfo() *cachetopo.Info {
	return &cachetopo.Info{
		CPUs: []cachetopo.CPUCache{
			{
				ID:     0,
				Online: true,
				Caches: []cachetopo.Cache{
					{Size: 32768, LineSize: 64, Ways: 8, Kind: cachetopo.Data, Level: 1},
					{Size: 32768, LineSize: 64, Ways: 8, Kind: cachetopo.Instruction, Level: 1},
					{Size: 262144, LineSize: 64, Ways: 8, Kind: cachetopo.Unified, Level: 2},
					// A second L2 slice must not collide with the first.
					{Size: 262144, LineSize: 64, Ways: 8, Kind: cachetopo.Unified, Level: 2},
				},
			},
			{ID: 1, Online: false},
		},
	}
}

func TestCollect(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, metrics.Register(reg, testInfo()))

	// The pedantic registry rejects duplicate label sets at gather time.
	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, name := range []string{
		"cachetopo_cache_size_bytes",
		"cachetopo_cache_line_size_bytes",
		"cachetopo_cache_ways",
		"cachetopo_cpu_online",
		"cachetopo_version_info",
	} {
		assert.True(t, names[name], "metric family %s", name)
	}

	// 4 caches on cpu 0 with three series each, plus 2 online gauges.
	assert.Equal(t, 14, testutil.CollectAndCount(metrics.NewCollector(testInfo())))
}

func TestCollectExpected(t *testing.T) {
	expected := `# HELP cachetopo_cpu_online Whether the CPU was online at discovery time.
# TYPE cachetopo_cpu_online gauge
cachetopo_cpu_online{cpu="0"} 1
cachetopo_cpu_online{cpu="1"} 0
`
	err := testutil.CollectAndCompare(metrics.NewCollector(testInfo()),
		strings.NewReader(expected), "cachetopo_cpu_online")
	assert.NoError(t, err)
}

func TestCollectNilInfo(t *testing.T) {
	assert.Equal(t, 0, testutil.CollectAndCount(metrics.NewCollector(nil)))
}
