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

package cachetopo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Probes for architectures whose kernels describe caches only as
// free-form text in /proc/cpuinfo. Each parser matches the fixed line
// prefixes its architecture has printed since forever.

func cpuinfoPath(o options) string {
	return filepath.Join(o.procPath, "cpuinfo")
}

// cpuinfoValues reads a cpuinfo file and returns the value part of every
// "key : value" line, keyed by the whitespace-trimmed prefix.
func cpuinfoValues(path string) (map[string]string, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read cpuinfo")
	}

	values := make(map[string]string)
	for _, line := range strings.Split(string(blob), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, seen := values[key]; !seen {
			values[key] = strings.TrimSpace(value)
		}
	}

	return values, nil
}

// alphaProber parses the "L1 Icache : 64K, 2-way, 64b line" style lines
// of Alpha kernels.
type alphaProber struct {
	cpuinfo string
}

func (p *alphaProber) name() string {
	return "alpha cpuinfo"
}

func (p *alphaProber) probe(cpu int, cpuPath string) ([]Cache, error) {
	values, err := cpuinfoValues(p.cpuinfo)
	if err != nil {
		return nil, err
	}

	var caches []Cache

	for _, src := range []struct {
		key  string
		kind Type
		lvl  uint16
	}{
		{"L1 Icache", Instruction, 1},
		{"L1 Dcache", Data, 1},
		{"L2 cache", Unified, 2},
		{"L3 cache", Unified, 3},
	} {
		value, ok := values[src.key]
		if !ok {
			continue
		}

		var sizeK uint64
		var ways, line uint32
		if n, _ := fmt.Sscanf(value, "%dK, %d-way, %db line", &sizeK, &ways, &line); n < 1 {
			continue // "n/a" for absent caches
		}

		caches = append(caches, Cache{
			Size:     sizeK * 1024,
			LineSize: line,
			Ways:     ways,
			Kind:     src.kind,
			Level:    src.lvl,
		})
	}

	return caches, nil
}

// sh4Prober parses the "icache size : 32KiB (2-way)" style lines of
// SuperH kernels.
type sh4Prober struct {
	cpuinfo string
}

func (p *sh4Prober) name() string {
	return "sh4 cpuinfo"
}

func (p *sh4Prober) probe(cpu int, cpuPath string) ([]Cache, error) {
	values, err := cpuinfoValues(p.cpuinfo)
	if err != nil {
		return nil, err
	}

	var caches []Cache

	for _, src := range []struct {
		key  string
		kind Type
		lvl  uint16
	}{
		{"icache size", Instruction, 1},
		{"dcache size", Data, 1},
		{"scache size", Unified, 2},
	} {
		value, ok := values[src.key]
		if !ok {
			continue
		}

		var sizeK uint64
		var ways uint32
		if n, _ := fmt.Sscanf(value, "%dKiB (%d-way)", &sizeK, &ways); n < 1 {
			continue
		}

		caches = append(caches, Cache{
			Size:  sizeK * 1024,
			Ways:  ways,
			Kind:  src.kind,
			Level: src.lvl,
		})
	}

	return caches, nil
}

// m68k cache sizes by CPU model. There is no runtime-queryable source,
// the sizes are a fixed property of each model.
var m68kCaches = map[int][]Cache{
	68020: {
		{Size: 256, LineSize: 16, Kind: Instruction, Level: 1},
	},
	68030: {
		{Size: 256, LineSize: 16, Kind: Instruction, Level: 1},
		{Size: 256, LineSize: 16, Kind: Data, Level: 1},
	},
	68040: {
		{Size: 4096, LineSize: 16, Kind: Instruction, Level: 1},
		{Size: 4096, LineSize: 16, Kind: Data, Level: 1},
	},
	68060: {
		{Size: 8192, LineSize: 16, Kind: Instruction, Level: 1},
		{Size: 8192, LineSize: 16, Kind: Data, Level: 1},
	},
}

// m68kProber detects the CPU model from the "CPU:" cpuinfo line and
// reports the model's hardwired cache configuration.
type m68kProber struct {
	cpuinfo string
}

func (p *m68kProber) name() string {
	return "m68k cpuinfo"
}

func (p *m68kProber) probe(cpu int, cpuPath string) ([]Cache, error) {
	values, err := cpuinfoValues(p.cpuinfo)
	if err != nil {
		return nil, err
	}

	value, ok := values["CPU"]
	if !ok {
		return nil, nil
	}

	model := 0
	if n, _ := fmt.Sscanf(value, "%d", &model); n != 1 {
		return nil, nil
	}

	caches, ok := m68kCaches[model]
	if !ok {
		return nil, nil
	}

	// Copy, the model table stays immutable.
	out := make([]Cache, len(caches))
	copy(out, caches)

	return out, nil
}
