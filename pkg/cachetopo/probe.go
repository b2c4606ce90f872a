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
	"runtime"

	"github.com/hwtools/cachetopo/pkg/cpuid"
)

// prober is one cache discovery strategy for a single CPU.
type prober interface {
	// name identifies the strategy in diagnostics.
	name() string
	// probe returns the caches discovered for the CPU rooted at the
	// given sysfs path, or an empty slice when the strategy has no
	// data. Errors mean the same as no data and are only surfaced in
	// debug logs; they never abort discovery.
	probe(cpu int, cpuPath string) ([]Cache, error)
}

// newProbers builds the ordered strategy list for this platform. The
// order is a strict fallback priority: the sysfs cache index tree is the
// most detailed source and always tried first, raw hardware queries come
// last.
func newProbers(o options) []prober {
	probers := []prober{
		&sysfsIndexProber{},
	}

	if runtime.GOOS == "linux" {
		probers = append(probers, &auxvProber{path: o.auxvPath})
	}

	if cpuid.Supported() {
		probers = append(probers, &cpuidProber{})
	}

	if runtime.GOOS == "linux" {
		switch runtime.GOARCH {
		case "sparc64":
			probers = append(probers, &sparc64Prober{})
		case "m68k":
			probers = append(probers, &m68kProber{cpuinfo: cpuinfoPath(o)})
		case "sh":
			probers = append(probers, &sh4Prober{cpuinfo: cpuinfoPath(o)})
		case "alpha":
			probers = append(probers, &alphaProber{cpuinfo: cpuinfoPath(o)})
		case "riscv64":
			probers = append(probers, &deviceTreeProber{root: o.dtPath})
		}
	}

	if p := newSysctlProber(); p != nil {
		probers = append(probers, p)
	}

	return probers
}

// probeCPU tries the strategies in order and populates the CPU with the
// result of the first one that finds any caches. All strategies failing
// leaves the CPU without cache data, which is a valid terminal state.
func probeCPU(probers []prober, cpu *CPUCache, cpuPath string) {
	for _, p := range probers {
		caches, err := p.probe(cpu.ID, cpuPath)
		if err != nil {
			log.Debug("cpu #%d: %s probe: %v", cpu.ID, p.name(), err)
			continue
		}
		if len(caches) > 0 {
			log.Debug("cpu #%d: %d cache(s) from %s probe", cpu.ID, len(caches), p.name())
			cpu.Caches = caches
			return
		}
	}

	log.Debug("cpu #%d: no cache data from any probe", cpu.ID)
}
