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
	kcpuid "github.com/klauspost/cpuid/v2"

	"github.com/hwtools/cachetopo/pkg/cpuid"
)

const (
	// Intel deterministic cache parameters leaf.
	leafCacheParams = 0x4
	// AMD cache properties leaf.
	leafCachePropsAMD = 0x8000001d
	// Extended function range base.
	leafExtBase = 0x80000000
)

// cpuidProber queries cache parameters straight from the CPU. CPUID
// reports the same topology on every core it executes on, so the result
// is identical for all CPUs of the system.
type cpuidProber struct{}

func (p *cpuidProber) name() string {
	return "cpuid"
}

func (p *cpuidProber) probe(cpu int, cpuPath string) ([]Cache, error) {
	if !cpuid.Supported() {
		return nil, nil
	}
	return cpuidCaches(), nil
}

// cpuidCaches iterates the cache parameter subleaves until the null
// sentinel (cache type bits of EAX all zero) and decodes each one.
func cpuidCaches() []Cache {
	leaf := uint32(leafCacheParams)

	if kcpuid.CPU.VendorID == kcpuid.AMD {
		// AMD mirrors leaf 4 in the extended range.
		if cpuid.Cpuid(leafExtBase, 0).EAX < leafCachePropsAMD {
			return nil
		}
		leaf = leafCachePropsAMD
	} else {
		if cpuid.Cpuid(0, 0).EAX < 0x0b {
			return nil
		}
		// Self-snoop implies working cache descriptor support.
		if cpuid.Cpuid(1, 0).EDX&(1<<28) == 0 {
			return nil
		}
	}

	var caches []Cache

	for subleaf := uint32(0); ; subleaf++ {
		regs := cpuid.Cpuid(leaf, subleaf)
		if regs.EAX&0x1f == 0 {
			break
		}
		if c, ok := decodeCacheParams(regs); ok {
			caches = append(caches, c)
		}
	}

	return caches
}

// decodeCacheParams decodes one deterministic cache parameters subleaf
// (CPUID.4 / CPUID.8000001D register layout) into a Cache. Subleaves
// with a reserved cache type are reported as not ok.
func decodeCacheParams(regs cpuid.Regs) (Cache, bool) {
	c := Cache{}

	switch regs.EAX & 0x1f {
	case 1:
		c.Kind = Data
	case 2:
		c.Kind = Instruction
	case 3:
		c.Kind = Unified
	default:
		return c, false
	}

	c.Level = uint16((regs.EAX >> 5) & 0x7)
	c.LineSize = (regs.EBX & 0xfff) + 1
	c.Ways = ((regs.EBX >> 22) & 0x3ff) + 1

	partitions := uint64(((regs.EBX >> 12) & 0x3ff) + 1)
	sets := uint64(regs.ECX) + 1
	c.Size = partitions * uint64(c.LineSize) * uint64(c.Ways) * sets

	return c, true
}
