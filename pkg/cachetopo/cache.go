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

// Package cachetopo discovers the CPU cache topology of the running
// machine. Discovery tries a fixed-priority list of strategies (sysfs
// cache index directories, the auxiliary vector, raw CPUID, a number of
// architecture-specific procfs and device-tree sources, BSD sysctl) and
// degrades gracefully when none of them produces data.
package cachetopo

import (
	"strings"

	idset "github.com/intel/goresctrl/pkg/utils"

	logger "github.com/hwtools/cachetopo/pkg/log"
	"github.com/hwtools/cachetopo/pkg/utils/cpuset"
)

// Our logger instance.
var log = logger.NewLogger("cachetopo")

// Type specifies a cache type.
type Type int

const (
	// UnknownType marks a cache whose type could not be determined.
	UnknownType Type = iota
	// Data is a data-only cache.
	Data
	// Instruction is an instruction-only cache.
	Instruction
	// Unified is a combined data and instruction cache.
	Unified
)

// Cache describes one hardware cache.
type Cache struct {
	// Size is the cache size in bytes, 0 if unknown.
	Size uint64 `json:"size"`
	// LineSize is the cache line size in bytes, 0 if unknown.
	LineSize uint32 `json:"lineSize"`
	// Ways is the associativity degree, 0 if unknown or fully associative.
	Ways uint32 `json:"ways"`
	// Kind is the cache type. Probes never emit UnknownType entries.
	Kind Type `json:"type"`
	// Level is the 1-indexed cache level (L1 = 1).
	Level uint16 `json:"level"`
}

// CPUCache holds the caches belonging to one logical CPU.
type CPUCache struct {
	// ID is the 0-indexed logical CPU number.
	ID int `json:"cpu"`
	// Online is the hotplug state of the CPU. CPU 0 is always online.
	Online bool `json:"online"`
	// Caches are the caches of this CPU. Empty is valid and means no
	// cache data could be discovered. Multiple entries per (level, type)
	// pair may be present, reflecting real hardware such as L2 slices.
	Caches []Cache `json:"caches,omitempty"`
}

// Info is the cache topology of the whole machine.
type Info struct {
	// CPUs has one entry per discovered logical CPU, online or not.
	CPUs []CPUCache `json:"cpus"`

	online idset.IDSet
}

var typeNames = map[Type]string{
	UnknownType: "Unknown",
	Data:        "Data",
	Instruction: "Instruction",
	Unified:     "Unified",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// MarshalJSON marshals a Type as its name.
func (t Type) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// typeFromString maps sysfs cache type strings to Type, case-insensitively.
func typeFromString(kind string) Type {
	switch strings.ToLower(kind) {
	case "data":
		return Data
	case "instruction":
		return Instruction
	case "unified":
		return Unified
	}
	return UnknownType
}

// CPU returns the cache data for the CPU with the given id, nil if unknown.
func (info *Info) CPU(id int) *CPUCache {
	if info == nil {
		return nil
	}
	for i := range info.CPUs {
		if info.CPUs[i].ID == id {
			return &info.CPUs[i]
		}
	}
	return nil
}

// OnlineCPUs returns the set of online CPUs seen during discovery.
func (info *Info) OnlineCPUs() cpuset.CPUSet {
	if info == nil || info.online == nil {
		return cpuset.New()
	}
	return cpuset.FromIDSet(info.online)
}

// MaxLevel returns the highest cache level present on the first CPU of
// the topology, 0 if no cache data is available.
func (info *Info) MaxLevel() int {
	if info == nil || len(info.CPUs) == 0 {
		return 0
	}

	max := uint16(0)
	for _, c := range info.CPUs[0].Caches {
		if c.Level > max {
			max = c.Level
		}
	}

	return int(max)
}

// LevelCache returns the first data or unified cache of the given level
// on the first CPU of the topology, nil if there is none. Instruction
// caches are skipped: callers asking by level want something they can
// size data buffers from.
//
// Note that first-match-wins on purpose: hardware with multiple data
// caches per level gets reported by its first slice only, matching the
// behavior downstream buffer-sizing logic has always seen.
func (info *Info) LevelCache(level int) *Cache {
	if info == nil || level <= 0 || len(info.CPUs) == 0 {
		return nil
	}

	for i := range info.CPUs[0].Caches {
		c := &info.CPUs[0].Caches[i]
		if int(c.Level) == level && c.Kind != Instruction {
			return c
		}
	}

	return nil
}

// Release drops all per-CPU cache data held by the topology. The GC
// reclaims the nested slices; Release exists so that owners have an
// explicit end-of-life point and is safe to call on nil or on an
// already-released Info.
func (info *Info) Release() {
	if info == nil {
		return
	}

	for i := range info.CPUs {
		info.CPUs[i].Caches = nil
	}
	info.CPUs = nil
	info.online = nil
}
