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
	"path/filepath"
	"runtime"
	"sync"

	idset "github.com/intel/goresctrl/pkg/utils"
	kcpuid "github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"

	"github.com/hwtools/cachetopo/pkg/cpuid"
	"github.com/hwtools/cachetopo/pkg/sysfs"
)

// sysfs devices/cpu subdirectory path
const sysfsCPUPath = "devices/system/cpu"

// Discover determines the cache topology of the machine. The returned
// Info has one entry per logical CPU; offline CPUs are present but carry
// no cache data. A CPU for which every discovery strategy failed also
// carries no cache data, which callers must treat as valid.
//
// An error is returned only when CPUs cannot be enumerated at all.
func Discover(opts ...Option) (*Info, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	probers := newProbers(o)

	var (
		info *Info
		err  error
	)

	switch {
	case runtime.GOOS == "linux":
		info, err = discoverLinux(o, probers)
	case runtime.GOOS == "darwin":
		info, err = discoverDarwin(probers)
	case cpuid.Supported():
		info, err = discoverCPUID(probers)
	default:
		return nil, errors.New("cache topology discovery not supported on this platform")
	}

	if err != nil {
		return nil, err
	}

	if log.DebugEnabled() {
		dumpInfo(info)
	}

	return info, nil
}

// discoverLinux enumerates CPUs from the sysfs cpu directory. CPU 0 is
// always online, it cannot be hot-unplugged; for the rest an unreadable
// online entry means online, best effort.
func discoverLinux(o options, probers []prober) (*Info, error) {
	base := filepath.Join(o.sysPath, sysfsCPUPath)

	entries := sysfs.GlobEnumerated(base, "cpu[0-9]*")
	if len(entries) == 0 {
		return nil, errors.Errorf("no CPUs found under %s", base)
	}

	info := &Info{
		CPUs:   make([]CPUCache, 0, len(entries)),
		online: idset.NewIDSet(),
	}

	for _, entry := range entries {
		id := sysfs.EnumeratedID(entry)
		if id < 0 {
			continue
		}

		cpu := CPUCache{ID: id, Online: true}
		if id != 0 {
			if _, err := sysfs.ReadEntry(entry, "online", &cpu.Online); err != nil {
				cpu.Online = true
			}
		}

		if cpu.Online {
			info.online.Add(id)
			probeCPU(probers, &cpu, entry)
		}

		info.CPUs = append(info.CPUs, cpu)
	}

	return info, nil
}

// discoverDarwin sizes the CPU array from hw.physicalcpu and probes all
// CPUs; XNU does not expose per-CPU hotplug state.
func discoverDarwin(probers []prober) (*Info, error) {
	count, err := darwinCPUCount()
	if err != nil || count < 1 {
		return nil, errors.Wrap(err, "failed to get CPU count")
	}

	info := &Info{
		CPUs:   make([]CPUCache, 0, count),
		online: idset.NewIDSet(),
	}

	for id := 0; id < count; id++ {
		cpu := CPUCache{ID: id, Online: true}
		probeCPU(probers, &cpu, "")
		info.online.Add(id)
		info.CPUs = append(info.CPUs, cpu)
	}

	return info, nil
}

// discoverCPUID is the fallback for x86 targets with neither sysfs nor
// sysctl. CPUID reports one uniform topology, so every CPU gets a copy
// of the same cache data.
func discoverCPUID(probers []prober) (*Info, error) {
	count := kcpuid.CPU.LogicalCores
	if count < 1 {
		count = runtime.NumCPU()
	}
	if count < 1 {
		return nil, errors.New("no CPUs found")
	}

	template := CPUCache{ID: 0, Online: true}
	probeCPU(probers, &template, "")

	info := &Info{
		CPUs:   make([]CPUCache, 0, count),
		online: idset.NewIDSet(),
	}

	for id := 0; id < count; id++ {
		cpu := CPUCache{ID: id, Online: true}
		cpu.Caches = make([]Cache, len(template.Caches))
		copy(cpu.Caches, template.Caches)
		info.online.Add(id)
		info.CPUs = append(info.CPUs, cpu)
	}

	return info, nil
}

func dumpInfo(info *Info) {
	log.Debug("online CPUs: %s", info.OnlineCPUs())
	for _, cpu := range info.CPUs {
		log.Debug("CPU #%d (online: %v):", cpu.ID, cpu.Online)
		for idx, c := range cpu.Caches {
			log.Debug("  cache #%d:", idx)
			log.Debug("       level: L%d", c.Level)
			log.Debug("        kind: %s", c.Kind)
			log.Debug("        size: %dK", c.Size/1024)
			log.Debug("   line size: %d", c.LineSize)
			log.Debug("        ways: %d", c.Ways)
		}
	}
}

var defaultsOnce sync.Once

func warnBuiltinDefaults() {
	defaultsOnce.Do(func() {
		log.Info("no usable cache topology discovered, using built-in defaults")
	})
}

// LLCSize runs the full discover-query-release cycle and returns the
// size and line size of the last-level cache. The line size defaults to
// 64 when the topology does not report one. (0, 0) is returned whenever
// no usable topology exists so that callers can fall back to their own
// defaults.
func LLCSize(opts ...Option) (size uint64, lineSize uint32) {
	info, err := Discover(opts...)
	if err != nil {
		warnBuiltinDefaults()
		return 0, 0
	}
	defer info.Release()

	return levelSize(info, info.MaxLevel())
}

// LevelSize is LLCSize for a caller-picked cache level.
func LevelSize(level int, opts ...Option) (size uint64, lineSize uint32) {
	info, err := Discover(opts...)
	if err != nil {
		warnBuiltinDefaults()
		return 0, 0
	}
	defer info.Release()

	return levelSize(info, level)
}

func levelSize(info *Info, level int) (uint64, uint32) {
	c := info.LevelCache(level)
	if c == nil || c.Size == 0 {
		warnBuiltinDefaults()
		return 0, 0
	}

	line := c.LineSize
	if line == 0 {
		line = 64
	}

	return c.Size, line
}
