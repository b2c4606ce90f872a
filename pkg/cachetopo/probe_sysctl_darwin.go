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

//go:build darwin

package cachetopo

import (
	"golang.org/x/sys/unix"
)

// sysctlProber reads the fixed hw.* cache sysctls of Apple platforms.
// The kernel reports at most three caches: L1 data, L1 instruction, and
// one unified outer level. When both hw.l2cachesize and hw.l3cachesize
// are present the highest level wins the unified slot.
type sysctlProber struct{}

func newSysctlProber() prober {
	return &sysctlProber{}
}

func (p *sysctlProber) name() string {
	return "sysctl"
}

func (p *sysctlProber) probe(cpu int, cpuPath string) ([]Cache, error) {
	line := uint32(0)
	if v, err := unix.SysctlUint64("hw.cachelinesize"); err == nil {
		line = uint32(v)
	}

	var caches []Cache

	if v, err := unix.SysctlUint64("hw.l1dcachesize"); err == nil && v > 0 {
		caches = append(caches, Cache{Size: v, LineSize: line, Kind: Data, Level: 1})
	}
	if v, err := unix.SysctlUint64("hw.l1icachesize"); err == nil && v > 0 {
		caches = append(caches, Cache{Size: v, LineSize: line, Kind: Instruction, Level: 1})
	}

	unified := Cache{LineSize: line, Kind: Unified}
	if v, err := unix.SysctlUint64("hw.l2cachesize"); err == nil && v > 0 {
		unified.Size, unified.Level = v, 2
	}
	if v, err := unix.SysctlUint64("hw.l3cachesize"); err == nil && v > 0 {
		unified.Size, unified.Level = v, 3
	}
	if unified.Level != 0 {
		caches = append(caches, unified)
	}

	return caches, nil
}

// darwinCPUCount returns the number of physical CPUs.
func darwinCPUCount() (int, error) {
	n, err := unix.SysctlUint32("hw.physicalcpu")
	return int(n), err
}
