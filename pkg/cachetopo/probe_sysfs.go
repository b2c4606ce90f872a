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

	"github.com/pkg/errors"

	"github.com/hwtools/cachetopo/pkg/sysfs"
)

// sysfsIndexProber reads the per-CPU cache/index* directories exposed by
// the Linux kernel. This is the primary and most detailed source.
type sysfsIndexProber struct{}

func (p *sysfsIndexProber) name() string {
	return "sysfs cache index"
}

func (p *sysfsIndexProber) probe(cpu int, cpuPath string) ([]Cache, error) {
	if cpuPath == "" {
		return nil, nil
	}

	entries := sysfs.GlobEnumerated(filepath.Join(cpuPath, "cache"), "index[0-9]*")
	if len(entries) == 0 {
		return nil, nil
	}

	caches := make([]Cache, 0, len(entries))
	for _, entry := range entries {
		c, err := readIndexEntry(entry)
		if err != nil {
			// A single bad index invalidates the whole probe, we
			// do not emit partially parsed topologies.
			return nil, err
		}
		caches = append(caches, c)
	}

	return caches, nil
}

// readIndexEntry parses one cache/index<N> directory. type, level, size
// and coherency_line_size are required, ways_of_associativity is not
// present for all cache types and defaults to 0.
func readIndexEntry(path string) (Cache, error) {
	c := Cache{}

	kind := ""
	if _, err := sysfs.ReadEntry(path, "type", &kind); err != nil {
		return c, err
	}
	if c.Kind = typeFromString(kind); c.Kind == UnknownType {
		return c, errors.Errorf("%s: unknown cache type %q", path, kind)
	}

	if _, err := sysfs.ReadEntry(path, "level", &c.Level); err != nil {
		return c, err
	}

	size := ""
	if _, err := sysfs.ReadEntry(path, "size", &size); err != nil {
		return c, err
	}
	if c.Size = ParseSize(size); c.Size == 0 && size != "0" {
		return c, errors.Errorf("%s: invalid cache size %q", path, size)
	}

	if _, err := sysfs.ReadEntry(path, "coherency_line_size", &c.LineSize); err != nil {
		return c, err
	}

	if _, err := sysfs.ReadEntry(path, "ways_of_associativity", &c.Ways); err != nil {
		c.Ways = 0
	}

	return c, nil
}

// sparc64Prober reads the flat l1/l2 cache size files SPARC64 kernels
// expose directly under the per-CPU sysfs directory. All values are
// plain decimal byte counts.
type sparc64Prober struct{}

func (p *sparc64Prober) name() string {
	return "sparc64 sysfs"
}

func (p *sparc64Prober) probe(cpu int, cpuPath string) ([]Cache, error) {
	if cpuPath == "" {
		return nil, nil
	}

	var caches []Cache

	for _, src := range []struct {
		size string
		line string
		kind Type
		lvl  uint16
	}{
		{"l1_dcache_size", "l1_dcache_line_size", Data, 1},
		{"l1_icache_size", "l1_icache_line_size", Instruction, 1},
		{"l2_cache_size", "l2_cache_line_size", Unified, 2},
	} {
		c := Cache{Kind: src.kind, Level: src.lvl}
		if _, err := sysfs.ReadEntry(cpuPath, src.size, &c.Size); err != nil {
			continue
		}
		if _, err := sysfs.ReadEntry(cpuPath, src.line, &c.LineSize); err != nil {
			c.LineSize = 0
		}
		if c.Size > 0 {
			caches = append(caches, c)
		}
	}

	return caches, nil
}
