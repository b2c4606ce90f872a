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
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
)

// Cache-size hints in the auxiliary vector. Provided by the kernel on a
// few architectures only (notably powerpc).
const (
	atL1ICacheSize     = 40
	atL1ICacheGeometry = 41
	atL1DCacheSize     = 42
	atL1DCacheGeometry = 43
	atL2CacheSize      = 44
	atL2CacheGeometry  = 45
	atL3CacheSize      = 46
	atL3CacheGeometry  = 47
)

// auxvProber reads the AT_L*_CACHESIZE hints from the auxiliary vector.
type auxvProber struct {
	path string
}

func (p *auxvProber) name() string {
	return "auxiliary vector"
}

func (p *auxvProber) probe(cpu int, cpuPath string) ([]Cache, error) {
	auxv, err := readAuxv(p.path)
	if err != nil {
		return nil, err
	}

	var caches []Cache

	for _, slot := range []struct {
		sizeTag uint64
		geoTag  uint64
		kind    Type
		lvl     uint16
	}{
		{atL1DCacheSize, atL1DCacheGeometry, Data, 1},
		{atL1ICacheSize, atL1ICacheGeometry, Instruction, 1},
		{atL2CacheSize, atL2CacheGeometry, Unified, 2},
		{atL3CacheSize, atL3CacheGeometry, Unified, 3},
	} {
		size := auxv[slot.sizeTag]
		if size == 0 {
			continue
		}
		c := Cache{Size: size, Kind: slot.kind, Level: slot.lvl}
		c.LineSize, c.Ways = auxvGeometry(auxv[slot.geoTag])
		caches = append(caches, c)
	}

	return caches, nil
}

// readAuxv parses the binary tag/value pairs of an auxiliary vector
// file. Entries are native-endian words of the platform word size.
func readAuxv(path string) (map[uint64]uint64, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read auxv")
	}

	const wordSize = 32 << (^uint(0) >> 63) / 8

	auxv := make(map[uint64]uint64)
	for len(buf) >= 2*wordSize {
		var tag, val uint64
		switch wordSize {
		case 8:
			tag = binary.NativeEndian.Uint64(buf)
			val = binary.NativeEndian.Uint64(buf[8:])
		case 4:
			tag = uint64(binary.NativeEndian.Uint32(buf))
			val = uint64(binary.NativeEndian.Uint32(buf[4:]))
		}
		buf = buf[2*wordSize:]

		if tag == 0 { // AT_NULL terminates the vector
			break
		}
		auxv[tag] = val
	}

	return auxv, nil
}

// auxvGeometry decodes an AT_L*_CACHEGEOMETRY value: the line size in
// bytes lives in the low 16 bits, the associativity in the high 16.
func auxvGeometry(geo uint64) (line uint32, ways uint32) {
	return uint32(geo & 0xffff), uint32((geo >> 16) & 0xffff)
}
