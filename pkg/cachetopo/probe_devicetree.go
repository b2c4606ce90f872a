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

	"github.com/pkg/errors"
)

// deviceTreeProber reads the d-cache/i-cache properties of the CPU node
// in the flattened device tree, the way RISC-V firmware describes
// caches. Property values are raw 4-byte big-endian integers.
type deviceTreeProber struct {
	root string
}

func (p *deviceTreeProber) name() string {
	return "device tree"
}

func (p *deviceTreeProber) probe(cpu int, cpuPath string) ([]Cache, error) {
	node := filepath.Join(p.root, "cpus", fmt.Sprintf("cpu@%d", cpu))

	if _, err := os.Stat(node); err != nil {
		return nil, nil
	}

	var caches []Cache

	for _, src := range []struct {
		size  string
		block string
		kind  Type
	}{
		{"d-cache-size", "d-cache-block-size", Data},
		{"i-cache-size", "i-cache-block-size", Instruction},
	} {
		size, err := readDTCell(filepath.Join(node, src.size))
		if err != nil || size == 0 {
			continue
		}
		c := Cache{Size: uint64(size), Kind: src.kind, Level: 1}
		if block, err := readDTCell(filepath.Join(node, src.block)); err == nil {
			c.LineSize = block
		}
		caches = append(caches, c)
	}

	return caches, nil
}

// readDTCell reads one 4-byte device-tree cell.
func readDTCell(path string) (uint32, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if len(blob) < 4 {
		return 0, errors.Errorf("%s: short device-tree cell (%d bytes)", path, len(blob))
	}
	return decodeDTCell([4]byte{blob[0], blob[1], blob[2], blob[3]}), nil
}

// decodeDTCell converts a big-endian device-tree cell to host order.
func decodeDTCell(cell [4]byte) uint32 {
	return uint32(cell[0])<<24 | uint32(cell[1])<<16 | uint32(cell[2])<<8 | uint32(cell[3])
}
