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
	"strconv"
)

// size suffixes are binary multiples of 1024.
var sizeSuffixes = map[byte]uint64{
	'B': 1,
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
	'T': 1 << 40,
}

// ParseSize parses a human-readable byte size of the form <uint><suffix>
// with a suffix of B, K, M, G or T, the way sysfs cache size entries are
// formatted ("32K", "4M"). A missing suffix is taken as bytes. 0 is
// returned for empty, unparsable, or unrecognized-suffix input.
func ParseSize(size string) uint64 {
	if size == "" {
		return 0
	}

	base, unit := size, uint64(1)
	if last := size[len(size)-1]; last < '0' || last > '9' {
		u, ok := sizeSuffixes[last]
		if !ok {
			log.Warn("unrecognized suffix %q in cache size %q", string(last), size)
			return 0
		}
		base, unit = size[:len(size)-1], u
	}

	val, err := strconv.ParseUint(base, 10, 64)
	if err != nil {
		log.Warn("failed to parse cache size %q: %v", size, err)
		return 0
	}

	return val * unit
}
