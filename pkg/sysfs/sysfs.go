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

// Package sysfs provides helpers for reading kernel sysfs entries.
package sysfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	idset "github.com/intel/goresctrl/pkg/utils"
)

// Error returns a formatted error with the sysfs path prefixed.
func Error(path string, format string, args ...interface{}) error {
	return fmt.Errorf("sysfs %s: %s", path, fmt.Sprintf(format, args...))
}

// ReadEntry reads, trims, and parses the given sysfs entry into value.
//
// value must be a pointer to a string, bool, int, uint16, uint32, uint64,
// or idset.IDSet. IDSet entries are parsed as kernel cpulist syntax
// ("0-3,7"). The raw trimmed content is always returned.
func ReadEntry(base, entry string, value interface{}) (string, error) {
	path := filepath.Join(base, entry)

	blob, err := os.ReadFile(path)
	if err != nil {
		return "", Error(path, "failed to read: %v", err)
	}
	text := strings.TrimSpace(string(blob))

	if value == nil {
		return text, nil
	}

	switch val := value.(type) {
	case *string:
		*val = text
	case *bool:
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return text, Error(path, "failed to parse bool '%s': %v", text, err)
		}
		*val = v != 0
	case *int:
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return text, Error(path, "failed to parse int '%s': %v", text, err)
		}
		*val = int(v)
	case *uint16:
		v, err := strconv.ParseUint(text, 0, 16)
		if err != nil {
			return text, Error(path, "failed to parse uint16 '%s': %v", text, err)
		}
		*val = uint16(v)
	case *uint32:
		v, err := strconv.ParseUint(text, 0, 32)
		if err != nil {
			return text, Error(path, "failed to parse uint32 '%s': %v", text, err)
		}
		*val = uint32(v)
	case *uint64:
		v, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			return text, Error(path, "failed to parse uint64 '%s': %v", text, err)
		}
		*val = v
	case *idset.IDSet:
		ids, err := parseIDList(text)
		if err != nil {
			return text, Error(path, "failed to parse id list '%s': %v", text, err)
		}
		*val = ids
	default:
		return text, Error(path, "unsupported entry type %T", value)
	}

	return text, nil
}

// EnumeratedID extracts the trailing decimal number from the name of the
// given path ("..../cpu12" => 12), or -1 if there is none.
func EnumeratedID(path string) idset.ID {
	name := filepath.Base(path)

	idx := len(name)
	for idx > 0 && name[idx-1] >= '0' && name[idx-1] <= '9' {
		idx--
	}
	if idx == len(name) {
		return -1
	}

	id, err := strconv.Atoi(name[idx:])
	if err != nil {
		return -1
	}

	return id
}

// GlobEnumerated returns the entries in dir matching the glob pattern,
// sorted by their trailing enumeration number.
func GlobEnumerated(dir, pattern string) []string {
	entries, _ := filepath.Glob(filepath.Join(dir, pattern))

	sort.Slice(entries, func(i, j int) bool {
		return EnumeratedID(entries[i]) < EnumeratedID(entries[j])
	})

	return entries
}

// parseIDList parses kernel cpulist syntax into an IDSet.
func parseIDList(text string) (idset.IDSet, error) {
	ids := idset.NewIDSet()

	if text == "" {
		return ids, nil
	}

	for _, rng := range strings.Split(text, ",") {
		lohi := strings.SplitN(rng, "-", 2)
		lo, err := strconv.Atoi(lohi[0])
		if err != nil {
			return nil, err
		}
		hi := lo
		if len(lohi) == 2 {
			if hi, err = strconv.Atoi(lohi[1]); err != nil {
				return nil, err
			}
		}
		if hi < lo {
			return nil, fmt.Errorf("invalid id range '%s'", rng)
		}
		for id := lo; id <= hi; id++ {
			ids.Add(id)
		}
	}

	return ids, nil
}
