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

package sysfs

import (
	"os"
	"path/filepath"
	"testing"

	idset "github.com/intel/goresctrl/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEntries(t *testing.T, entries map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range entries {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestReadEntry(t *testing.T) {
	dir := writeEntries(t, map[string]string{
		"type":        "Unified\n",
		"online":      "1\n",
		"level":       "2\n",
		"size":        "262144\n",
		"line":        "64\n",
		"shared_cpus": "0-3,7\n",
		"garbage":     "not-a-number\n",
	})

	var str string
	raw, err := ReadEntry(dir, "type", &str)
	require.NoError(t, err)
	assert.Equal(t, "Unified", raw)
	assert.Equal(t, "Unified", str)

	var online bool
	_, err = ReadEntry(dir, "online", &online)
	require.NoError(t, err)
	assert.True(t, online)

	var level uint16
	_, err = ReadEntry(dir, "level", &level)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), level)

	var size uint64
	_, err = ReadEntry(dir, "size", &size)
	require.NoError(t, err)
	assert.Equal(t, uint64(262144), size)

	var line uint32
	_, err = ReadEntry(dir, "line", &line)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), line)

	var i int
	_, err = ReadEntry(dir, "level", &i)
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	var ids idset.IDSet
	_, err = ReadEntry(dir, "shared_cpus", &ids)
	require.NoError(t, err)
	assert.Equal(t, idset.NewIDSet(0, 1, 2, 3, 7), ids)

	// nil value returns the raw content without parsing.
	raw, err = ReadEntry(dir, "garbage", nil)
	require.NoError(t, err)
	assert.Equal(t, "not-a-number", raw)
}

func TestReadEntryErrors(t *testing.T) {
	dir := writeEntries(t, map[string]string{
		"garbage": "not-a-number\n",
	})

	var i int
	raw, err := ReadEntry(dir, "garbage", &i)
	assert.Error(t, err)
	assert.Equal(t, "not-a-number", raw)

	var ids idset.IDSet
	_, err = ReadEntry(dir, "garbage", &ids)
	assert.Error(t, err)

	var f float64
	_, err = ReadEntry(dir, "garbage", &f)
	assert.Error(t, err)

	_, err = ReadEntry(dir, "no-such-entry", &i)
	assert.Error(t, err)
}

func TestEnumeratedID(t *testing.T) {
	for path, expected := range map[string]idset.ID{
		"/sys/devices/system/cpu/cpu0":  0,
		"/sys/devices/system/cpu/cpu12": 12,
		"cache/index3":                  3,
		"cpu":                           -1,
		"possible":                      -1,
		"":                              -1,
	} {
		assert.Equal(t, expected, EnumeratedID(path), "EnumeratedID(%q)", path)
	}
}

func TestGlobEnumerated(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"cpu0", "cpu10", "cpu2", "cpu1", "cpufreq", "possible"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0o755))
	}

	var names []string
	for _, entry := range GlobEnumerated(dir, "cpu[0-9]*") {
		names = append(names, filepath.Base(entry))
	}

	// Numeric order, not lexical: cpu10 sorts after cpu2.
	assert.Equal(t, []string{"cpu0", "cpu1", "cpu2", "cpu10"}, names)

	assert.Empty(t, GlobEnumerated(dir, "node[0-9]*"))
}

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList("0-3,7")
	require.NoError(t, err)
	assert.Equal(t, idset.NewIDSet(0, 1, 2, 3, 7), ids)

	ids, err = parseIDList("5")
	require.NoError(t, err)
	assert.Equal(t, idset.NewIDSet(5), ids)

	ids, err = parseIDList("")
	require.NoError(t, err)
	assert.Equal(t, 0, ids.Size())

	for _, bad := range []string{"3-1", "a-b", "1,,2", "1-"} {
		_, err := parseIDList(bad)
		assert.Error(t, err, "parseIDList(%q)", bad)
	}
}
