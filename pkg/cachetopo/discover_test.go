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

package cachetopo_test

import (
	"os"
	"path"

	"github.com/hwtools/cachetopo/pkg/cachetopo"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type (
	Cache = cachetopo.Cache
	Info  = cachetopo.Info
)

const (
	Data        = cachetopo.Data
	Instruction = cachetopo.Instruction
	Unified     = cachetopo.Unified
	K           = uint64(1024)
)

var samples = map[string]*cachetopo.Info{}

func discoverSample(name string) *cachetopo.Info {
	cwd, _ := os.Getwd()
	info, err := cachetopo.Discover(
		cachetopo.WithSysPath(path.Join(cwd, "testdata", name, "sys")))
	Expect(err).To(BeNil())
	Expect(info).ToNot(BeNil())
	return info
}

var _ = BeforeSuite(func() {
	samples["sample1"] = discoverSample("sample1")
	samples["sample2"] = discoverSample("sample2")
})

var _ = DescribeTable("cache discovery",
	func(sample string, cpu, idx int, expected Cache) {
		info := samples[sample]
		Expect(info).ToNot(BeNil())
		c := info.CPU(cpu)
		Expect(c).ToNot(BeNil())
		Expect(len(c.Caches)).To(BeNumerically(">", idx))
		Expect(c.Caches[idx]).To(Equal(expected))
	},

	Entry("CPU #0, cache #0", "sample1", 0, 0,
		Cache{Size: 48 * K, LineSize: 64, Ways: 12, Kind: Data, Level: 1}),
	Entry("CPU #0, cache #1", "sample1", 0, 1,
		Cache{Size: 32 * K, LineSize: 64, Ways: 8, Kind: Instruction, Level: 1}),
	Entry("CPU #0, cache #2", "sample1", 0, 2,
		Cache{Size: 1280 * K, LineSize: 64, Ways: 20, Kind: Unified, Level: 2}),
	Entry("CPU #0, cache #3", "sample1", 0, 3,
		Cache{Size: 18432 * K, LineSize: 64, Ways: 12, Kind: Unified, Level: 3}),
	Entry("CPU #1, cache #3", "sample1", 1, 3,
		Cache{Size: 18432 * K, LineSize: 64, Ways: 12, Kind: Unified, Level: 3}),
	Entry("CPU #3, cache #0", "sample1", 3, 0,
		Cache{Size: 48 * K, LineSize: 64, Ways: 12, Kind: Data, Level: 1}),

	Entry("CPU #0, cache #0", "sample2", 0, 0,
		Cache{Size: 256 * K, LineSize: 64, Ways: 8, Kind: Unified, Level: 2}),
)

var _ = Describe("online/offline handling", func() {
	It("marks hot-unplugged CPUs offline and leaves them unprobed", func() {
		info := samples["sample1"]
		Expect(info).ToNot(BeNil())

		cpu := info.CPU(2)
		Expect(cpu).ToNot(BeNil())
		Expect(cpu.Online).To(BeFalse())
		Expect(cpu.Caches).To(BeEmpty())
	})

	It("assumes online when the online entry is unreadable", func() {
		info := samples["sample1"]
		Expect(info).ToNot(BeNil())

		cpu := info.CPU(3)
		Expect(cpu).ToNot(BeNil())
		Expect(cpu.Online).To(BeTrue())
	})

	It("reports the online CPU set", func() {
		info := samples["sample1"]
		Expect(info).ToNot(BeNil())
		Expect(info.OnlineCPUs().String()).To(Equal("0-1,3"))
	})
})

var _ = Describe("level queries", func() {
	It("returns the maximum level present", func() {
		Expect(samples["sample1"].MaxLevel()).To(Equal(3))
		Expect(samples["sample2"].MaxLevel()).To(Equal(2))
	})

	It("returns the first data-or-unified cache of a level", func() {
		c := samples["sample2"].LevelCache(2)
		Expect(c).ToNot(BeNil())
		Expect(*c).To(Equal(Cache{Size: 262144, LineSize: 64, Ways: 8, Kind: Unified, Level: 2}))
	})

	It("returns nil for invalid levels", func() {
		Expect(samples["sample1"].LevelCache(0)).To(BeNil())
		Expect(samples["sample1"].LevelCache(42)).To(BeNil())
	})
})

var _ = Describe("convenience wrappers", func() {
	It("returns the LLC size and line size", func() {
		cwd, _ := os.Getwd()
		size, line := cachetopo.LLCSize(
			cachetopo.WithSysPath(path.Join(cwd, "testdata", "sample1", "sys")))
		Expect(size).To(Equal(18432 * K))
		Expect(line).To(Equal(uint32(64)))
	})

	It("returns the size of a specific level", func() {
		cwd, _ := os.Getwd()
		size, line := cachetopo.LevelSize(2,
			cachetopo.WithSysPath(path.Join(cwd, "testdata", "sample1", "sys")))
		Expect(size).To(Equal(1280 * K))
		Expect(line).To(Equal(uint32(64)))
	})

	It("degrades to zero when discovery fails", func() {
		size, line := cachetopo.LLCSize(cachetopo.WithSysPath("testdata/no-such-tree"))
		Expect(size).To(BeZero())
		Expect(line).To(BeZero())
	})
})

var _ = Describe("release", func() {
	It("clears all per-CPU data and is safe to repeat", func() {
		info := discoverSample("sample1")
		info.Release()
		Expect(info.CPUs).To(BeNil())
		info.Release()

		var nilInfo *Info
		nilInfo.Release()
	})

	It("keeps accessors safe after release", func() {
		info := discoverSample("sample2")
		info.Release()
		Expect(info.MaxLevel()).To(BeZero())
		Expect(info.LevelCache(2)).To(BeNil())
		Expect(info.CPU(0)).To(BeNil())
		Expect(info.OnlineCPUs().Size()).To(BeZero())
	})
})
