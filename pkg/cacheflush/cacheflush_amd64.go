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

//go:build amd64

package cacheflush

import (
	"sync"
	"unsafe"

	"github.com/hwtools/cachetopo/pkg/cpuid"
)

// Implemented in cacheflush_amd64.s.
//
//go:noescape
func clflush(addr unsafe.Pointer)

//go:noescape
func clflushopt(addr unsafe.Pointer)

// caps holds the one-time flush capability detection. clflushopt is
// preferred, it avoids the serializing behavior of clflush.
var caps struct {
	once       sync.Once
	clflush    bool
	clflushopt bool
}

func detect() {
	// CLFLUSH: CPUID.1:EDX bit 19, CLFLUSHOPT: CPUID.(7,0):EBX bit 23.
	caps.clflush = cpuid.Cpuid(1, 0).EDX&(1<<19) != 0
	if cpuid.Cpuid(0, 0).EAX >= 7 {
		caps.clflushopt = cpuid.Cpuid(7, 0).EBX&(1<<23) != 0
	}
}

func flushRange(addr unsafe.Pointer, size uintptr) {
	caps.once.Do(detect)

	switch {
	case caps.clflushopt:
		for off := uintptr(0); off < size; off += flushStride {
			clflushopt(unsafe.Pointer(uintptr(addr) + off))
		}
	case caps.clflush:
		for off := uintptr(0); off < size; off += flushStride {
			clflush(unsafe.Pointer(uintptr(addr) + off))
		}
	}
}
