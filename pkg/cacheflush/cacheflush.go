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

// Package cacheflush flushes data-cache lines for an address range,
// using the best flush instruction the CPU supports and degrading to a
// no-op where none is available.
package cacheflush

import "unsafe"

// flushStride is the walk granularity. 64 bytes covers the line size of
// every CPU we can execute flush instructions on.
const flushStride = 64

// Flush flushes the data-cache lines covering buf. Callers that need
// strict ordering against concurrent writers must provide it themselves;
// Flush issues no fences.
func Flush(buf []byte) {
	if len(buf) == 0 {
		return
	}
	flushRange(unsafe.Pointer(&buf[0]), uintptr(len(buf)))
}

// FlushAt flushes the data-cache lines covering size bytes at addr.
func FlushAt(addr unsafe.Pointer, size uintptr) {
	if size == 0 {
		return
	}
	flushRange(addr, size)
}
