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

// options are the tunable inputs of discovery. The defaults point at the
// real kernel interfaces; tests substitute synthetic trees.
type options struct {
	sysPath  string // sysfs mount point
	procPath string // procfs mount point
	auxvPath string // auxiliary vector file
	dtPath   string // flattened device-tree directory
}

// Option is an option to Discover.
type Option func(*options)

// WithSysPath overrides the sysfs mount point (default "/sys").
func WithSysPath(path string) Option {
	return func(o *options) {
		o.sysPath = path
	}
}

// WithProcPath overrides the procfs mount point (default "/proc").
func WithProcPath(path string) Option {
	return func(o *options) {
		o.procPath = path
	}
}

// WithAuxvPath overrides the auxiliary vector file read by the auxv
// probe (default "/proc/self/auxv").
func WithAuxvPath(path string) Option {
	return func(o *options) {
		o.auxvPath = path
	}
}

// WithDeviceTreePath overrides the device-tree directory read by the
// RISC-V probe (default "/proc/device-tree").
func WithDeviceTreePath(path string) Option {
	return func(o *options) {
		o.dtPath = path
	}
}

func defaultOptions() options {
	return options{
		sysPath:  "/sys",
		procPath: "/proc",
		auxvPath: "/proc/self/auxv",
		dtPath:   "/proc/device-tree",
	}
}
