// Copyright 2015 Google Inc. All Rights Reserved.
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

package supervisor

import "golang.org/x/sys/unix"

// errnoOf extracts the numeric errno from a syscall error, defaulting to
// EIO for anything that isn't a raw unix.Errno (spec.md §7 kind 3: "return
// the real errno to the child verbatim").
func errnoOf(err error) int32 {
	if err == nil {
		return 0
	}
	if errno, ok := err.(unix.Errno); ok {
		return int32(errno)
	}
	return int32(unix.EIO)
}
