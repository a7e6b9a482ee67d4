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

package main

/*
#include <stdlib.h>
#include <unistd.h>

extern void goShimInit(void);

// shim_on_exit bypasses the C runtime's normal atexit/on_exit teardown in
// favor of a direct _exit(): once bootstrap has engaged the filter, the
// only syscalls left are read, write, exit, and sigreturn, and libc's
// ordinary exit() path is not guaranteed to stick to those.
static void shim_on_exit(int status, void *arg) {
	_exit(status);
}

// LD_PRELOAD gives the dynamic linker no hook to call into a loaded
// library's own initialization logic, so bootstrap runs from an ELF
// constructor instead — it fires before the target binary's own main(),
// which is the only ordering spec.md §4.2 requires.
__attribute__((constructor))
static void shimConstructor(void) {
	on_exit(shim_on_exit, NULL);
	goShimInit();
}
*/
import "C"

import (
	"golang.org/x/sys/unix"

	"github.com/jacobsa/seccomp-launcher/internal/shimcore"
)

//export goShimInit
func goShimInit() {
	if _, err := shimcore.Bootstrap(); err != nil {
		// A bootstrap failure is reported with the raw write syscall and
		// aborts immediately via the raw exit syscall (spec.md §4.2) —
		// fmt/os would route through buffered stdio and the Go runtime's
		// own exit path, neither of which this process can still rely on
		// once lockdown may already be partway engaged.
		msg := "shim bootstrap failed: " + err.Error() + "\n"
		unix.Write(2, []byte(msg))
		unix.Exit(1)
	}
}

// main is unused in -buildmode=c-shared; package main requires it to
// build at all.
func main() {}
