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

// Command shim builds as a C shared object (-buildmode=c-shared) meant to
// be LD_PRELOAD-ed into a sandboxed child process. It exports libc symbol
// names directly — open, read, write, and the rest of spec.md §4.4's
// surface — so the dynamic linker resolves the target program's calls to
// this file instead of glibc.
//
// Every exported function here is a thin C-calling-convention wrapper:
// argument marshaling in, a call into internal/shimcore, errno/return
// value marshaling out. None of the actual policy or protocol logic lives
// in this package; see internal/shimcore for that, and internal/supervisor
// for the process on the other end of the pipes.
//
// cmd/shim cannot be unit tested with `go test` — a c-shared archive
// can't be loaded into the test binary's own process — which is exactly
// why internal/shimcore exists as a separate, ordinarily-testable package.
package main
