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

package policy

import (
	"path/filepath"
	"strings"
)

// interpreterRuntimeDir derives the scripting interpreter's own runtime
// library directory from its executable path, e.g. ".../bin/python3" ->
// ".../lib" — the directory holding its standard library and native
// extensions, which must be readable for bootstrap to resolve symbols
// before lockdown.
func interpreterRuntimeDir(exe string) string {
	return filepath.Join(filepath.Dir(filepath.Dir(exe)), "lib")
}

// BuildSystemReads assembles the fixed system-read allowlist of spec.md
// §4.1 rule (b), resolved against original_source/seccomp_launcher.c:
// random, terminfo, inputrc, the interpreter's own runtime directory
// (derived from the running executable's path), the GDAL_DATA directory
// and PYTHONPATH entries named in spec.md §6 (when set).
func BuildSystemReads(interpreterExe, gdalData, pythonPath string) []SystemRead {
	reads := []SystemRead{
		{Path: "/dev/urandom"},
		{Path: "/dev/random"},
		{Path: "/etc/inputrc"},
		{Path: "/etc/terminfo", Dir: true},
		{Path: "/usr/share/terminfo", Dir: true},
		{Path: "/lib/terminfo", Dir: true},
	}

	if interpreterExe != "" {
		reads = append(reads, SystemRead{Path: interpreterRuntimeDir(interpreterExe), Dir: true})
	}

	if gdalData != "" {
		reads = append(reads, SystemRead{Path: gdalData, Dir: true})
	}

	// PYTHONPATH extends the interpreter's module search path (spec.md §6);
	// every colon-separated entry must be readable the same way its own
	// runtime directory is.
	for _, dir := range strings.Split(pythonPath, ":") {
		if dir != "" {
			reads = append(reads, SystemRead{Path: dir, Dir: true})
		}
	}

	return reads
}
