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

// Command launcher is the supervisor binary of spec.md §6: it parses a
// mode flag, stops at the first non-flag argument, and spawns that
// argument (with everything after it) as the sandboxed child.
//
//	launcher [-ro | -ro_extended | -rw | -rw_extended] <binary> <args...>
package main

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/jacobsa/seccomp-launcher/internal/policy"
	"github.com/jacobsa/seccomp-launcher/internal/supervisor"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: launcher [-ro | -ro_extended | -rw | -rw_extended] <binary> <args...>")
}

// parseArgs stops consuming os.Args at the first token that doesn't look
// like one of the four mode flags, per spec.md §6. Everything from that
// token on belongs to the child and must be passed through untouched,
// which is exactly what a conventional flag-parsing library can't promise
// (see SPEC_FULL.md §1.3).
func parseArgs(args []string) (mode policy.Mode, target string, targetArgs []string, err error) {
	mode = policy.RO // default, per spec.md §6

	i := 0
	for ; i < len(args); i++ {
		a := args[i]
		if len(a) == 0 || a[0] != '-' {
			break
		}

		flagName := a[1:]
		m, ok := policy.ParseMode(flagName)
		if !ok {
			return 0, "", nil, fmt.Errorf("unknown flag %q", a)
		}
		mode = m
	}

	if i >= len(args) {
		return 0, "", nil, fmt.Errorf("missing target binary")
	}

	return mode, args[i], args[i+1:], nil
}

func main() {
	os.Exit(run())
}

func run() int {
	mode, target, targetArgs, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
		return 1
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	sysReads := policy.BuildSystemReads(target, os.Getenv("GDAL_DATA"), os.Getenv("PYTHONPATH"))

	// The target itself is allowed exactly like any other argv entry — the
	// original's file_allowed loop walks argv[0] onward, not just the args
	// after it (original_source/seccomp_launcher.c).
	allowedArgs := append([]string{target}, targetArgs...)
	pol := policy.NewPolicy(mode, allowedArgs, sysReads)

	sess, err := supervisor.Launch(target, targetArgs, pol, logger)
	if err != nil {
		logger.WithError(err).Error("failed to launch sandboxed child")
		return 1
	}
	defer sess.Close()

	serveErr := make(chan error, 1)
	go func() { serveErr <- sess.Server.Serve() }()

	if err := <-serveErr; err != nil {
		logger.WithError(err).Error("supervisor request loop ended with an error")
	}

	return waitForChild(sess)
}

// waitForChild returns what waitpid reported for the child, per spec.md
// §6 "Exit code" — using the shell's 128+signal convention when the child
// was killed by a signal (Go's ExitCode reports -1 in that case), which is
// what happens to scenario 4 of spec.md §8 (the kernel SIGKILLs a
// seccomp-incompatible syscall).
func waitForChild(sess *supervisor.Session) int {
	err := sess.Cmd.Wait()
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}
