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

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jacobsa/seccomp-launcher/internal/policy"
)

// ShimLibraryName is the filename the supervisor expects its own companion
// shared object to have, next to its own executable, per spec.md §4.1 step
// 3.
const ShimLibraryName = "libseccomp_shim.so"

// Session holds everything Launch assembled: the running child, the pipe
// ends the supervisor keeps, and the Server ready to serve it.
type Session struct {
	Cmd    *exec.Cmd
	Server *Server

	// requestRead/replyWrite are the supervisor's own ends of the two pipes;
	// only Close closes them. When the child exits it closes the opposite
	// ends, which makes Server.Serve observe EOF.
	requestRead *os.File
	replyWrite  *os.File
}

// Close releases the supervisor's pipe ends. Safe to call after the child
// has already exited.
func (s *Session) Close() error {
	err1 := s.requestRead.Close()
	err2 := s.replyWrite.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Launch spawns target (with args) under the shim, wiring the pipe pair
// described in spec.md §2 "Data flow" and §6 "Environment", and returns a
// Session whose Server is ready to serve that child's requests. The shim
// shared object is located by reading /proc/self/exe, taking its
// directory, and appending ShimLibraryName; if it isn't there, Launch
// fails rather than starting an unconfined child.
func Launch(target string, args []string, pol *policy.Policy, logger *logrus.Logger) (*Session, error) {
	shimPath, err := locateShim()
	if err != nil {
		return nil, errors.Wrap(err, "locating shim library")
	}

	// child->parent (requests) and parent->child (replies).
	requestRead, requestWrite, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "creating request pipe")
	}
	replyRead, replyWrite, err := os.Pipe()
	if err != nil {
		requestRead.Close()
		requestWrite.Close()
		return nil, errors.Wrap(err, "creating reply pipe")
	}

	cmd := exec.Command(target, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("LD_PRELOAD=%s", shimPath),
		fmt.Sprintf("PIPE_IN=%d", 3),
		fmt.Sprintf("PIPE_OUT=%d", 4),
	)
	// ExtraFiles[0] becomes fd 3 in the child, ExtraFiles[1] becomes fd 4 —
	// matching the PIPE_IN/PIPE_OUT values above.
	cmd.ExtraFiles = []*os.File{requestWrite, replyRead}

	if err := cmd.Start(); err != nil {
		requestRead.Close()
		requestWrite.Close()
		replyRead.Close()
		replyWrite.Close()
		return nil, errors.Wrapf(err, "starting %s", target)
	}

	// The supervisor doesn't need its own copies of the child's ends.
	requestWrite.Close()
	replyRead.Close()

	srv := NewServer(requestRead, replyWrite, pol, logger)

	return &Session{
		Cmd:         cmd,
		Server:      srv,
		requestRead: requestRead,
		replyWrite:  replyWrite,
	}, nil
}

func locateShim() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "resolving own executable path")
	}
	dir := filepath.Dir(self)
	candidate := filepath.Join(dir, ShimLibraryName)
	if _, err := os.Stat(candidate); err != nil {
		return "", errors.Wrapf(err, "shim library not found at %s", candidate)
	}
	return candidate, nil
}
