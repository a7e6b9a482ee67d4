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

package wire

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrPathTooLong is returned by WritePath (and should be mirrored by shim
// callers as ENAMETOOLONG) when a path is longer than MaxPathLen. ReadPath
// never returns it.
var ErrPathTooLong = errors.New("wire: path exceeds MaxPathLen")

// Conn frames commands and their payloads on top of a pair of unidirectional
// pipes. It performs no buffering beyond what io.ReadFull needs to fill a
// single field, matching the synchronous, non-reentrant nature of the
// substrate described in spec.md §4.3: one request, one reply, always in
// that order.
type Conn struct {
	R io.Reader
	W io.Writer
}

func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{R: r, W: w}
}

func (c *Conn) ReadCmd() (Cmd, error) {
	v, err := c.ReadU32()
	return Cmd(v), err
}

func (c *Conn) WriteCmd(cmd Cmd) error {
	return c.WriteU32(uint32(cmd))
}

func (c *Conn) ReadU32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(c.R, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (c *Conn) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

func (c *Conn) ReadU64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(c.R, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (c *Conn) ReadI64() (int64, error) {
	v, err := c.ReadU64()
	return int64(v), err
}

func (c *Conn) ReadU16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(c.R, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (c *Conn) ReadN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(c.R, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadPath reads a 2-byte length followed by that many bytes, the shape
// every path-carrying command uses on the wire. It does not itself enforce
// MaxPathLen against the declared length; shimcore.Client checks the path
// locally before the command code is ever written, since discovering the
// path is too long after WriteCmd has already gone out would leave the
// connection mid-frame with no way back.
func (c *Conn) ReadPath() (string, error) {
	n, err := c.ReadU16()
	if err != nil {
		return "", err
	}
	b, err := c.ReadN(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Conn) WriteU32(v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := c.W.Write(buf[:])
	return err
}

func (c *Conn) WriteI32(v int32) error {
	return c.WriteU32(uint32(v))
}

func (c *Conn) WriteU64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := c.W.Write(buf[:])
	return err
}

func (c *Conn) WriteI64(v int64) error {
	return c.WriteU64(uint64(v))
}

func (c *Conn) WriteU16(v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := c.W.Write(buf[:])
	return err
}

func (c *Conn) WriteBytes(b []byte) error {
	_, err := c.W.Write(b)
	return err
}

// WritePath writes a path in the same 2-byte-length-prefixed shape ReadPath
// reads. The caller must have already rejected paths longer than
// MaxPathLen.
func (c *Conn) WritePath(p string) error {
	if len(p) > MaxPathLen {
		return ErrPathTooLong
	}
	if err := c.WriteU16(uint16(len(p))); err != nil {
		return err
	}
	return c.WriteBytes([]byte(p))
}
