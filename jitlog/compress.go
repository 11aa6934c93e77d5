/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package jitlog

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// compressedWriteCloser wraps an lz4 frame writer so New's caller can
// pass the result straight to New without tracking two Close calls.
type compressedWriteCloser struct {
	lz    *lz4.Writer
	under io.Closer
}

func (c *compressedWriteCloser) Write(p []byte) (int, error) { return c.lz.Write(p) }

func (c *compressedWriteCloser) Close() error {
	if err := c.lz.Close(); err != nil {
		return err
	}
	if c.under != nil {
		return c.under.Close()
	}
	return nil
}

// Compressed wraps w in an lz4 frame writer, for a trace dump large
// enough that the teacher's own reach for a compression codec on big
// on-disk blobs applies here too (a long-running debug session's
// Chrome-trace JSON can run into the hundreds of megabytes). The
// returned io.WriteCloser is what New expects.
func Compressed(w io.WriteCloser) io.WriteCloser {
	return &compressedWriteCloser{lz: lz4.NewWriter(w), under: w}
}
