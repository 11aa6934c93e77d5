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

package driver

import (
	"fmt"
	"os"
)

// newPrefixedFile opens "<prefix><functionName>.s", matching
// jit_interface.cpp's choice between a per-function assembly file and a
// single shared stream: a driver asked for OutputFilePrefix gets one .s
// file per compiled function instead of everything interleaved on one
// stream.
func newPrefixedFile(prefix, functionName string) (*os.File, func() error, error) {
	path := fmt.Sprintf("%s%s.s", prefix, functionName)
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
