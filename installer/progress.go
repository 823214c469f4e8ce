// Copyright 2024 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package installer

import (
	"io"

	"github.com/mendersoftware/progressbar"
)

// ProgressWriter renders a progress bar, advancing it by the length of each
// chunk written. It is not required for the session state machine to
// function — DBusClient.Install wires it in only when stderr is a terminal.
type ProgressWriter struct {
	bar *progressbar.Bar
}

func NewProgressWriter(out io.Writer, total int64) *ProgressWriter {
	bar := progressbar.New(total)
	bar.Renderer = &progressbar.NoTTYRenderer{
		Out:            out,
		ProgressMarker: ".",
	}
	return &ProgressWriter{bar: bar}
}

func (p *ProgressWriter) Write(chunk []byte) (int, error) {
	n := len(chunk)
	p.bar.Tick(int64(n))
	return n, nil
}

// Finish marks the bar as complete, independent of whether the byte count
// ever reached total (the installer's own exit status is authoritative).
func (p *ProgressWriter) Finish() {
	p.bar.Finish()
}
