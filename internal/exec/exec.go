// Copyright 2021 Northern.tech AS
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

// Package exec provides the Commander seam used by blockdevice's sysfs
// fallback implementation, so tests can substitute a fake without shelling
// out to mount(8)/umount(8).
package exec

import (
	"os"
	"os/exec"
)

type Cmd struct {
	*exec.Cmd
}

func (c *Cmd) CombinedOutput() ([]byte, error) {
	c.Stdout = nil
	c.Stderr = nil
	return c.Cmd.CombinedOutput()
}

// Commander constructs a runnable command, the way OsCalls does for the
// real world and a fake does in tests.
type Commander interface {
	Command(name string, arg ...string) *Cmd
}

func Command(name string, arg ...string) *Cmd {
	var cmd Cmd
	cmd.Cmd = exec.Command(name, arg...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return &cmd
}

// OsCalls is the real implementation of Commander.
type OsCalls struct{}

func (OsCalls) Command(name string, arg ...string) *Cmd {
	return Command(name, arg...)
}
