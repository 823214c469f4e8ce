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

package reboot

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// DirectClient calls the kernel's reboot syscall directly. It is the
// fallback used when systemd-logind is not reachable.
type DirectClient struct{}

func NewDirectClient() *DirectClient {
	return &DirectClient{}
}

func (c *DirectClient) Reboot(ctx context.Context) error {
	if err := unix.Sync(); err != nil {
		logger.Warnf("sync before reboot failed: %s", err)
	}
	if err := unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART); err != nil {
		return errors.Wrap(err, "reboot syscall failed")
	}

	// As with system/system.go's SystemRebootCmd, any return from this
	// point on is unexpected: the syscall should have killed the process
	// before we get here.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Minute):
		return errors.New("system did not reboot, even though the reboot syscall succeeded")
	}
}
