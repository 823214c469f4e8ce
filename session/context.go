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

package session

import (
	"context"

	"github.com/dvzrv/caterpillar/blockdevice"
	"github.com/dvzrv/caterpillar/bundle"
)

// Context exists only between init and a terminal state. It owns every
// mount acquired during the session so that cleanup can find them even if
// the session aborts abnormally.
type Context struct {
	client blockdevice.Client

	mounts        []blockdevice.MountRecord
	candidates    []bundle.Candidate
	selection     *bundle.Candidate
	shouldInstall bool
	shouldReboot  bool

	closed bool
}

func newContext(client blockdevice.Client) *Context {
	return &Context{client: client}
}

func (c *Context) recordMount(deviceID, mountPoint string) {
	c.mounts = append(c.mounts, blockdevice.MountRecord{DeviceID: deviceID, MountPoint: mountPoint})
}

// unmountAll attempts to unmount every recorded mount in reverse order of
// acquisition. Individual failures are logged but never stop the loop or
// prevent the caller from reaching unmounted.
func (c *Context) unmountAll(ctx context.Context) {
	for i := len(c.mounts) - 1; i >= 0; i-- {
		record := c.mounts[i]
		if err := c.client.Unmount(ctx, record.DeviceID); err != nil {
			logger.Warnf("unmount of %s (%s) failed: %s", record.DeviceID, record.MountPoint, err)
		}
	}
	c.mounts = nil
}

// Close is the panic/abort safety net: Machine calls it when a session
// leaves unmounted and from recoverSafetyNet, so that any mounts still
// recorded are unmounted even if a session exits through an unexpected
// path.
func (c *Context) Close(ctx context.Context) {
	if c.closed {
		return
	}
	c.closed = true
	if len(c.mounts) > 0 {
		logger.Warnf("closing session context with %d mount(s) still recorded", len(c.mounts))
		c.unmountAll(ctx)
	}
}
