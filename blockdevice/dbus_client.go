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

package blockdevice

import (
	"context"
	"regexp"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/dvzrv/caterpillar/internal/log"
)

var logger = log.WithModule("blockdevice")

const (
	busName     = "org.freedesktop.UDisks2"
	managerPath = "/org/freedesktop/UDisks2/Manager"
)

// DBusClient talks to an external UDisks2-shaped block-device manager over
// the system bus. It holds no session state: every call is a single round
// trip against the bus.
type DBusClient struct {
	conn    *dbus.Conn
	pattern *regexp.Regexp
}

// NewDBusClient builds a DBusClient over an already-connected system bus
// connection, filtering enumerated object identifiers by pattern.
func NewDBusClient(conn *dbus.Conn, pattern *regexp.Regexp) *DBusClient {
	return &DBusClient{conn: conn, pattern: pattern}
}

func (c *DBusClient) Enumerate(ctx context.Context) ([]string, error) {
	obj := c.conn.Object(busName, dbus.ObjectPath(managerPath))
	var blockDevices []dbus.ObjectPath
	call := obj.CallWithContext(ctx, busName+".Manager.GetBlockDevices",
		0, map[string]dbus.Variant{})
	if call.Err != nil {
		return nil, errors.Wrap(call.Err, "enumerating block devices")
	}
	if err := call.Store(&blockDevices); err != nil {
		return nil, errors.Wrap(err, "decoding block device list")
	}

	var ids []string
	for _, path := range blockDevices {
		id := string(path)
		if c.pattern == nil || c.pattern.MatchString(id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (c *DBusClient) Mount(ctx context.Context, id string) (string, error) {
	obj := c.conn.Object(busName, dbus.ObjectPath(id))
	call := obj.CallWithContext(ctx, "org.freedesktop.UDisks2.Filesystem.Mount",
		0, map[string]dbus.Variant{})
	if call.Err != nil {
		return "", errors.Wrapf(call.Err, "mounting %s", id)
	}
	var mountPoint string
	if err := call.Store(&mountPoint); err != nil {
		return "", errors.Wrapf(err, "decoding mount point for %s", id)
	}
	logger.Infof("mounted %s at %s", id, mountPoint)
	return mountPoint, nil
}

func (c *DBusClient) Unmount(ctx context.Context, id string) error {
	obj := c.conn.Object(busName, dbus.ObjectPath(id))
	call := obj.CallWithContext(ctx, "org.freedesktop.UDisks2.Filesystem.Unmount",
		0, map[string]dbus.Variant{})
	if call.Err != nil {
		return errors.Wrapf(call.Err, "unmounting %s", id)
	}
	logger.Infof("unmounted %s", id)
	return nil
}
