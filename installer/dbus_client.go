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
	"context"
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/dvzrv/caterpillar/internal/log"
	"github.com/dvzrv/caterpillar/version"
)

var logger = log.WithModule("installer")

const (
	busName    = "de.pengutronix.rauc"
	objectPath = "/"
	ifaceName  = "de.pengutronix.rauc.Installer"
)

// DBusClient is the production adapter to the external A/B installer
// service, shaped after RAUC's system-bus "Installer" interface.
type DBusClient struct {
	conn      *dbus.Conn
	inspector *ArtifactInspector
}

func NewDBusClient(conn *dbus.Conn) *DBusClient {
	return &DBusClient{conn: conn, inspector: NewArtifactInspector()}
}

func (c *DBusClient) object() dbus.BusObject {
	return c.conn.Object(busName, dbus.ObjectPath(objectPath))
}

func (c *DBusClient) CurrentVersion(ctx context.Context) (string, error) {
	var bootSlot string
	call := c.object().CallWithContext(ctx, ifaceName+".GetBootSlot", 0)
	if call.Err != nil {
		return "", errors.Wrap(call.Err, "querying current boot slot")
	}
	if err := call.Store(&bootSlot); err != nil {
		return "", errors.Wrap(err, "decoding boot slot")
	}

	var slotStatus map[string]map[string]dbus.Variant
	call = c.object().CallWithContext(ctx, ifaceName+".GetSlotStatus", 0)
	if call.Err != nil {
		return "", errors.Wrap(call.Err, "querying slot status")
	}
	if err := call.Store(&slotStatus); err != nil {
		return "", errors.Wrap(err, "decoding slot status")
	}

	status, ok := slotStatus[bootSlot]
	if !ok {
		return version.Unknown, nil
	}
	variant, ok := status["bundle.version"]
	if !ok {
		return version.Unknown, nil
	}
	v, ok := variant.Value().(string)
	if !ok || v == "" {
		return version.Unknown, nil
	}
	return v, nil
}

func (c *DBusClient) Test(ctx context.Context, path string) (TestResult, error) {
	declaredVersion, compatibleDevices, err := c.inspector.Inspect(path)
	if err != nil {
		logger.Warnf("bundle %s unreadable: %s", path, err)
		return TestResult{Compatible: false}, nil
	}

	var compatible bool
	call := c.object().CallWithContext(ctx, ifaceName+".TestCompatibility", 0,
		path, compatibleDevices)
	if call.Err != nil {
		return TestResult{}, errors.Wrapf(call.Err, "testing bundle %s", path)
	}
	if err := call.Store(&compatible); err != nil {
		return TestResult{}, errors.Wrapf(err, "decoding compatibility result for %s", path)
	}

	return TestResult{Version: declaredVersion, Compatible: compatible}, nil
}

func (c *DBusClient) Install(ctx context.Context, path string) error {
	var progress *ProgressWriter
	var signals chan *dbus.Signal
	if term.IsTerminal(int(os.Stderr.Fd())) {
		signals = make(chan *dbus.Signal, 16)
		c.conn.Signal(signals)
		_ = c.conn.AddMatchSignal(
			dbus.WithMatchObjectPath(dbus.ObjectPath(objectPath)),
			dbus.WithMatchInterface(ifaceName),
			dbus.WithMatchMember("Progress"),
		)
		progress = NewProgressWriter(os.Stderr, 100)
		defer func() {
			progress.Finish()
			c.conn.RemoveSignal(signals)
		}()
		go func() {
			for sig := range signals {
				if len(sig.Body) == 0 {
					continue
				}
				if percent, ok := sig.Body[0].(int32); ok {
					_, _ = progress.Write(make([]byte, percent))
				}
			}
		}()
	}

	call := c.object().CallWithContext(ctx, ifaceName+".Install", 0, path)
	if call.Err != nil {
		return errors.Wrapf(call.Err, "installing bundle %s", path)
	}
	logger.Infof("installed bundle %s", path)
	return nil
}
