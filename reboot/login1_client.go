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

	"github.com/coreos/go-systemd/v22/login1"
	"github.com/pkg/errors"

	"github.com/dvzrv/caterpillar/internal/log"
)

var logger = log.WithModule("reboot")

// Login1Client requests a reboot from systemd-logind over the system bus —
// the idiomatic way an appliance daemon hands off to the init system rather
// than tearing the machine down itself.
type Login1Client struct {
	conn *login1.Conn
}

func NewLogin1Client() (*Login1Client, error) {
	conn, err := login1.New()
	if err != nil {
		return nil, errors.Wrap(err, "connecting to systemd-logind")
	}
	return &Login1Client{conn: conn}, nil
}

func (c *Login1Client) Reboot(ctx context.Context) error {
	c.conn.Reboot(false)

	// logind tears the machine down asynchronously; any return here means
	// the call was accepted but the reboot has not actually happened yet,
	// or it stalled. Either way the caller should treat this as failure.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Minute):
		return errors.New("system did not reboot within 10 minutes of the logind request")
	}
}
