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

// Package autorun implements the autorun driver (component C8): a
// one-shot injection of SearchForUpdate followed, on updatefound, by
// InstallUpdate(true, true), equivalent to forcing the state machine
// through a session from outside the normal interactive flow.
package autorun

import (
	"context"

	"github.com/dvzrv/caterpillar/internal/log"
	"github.com/dvzrv/caterpillar/session"
)

var logger = log.WithModule("autorun")

// machine is the subset of *session.Machine the driver needs; narrowed to
// an interface so it can be exercised with a fake in tests.
type machine interface {
	WaitIdle()
	SearchForUpdate(ctx context.Context) error
	InstallUpdate(ctx context.Context, update, reboot bool) error
	State() session.State
}

// Drive blocks until m reaches idle for the first time, then runs exactly
// one automatic session: search, and if a candidate is found, install it
// with a reboot requested. On noupdatefound it exits without retrying —
// all further activity is purely interactive, per spec section 4.8.
func Drive(m machine) {
	m.WaitIdle()

	logger.Info("autorun: starting one-shot update session")
	if err := m.SearchForUpdate(context.Background()); err != nil {
		logger.Errorf("autorun: SearchForUpdate failed: %s", err)
		return
	}

	if m.State() != session.StateUpdateFound {
		logger.Info("autorun: no update found, not retrying")
		return
	}

	if err := m.InstallUpdate(context.Background(), true, true); err != nil {
		logger.Errorf("autorun: InstallUpdate failed: %s", err)
	}
}
