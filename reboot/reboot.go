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

// Package reboot is the adapter to the reboot authority (component C5).
package reboot

import "context"

// Client abstracts requesting a system reboot. Reboot is expected never to
// return on success — the call blocks until the kernel tears the process
// down. Any return is therefore an error.
type Client interface {
	Reboot(ctx context.Context) error
}

// NewClient prefers handing reboot off to systemd-logind and falls back to
// the direct syscall only when logind cannot be reached at all.
func NewClient() (Client, error) {
	c, err := NewLogin1Client()
	if err == nil {
		return c, nil
	}
	logger.Warnf("systemd-logind unavailable, falling back to direct reboot: %s", err)
	return NewDirectClient(), nil
}
