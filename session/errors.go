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

import "github.com/pkg/errors"

// ErrorKind classifies a failure per the error handling design. Only
// ConfigInvalid and ExternalUnavailable are fatal, and both are raised by
// cmd/caterpillar's startup sequence rather than from inside a running
// session.
type ErrorKind int

const (
	ConfigInvalid ErrorKind = iota
	ExternalUnavailable
	DeviceTransient
	BundleUnreadable
	InstallFailed
	StateViolation
	AmbiguousOverride
)

// ErrStateViolation is returned by Machine.SearchForUpdate / InstallUpdate
// when called from a state that does not permit the operation. The
// automaton is left untouched.
var ErrStateViolation = errors.New("caterpillar/session: operation not valid in current state")
