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

// Package installer is the adapter to the external A/B slot updater
// (component C4). It never performs bundle verification itself: Test only
// extracts the declared version so the session state machine can apply the
// version predicate, and actual compatibility/signature checking is left to
// the installer being called.
package installer

import (
	"context"

	"github.com/dvzrv/caterpillar/version"
)

// TestResult is the outcome of testing a bundle for compatibility.
type TestResult struct {
	Version    string
	Compatible bool
}

// Client abstracts the external installer.
type Client interface {
	// CurrentVersion reports the semantic version of the currently booted
	// slot, or version.Unknown if it cannot be determined.
	CurrentVersion(ctx context.Context) (string, error)
	// Test reads and checks a candidate bundle. Failure to read, parse, or
	// authenticate it is reported as a TestResult with Compatible=false,
	// not as an error — an error return means the installer itself could
	// not be reached.
	Test(ctx context.Context, path string) (TestResult, error)
	// Install performs the single long-running, blocking call that
	// installs path onto the inactive slot.
	Install(ctx context.Context, path string) error
}
