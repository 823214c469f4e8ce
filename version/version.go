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

// Package version implements the version predicate of a candidate bundle
// against the currently installed slot (component C1).
package version

import (
	"github.com/coreos/go-semver/semver"
	"github.com/pkg/errors"
)

// Unknown is the sentinel current-slot version reported by an installer
// client that cannot determine what is currently booted. It is treated as
// a lowest-possible version for override comparisons (so overrides are
// never blocked by it) but disallows regular upgrades entirely, since
// there is nothing to compare a regular candidate against.
const Unknown = "unknown"

// Passes reports whether candidate should be accepted as an update over
// current. Regular candidates must parse and be strictly greater than
// current, and are never accepted when current is Unknown; override
// candidates only need to parse (downgrades allowed, and an Unknown
// current never blocks them).
func Passes(current, candidate string, isOverride bool) (bool, error) {
	cand, err := parse(candidate)
	if err != nil {
		return false, errors.Wrapf(err, "candidate version %q", candidate)
	}

	if isOverride {
		return true, nil
	}

	if current == Unknown {
		return false, nil
	}

	cur, err := parse(current)
	if err != nil {
		return false, errors.Wrapf(err, "current version %q", current)
	}

	return cand.Compare(*cur) > 0, nil
}

func parse(v string) (*semver.Version, error) {
	return semver.NewVersion(v)
}

// Highest returns the index of the highest-versioned entry in versions,
// breaking ties with path order (the caller passes paths in the order it
// wants ties resolved, typically lexicographic). It assumes every entry
// parses; callers are expected to have already dropped unparsable ones.
func Highest(versions []string) (int, error) {
	if len(versions) == 0 {
		return -1, errors.New("no versions to compare")
	}
	best := 0
	bestVer, err := semver.NewVersion(versions[0])
	if err != nil {
		return -1, errors.Wrapf(err, "version %q", versions[0])
	}
	for i := 1; i < len(versions); i++ {
		v, err := semver.NewVersion(versions[i])
		if err != nil {
			return -1, errors.Wrapf(err, "version %q", versions[i])
		}
		if v.Compare(*bestVer) > 0 {
			best = i
			bestVer = v
		}
	}
	return best, nil
}
