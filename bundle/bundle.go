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

// Package bundle implements the bundle scanner (component C2): given a
// mount point, it finds path-only update bundle candidates without
// recursing, following symlinks, or special-casing hidden files.
package bundle

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/dvzrv/caterpillar/internal/log"
)

var logger = log.WithModule("bundle")

// Origin distinguishes an override bundle (bypasses monotonic versioning)
// from a regular one.
type Origin int

const (
	OriginRegular Origin = iota
	OriginOverride
)

func (o Origin) String() string {
	if o == OriginOverride {
		return "override"
	}
	return "regular"
}

// Candidate is a path-only candidate before installer.Client.Test has
// populated its Version; see the invariant in spec §3.
type Candidate struct {
	Path        string
	Version     string
	Origin      Origin
	MountSource string
}

// Scan applies §4.2 to a single mount point: override precedence first,
// regular top-level files otherwise.
func Scan(mountPoint, mountSource, overrideDir, extension string) ([]Candidate, error) {
	overridePath := filepath.Join(mountPoint, overrideDir)
	info, err := os.Lstat(overridePath)
	if err == nil && info.IsDir() {
		overrideFiles, err := matchingFiles(overridePath, extension)
		if err != nil {
			return nil, errors.Wrapf(err, "scanning override dir %s", overridePath)
		}
		switch len(overrideFiles) {
		case 0:
			// fall through to regular scan below
		case 1:
			return []Candidate{{
				Path:        filepath.Join(overridePath, overrideFiles[0]),
				Origin:      OriginOverride,
				MountSource: mountSource,
			}}, nil
		default:
			logger.Warnf("ambiguous override directory %s: %d bundles, ignoring all",
				overridePath, len(overrideFiles))
			return nil, nil
		}
	} else if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", overridePath)
	}

	regularFiles, err := matchingFiles(mountPoint, extension)
	if err != nil {
		return nil, errors.Wrapf(err, "scanning %s", mountPoint)
	}
	candidates := make([]Candidate, 0, len(regularFiles))
	for _, name := range regularFiles {
		candidates = append(candidates, Candidate{
			Path:        filepath.Join(mountPoint, name),
			Origin:      OriginRegular,
			MountSource: mountSource,
		})
	}
	return candidates, nil
}

// matchingFiles lists the regular files directly under dir whose name
// matches "*.<extension>", with no recursion and no symlink traversal.
func matchingFiles(dir, extension string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	pattern := "*." + extension
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		ok, err := doublestar.Match(pattern, entry.Name())
		if err != nil {
			return nil, errors.Wrapf(err, "matching pattern %q", pattern)
		}
		if ok {
			matches = append(matches, entry.Name())
		}
	}
	return matches, nil
}
