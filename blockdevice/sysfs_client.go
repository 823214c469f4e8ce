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
	"path/filepath"
	"regexp"

	sysfs "github.com/ungerik/go-sysfs"
	"github.com/pkg/errors"

	"github.com/dvzrv/caterpillar/internal/exec"
)

// SysfsClient is a local reference implementation of Client for
// standalone/dev use, with no enumerator daemon on the bus: it walks
// /sys/class/block directly and shells out to mount(8)/umount(8).
type SysfsClient struct {
	pattern   *regexp.Regexp
	commander exec.Commander
}

func NewSysfsClient(pattern *regexp.Regexp) *SysfsClient {
	return &SysfsClient{pattern: pattern, commander: exec.OsCalls{}}
}

func (c *SysfsClient) Enumerate(ctx context.Context) ([]string, error) {
	var ids []string
	for _, obj := range sysfs.Class.Object("block").SubObjects() {
		name := obj.Name()
		if c.pattern == nil || c.pattern.MatchString(name) {
			ids = append(ids, name)
		}
	}
	return ids, nil
}

func (c *SysfsClient) Mount(ctx context.Context, id string) (string, error) {
	mountPoint := filepath.Join("/media", id)
	out, err := c.commander.Command("mount", filepath.Join("/dev", id), mountPoint).CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, "mount %s failed: %s", id, out)
	}
	logger.Infof("mounted %s at %s", id, mountPoint)
	return mountPoint, nil
}

func (c *SysfsClient) Unmount(ctx context.Context, id string) error {
	mountPoint := filepath.Join("/media", id)
	out, err := c.commander.Command("umount", mountPoint).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "umount %s failed: %s", id, out)
	}
	logger.Infof("unmounted %s", id)
	return nil
}
