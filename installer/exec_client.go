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
	"encoding/json"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/dvzrv/caterpillar/version"
)

// ExecClient is an alternate Client implementation for systems where the
// external installer is only reachable as a CLI binary rather than over
// D-Bus. It kills the install subprocess if it runs longer than Timeout,
// first with SIGTERM and, a minute later, with SIGKILL.
type ExecClient struct {
	Binary    string
	Timeout   time.Duration
	inspector *ArtifactInspector
}

func NewExecClient(binary string, timeout time.Duration) *ExecClient {
	return &ExecClient{Binary: binary, Timeout: timeout, inspector: NewArtifactInspector()}
}

func (c *ExecClient) CurrentVersion(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, c.Binary, "status", "--output=json").Output()
	if err != nil {
		return "", errors.Wrap(err, "querying installer status")
	}
	var status struct {
		Booted struct {
			BundleVersion string `json:"bundle_version"`
		} `json:"booted"`
	}
	if err := json.Unmarshal(out, &status); err != nil {
		return "", errors.Wrap(err, "decoding installer status")
	}
	if status.Booted.BundleVersion == "" {
		return version.Unknown, nil
	}
	return status.Booted.BundleVersion, nil
}

func (c *ExecClient) Test(ctx context.Context, path string) (TestResult, error) {
	declaredVersion, compatibleDevices, err := c.inspector.Inspect(path)
	if err != nil {
		logger.Warnf("bundle %s unreadable: %s", path, err)
		return TestResult{Compatible: false}, nil
	}

	out, err := exec.CommandContext(ctx, c.Binary, "info", path).CombinedOutput()
	if err != nil {
		logger.Warnf("bundle %s failed compatibility check: %s", path, out)
		return TestResult{Version: declaredVersion, Compatible: false}, nil
	}

	compatible := false
	for _, device := range compatibleDevices {
		if strings.Contains(string(out), device) {
			compatible = true
			break
		}
	}
	return TestResult{Version: declaredVersion, Compatible: compatible}, nil
}

// Install runs the installer binary and waits for it to exit, killing it
// (and its process group) if it overruns Timeout.
func (c *ExecClient) Install(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, c.Binary, "install", path)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "starting installer for %s", path)
	}

	killer := newDelayKiller(cmd.Process.Pid, c.Timeout, time.Minute)
	defer killer.stop()

	if err := cmd.Wait(); err != nil {
		return errors.Wrapf(err, "installer failed for %s", path)
	}
	logger.Infof("installed bundle %s via %s", path, c.Binary)
	return nil
}

// delayKiller escalates from SIGTERM to SIGKILL against a process group if
// the install call runs away; adapted from the update-module supervision
// timer pattern.
type delayKiller struct {
	term *time.Timer
	kill *time.Timer
}

func newDelayKiller(pgid int, termAfter, killAfter time.Duration) *delayKiller {
	k := &delayKiller{}
	k.term = time.AfterFunc(termAfter, func() {
		logger.Errorf("installer pid %d timed out, sending SIGTERM", pgid)
		_ = syscall.Kill(-pgid, syscall.SIGTERM)
	})
	k.kill = time.AfterFunc(termAfter+killAfter, func() {
		logger.Errorf("installer pid %d still running, sending SIGKILL", pgid)
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
	})
	return k
}

func (k *delayKiller) stop() {
	k.term.Stop()
	k.kill.Stop()
}
