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

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/dvzrv/caterpillar/blockdevice"
	"github.com/dvzrv/caterpillar/bundle"
	"github.com/dvzrv/caterpillar/installer"
	"github.com/dvzrv/caterpillar/internal/log"
	"github.com/dvzrv/caterpillar/reboot"
	"github.com/dvzrv/caterpillar/version"
)

var logger = log.WithModule("session")

// Publisher receives every observable mutation the automaton produces, in
// the order produced, before the next transition is taken. facade.Service
// is the production implementation.
type Publisher interface {
	PublishState(s State)
	PublishMarkedForReboot(v bool)
	PublishUpdated(v bool)
	PublishUpdateFound(path, currentVersion, candidateVersion string, isOverride bool)
}

// Machine is the update-session state machine (component C6). It drives
// blockdevice.Client, installer.Client, and reboot.Client through the
// ordered states of spec section 4.6, holding the (State, MarkedForReboot,
// Updated, Context) tuple behind a single mutex so facade and autorun can
// call it from separate goroutines.
type Machine struct {
	blockdevice blockdevice.Client
	installer   installer.Client
	reboot      reboot.Client
	publisher   Publisher

	overrideDir string
	extension   string

	mu              sync.Mutex
	state           State
	markedForReboot bool
	updated         bool
	ctx             *Context

	idleOnce sync.Once
	idleCh   chan struct{}
}

func NewMachine(
	bd blockdevice.Client,
	inst installer.Client,
	rb reboot.Client,
	pub Publisher,
	overrideDir, extension string,
) *Machine {
	return &Machine{
		blockdevice: bd,
		installer:   inst,
		reboot:      rb,
		publisher:   pub,
		overrideDir: overrideDir,
		extension:   extension,
		state:       StateInit,
		idleCh:      make(chan struct{}),
	}
}

// Run performs the one-time startup transition into idle. It is called
// once from cmd/caterpillar before any facade or autorun activity begins.
func (m *Machine) Run() {
	m.mu.Lock()
	defer m.mu.Unlock()
	to, err := next(m.state, triggerStartupComplete)
	if err != nil {
		logger.Errorf("startup transition rejected: %s", err)
		return
	}
	m.setStateLocked(to)
}

// WaitIdle blocks until the machine has reached idle for the first time.
// autorun.Drive uses this to know when it is safe to begin its one
// automatic session.
func (m *Machine) WaitIdle() {
	<-m.idleCh
}

// Busy reports whether the machine has left init/idle. The state checks
// inside SearchForUpdate and InstallUpdate, not Busy, are what gate those
// two operations.
func (m *Machine) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != StateInit && m.state != StateIdle
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) MarkedForReboot() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markedForReboot
}

func (m *Machine) Updated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updated
}

// setStateLocked must be called with mu held. It performs the transition's
// side effects: publish, and broadcast the first arrival at idle.
func (m *Machine) setStateLocked(s State) {
	m.state = s
	m.publisher.PublishState(s)
	if s == StateIdle {
		m.idleOnce.Do(func() { close(m.idleCh) })
	}
}

// transitionLocked validates and applies (from, t) -> to per the table in
// state.go. Must be called with mu held.
func (m *Machine) transitionLocked(t trigger) error {
	to, err := next(m.state, t)
	if err != nil {
		return err
	}
	m.setStateLocked(to)
	return nil
}

// SearchForUpdate begins a session: enumerate and mount devices, scan and
// test candidate bundles, and either settle on updatefound (awaiting a
// subsequent InstallUpdate) or cascade straight through cleanup to idle when
// nothing is found. Valid only from idle.
func (m *Machine) SearchForUpdate(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrStateViolation
	}
	m.ctx = newContext(m.blockdevice)
	m.updated = false
	m.markedForReboot = false
	m.publisher.PublishUpdated(false)
	m.publisher.PublishMarkedForReboot(false)
	if err := m.transitionLocked(triggerSearch); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	defer m.recoverSafetyNet(ctx)
	m.runSearch(ctx)
	return nil
}

func (m *Machine) runSearch(ctx context.Context) {
	ids, err := m.blockdevice.Enumerate(ctx)
	if err != nil {
		logger.Warnf("device enumeration failed: %s", err)
		ids = nil
	}

	m.mu.Lock()
	if len(ids) == 0 {
		_ = m.transitionLocked(triggerNoDevices)
		m.mu.Unlock()
		m.finishWithoutUpdate(ctx)
		return
	}
	_ = m.transitionLocked(triggerEnumerated)
	m.mu.Unlock()

	m.runMounting(ctx, ids)
}

func (m *Machine) runMounting(ctx context.Context, ids []string) {
	var candidates []bundle.Candidate
	mountedAny := false

	for _, id := range ids {
		mountPoint, err := m.blockdevice.Mount(ctx, id)
		if err != nil {
			logger.Warnf("mount of %s failed, dropping device: %s", id, err)
			continue
		}
		mountedAny = true
		m.ctx.recordMount(id, mountPoint)

		found, err := bundle.Scan(mountPoint, id, m.overrideDir, m.extension)
		if err != nil {
			logger.Warnf("scanning %s failed: %s", mountPoint, err)
			continue
		}
		candidates = append(candidates, found...)
	}

	m.mu.Lock()
	if !mountedAny {
		_ = m.transitionLocked(triggerNoMounts)
		m.mu.Unlock()
		m.finishWithoutUpdate(ctx)
		return
	}
	m.ctx.candidates = candidates
	_ = m.transitionLocked(triggerMounted)
	m.mu.Unlock()

	m.runSelection(ctx)
}

func (m *Machine) runSelection(ctx context.Context) {
	selected, currentVersion, err := m.selectCandidate(ctx)
	if err != nil {
		logger.Warnf("candidate selection failed: %s", err)
	}

	m.mu.Lock()
	if selected == nil {
		_ = m.transitionLocked(triggerNoCandidate)
		m.mu.Unlock()
		m.finishWithoutUpdate(ctx)
		return
	}
	m.ctx.selection = selected
	_ = m.transitionLocked(triggerCandidateSelected)
	m.mu.Unlock()

	m.publisher.PublishUpdateFound(
		selected.Path,
		currentVersion,
		selected.Version,
		selected.Origin == bundle.OriginOverride,
	)
}

// selectCandidate applies spec section 4.6.2: test every scanned
// candidate, apply the override-then-regular version predicate, and pick
// the highest surviving version in each pass (ties broken by path order).
// It also returns the current version it queried, so the caller can
// publish the exact value the selection gate used instead of querying
// again.
func (m *Machine) selectCandidate(ctx context.Context) (*bundle.Candidate, string, error) {
	currentVersion, err := m.installer.CurrentVersion(ctx)
	if err != nil {
		return nil, "", errors.Wrap(err, "querying current version")
	}

	var overrides, regulars []bundle.Candidate
	for _, c := range m.ctx.candidates {
		result, err := m.installer.Test(ctx, c.Path)
		if err != nil {
			logger.Warnf("testing bundle %s failed: %s", c.Path, err)
			continue
		}
		if !result.Compatible {
			logger.Warnf("bundle %s incompatible, dropping", c.Path)
			continue
		}
		c.Version = result.Version
		if c.Origin == bundle.OriginOverride {
			overrides = append(overrides, c)
		} else {
			regulars = append(regulars, c)
		}
	}

	if cand := selectSurviving(overrides, currentVersion, true); cand != nil {
		return cand, currentVersion, nil
	}
	if cand := selectSurviving(regulars, currentVersion, false); cand != nil {
		return cand, currentVersion, nil
	}
	return nil, currentVersion, nil
}

func selectSurviving(candidates []bundle.Candidate, currentVersion string, isOverride bool) *bundle.Candidate {
	var surviving []bundle.Candidate
	for _, c := range candidates {
		ok, err := version.Passes(currentVersion, c.Version, isOverride)
		if err != nil {
			logger.Warnf("unparsable version on %s: %s", c.Path, err)
			continue
		}
		if ok {
			surviving = append(surviving, c)
		}
	}
	if len(surviving) == 0 {
		return nil
	}
	sort.Slice(surviving, func(i, j int) bool { return surviving[i].Path < surviving[j].Path })

	versions := make([]string, len(surviving))
	for i, c := range surviving {
		versions[i] = c.Version
	}
	idx, err := version.Highest(versions)
	if err != nil {
		return nil
	}
	return &surviving[idx]
}

// InstallUpdate acts on a previously found candidate. Valid only from
// updatefound.
func (m *Machine) InstallUpdate(ctx context.Context, update, requestReboot bool) error {
	m.mu.Lock()
	if m.state != StateUpdateFound {
		m.mu.Unlock()
		return ErrStateViolation
	}

	if !update {
		_ = m.transitionLocked(triggerInstallSkip)
		m.mu.Unlock()
		defer m.recoverSafetyNet(ctx)
		m.finishWithoutUpdate(ctx)
		return nil
	}

	m.markedForReboot = requestReboot
	m.publisher.PublishMarkedForReboot(requestReboot)
	_ = m.transitionLocked(triggerInstallRequested)
	selected := m.ctx.selection
	m.mu.Unlock()

	defer m.recoverSafetyNet(ctx)
	m.runInstall(ctx, selected)
	return nil
}

// runInstall calls installer.Client.Install exactly once per session, per
// spec section 4.6.3.
func (m *Machine) runInstall(ctx context.Context, selected *bundle.Candidate) {
	err := m.installer.Install(ctx, selected.Path)

	m.mu.Lock()
	if err != nil {
		logger.Warnf("install of %s failed: %s", selected.Path, err)
		_ = m.transitionLocked(triggerInstallFailed)
		m.mu.Unlock()
		m.runUnmounting(ctx)
		return
	}

	m.updated = true
	m.publisher.PublishUpdated(true)
	_ = m.transitionLocked(triggerInstallSucceeded)
	_ = m.transitionLocked(triggerUnconditional)
	m.mu.Unlock()

	m.runUnmounting(ctx)
}

// finishWithoutUpdate drives noupdatefound/skip straight through cleanup
// to idle; Updated is false on these paths, so done is never reached.
func (m *Machine) finishWithoutUpdate(ctx context.Context) {
	m.mu.Lock()
	_ = m.transitionLocked(triggerUnconditional)
	m.mu.Unlock()
	m.runUnmounting(ctx)
}

// runUnmounting implements spec section 4.6.4 then 4.6.5: unmount every
// recorded mount regardless of individual failure, then decide between
// done (with a reboot request) and idle.
func (m *Machine) runUnmounting(ctx context.Context) {
	m.ctx.unmountAll(ctx)

	m.mu.Lock()
	_ = m.transitionLocked(triggerUnmountComplete)
	rebootDue := m.markedForReboot && m.updated
	if rebootDue {
		_ = m.transitionLocked(triggerRebootDue)
	} else {
		_ = m.transitionLocked(triggerNoRebootDue)
	}
	m.ctx.Close(ctx)
	m.ctx = nil
	m.mu.Unlock()

	if rebootDue {
		if err := m.reboot.Reboot(ctx); err != nil {
			logger.Errorf("reboot request refused: %s", err)
		}
	}
}

// recoverSafetyNet is the panic/abort backstop: if a session-driving
// method panics partway through, it still guarantees every outstanding
// mount gets an unmount attempt instead of leaking it past this call.
func (m *Machine) recoverSafetyNet(ctx context.Context) {
	r := recover()
	if r == nil {
		return
	}
	logger.Errorf("session aborted: %v", r)

	m.mu.Lock()
	sctx := m.ctx
	m.ctx = nil
	m.state = StateIdle
	m.publisher.PublishState(StateIdle)
	m.mu.Unlock()

	if sctx != nil {
		sctx.Close(ctx)
	}
}
