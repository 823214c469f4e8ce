package session

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dvzrv/caterpillar/installer"
)

// fakeBlockDevice is a small in-memory blockdevice.Client double, scriptable
// per device ID and tracking every call for the cleanup invariant.
type fakeBlockDevice struct {
	devices     []string
	mountPoints map[string]string
	mountErr    map[string]error

	mounted   []string
	unmounted []string
}

func (f *fakeBlockDevice) Enumerate(ctx context.Context) ([]string, error) {
	return f.devices, nil
}

func (f *fakeBlockDevice) Mount(ctx context.Context, id string) (string, error) {
	f.mounted = append(f.mounted, id)
	if err := f.mountErr[id]; err != nil {
		return "", err
	}
	return f.mountPoints[id], nil
}

func (f *fakeBlockDevice) Unmount(ctx context.Context, id string) error {
	f.unmounted = append(f.unmounted, id)
	return nil
}

// mockInstaller scripts installer.Client responses with testify/mock, in
// the style of the teacher's client_mock_test.go.
type mockInstaller struct {
	mock.Mock
}

func (m *mockInstaller) CurrentVersion(ctx context.Context) (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

func (m *mockInstaller) Test(ctx context.Context, path string) (installer.TestResult, error) {
	args := m.Called(path)
	return args.Get(0).(installer.TestResult), args.Error(1)
}

func (m *mockInstaller) Install(ctx context.Context, path string) error {
	args := m.Called(path)
	return args.Error(0)
}

// fakeReboot is a scriptable reboot.Client double.
type fakeReboot struct {
	err   error
	calls int
}

func (r *fakeReboot) Reboot(ctx context.Context) error {
	r.calls++
	return r.err
}

// updateFoundEvent records one call to Publisher.PublishUpdateFound.
type updateFoundEvent struct {
	path, current, candidate string
	isOverride               bool
}

// fakePublisher records every observable mutation, in order, for assertion
// against the table in spec section 4.6.1 and the event-cardinality
// invariant.
type fakePublisher struct {
	states      []State
	updateFound []updateFoundEvent
	marked      []bool
	updated     []bool
}

func (p *fakePublisher) PublishState(s State) { p.states = append(p.states, s) }

func (p *fakePublisher) PublishMarkedForReboot(v bool) { p.marked = append(p.marked, v) }

func (p *fakePublisher) PublishUpdated(v bool) { p.updated = append(p.updated, v) }

func (p *fakePublisher) PublishUpdateFound(path, current, candidate string, isOverride bool) {
	p.updateFound = append(p.updateFound, updateFoundEvent{path, current, candidate, isOverride})
}

func (p *fakePublisher) stateNames() []string {
	names := make([]string, len(p.states))
	for i, s := range p.states {
		names[i] = s.String()
	}
	return names
}
