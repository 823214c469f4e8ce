package autorun

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dvzrv/caterpillar/session"
)

type fakeMachine struct {
	idle chan struct{}

	searchErr  error
	installErr error
	stateAfterSearch session.State

	searchCalls  int
	installCalls int
}

func newFakeMachine() *fakeMachine {
	f := &fakeMachine{idle: make(chan struct{})}
	close(f.idle)
	return f
}

func (f *fakeMachine) WaitIdle() { <-f.idle }

func (f *fakeMachine) SearchForUpdate(ctx context.Context) error {
	f.searchCalls++
	return f.searchErr
}

func (f *fakeMachine) InstallUpdate(ctx context.Context, update, reboot bool) error {
	f.installCalls++
	return f.installErr
}

func (f *fakeMachine) State() session.State {
	return f.stateAfterSearch
}

func TestDriveInstallsWhenUpdateFound(t *testing.T) {
	m := newFakeMachine()
	m.stateAfterSearch = session.StateUpdateFound

	Drive(m)

	assert.Equal(t, 1, m.searchCalls)
	assert.Equal(t, 1, m.installCalls)
}

func TestDriveDoesNotInstallOnNoUpdateFound(t *testing.T) {
	m := newFakeMachine()
	m.stateAfterSearch = session.StateIdle

	Drive(m)

	assert.Equal(t, 1, m.searchCalls)
	assert.Equal(t, 0, m.installCalls)
}

func TestDriveStopsOnSearchError(t *testing.T) {
	m := newFakeMachine()
	m.searchErr = errors.New("state violation")

	Drive(m)

	assert.Equal(t, 1, m.searchCalls)
	assert.Equal(t, 0, m.installCalls)
}
