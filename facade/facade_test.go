package facade

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeMachine is a minimal machine double; Service only needs the two
// methods it calls through to, so a live D-Bus connection isn't required
// to exercise the method-dispatch logic.
type fakeMachine struct {
	searchErr  error
	installErr error

	searchCalls  int
	installCalls []struct {
		update, reboot bool
	}
}

func (f *fakeMachine) SearchForUpdate(ctx context.Context) error {
	f.searchCalls++
	return f.searchErr
}

func (f *fakeMachine) InstallUpdate(ctx context.Context, update, reboot bool) error {
	f.installCalls = append(f.installCalls, struct{ update, reboot bool }{update, reboot})
	return f.installErr
}

func TestSearchForUpdateDelegatesToMachine(t *testing.T) {
	m := &fakeMachine{}
	s := &Service{machine: m}

	assert.Nil(t, s.SearchForUpdate())
	assert.Equal(t, 1, m.searchCalls)
}

func TestSearchForUpdateReturnsDBusErrorOnFailure(t *testing.T) {
	m := &fakeMachine{searchErr: errors.New("state violation")}
	s := &Service{machine: m}

	err := s.SearchForUpdate()
	assert.NotNil(t, err)
}

func TestInstallUpdatePassesArgumentsThrough(t *testing.T) {
	m := &fakeMachine{}
	s := &Service{machine: m}

	assert.Nil(t, s.InstallUpdate(true, false))
	assert.Len(t, m.installCalls, 1)
	assert.True(t, m.installCalls[0].update)
	assert.False(t, m.installCalls[0].reboot)
}
