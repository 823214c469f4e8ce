package reboot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeClient is a scriptable Client double exercised directly below; session
// tests define their own equivalent.
type fakeClient struct {
	err    error
	called int
}

func (f *fakeClient) Reboot(ctx context.Context) error {
	f.called++
	return f.err
}

var _ Client = (*fakeClient)(nil)

func TestFakeClientReportsFailure(t *testing.T) {
	f := &fakeClient{err: errors.New("reboot authority refused")}
	err := f.Reboot(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, f.called)
}

func TestFakeClientSucceedsWithNoError(t *testing.T) {
	f := &fakeClient{}
	assert.NoError(t, f.Reboot(context.Background()))
}
