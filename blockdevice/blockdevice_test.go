package blockdevice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeClient is an in-memory Client double exercised directly below. Test
// symbols are not exported, so other packages (session among them) define
// their own small fakes instead.
type fakeClient struct {
	devices     []string
	mountPoints map[string]string
	mountErr    map[string]error
	unmountErr  map[string]error
	mounted     []string
	unmounted   []string
}

func (f *fakeClient) Enumerate(ctx context.Context) ([]string, error) {
	return f.devices, nil
}

func (f *fakeClient) Mount(ctx context.Context, id string) (string, error) {
	f.mounted = append(f.mounted, id)
	if err := f.mountErr[id]; err != nil {
		return "", err
	}
	return f.mountPoints[id], nil
}

func (f *fakeClient) Unmount(ctx context.Context, id string) error {
	f.unmounted = append(f.unmounted, id)
	return f.unmountErr[id]
}

var _ Client = (*fakeClient)(nil)

func TestFakeClientTracksCallsIndependentlyOfSessionState(t *testing.T) {
	f := &fakeClient{
		devices:     []string{"sda1", "sdb1"},
		mountPoints: map[string]string{"sda1": "/mnt/sda1", "sdb1": "/mnt/sdb1"},
	}
	ids, err := f.Enumerate(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"sda1", "sdb1"}, ids)

	mp, err := f.Mount(context.Background(), "sda1")
	assert.NoError(t, err)
	assert.Equal(t, "/mnt/sda1", mp)

	assert.NoError(t, f.Unmount(context.Background(), "sda1"))
	assert.Equal(t, []string{"sda1"}, f.mounted)
	assert.Equal(t, []string{"sda1"}, f.unmounted)
}
