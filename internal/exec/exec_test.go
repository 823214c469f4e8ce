package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandRuns(t *testing.T) {
	out, err := Command("echo", "hello").CombinedOutput()
	assert.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestOsCallsImplementsCommander(t *testing.T) {
	var c Commander = OsCalls{}
	out, err := c.Command("echo", "ok").CombinedOutput()
	assert.NoError(t, err)
	assert.Equal(t, "ok\n", string(out))
}
