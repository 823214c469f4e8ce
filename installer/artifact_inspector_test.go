package installer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArtifactInspectorReportsUnreadableBundle(t *testing.T) {
	a := NewArtifactInspector()
	_, _, err := a.Inspect("/nonexistent/bundle.mender")
	assert.Error(t, err)
}
