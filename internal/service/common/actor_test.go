//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDetectActor ensures hostname and username are detected and non-empty.
func TestDetectActor(t *testing.T) {
	t.Parallel()

	a, err := DetectActor()
	require.NoError(t, err)
	require.NotEmpty(t, a.Hostname)
	require.NotEmpty(t, a.Username)
}

// TestActor_UserAgent includes the actor only when known.
func TestActor_UserAgent(t *testing.T) {
	t.Parallel()

	var nobody *Actor
	require.True(t, strings.HasPrefix(nobody.UserAgent(), "mlops-launch/"))
	require.NotContains(t, nobody.UserAgent(), "@")

	a := &Actor{Hostname: "box", Username: "dev"}
	require.True(t, strings.HasSuffix(a.UserAgent(), " dev@box"))
}
