//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"
	"runtime"

	"github.com/oshokin/mlops-launch/internal/version"
)

// Actor identifies the machine and account issuing remote calls.
type Actor struct {
	Hostname string
	Username string
}

// DetectActor gathers host and user information for the request user agent.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

// UserAgent renders the User-Agent header value sent to the MLOps API.
func (a *Actor) UserAgent() string {
	agent := fmt.Sprintf("mlops-launch/%s (%s/%s)", version.Short(), runtime.GOOS, runtime.GOARCH)
	if a == nil {
		return agent
	}

	return fmt.Sprintf("%s %s@%s", agent, a.Username, a.Hostname)
}
