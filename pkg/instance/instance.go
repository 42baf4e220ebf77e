package instance

import "github.com/angelmondragon/quizfunnel-backend/pkg/env"

// ID names this process in log lines. Platform dyno names win over the
// container hostname.
func ID() string {
	return env.Get("DYNO", env.Get("HOSTNAME", "local"))
}
