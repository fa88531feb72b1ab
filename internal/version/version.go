package version

import "fmt"

var (
	CLIName    = "molted"
	CLIVersion = "0.1.0"
	Commit     = "unknown"
	BuildDate  = "unknown"
)

func Long() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", CLIVersion, Commit, BuildDate)
}

// UserAgent is sent on every marketplace request.
func UserAgent() string {
	return "molted-cli/" + CLIVersion
}
