package version

import (
	"fmt"
	"time"

	"github.com/samcharles93/cisa/pkg/cisa"
)

var (
	// Version is the release version (set via -ldflags).
	Version = ""
	// Commit is the git commit hash (set via -ldflags).
	Commit = ""
	// BuildTime is the build timestamp (set via -ldflags).
	BuildTime = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	// Formats is the range of container versions this build reads.
	Formats string `json:"formats"`
}

func Resolve() Info {
	resolved := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		Formats:   formatRange(),
	}

	if resolved.Version == "" {
		if resolved.BuildTime != "" {
			resolved.Version = resolved.BuildTime
		} else {
			resolved.Version = "dev-" + time.Now().UTC().Format("20060102")
		}
	}

	return resolved
}

func String() string {
	info := Resolve()
	if info.Commit == "" {
		return info.Version
	}
	return info.Version + " (" + shortCommit(info.Commit) + ")"
}

// UserAgent is the product token sent in the Server header.
func UserAgent() string {
	info := Resolve()
	if info.Commit == "" {
		return "cisa/" + info.Version
	}
	return "cisa/" + info.Version + "+" + shortCommit(info.Commit)
}

func formatRange() string {
	return fmt.Sprintf("%d.%d-%d.%d",
		cisa.MinVersion/100, cisa.MinVersion%100,
		cisa.MaxVersion/100, cisa.MaxVersion%100)
}

func shortCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}
