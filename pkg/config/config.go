package config

import (
	"fmt"
	"strconv"
	"time"
)

const (
	DEVELOPMENT = "development"
	HEAD        = "HEAD"
	EPOCH       = "0"
)

// Overridden at build time via -ldflags.
var version = DEVELOPMENT
var gitHash = HEAD
var buildTime = EPOCH

// BuildInfo identifies the running installer binary.
type BuildInfo struct {
	Version   string
	GitHash   string
	BuildTime time.Time
}

func Get() BuildInfo {
	btime, err := strconv.ParseInt(buildTime, 10, 64)
	if err != nil {
		btime = 0
	}

	return BuildInfo{
		Version:   version,
		GitHash:   gitHash,
		BuildTime: time.Unix(btime, 0),
	}
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (git %s, built %s)", b.Version, b.GitHash, b.BuildTime.UTC().Format(time.RFC3339))
}
