package config

import (
	"testing"
	"time"
)

func TestGetDefaults(t *testing.T) {
	info := Get()

	if info.Version != DEVELOPMENT {
		t.Errorf("expected <%s> actual <%s>", DEVELOPMENT, info.Version)
	}
	if info.GitHash != HEAD {
		t.Errorf("expected <%s> actual <%s>", HEAD, info.GitHash)
	}
	if !info.BuildTime.Equal(time.Unix(0, 0)) {
		t.Errorf("expected epoch build time actual <%v>", info.BuildTime)
	}
}

func TestBuildInfoString(t *testing.T) {
	info := Get()

	expected := "development (git HEAD, built 1970-01-01T00:00:00Z)"
	if info.String() != expected {
		t.Errorf("expected <%s> actual <%s>", expected, info.String())
	}
}
