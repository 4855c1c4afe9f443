package artifacts

import "context"

//go:generate mockgen -source installer.go -destination=mocks/installer.go -package=mocks Installer

// Installer is an interface to abstract how provider binaries reach the
// node's bin dir, whether staged on local disk by the installer image or
// already delivered by some other channel.
type Installer interface {
	// Install places the named binary into binDir and returns the
	// installed path.
	Install(ctx context.Context, binary, binDir string) (string, error)
}
