package plugin

import (
	"context"
	"fmt"
)

// OfflineInstaller reports plugins that are not on disk instead of
// fetching them. Checkouts of installed plugins still go through the
// wrapped installer.
type OfflineInstaller struct {
	Installer
}

// Offline wraps an installer so it never installs.
func Offline(inst Installer) *OfflineInstaller {
	return &OfflineInstaller{Installer: inst}
}

// Install implements Installer.
func (o *OfflineInstaller) Install(_ context.Context, spec Spec) error {
	return fmt.Errorf("%w: %s is not installed at %s", ErrInstallDisabled, spec.Name, o.Path(spec))
}
