// Package cliflags defines pgdb's urfave/cli/v2 flag set, grouped into
// help-text categories shared by all three binaries.
package cliflags

import "github.com/urfave/cli/v2"

const (
	LaunchCategory  = "LAUNCH"
	OverlayCategory = "OVERLAY"
	SBDCategory     = "SCALABLE BINARY DISTRIBUTION"
	ShellCategory   = "SHELL"
	MiscCategory    = "MISC"
)

func init() {
	cli.HelpFlag.(*cli.BoolFlag).Category = MiscCategory
	cli.VersionFlag.(*cli.BoolFlag).Category = MiscCategory
}
