package cliflags

import "github.com/urfave/cli/v2"

// One exported package var per flag, grouped into the categories above
// and re-used directly in each binary's Flags slice.
var (
	PidFlag = &cli.IntFlag{
		Name:     "pid",
		Aliases:  []string{"p"},
		Usage:    "attach to an already-running job launcher by PID",
		Category: LaunchCategory,
	}
	ArgsFlag = &cli.StringSliceFlag{
		Name:     "a",
		Usage:    "pass the remainder of the command line to the resource manager to launch and attach",
		Category: LaunchCategory,
	}
	LauncherFlag = &cli.StringFlag{
		Name:     "launcher",
		Usage:    "launcher binary to invoke",
		Value:    "srun",
		Category: LaunchCategory,
	}
	HostFlag = &cli.StringFlag{
		Name:     "host",
		Usage:    "launcher host",
		Category: LaunchCategory,
	}
	LocalFlag = &cli.BoolFlag{
		Name:     "local",
		Usage:    "single-node deployment on this host",
		Category: OverlayCategory,
	}
	SBDFlag = &cli.BoolFlag{
		Name:     "sbd",
		Usage:    "force the scalable binary distribution side channel on",
		Category: SBDCategory,
	}
	ConfigFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "path to a pgdb TOML config file",
		Category: MiscCategory,
	}
	TopologyFlag = &cli.StringFlag{
		Name:     "topology",
		Usage:    "path to a tree topology descriptor file",
		Category: OverlayCategory,
	}
	ListenFlag = &cli.StringFlag{
		Name:     "listen",
		Usage:    "overlay-tree listen address back-ends dial into as --parent",
		Category: OverlayCategory,
	}
)

// FrontendFlags is the full flag set for the front-end binary.
var FrontendFlags = []cli.Flag{
	PidFlag, ArgsFlag, LauncherFlag, HostFlag, LocalFlag, SBDFlag, ConfigFlag, TopologyFlag, ListenFlag,
}

// BackendFlags is the full flag set for the back-end binary, which is
// launched by the launcher/front-end rather than invoked interactively.
var BackendFlags = []cli.Flag{
	ConfigFlag,
	&cli.IntFlag{Name: "rank", Usage: "lowest rank this back-end process is responsible for", Category: LaunchCategory},
	&cli.IntFlag{Name: "rank-count", Usage: "number of ranks this back-end is responsible for", Value: 1, Category: LaunchCategory},
	&cli.StringFlag{Name: "parent", Usage: "relay or front-end address to connect upward to", Category: OverlayCategory},
}

// RelayFlags is the full flag set for the relay binary, an internal
// overlay-tree node spawned by the front-end (cmd/pgdbfe) between itself
// and a group of back-ends.
var RelayFlags = []cli.Flag{
	ConfigFlag,
	&cli.StringFlag{Name: "parent", Usage: "relay or front-end address to connect upward to", Required: true, Category: OverlayCategory},
	&cli.StringFlag{Name: "listen", Usage: "address to accept downward connections on", Value: "127.0.0.1:0", Category: OverlayCategory},
	&cli.IntFlag{Name: "children", Usage: "number of direct children expected to join before the barrier is satisfied", Category: OverlayCategory},
	&cli.DurationFlag{Name: "barrier", Usage: "per-barrier timeout before flushing whatever has accumulated", Category: OverlayCategory},
}
