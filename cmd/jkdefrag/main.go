// Command jkdefrag is the §6 CLI entry point: parse flags (and an optional -config file),
// open one session per volume named on the command line, run the selected optimize mode's phase
// sequence, and report exit codes per §6 (0 success, 1 fatal-setup error, other nonzero for
// per-volume failures).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/kvakvs/jkdefrag-go/config"
	"github.com/kvakvs/jkdefrag-go/corerr"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/session"
	"github.com/kvakvs/jkdefrag-go/units"
	"github.com/kvakvs/jkdefrag-go/voldriver"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentVolumes bounds how many volumes this process drives at once; each volume gets its
// own single-threaded session (§5: one running-state flag per session), run concurrently across
// volumes named on the command line.
const maxConcurrentVolumes = 4

func main() {
	app := cli.NewApp()
	app.Name = "jkdefrag"
	app.Usage = "offline disk defragmenter and placement optimizer"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "a", Value: "AnalyzeFixup", Usage: "optimize mode (see §6 table)"},
		cli.StringSliceFlag{Name: "e", Usage: "exclude mask (repeatable)"},
		cli.StringSliceFlag{Name: "u", Usage: "space-hog mask (repeatable); disables default hog masks when given"},
		cli.IntFlag{Name: "s", Usage: "slowdown percentage (0-100)"},
		cli.Float64Flag{Name: "f", Value: 10, Usage: "per-zone free-space reserve percentage"},
		cli.StringFlag{Name: "l", Usage: "log file path"},
		cli.StringFlag{Name: "d", Value: "Progress", Usage: "debug level (Fatal..DetailedGapFilling)"},
		cli.StringFlag{Name: "config", Usage: "optional JSON config file; flags above override it"},
		cli.BoolFlag{Name: "sim", Usage: "drive an in-memory SimDriver instead of a real device (demo/smoke-test mode)"},
		cli.Uint64Flag{Name: "sim-clusters", Value: 1000, Usage: "total clusters for -sim's synthetic volume"},
		cli.Uint64Flag{Name: "sim-bytes-per-cluster", Value: 4096, Usage: "cluster size for -sim's synthetic volume"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		glog.Errorf("jkdefrag: %v", err)
		glog.Flush()
		os.Exit(exitCodeFor(err))
	}
	glog.Flush()
}

// exitCodeFor maps a run failure to §6's exit-code contract: 1 for a fatal setup error (no
// volume could be opened at all), any other nonzero for a per-volume failure that still let the
// rest of the run proceed.
func exitCodeFor(err error) int {
	switch corerr.KindOf(err) {
	case corerr.KindNotAVolume, corerr.KindPrivilegeDenied, corerr.KindHibernated:
		return 1
	default:
		return 2
	}
}

func run(c *cli.Context) error {
	cfg := config.Default()
	cfg.Mode = c.String("a")
	cfg.Excludes = c.StringSlice("e")
	cfg.SpaceHogs = c.StringSlice("u")
	cfg.LogFile = c.String("l")
	cfg.DebugLevel = c.String("d")
	cfg.Paths = c.Args()

	if path := c.String("config"); path != "" {
		fileCfg, err := config.LoadFile(path, config.Default())
		if err != nil {
			return corerr.New(corerr.KindNotAVolume, err, "load -config %s", path)
		}
		// Flags win: re-apply whatever the user actually typed on top of the file.
		cfg = overlayExplicitFlags(c, fileCfg)
	}
	if c.IsSet("s") {
		cfg.SlowdownPercent = c.Int("s")
	}
	if c.IsSet("f") {
		cfg.FreeSpacePercentReserve = c.Float64("f")
	}

	level, err := config.ParseDebugLevel(cfg.DebugLevel)
	if err != nil {
		return corerr.New(corerr.KindNotAVolume, err, "parse -d")
	}
	_ = flag.Set("v", fmt.Sprintf("%d", int(level)))
	if cfg.LogFile != "" {
		_ = flag.Set("log_dir", cfg.LogFile)
	}

	mode, err := cfg.ResolveMode()
	if err != nil {
		return corerr.New(corerr.KindNotAVolume, err, "resolve mode")
	}

	if len(cfg.Paths) == 0 {
		return corerr.New(corerr.KindNotAVolume, nil, "no volume/path arguments given")
	}

	group, ctx := errgroup.WithContext(context.Background())
	sem := make(chan struct{}, maxConcurrentVolumes)
DriveVolumes:
	for _, path := range cfg.Paths {
		path := path
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break DriveVolumes
		}
		group.Go(func() error {
			defer func() { <-sem }()
			return runOneVolume(cfg, mode, path, c.Bool("sim"), c.Uint64("sim-clusters"), c.Uint64("sim-bytes-per-cluster"))
		})
	}
	return group.Wait()
}

// overlayExplicitFlags re-applies only the flags the user actually set on the command line (as
// opposed to cli's own defaults) on top of a file-loaded config, so "flags win" holds even though
// urfave/cli always reports a value for every flag.
func overlayExplicitFlags(c *cli.Context, fileCfg config.Config) config.Config {
	if c.IsSet("a") {
		fileCfg.Mode = c.String("a")
	}
	if c.IsSet("e") {
		fileCfg.Excludes = c.StringSlice("e")
	}
	if c.IsSet("u") {
		fileCfg.SpaceHogs = c.StringSlice("u")
	}
	if c.IsSet("l") {
		fileCfg.LogFile = c.String("l")
	}
	if c.IsSet("d") {
		fileCfg.DebugLevel = c.String("d")
	}
	return fileCfg
}

// runOneVolume opens a session for a single volume/path, runs its optimize mode's phase
// sequence, and closes it. A per-volume failure is returned to the caller: run's errgroup then
// starts no further volumes, lets the ones already running finish, and returns the first error.
func runOneVolume(cfg config.Config, mode session.Mode, path string, sim bool, simClusters, simBytesPerCluster uint64) error {
	driver, err := openDriver(path, sim, simClusters, simBytesPerCluster)
	if err != nil {
		return err
	}

	level, _ := config.ParseDebugLevel(cfg.DebugLevel)
	obs := observer.NewCLIObserver(level)

	host, err := session.Open(driver, obs, cfg.SessionOptions([]string{cfg.LogFile}, path))
	if err != nil {
		return err
	}
	defer func() {
		obs.Wait()
		if cerr := host.Close(); cerr != nil {
			glog.Errorf("jkdefrag: closing session for %s: %v", path, cerr)
		}
	}()

	return session.RunStages(host, mode)
}

// openDriver resolves the voldriver.Driver for path. The real NTFS/FAT/OS bitmap-and-move driver
// is an external collaborator per §1 ("the physical bitmap/move API is assumed to exist") and
// does not ship with this core; -sim substitutes an in-memory voldriver.SimDriver so the full
// phase pipeline can still be exercised end-to-end without one.
func openDriver(path string, sim bool, simClusters, simBytesPerCluster uint64) (voldriver.Driver, error) {
	if sim {
		return voldriver.NewSimDriver(units.Clusters64(simClusters), units.Bytes64(simBytesPerCluster)), nil
	}
	return nil, corerr.New(corerr.KindNotAVolume, nil,
		"no real volume driver is wired for %s; pass -sim to exercise the pipeline against a synthetic volume", path)
}
