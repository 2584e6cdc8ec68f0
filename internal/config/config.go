// Package config parses the line-oriented, '#'-comment directive file
// format from spec.md §6 into a typed, defaulted Config struct — the
// wire format is spec-mandated, not a design choice, so the parser is a
// small hand-written line scanner rather than a structured format,
// following the validate-then-populate-struct-with-defaults idiom of the
// teacher's pkg/metricstore/config.go (adapted from JSON unmarshalling to
// line tokenizing since this format is fixed by spec.md).
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// SaveRule is one `save <seconds> <changes>` directive: a background
// save is due once `changes` mutations have accumulated and at least
// `seconds` have elapsed since the last successful save (spec.md §4.5.3).
type SaveRule struct {
	Seconds int64
	Changes int64
}

// Config holds every directive spec.md §6 recognizes, defaulted to the
// values a fresh install would ship with.
type Config struct {
	Port            int
	Bind            string
	Timeout         int // idle client timeout, seconds; 0 disables
	Save            []SaveRule
	Dir             string
	LogLevel        string
	LogFile         string // "stdout" or a path
	Databases       int
	DBFilename      string
	AppendOnly      bool
	AppendFilename  string
	AppendFsync     string // no | always | everysec
	MaxClients      int
	MaxMemory       int64
	RequirePass     string
	RDBCompression  bool
	SlaveOfHost     string
	SlaveOfPort     int
	PidFile         string
	Daemonize       bool
}

// Default returns the configuration a server starts with when no config
// file is given, matching the directive defaults spec.md §6 implies.
func Default() *Config {
	return &Config{
		Port:           6380,
		Bind:           "",
		Timeout:        0,
		Dir:            ".",
		LogLevel:       "notice",
		LogFile:        "stdout",
		Databases:      16,
		DBFilename:     "dump.rdb",
		AppendOnly:     false,
		AppendFilename: "appendonly.aof",
		AppendFsync:    "everysec",
		MaxClients:     10000,
		MaxMemory:      0,
		RDBCompression: true,
		PidFile:        "/var/run/kvstored.pid",
		Daemonize:      false,
	}
}

// Load parses path over the defaults, returning the populated Config.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads directives from r over the defaults. Exported separately
// from Load so tests can exercise it against an in-memory reader.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		directive := strings.ToLower(fields[0])
		args := fields[1:]
		if err := apply(cfg, directive, args); err != nil {
			return nil, fmt.Errorf("config: line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func apply(cfg *Config, directive string, args []string) error {
	need := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%q expects %d argument(s), got %d", directive, n, len(args))
		}
		return nil
	}
	switch directive {
	case "port":
		if err := need(1); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad port %q: %w", args[0], err)
		}
		cfg.Port = n
	case "bind":
		if err := need(1); err != nil {
			return err
		}
		cfg.Bind = args[0]
	case "timeout":
		if err := need(1); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad timeout %q: %w", args[0], err)
		}
		cfg.Timeout = n
	case "save":
		if err := need(2); err != nil {
			return err
		}
		secs, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad save seconds %q: %w", args[0], err)
		}
		changes, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad save changes %q: %w", args[1], err)
		}
		cfg.Save = append(cfg.Save, SaveRule{Seconds: secs, Changes: changes})
	case "dir":
		if err := need(1); err != nil {
			return err
		}
		cfg.Dir = args[0]
	case "loglevel":
		if err := need(1); err != nil {
			return err
		}
		cfg.LogLevel = strings.ToLower(args[0])
	case "logfile":
		if err := need(1); err != nil {
			return err
		}
		cfg.LogFile = args[0]
	case "databases":
		if err := need(1); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad databases %q: %w", args[0], err)
		}
		cfg.Databases = n
	case "dbfilename":
		if err := need(1); err != nil {
			return err
		}
		cfg.DBFilename = args[0]
	case "appendonly":
		if err := need(1); err != nil {
			return err
		}
		b, err := parseYesNo(args[0])
		if err != nil {
			return err
		}
		cfg.AppendOnly = b
	case "appendfsync":
		if err := need(1); err != nil {
			return err
		}
		cfg.AppendFsync = strings.ToLower(args[0])
	case "maxclients":
		if err := need(1); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad maxclients %q: %w", args[0], err)
		}
		cfg.MaxClients = n
	case "maxmemory":
		if err := need(1); err != nil {
			return err
		}
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("bad maxmemory %q: %w", args[0], err)
		}
		cfg.MaxMemory = n
	case "requirepass":
		if err := need(1); err != nil {
			return err
		}
		cfg.RequirePass = args[0]
	case "rdbcompression":
		if err := need(1); err != nil {
			return err
		}
		b, err := parseYesNo(args[0])
		if err != nil {
			return err
		}
		cfg.RDBCompression = b
	case "slaveof":
		if err := need(2); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad slaveof port %q: %w", args[1], err)
		}
		cfg.SlaveOfHost = args[0]
		cfg.SlaveOfPort = n
	case "pidfile":
		if err := need(1); err != nil {
			return err
		}
		cfg.PidFile = args[0]
	case "daemonize":
		if err := need(1); err != nil {
			return err
		}
		b, err := parseYesNo(args[0])
		if err != nil {
			return err
		}
		cfg.Daemonize = b
	default:
		return fmt.Errorf("unknown directive %q", directive)
	}
	return nil
}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("expected yes/no, got %q", s)
	}
}
