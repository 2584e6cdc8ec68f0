package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestParseDirectives(t *testing.T) {
	input := `
# a comment
port 7000
bind 127.0.0.1
timeout 30
save 900 1
save 300 10
dir /var/lib/kvstored
loglevel debug
logfile /var/log/kvstored.log
databases 4
dbfilename snap.rdb
appendonly yes
appendfsync always
maxclients 500
maxmemory 1048576
requirepass hunter2
rdbcompression no
slaveof 10.0.0.1 7000
pidfile /run/kvstored.pid
daemonize yes
`
	cfg, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Equal(t, 7000, cfg.Port)
	require.Equal(t, "127.0.0.1", cfg.Bind)
	require.Equal(t, 30, cfg.Timeout)
	require.Equal(t, []SaveRule{{900, 1}, {300, 10}}, cfg.Save)
	require.Equal(t, "/var/lib/kvstored", cfg.Dir)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "/var/log/kvstored.log", cfg.LogFile)
	require.Equal(t, 4, cfg.Databases)
	require.Equal(t, "snap.rdb", cfg.DBFilename)
	require.True(t, cfg.AppendOnly)
	require.Equal(t, "always", cfg.AppendFsync)
	require.Equal(t, 500, cfg.MaxClients)
	require.EqualValues(t, 1048576, cfg.MaxMemory)
	require.Equal(t, "hunter2", cfg.RequirePass)
	require.False(t, cfg.RDBCompression)
	require.Equal(t, "10.0.0.1", cfg.SlaveOfHost)
	require.Equal(t, 7000, cfg.SlaveOfPort)
	require.Equal(t, "/run/kvstored.pid", cfg.PidFile)
	require.True(t, cfg.Daemonize)
}

func TestParseUnknownDirective(t *testing.T) {
	_, err := Parse(strings.NewReader("bogus 1"))
	require.Error(t, err)
}

func TestParseBadArity(t *testing.T) {
	_, err := Parse(strings.NewReader("port 1 2"))
	require.Error(t, err)
}
