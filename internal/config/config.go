package config

import (
	"time"

	"github.com/danmuck/ledctl/internal/service"
)

// File is the on-disk shape of a ledctl config. Durations are Go duration
// strings such as "2s" or "500ms".
type File struct {
	InstanceID       string        `toml:"instance_id"`
	TCPAddr          string        `toml:"tcp_addr"`
	UDPAddr          string        `toml:"udp_addr"`
	ReadTimeout      string        `toml:"read_timeout"`
	StreamTimeout    string        `toml:"stream_timeout"`
	ElectionInterval string        `toml:"election_interval"`
	DefaultPriority  int           `toml:"default_priority"`
	StatusAddr       string        `toml:"status_addr"`
	CORSOrigins      []string      `toml:"cors_origins"`
	LogLevel         string        `toml:"log_level"`
	LogFile          LogFileTable  `toml:"log_file"`
	Resolver         ResolverTable `toml:"resolver"`
	Display          DisplayTable  `toml:"display"`
}

type LogFileTable struct {
	Path       string `toml:"path"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

type ResolverTable struct {
	Reverse       bool   `toml:"reverse"`
	IncludePort   bool   `toml:"include_port"`
	CacheSize     int    `toml:"cache_size"`
	CacheTTL      string `toml:"cache_ttl"`
	LookupTimeout string `toml:"lookup_timeout"`
}

type DisplayTable struct {
	Sink       string  `toml:"sink"`
	Height     int     `toml:"height"`
	Width      int     `toml:"width"`
	Brightness uint8   `toml:"brightness"`
	Gamma      float64 `toml:"gamma"`
	Pattern    string  `toml:"pattern"`
}

// FromService renders cfg in its file form.
func FromService(cfg service.ServiceConfig) File {
	return File{
		InstanceID:       cfg.InstanceID,
		TCPAddr:          cfg.TCPAddr,
		UDPAddr:          cfg.UDPAddr,
		ReadTimeout:      formatDuration(cfg.ReadTimeout),
		StreamTimeout:    formatDuration(cfg.StreamTimeout),
		ElectionInterval: formatDuration(cfg.ElectionInterval),
		DefaultPriority:  cfg.DefaultPriority,
		StatusAddr:       cfg.StatusAddr,
		CORSOrigins:      cfg.CORSOrigins,
		LogLevel:         cfg.LogLevel,
		LogFile: LogFileTable{
			Path:       cfg.LogFile.Path,
			MaxSizeMB:  cfg.LogFile.MaxSizeMB,
			MaxBackups: cfg.LogFile.MaxBackups,
			MaxAgeDays: cfg.LogFile.MaxAgeDays,
			Compress:   cfg.LogFile.Compress,
		},
		Resolver: ResolverTable{
			Reverse:       cfg.Resolver.Reverse,
			IncludePort:   cfg.Resolver.IncludePort,
			CacheSize:     cfg.Resolver.CacheSize,
			CacheTTL:      formatDuration(cfg.Resolver.CacheTTL),
			LookupTimeout: formatDuration(cfg.Resolver.LookupTimeout),
		},
		Display: DisplayTable{
			Sink:       cfg.Display.Sink,
			Height:     cfg.Display.Height,
			Width:      cfg.Display.Width,
			Brightness: cfg.Display.Brightness,
			Gamma:      cfg.Display.Gamma,
			Pattern:    cfg.Display.Pattern,
		},
	}
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	return d.String()
}
