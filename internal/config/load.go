package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/ledctl/internal/service"
)

// LoadServiceConfig overlays the keys present in path onto
// service.DefaultServiceConfig and validates the result.
func LoadServiceConfig(path string) (service.ServiceConfig, error) {
	cfg := service.DefaultServiceConfig()

	var raw File
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return service.ServiceConfig{}, fmt.Errorf("load config (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return service.ServiceConfig{}, fmt.Errorf("load config (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("instance_id") {
		cfg.InstanceID = strings.TrimSpace(raw.InstanceID)
	}
	if meta.IsDefined("tcp_addr") {
		cfg.TCPAddr = strings.TrimSpace(raw.TCPAddr)
	}
	if meta.IsDefined("udp_addr") {
		cfg.UDPAddr = strings.TrimSpace(raw.UDPAddr)
	}
	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = normalizeList(raw.CORSOrigins)
	}
	if meta.IsDefined("default_priority") {
		cfg.DefaultPriority = raw.DefaultPriority
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	durations := []struct {
		key []string
		raw string
		dst *time.Duration
	}{
		{[]string{"read_timeout"}, raw.ReadTimeout, &cfg.ReadTimeout},
		{[]string{"stream_timeout"}, raw.StreamTimeout, &cfg.StreamTimeout},
		{[]string{"election_interval"}, raw.ElectionInterval, &cfg.ElectionInterval},
		{[]string{"resolver", "cache_ttl"}, raw.Resolver.CacheTTL, &cfg.Resolver.CacheTTL},
		{[]string{"resolver", "lookup_timeout"}, raw.Resolver.LookupTimeout, &cfg.Resolver.LookupTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key...) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return service.ServiceConfig{}, fmt.Errorf("parse %s: %w", strings.Join(d.key, "."), err)
		}
		*d.dst = v
	}

	if meta.IsDefined("log_file", "path") {
		cfg.LogFile.Path = strings.TrimSpace(raw.LogFile.Path)
	}
	if meta.IsDefined("log_file", "max_size_mb") {
		cfg.LogFile.MaxSizeMB = raw.LogFile.MaxSizeMB
	}
	if meta.IsDefined("log_file", "max_backups") {
		cfg.LogFile.MaxBackups = raw.LogFile.MaxBackups
	}
	if meta.IsDefined("log_file", "max_age_days") {
		cfg.LogFile.MaxAgeDays = raw.LogFile.MaxAgeDays
	}
	if meta.IsDefined("log_file", "compress") {
		cfg.LogFile.Compress = raw.LogFile.Compress
	}

	if meta.IsDefined("resolver", "reverse") {
		cfg.Resolver.Reverse = raw.Resolver.Reverse
	}
	if meta.IsDefined("resolver", "include_port") {
		cfg.Resolver.IncludePort = raw.Resolver.IncludePort
	}
	if meta.IsDefined("resolver", "cache_size") {
		cfg.Resolver.CacheSize = raw.Resolver.CacheSize
	}

	if meta.IsDefined("display", "sink") {
		cfg.Display.Sink = strings.ToLower(strings.TrimSpace(raw.Display.Sink))
	}
	if meta.IsDefined("display", "height") {
		cfg.Display.Height = raw.Display.Height
	}
	if meta.IsDefined("display", "width") {
		cfg.Display.Width = raw.Display.Width
	}
	if meta.IsDefined("display", "brightness") {
		cfg.Display.Brightness = raw.Display.Brightness
	}
	if meta.IsDefined("display", "gamma") {
		cfg.Display.Gamma = raw.Display.Gamma
	}
	if meta.IsDefined("display", "pattern") {
		cfg.Display.Pattern = strings.TrimSpace(raw.Display.Pattern)
	}

	if err := cfg.Validate(); err != nil {
		return service.ServiceConfig{}, fmt.Errorf("config (%s): %w", path, err)
	}
	return cfg, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
