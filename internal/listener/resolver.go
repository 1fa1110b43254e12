package listener

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

// ResolverConfig controls how a network address becomes a stream identity.
type ResolverConfig struct {
	// Reverse enables reverse DNS; when off the raw IP is the identity.
	Reverse bool
	// IncludePort appends the source port. Off by default because every
	// stream connection arrives from a fresh ephemeral port.
	IncludePort   bool
	CacheSize     int
	CacheTTL      time.Duration
	LookupTimeout time.Duration
}

func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		Reverse:       true,
		IncludePort:   false,
		CacheSize:     256,
		CacheTTL:      time.Minute,
		LookupTimeout: 500 * time.Millisecond,
	}
}

// Resolver maps remote addresses to stream identities.
type Resolver struct {
	cfg    ResolverConfig
	lookup func(ctx context.Context, ip string) ([]string, error)
	cache  *expirable.LRU[string, string]
}

func NewResolver(cfg ResolverConfig) *Resolver {
	d := DefaultResolverConfig()
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = d.CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = d.CacheTTL
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = d.LookupTimeout
	}
	return &Resolver{
		cfg:    cfg,
		lookup: net.DefaultResolver.LookupAddr,
		cache:  expirable.NewLRU[string, string](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// Identity returns the reverse-resolved host name for addr, or the raw IP
// when resolution is disabled or fails.
func (r *Resolver) Identity(ctx context.Context, addr net.Addr) string {
	host, port := splitAddr(addr)
	name := host
	if r != nil && r.cfg.Reverse && host != "" {
		name = r.resolve(ctx, host)
	}
	if r != nil && r.cfg.IncludePort && port != "" {
		return net.JoinHostPort(name, port)
	}
	return name
}

func (r *Resolver) resolve(ctx context.Context, ip string) string {
	if name, ok := r.cache.Get(ip); ok {
		return name
	}
	lookupCtx, cancel := context.WithTimeout(ctx, r.cfg.LookupTimeout)
	defer cancel()

	name := ip
	names, err := r.lookup(lookupCtx, ip)
	switch {
	case err != nil:
		log.Warn().Str("addr", ip).Err(err).Msg("hostname lookup failed, using address")
	case len(names) == 0:
		log.Warn().Str("addr", ip).Msg("hostname lookup returned no names, using address")
	default:
		if n := strings.TrimSuffix(strings.TrimSpace(names[0]), "."); n != "" {
			name = n
		}
	}
	r.cache.Add(ip, name)
	return name
}

func splitAddr(addr net.Addr) (host, port string) {
	switch a := addr.(type) {
	case nil:
		return "", ""
	case *net.TCPAddr:
		return a.IP.String(), strconv.Itoa(a.Port)
	case *net.UDPAddr:
		return a.IP.String(), strconv.Itoa(a.Port)
	}
	raw := addr.String()
	h, p, err := net.SplitHostPort(raw)
	if err != nil {
		return raw, ""
	}
	return h, p
}
