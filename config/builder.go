package config

import (
	"sort"

	"github.com/jpalmerr/peerboard"
)

// BuildClientOptions converts parsed configuration into [peerboard.Option]
// values for [peerboard.New].
func BuildClientOptions(cfg *Config) []peerboard.Option {
	opts := []peerboard.Option{
		peerboard.WithEndpoint(cfg.GraphQLURL),
		peerboard.WithRequestTimeout(cfg.RequestTimeout.Duration()),
		peerboard.WithDefaultRefreshInterval(cfg.RefreshInterval.Duration()),
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, peerboard.WithHeaders(mapToKeyValuePairs(cfg.Headers)...))
	}
	return opts
}

// BuildMirrorOptions converts parsed configuration into
// [peerboard.MirrorOption] values for [peerboard.NewMirror].
func BuildMirrorOptions(cfg *Config) []peerboard.MirrorOption {
	return []peerboard.MirrorOption{
		peerboard.WithPort(cfg.Port),
		peerboard.WithTitle(cfg.Title),
	}
}

// BuildResources creates every resource the configuration enables, in a
// stable order: connections, recent messages, all connections, then
// watched connections and peers in file order.
func BuildResources(c *peerboard.Client, cfg *Config) ([]peerboard.Resource, error) {
	var resources []peerboard.Resource

	if enabled(cfg.Connections.Enabled, true) {
		opts := []peerboard.ResourceOption{
			peerboard.WithAutoRefresh(enabled(cfg.Connections.AutoRefresh, true)),
		}
		if cfg.Connections.Interval != 0 {
			opts = append(opts, peerboard.WithRefreshInterval(cfg.Connections.Interval.Duration()))
		}
		res, err := c.PeerConnections(opts...)
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}

	if enabled(cfg.RecentMessages.Enabled, true) {
		opts := []peerboard.ResourceOption{
			peerboard.WithAutoRefresh(enabled(cfg.RecentMessages.AutoRefresh, false)),
		}
		if cfg.RecentMessages.Interval != 0 {
			opts = append(opts, peerboard.WithRefreshInterval(cfg.RecentMessages.Interval.Duration()))
		}
		res, err := c.RecentMessages(cfg.RecentMessages.Limit, opts...)
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}

	if cfg.AllConnections.Enabled {
		res, err := c.AllConnections()
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}

	for _, id := range cfg.Watch.Connections {
		res, err := c.MessagesByConnection(id)
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}

	for _, peer := range cfg.Watch.Peers {
		res, err := c.MessagesByPeer(peer)
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}

	return resources, nil
}

// BuildView creates a view holding every configured resource.
func BuildView(c *peerboard.Client, cfg *Config) (*peerboard.View, error) {
	resources, err := BuildResources(c, cfg)
	if err != nil {
		return nil, err
	}
	view := c.NewView()
	for _, res := range resources {
		if err := view.Add(res); err != nil {
			return nil, err
		}
	}
	return view, nil
}

func enabled(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
