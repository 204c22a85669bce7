package api

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/amimof/huego"
	"github.com/hashicorp/mdns"
	"github.com/pkg/errors"
)

var (
	ErrNoBridgeFound   = errors.New("no Hue bridge found")
	ErrMultipleBridges = errors.New("more than one Hue bridge found")
)

// DiscoveredBridge represents a Hue bridge found during discovery
type DiscoveredBridge struct {
	// IP address of the bridge
	Host string
	// Unique bridge identifier
	BridgeID string
	// Model ID (e.g., "BSB002")
	ModelID string
	// Name from mDNS
	Name string
}

// DiscoverMDNS discovers Hue bridges on the local network using mDNS
func DiscoverMDNS(ctx context.Context, timeout time.Duration) ([]DiscoveredBridge, error) {
	var bridges []DiscoveredBridge
	var mu sync.Mutex

	entriesCh := make(chan *mdns.ServiceEntry, 10)
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		for entry := range entriesCh {
			if entry.AddrV4 == nil {
				continue
			}
			bridge := DiscoveredBridge{
				Host: entry.AddrV4.String(),
				Name: entry.Name,
			}

			// Parse bridge ID from TXT records
			for _, txt := range entry.InfoFields {
				if strings.HasPrefix(txt, "bridgeid=") {
					bridge.BridgeID = strings.TrimPrefix(txt, "bridgeid=")
				}
				if strings.HasPrefix(txt, "modelid=") {
					bridge.ModelID = strings.TrimPrefix(txt, "modelid=")
				}
			}

			// Use hostname if no name
			if bridge.Name == "" && entry.Host != "" {
				bridge.Name = strings.TrimSuffix(entry.Host, ".")
			}

			mu.Lock()
			bridges = append(bridges, bridge)
			mu.Unlock()
		}
	}()

	params := mdns.DefaultParams("_hue._tcp")
	params.Entries = entriesCh
	params.Timeout = timeout
	params.DisableIPv6 = true

	err := mdns.Query(params)
	close(entriesCh)
	<-collected

	if err != nil {
		return bridges, errors.Wrap(err, "mDNS query failed")
	}
	return bridges, nil
}

// DiscoverCloud discovers Hue bridges using the Philips Hue cloud service (N-UPnP)
func DiscoverCloud(ctx context.Context, timeout time.Duration) ([]DiscoveredBridge, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found, err := huego.DiscoverAllContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "cloud discovery request failed")
	}

	result := make([]DiscoveredBridge, len(found))
	for i, b := range found {
		result[i] = DiscoveredBridge{
			Host:     b.Host,
			BridgeID: b.ID,
		}
	}
	return result, nil
}

type discoverFunc func(ctx context.Context, timeout time.Duration) ([]DiscoveredBridge, error)

// DiscoverAll runs both mDNS and cloud discovery concurrently and combines
// their results, deduplicated by host.
func DiscoverAll(ctx context.Context, timeout time.Duration) ([]DiscoveredBridge, error) {
	return discoverAll(ctx, timeout, DiscoverMDNS, DiscoverCloud)
}

func discoverAll(ctx context.Context, timeout time.Duration, methods ...discoverFunc) ([]DiscoveredBridge, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		bridges []DiscoveredBridge
		err     error
	}

	results := make(chan result, len(methods))
	for _, discover := range methods {
		go func(discover discoverFunc) {
			bridges, err := discover(ctx, timeout)
			results <- result{bridges: bridges, err: err}
		}(discover)
	}

	var allBridges []DiscoveredBridge
	seen := make(map[string]bool)
	var lastErr error

	for received := 0; received < len(methods); {
		select {
		case r := <-results:
			received++
			if r.err != nil {
				lastErr = r.err
				continue
			}
			for _, b := range r.bridges {
				if !seen[b.Host] {
					seen[b.Host] = true
					allBridges = append(allBridges, b)
				}
			}
		case <-ctx.Done():
			if len(allBridges) > 0 {
				return allBridges, nil
			}
			return nil, ctx.Err()
		}
	}

	if len(allBridges) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return allBridges, nil
}

// DiscoverOne returns the only bridge on the network. Finding zero or more
// than one bridge is an error.
func DiscoverOne(ctx context.Context, timeout time.Duration) (DiscoveredBridge, error) {
	bridges, err := DiscoverAll(ctx, timeout)
	if err != nil {
		return DiscoveredBridge{}, err
	}
	return pickOne(bridges)
}

func pickOne(bridges []DiscoveredBridge) (DiscoveredBridge, error) {
	switch len(bridges) {
	case 0:
		return DiscoveredBridge{}, ErrNoBridgeFound
	case 1:
		return bridges[0], nil
	default:
		hosts := make([]string, len(bridges))
		for i, b := range bridges {
			hosts[i] = b.Host
		}
		return DiscoveredBridge{}, errors.Wrapf(ErrMultipleBridges, "found %s", strings.Join(hosts, ", "))
	}
}
