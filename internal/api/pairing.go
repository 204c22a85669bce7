package api

import (
	"context"
	"strings"
	"time"

	"github.com/amimof/huego"
	"github.com/pkg/errors"
)

var (
	ErrPairingTimeout = errors.New("pairing timeout - link button was not pressed")
)

// userCreator is the part of huego.Bridge pairing needs
type userCreator interface {
	CreateUserContext(ctx context.Context, deviceType string) (string, error)
}

// CreateUsername whitelists a new user on the bridge at host.
// The user must press the link button on the bridge within the timeout.
func CreateUsername(ctx context.Context, host, appName string, timeout time.Duration) (string, error) {
	return createUsername(ctx, huego.New(host, ""), appName, timeout, time.Second)
}

func createUsername(ctx context.Context, bridge userCreator, appName string, timeout, retryInterval time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		user, err := bridge.CreateUserContext(ctx, appName)
		if err == nil {
			return user, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Error type 101 = link button not pressed
		if !strings.Contains(err.Error(), "link button not pressed") {
			return "", errors.Wrap(err, "pairing error")
		}

		select {
		case <-time.After(retryInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "", ErrPairingTimeout
}
