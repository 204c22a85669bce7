package light

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotracing/hue-wrapper/internal/api"
	"github.com/iotracing/hue-wrapper/internal/logging"
	"github.com/iotracing/hue-wrapper/internal/models"
)

const (
	red   uint16 = 0
	green uint16 = 25500
	blue  uint16 = 46920
)

const testInterval = 10 * time.Millisecond

func newTestController(t *testing.T, l models.DeviceLight, opts ...Option) (*Controller, *api.DemoBridge) {
	t.Helper()
	bridge := api.NewDemoBridgeWithLights(l)
	opts = append([]Option{
		WithBlinkInterval(testInterval),
		WithLogger(logging.Component(logging.Discard(), logging.Hue)),
	}, opts...)
	c := New(bridge, l, opts...)
	t.Cleanup(c.Close)
	return c, bridge
}

func startLight() models.DeviceLight {
	return models.DeviceLight{ID: "1", Name: "START", Reachable: true}
}

func nonAlertCalls(bridge *api.DemoBridge, id string) []api.State {
	var states []api.State
	for _, call := range bridge.CallsFor(id) {
		if call.State.Alert == "" {
			states = append(states, call.State)
		}
	}
	return states
}

// checkInvariants asserts the relations between status, color and blinker
func checkInvariants(t *testing.T, c *Controller) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	assert.Equal(t, c.status == models.StatusBlinking, c.blinker != nil,
		"blinker must exist iff BLINKING (status=%s)", c.status)
	if c.status == models.StatusOff {
		assert.Nil(t, c.color, "color must be cleared while OFF")
	}
	if c.status == models.StatusBlinking {
		assert.NotNil(t, c.color, "BLINKING needs a color")
	}
}

func TestNewInitialStatus(t *testing.T) {
	c, _ := newTestController(t, startLight())
	snap := c.Snapshot()
	assert.Equal(t, models.StatusOff, snap.Status)
	assert.Empty(t, snap.Color)

	on := startLight()
	on.On = true
	c, _ = newTestController(t, on)
	snap = c.Snapshot()
	assert.Equal(t, models.StatusOn, snap.Status)
	assert.Empty(t, snap.Color, "color is unknown after discovery")
}

func TestTurnOnIdempotent(t *testing.T) {
	c, bridge := newTestController(t, startLight())
	ctx := context.Background()

	res, err := c.TurnOn(ctx, red)
	require.NoError(t, err)
	assert.True(t, res.Changed())

	res, err = c.TurnOn(ctx, red)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Equal(t, "Light 'START' ON and already on requested color, nothing to do.", res.Message)

	require.Len(t, bridge.CallsFor("1"), 1)
	assert.Equal(t, api.OnState(red), bridge.CallsFor("1")[0].State)

	snap := c.Snapshot()
	assert.Equal(t, models.StatusOn, snap.Status)
	assert.Equal(t, "RED", snap.Color)
}

func TestTurnOnChangesColor(t *testing.T) {
	c, bridge := newTestController(t, startLight())
	ctx := context.Background()

	_, err := c.TurnOn(ctx, red)
	require.NoError(t, err)
	res, err := c.TurnOn(ctx, blue)
	require.NoError(t, err)
	assert.True(t, res.Changed())

	assert.Equal(t, []api.State{api.OnState(red), api.OnState(blue)}, nonAlertCalls(bridge, "1"))
	assert.Equal(t, "BLUE", c.Snapshot().Color)
}

func TestTurnOffAlreadyOff(t *testing.T) {
	c, bridge := newTestController(t, startLight())

	res, err := c.TurnOff(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Equal(t, "Light 'START' already OFF, nothing to do.", res.Message)
	assert.Empty(t, bridge.Calls())
}

func TestTurnOffFromOn(t *testing.T) {
	on := startLight()
	on.On = true
	c, bridge := newTestController(t, on)

	res, err := c.TurnOff(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Changed())
	assert.Equal(t, []api.State{api.OffState()}, nonAlertCalls(bridge, "1"))
	assert.Equal(t, models.StatusOff, c.Snapshot().Status)
	checkInvariants(t, c)
}

func TestBlinkFromOff(t *testing.T) {
	c, bridge := newTestController(t, startLight())

	res, err := c.Blink(context.Background(), red)
	require.NoError(t, err)
	assert.True(t, res.Changed())

	snap := c.Snapshot()
	assert.Equal(t, models.StatusBlinking, snap.Status)
	assert.Equal(t, "RED", snap.Color)
	assert.Equal(t, []api.State{api.OnState(red)}, nonAlertCalls(bridge, "1"))

	assert.Eventually(t, func() bool {
		return bridge.AlertCount("1") >= 3
	}, time.Second, testInterval)
	checkInvariants(t, c)
}

func TestBlinkSameColorNoop(t *testing.T) {
	c, bridge := newTestController(t, startLight())
	ctx := context.Background()

	_, err := c.Blink(ctx, red)
	require.NoError(t, err)

	res, err := c.Blink(ctx, red)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Equal(t, "Light 'START' already blinking on the requested color, nothing to do.", res.Message)
	assert.Len(t, nonAlertCalls(bridge, "1"), 1)
}

func TestBlinkChangesColor(t *testing.T) {
	c, bridge := newTestController(t, startLight())
	ctx := context.Background()

	_, err := c.Blink(ctx, red)
	require.NoError(t, err)
	first := c.blinkerForTest()
	require.NotNil(t, first)
	require.Eventually(t, func() bool {
		return bridge.AlertCount("1") >= 1
	}, time.Second, testInterval)

	res, err := c.Blink(ctx, green)
	require.NoError(t, err)
	assert.True(t, res.Changed())

	// the old blinker is gone before the new color is sent
	select {
	case <-first.done:
	default:
		t.Fatal("previous blinker still running")
	}
	second := c.blinkerForTest()
	require.NotNil(t, second)
	assert.NotSame(t, first, second)

	assert.Equal(t, []api.State{api.OnState(red), api.OnState(green)}, nonAlertCalls(bridge, "1"))
	snap := c.Snapshot()
	assert.Equal(t, models.StatusBlinking, snap.Status)
	assert.Equal(t, "GREEN", snap.Color)
	checkInvariants(t, c)
}

func TestBlinkFromOnOtherColor(t *testing.T) {
	c, bridge := newTestController(t, startLight())
	ctx := context.Background()

	_, err := c.TurnOn(ctx, green)
	require.NoError(t, err)
	_, err = c.Blink(ctx, red)
	require.NoError(t, err)

	assert.Equal(t, []api.State{api.OnState(green), api.OffState(), api.OnState(red)}, nonAlertCalls(bridge, "1"))
	assert.Equal(t, models.StatusBlinking, c.Snapshot().Status)
}

func TestBlinkFromOnSameColor(t *testing.T) {
	c, bridge := newTestController(t, startLight())
	ctx := context.Background()

	_, err := c.TurnOn(ctx, red)
	require.NoError(t, err)
	_, err = c.Blink(ctx, red)
	require.NoError(t, err)

	assert.Equal(t, []api.State{api.OnState(red)}, nonAlertCalls(bridge, "1"))
	assert.Equal(t, models.StatusBlinking, c.Snapshot().Status)
}

func TestTurnOffStopsBlinking(t *testing.T) {
	c, bridge := newTestController(t, startLight())
	ctx := context.Background()

	_, err := c.Blink(ctx, blue)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return bridge.AlertCount("1") >= 1
	}, time.Second, testInterval)

	_, err = c.TurnOff(ctx)
	require.NoError(t, err)
	alerts := bridge.AlertCount("1")

	time.Sleep(5 * testInterval)
	assert.Equal(t, alerts, bridge.AlertCount("1"), "no alert after the light left BLINKING")

	calls := bridge.CallsFor("1")
	assert.Equal(t, api.OffState(), calls[len(calls)-1].State)
	assert.Equal(t, models.StatusOff, c.Snapshot().Status)
	checkInvariants(t, c)
}

func TestTurnOnStopsBlinking(t *testing.T) {
	c, bridge := newTestController(t, startLight())
	ctx := context.Background()

	_, err := c.Blink(ctx, blue)
	require.NoError(t, err)
	_, err = c.TurnOn(ctx, blue)
	require.NoError(t, err)

	// BLINKING goes through an intermediate OFF, so the same color is re-sent
	assert.Equal(t, []api.State{api.OnState(blue), api.OnState(blue)}, nonAlertCalls(bridge, "1"))
	assert.Equal(t, models.StatusOn, c.Snapshot().Status)
	checkInvariants(t, c)
}

func TestUnreachableLight(t *testing.T) {
	l := models.DeviceLight{ID: "3", Name: "PITLANE", Reachable: false, On: true}
	c, bridge := newTestController(t, l)
	ctx := context.Background()

	ops := map[string]func() (Result, error){
		"on":    func() (Result, error) { return c.TurnOn(ctx, red) },
		"off":   func() (Result, error) { return c.TurnOff(ctx) },
		"blink": func() (Result, error) { return c.Blink(ctx, red) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			res, err := op()
			require.NoError(t, err)
			assert.Equal(t, "Light 'PITLANE' not reachable", res.Message)
		})
	}

	assert.Empty(t, bridge.Calls())
	snap := c.Snapshot()
	assert.Equal(t, models.StatusOn, snap.Status)
	assert.Empty(t, snap.Color)
}

func TestDeviceFailureLeavesState(t *testing.T) {
	c, bridge := newTestController(t, startLight())
	ctx := context.Background()
	boom := errors.New("bridge timeout")

	_, err := c.TurnOn(ctx, red)
	require.NoError(t, err)

	bridge.Fail("1", boom)

	_, err = c.TurnOn(ctx, green)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "turning on light 'START'")

	_, err = c.TurnOff(ctx)
	assert.ErrorIs(t, err, boom)

	snap := c.Snapshot()
	assert.Equal(t, models.StatusOn, snap.Status)
	assert.Equal(t, "RED", snap.Color)
}

func TestBlinkFailureAbortsSequence(t *testing.T) {
	c, bridge := newTestController(t, startLight())
	bridge.Fail("1", errors.New("unreachable"))

	_, err := c.Blink(context.Background(), red)
	require.Error(t, err)
	assert.Equal(t, models.StatusOff, c.Snapshot().Status)
	assert.Nil(t, c.blinkerForTest())
	assert.Zero(t, bridge.AlertCount("1"))
}

func TestBlinkTickFailure(t *testing.T) {
	changes := make(chan error, 16)
	c, bridge := newTestController(t, startLight(), WithOnChange(func(snap models.LightSnapshot, err error) {
		if err != nil {
			changes <- err
		}
	}))
	boom := errors.New("link lost")

	_, err := c.Blink(context.Background(), green)
	require.NoError(t, err)
	bridge.Fail("1", boom)

	select {
	case err := <-changes:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("tick failure was not reported")
	}

	snap := c.Snapshot()
	assert.Equal(t, models.StatusOn, snap.Status)
	assert.Equal(t, "GREEN", snap.Color)
	checkInvariants(t, c)

	// the light can be driven again once the bridge recovers
	bridge.Fail("1", nil)
	_, err = c.Blink(context.Background(), green)
	require.NoError(t, err)
	assert.Equal(t, models.StatusBlinking, c.Snapshot().Status)
}

func TestOnChangeReportsTransitions(t *testing.T) {
	var mu sync.Mutex
	var seen []models.Status
	c, _ := newTestController(t, startLight(), WithOnChange(func(snap models.LightSnapshot, err error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, snap.Status)
	}))
	ctx := context.Background()

	_, err := c.TurnOn(ctx, red)
	require.NoError(t, err)
	_, err = c.TurnOn(ctx, red)
	require.NoError(t, err)
	_, err = c.TurnOff(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []models.Status{models.StatusOn, models.StatusOff}, seen)
}

func TestCloseRetires(t *testing.T) {
	c, bridge := newTestController(t, startLight())
	ctx := context.Background()

	_, err := c.Blink(ctx, red)
	require.NoError(t, err)

	c.Close()
	alerts := bridge.AlertCount("1")
	time.Sleep(5 * testInterval)
	assert.Equal(t, alerts, bridge.AlertCount("1"))
	checkInvariants(t, c)

	_, err = c.TurnOn(ctx, red)
	assert.ErrorIs(t, err, ErrRetired)
	_, err = c.TurnOff(ctx)
	assert.ErrorIs(t, err, ErrRetired)
	_, err = c.Blink(ctx, red)
	assert.ErrorIs(t, err, ErrRetired)

	c.Close()
}

func TestCloseWhileBlinkingReportsLastState(t *testing.T) {
	var mu sync.Mutex
	var seen []models.LightSnapshot
	c, _ := newTestController(t, startLight(), WithOnChange(func(snap models.LightSnapshot, err error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, snap)
	}))

	_, err := c.Blink(context.Background(), green)
	require.NoError(t, err)
	c.Close()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	last := seen[len(seen)-1]
	assert.Equal(t, models.StatusOn, last.Status)
	assert.Equal(t, "GREEN", last.Color)
}

func TestCloseWhenSteadyIsSilent(t *testing.T) {
	calls := 0
	c, _ := newTestController(t, startLight(), WithOnChange(func(models.LightSnapshot, error) {
		calls++
	}))

	_, err := c.TurnOn(context.Background(), red)
	require.NoError(t, err)
	c.Close()
	assert.Equal(t, 1, calls)
}

func TestConcurrentTransitions(t *testing.T) {
	c, bridge := newTestController(t, startLight())
	bridge.SetLatency(time.Millisecond)
	ctx := context.Background()
	hues := []uint16{red, green, blue}

	stop := make(chan struct{})
	observed := make(chan struct{})
	go func() {
		defer close(observed)
		for {
			select {
			case <-stop:
				return
			default:
				checkInvariants(t, c)
				time.Sleep(time.Millisecond)
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for i := 0; i < 25; i++ {
				hue := hues[rnd.Intn(len(hues))]
				var err error
				switch rnd.Intn(3) {
				case 0:
					_, err = c.TurnOn(ctx, hue)
				case 1:
					_, err = c.TurnOff(ctx)
				default:
					_, err = c.Blink(ctx, hue)
				}
				assert.NoError(t, err)
			}
		}(int64(w))
	}
	wg.Wait()
	close(stop)
	<-observed

	checkInvariants(t, c)
}

func (c *Controller) blinkerForTest() *blinker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blinker
}
