package rozacli

import (
	"context"

	"github.com/rozadev/roza/common"
)

func invoke[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	var v T
	if err := c.call(ctx, method, params, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) GetDaemonVersion(ctx context.Context) (*common.VersionResult, error) {
	return invoke[common.VersionResult](ctx, c, common.MethodSystemVersion, nil)
}

func (c *Client) NextEvent(ctx context.Context) (*common.EventResult, error) {
	return invoke[common.EventResult](ctx, c, common.MethodEventNext, nil)
}

func (c *Client) Countdown(ctx context.Context) (*common.CountdownResult, error) {
	return invoke[common.CountdownResult](ctx, c, common.MethodCountdownGet, nil)
}

func (c *Client) Mode(ctx context.Context) (*common.ModeResult, error) {
	return invoke[common.ModeResult](ctx, c, common.MethodModeGet, nil)
}

func (c *Client) SetMode(ctx context.Context, mode string) (*common.ModeResult, error) {
	return invoke[common.ModeResult](ctx, c, common.MethodModeSet, &common.ModeParams{Mode: mode})
}

func (c *Client) SetMadhab(ctx context.Context, madhab string) (*common.ModeResult, error) {
	return invoke[common.ModeResult](ctx, c, common.MethodMadhabSet, &common.MadhabParams{Madhab: madhab})
}

func (c *Client) Location(ctx context.Context) (*common.LocationResult, error) {
	return invoke[common.LocationResult](ctx, c, common.MethodLocationGet, nil)
}

// SearchLocation geocodes query on the daemon and tracks the result.
func (c *Client) SearchLocation(ctx context.Context, query string) (*common.LocationResult, error) {
	return invoke[common.LocationResult](ctx, c, common.MethodLocationSet, &common.LocationParams{Query: query})
}

// SetCoordinates tracks a fixed point. An empty name is filled in by
// reverse geocoding.
func (c *Client) SetCoordinates(ctx context.Context, name string, lat, lon float64) (*common.LocationResult, error) {
	return invoke[common.LocationResult](ctx, c, common.MethodLocationSet, &common.LocationParams{
		Name:      name,
		Latitude:  &lat,
		Longitude: &lon,
	})
}

// Times returns the boundaries of date (YYYY-MM-DD); empty means today.
func (c *Client) Times(ctx context.Context, date string) (*common.TimesResult, error) {
	return invoke[common.TimesResult](ctx, c, common.MethodTimesGet, &common.TimesParams{Date: date})
}

func (c *Client) UnlockAudio(ctx context.Context) (*common.AudioStateResult, error) {
	return invoke[common.AudioStateResult](ctx, c, common.MethodAudioUnlock, nil)
}

func (c *Client) AudioState(ctx context.Context) (*common.AudioStateResult, error) {
	return invoke[common.AudioStateResult](ctx, c, common.MethodAudioState, nil)
}
