package server

import (
	"context"
	"errors"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/rozadev/roza/common"
	"github.com/rozadev/roza/pkg/geo"
	"github.com/rozadev/roza/pkg/logger"
	"github.com/rozadev/roza/pkg/rozalib"
)

const (
	codeNoEvent       = jrpc2.Code(common.CodeNoEvent)
	codeNoLocation    = jrpc2.Code(common.CodeNoLocation)
	codeInvalidParams = jrpc2.Code(common.CodeInvalidParams)
)

// Service is the daemon state the RPC methods operate on.
type Service interface {
	NextEvent() (rozalib.NextEvent, bool)
	Countdown() rozalib.CountdownSnapshot
	Mode() rozalib.TrackingMode
	SetMode(ctx context.Context, m rozalib.TrackingMode) error
	Madhab() rozalib.Madhab
	SetMadhab(ctx context.Context, m rozalib.Madhab) error
	Location() (rozalib.Location, bool)
	SetLocation(ctx context.Context, p common.LocationParams) (rozalib.Location, error)
	// Today is the current calendar date in the tracking zone.
	Today() rozalib.CalendarDate
	Times(date rozalib.CalendarDate) (rozalib.BoundarySet, error)
	AudioUnlocked() bool
	UnlockAudio(ctx context.Context) error
}

// RPCConfig holds configuration for the JSON-RPC endpoint.
type RPCConfig struct {
	Secret    string // required; empty rejects every request
	Version   string
	Commit    string
	BuildType string
	// Origins are extra WebSocket origin patterns accepted besides same-host.
	Origins []string
}

// RPCServer manages the JSON-RPC 2.0 bridge and method handlers.
type RPCServer struct {
	bridge    jhttp.Bridge
	methods   handler.Map
	notifier  *RPCNotifier
	svc       Service
	log       logger.Logger
	secret    string
	version   string
	commit    string
	buildType string
	origins   []string
}

// NewRPCServer creates the method table and HTTP bridge.
func NewRPCServer(cfg *RPCConfig, svc Service, notifier *RPCNotifier, l logger.Logger) *RPCServer {
	if l == nil {
		l = logger.NewNopLogger()
	}
	if notifier == nil {
		notifier = NewRPCNotifier(l)
	}
	rs := &RPCServer{
		svc:       svc,
		notifier:  notifier,
		log:       l,
		secret:    cfg.Secret,
		version:   cfg.Version,
		commit:    cfg.Commit,
		buildType: cfg.BuildType,
		origins:   cfg.Origins,
	}

	rs.methods = handler.Map{
		common.MethodSystemVersion: handler.New(rs.systemGetVersion),
		common.MethodEventNext:     handler.New(rs.eventNext),
		common.MethodCountdownGet:  handler.New(rs.countdownGet),
		common.MethodModeGet:       handler.New(rs.modeGet),
		common.MethodModeSet:       handler.New(rs.modeSet),
		common.MethodMadhabSet:     handler.New(rs.madhabSet),
		common.MethodLocationGet:   handler.New(rs.locationGet),
		common.MethodLocationSet:   handler.New(rs.locationSet),
		common.MethodTimesGet:      handler.New(rs.timesGet),
		common.MethodAudioUnlock:   handler.New(rs.audioUnlock),
		common.MethodAudioState:    handler.New(rs.audioState),
	}

	rs.bridge = jhttp.NewBridge(rs.methods, nil)
	return rs
}

// Notifier returns the push broadcaster shared by all WebSocket sessions.
func (rs *RPCServer) Notifier() *RPCNotifier {
	return rs.notifier
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*common.VersionResult, error) {
	return &common.VersionResult{
		Version:   rs.version,
		Commit:    rs.commit,
		BuildType: rs.buildType,
	}, nil
}

// EventResultOf converts an event to its wire form.
func EventResultOf(ev rozalib.NextEvent) *common.EventResult {
	return &common.EventResult{Kind: string(ev.Kind), Title: ev.Kind.Title(), Target: ev.Target}
}

func (rs *RPCServer) eventNext(_ context.Context) (*common.EventResult, error) {
	ev, ok := rs.svc.NextEvent()
	if !ok {
		return nil, &jrpc2.Error{Code: codeNoEvent, Message: "no event selected yet"}
	}
	return EventResultOf(ev), nil
}

// CountdownResultOf converts a snapshot of the countdown to ev to its wire form.
func CountdownResultOf(snap rozalib.CountdownSnapshot, ev rozalib.NextEvent, ok bool) *common.CountdownResult {
	res := &common.CountdownResult{
		Display:   snap.Format(),
		Hours:     snap.Hours,
		Minutes:   snap.Minutes,
		Seconds:   snap.Seconds,
		Expired:   snap.Expired,
		Remaining: snap.Remaining.Milliseconds(),
	}
	if ok {
		res.Kind = string(ev.Kind)
	}
	return res
}

func (rs *RPCServer) countdownGet(_ context.Context) (*common.CountdownResult, error) {
	ev, ok := rs.svc.NextEvent()
	return CountdownResultOf(rs.svc.Countdown(), ev, ok), nil
}

func (rs *RPCServer) modeResult() *common.ModeResult {
	return &common.ModeResult{Mode: rs.svc.Mode().String(), Madhab: string(rs.svc.Madhab())}
}

func (rs *RPCServer) modeGet(_ context.Context) (*common.ModeResult, error) {
	return rs.modeResult(), nil
}

func (rs *RPCServer) modeSet(ctx context.Context, p *common.ModeParams) (*common.ModeResult, error) {
	m, err := rozalib.ParseTrackingMode(p.Mode)
	if err != nil || p.Mode == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "mode must be one of auto, aftari, sehri"}
	}
	if err := rs.svc.SetMode(ctx, m); err != nil {
		return nil, toRPCError(err)
	}
	return rs.modeResult(), nil
}

func (rs *RPCServer) madhabSet(ctx context.Context, p *common.MadhabParams) (*common.ModeResult, error) {
	m, err := rozalib.ParseMadhab(p.Madhab)
	if err != nil {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "madhab must be Hanafi or Jafri"}
	}
	if err := rs.svc.SetMadhab(ctx, m); err != nil {
		return nil, toRPCError(err)
	}
	return rs.modeResult(), nil
}

func locationResult(loc rozalib.Location) *common.LocationResult {
	return &common.LocationResult{
		Name:        loc.Name,
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		CountryCode: loc.CountryCode,
	}
}

func (rs *RPCServer) locationGet(_ context.Context) (*common.LocationResult, error) {
	loc, ok := rs.svc.Location()
	if !ok {
		return nil, &jrpc2.Error{Code: codeNoLocation, Message: rozalib.ErrNoLocation.Error()}
	}
	return locationResult(loc), nil
}

func (rs *RPCServer) locationSet(ctx context.Context, p *common.LocationParams) (*common.LocationResult, error) {
	if p.Query == "" && (p.Latitude == nil || p.Longitude == nil) {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "either query or latitude and longitude are required"}
	}
	loc, err := rs.svc.SetLocation(ctx, *p)
	if err != nil {
		return nil, toRPCError(err)
	}
	return locationResult(loc), nil
}

func (rs *RPCServer) timesGet(_ context.Context, p *common.TimesParams) (*common.TimesResult, error) {
	date := rs.svc.Today()
	if p.Date != "" {
		d, err := rozalib.ParseCalendarDate(p.Date)
		if err != nil {
			return nil, &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
		}
		date = d
	}
	b, err := rs.svc.Times(date)
	if err != nil {
		return nil, toRPCError(err)
	}
	return &common.TimesResult{
		Date:    date.String(),
		Method:  b.Ruleset.Method,
		Madhab:  string(b.Ruleset.Madhab),
		Fajr:    b.DawnLimit,
		Sunrise: b.Sunrise,
		Dhuhr:   b.Midday,
		Asr:     b.Afternoon,
		Maghrib: b.SunsetLimit,
		Isha:    b.Nightfall,
	}, nil
}

func (rs *RPCServer) audioUnlock(ctx context.Context) (*common.AudioStateResult, error) {
	if err := rs.svc.UnlockAudio(ctx); err != nil {
		return nil, &jrpc2.Error{Code: jrpc2.InternalError, Message: err.Error()}
	}
	return &common.AudioStateResult{Unlocked: rs.svc.AudioUnlocked()}, nil
}

func (rs *RPCServer) audioState(_ context.Context) (*common.AudioStateResult, error) {
	return &common.AudioStateResult{Unlocked: rs.svc.AudioUnlocked()}, nil
}

func toRPCError(err error) error {
	var ce *rozalib.CalculationError
	switch {
	case errors.Is(err, rozalib.ErrNoLocation):
		return &jrpc2.Error{Code: codeNoLocation, Message: err.Error()}
	case errors.Is(err, rozalib.ErrInvalidMode), errors.Is(err, rozalib.ErrInvalidMadhab),
		errors.Is(err, rozalib.ErrInvalidLocation), errors.Is(err, geo.ErrNotFound):
		return &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
	case errors.As(err, &ce):
		return &jrpc2.Error{Code: jrpc2.InternalError, Message: ce.Error()}
	}
	return err
}

// Close releases the bridge.
func (rs *RPCServer) Close() {
	rs.bridge.Close()
}
