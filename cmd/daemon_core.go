package cmd

import (
	"context"
	"errors"
	"os"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	rcommon "github.com/rozadev/roza/common"
	"github.com/rozadev/roza/internal/audio"
	"github.com/rozadev/roza/internal/config"
	rdaemon "github.com/rozadev/roza/internal/daemon"
	"github.com/rozadev/roza/internal/metrics"
	"github.com/rozadev/roza/internal/notify"
	"github.com/rozadev/roza/internal/secret"
	"github.com/rozadev/roza/internal/server"
	"github.com/rozadev/roza/internal/store"
	"github.com/rozadev/roza/pkg/geo"
	"github.com/rozadev/roza/pkg/logger"
	"github.com/rozadev/roza/pkg/rozalib"
	"github.com/rozadev/roza/pkg/solar"
	"github.com/spf13/afero"
)

// DaemonComponents holds all initialized daemon components.
type DaemonComponents struct {
	Config   *config.Config
	Store    *store.Store
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Gate     *rozalib.AudioGate
	Alert    *rozalib.AlertTrigger
	Tracker  *rozalib.Tracker
	Service  *rdaemon.Service
	Notifier *server.RPCNotifier
	RPC      *server.RPCServer
	Web      *server.WebServer
	mqtt     mqtt.Client
	logger   logger.Logger
}

// Close releases all daemon component resources in reverse order of initialization.
func (c *DaemonComponents) Close() {
	if c.logger != nil {
		c.logger.Info("Shutting down daemon...")
	}
	// let an alert that is already sounding finish
	if c.Alert != nil {
		c.Alert.Wait()
	}
	if c.RPC != nil {
		c.RPC.Close()
	}
	if c.mqtt != nil {
		c.mqtt.Disconnect(250)
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.logger != nil {
		c.logger.Info("Daemon stopped")
	}
}

// initDaemonComponents builds the daemon from cfg. On error, any partially
// initialized components are cleaned up before returning.
var initDaemonComponents = func(cfg *config.Config, log logger.Logger) (*DaemonComponents, error) {
	ctx := context.Background()
	if err := cfg.EnsureDir(); err != nil {
		return nil, err
	}
	zone, err := cfg.Zone()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		log.Error("Settings store initialization failed: %v", err)
		return nil, err
	}
	c := &DaemonComponents{Config: cfg, Store: st, logger: log}

	settings, err := st.LoadSettingsOr(ctx, configSettings(cfg))
	if err != nil {
		log.Error("Loading settings failed: %v", err)
		c.Close()
		return nil, err
	}
	loc, manual, err := initialLocation(ctx, cfg, st)
	if err != nil {
		log.Error("Loading location failed: %v", err)
		c.Close()
		return nil, err
	}

	geocoder := geo.NewClient(geo.Options{
		PrimaryURL:  cfg.Geocoder.PrimaryURL,
		FallbackURL: cfg.Geocoder.FallbackURL,
		UserAgent:   cfg.Geocoder.UserAgent,
		Log:         log,
	})
	resolver := &geo.Resolver{
		Fixed:    cfg.FixedLocation(),
		City:     cfg.Location.City,
		Geocoder: geocoder,
		Log:      log,
	}
	provider := solar.NewCalculator(zone)

	c.Registry = prometheus.NewRegistry()
	c.Metrics = metrics.New(c.Registry)
	c.Notifier = server.NewRPCNotifier(log)

	players := newPlayers(cfg)
	c.Gate = rozalib.NewAudioGate(cfg.Audio.Unlocked, probeFor(players))

	channels := []notify.Channel{
		notify.NewRPC(c.Notifier),
		notify.NewDesktop(notify.DesktopOptions{Enabled: cfg.Notify.Desktop}),
	}
	if cfg.Notify.MQTT.Broker != "" {
		ch, client, err := notify.ConnectMQTT(notify.MQTTOptions{
			Broker:   cfg.Notify.MQTT.Broker,
			ClientID: cfg.Notify.MQTT.ClientID,
			Topic:    cfg.Notify.MQTT.Topic,
			Username: cfg.Notify.MQTT.Username,
			Password: cfg.Notify.MQTT.Password,
			Log:      log,
		})
		if err != nil {
			// alerts still reach the other channels
			log.Warning("MQTT notifications disabled: %v", err)
		} else {
			channels = append(channels, ch)
			c.mqtt = client
		}
	}
	multi := notify.NewMulti(channels...)
	multi.OnResult = c.Metrics.ObserveNotification

	c.Alert = rozalib.NewAlertTrigger(rozalib.AlertOptions{
		FireWindow:  cfg.Tracking.FireWindow,
		Players:     players,
		Notifier:    multi,
		Gate:        c.Gate,
		Log:         log,
		PlayTimeout: cfg.Audio.PlayTimeout,
		OnDelivered: func(d rozalib.Delivery) {
			if c.Service != nil {
				c.Service.Delivered(d)
			}
		},
	})

	c.Tracker, err = rozalib.NewTracker(rozalib.TrackerConfig{
		Provider: provider,
		Location: loc,
		Ruleset:  rdaemon.RulesetFor(cfg.Tracking.Method, settings.Madhab, countryOf(loc)),
		Mode:     settings.CountdownMode,
		Rollover: cfg.Tracking.Rollover,
		Zone:     zone,
		Alert:    c.Alert,
		Log:      log,
	})
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Service, err = rdaemon.NewService(rdaemon.ServiceOptions{
		Tracker:  c.Tracker,
		Provider: provider,
		Gate:     c.Gate,
		Store:    st,
		Geocoder: geocoder,
		Resolver: resolver,
		Manual:   manual,
		Method:   cfg.Tracking.Method,
		Zone:     zone,
		Push:     c.Notifier,
		Metrics:  c.Metrics,
		Log:      log,
	})
	if err != nil {
		c.Close()
		return nil, err
	}

	token, err := rpcSecret(cfg, true)
	if err != nil {
		log.Error("RPC secret initialization failed: %v", err)
		c.Close()
		return nil, err
	}
	c.RPC = server.NewRPCServer(&server.RPCConfig{
		Secret:    token,
		Version:   currentBuildArgs.Version,
		Commit:    currentBuildArgs.Commit,
		BuildType: currentBuildArgs.BuildType,
	}, c.Service, c.Notifier, log)
	c.Web = server.NewWebServer(log, c.RPC, c.Registry)
	return c, nil
}

func configSettings(cfg *config.Config) store.Settings {
	st := store.DefaultSettings()
	if m, err := rozalib.ParseMadhab(cfg.Tracking.Madhab); err == nil {
		st.Madhab = m
	}
	if m, err := rozalib.ParseTrackingMode(cfg.Tracking.Mode); err == nil {
		st.CountdownMode = m
	}
	return st
}

// initialLocation prefers a location the user set over the configured
// coordinates. A configured city is resolved later by the refresh job.
func initialLocation(ctx context.Context, cfg *config.Config, st *store.Store) (*rozalib.Location, bool, error) {
	loc, err := st.LoadLocation(ctx)
	switch {
	case err == nil:
		return &loc, true, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, false, err
	}
	return cfg.FixedLocation(), false, nil
}

func countryOf(loc *rozalib.Location) string {
	if loc == nil {
		return ""
	}
	return loc.CountryCode
}

func newPlayers(cfg *config.Config) []rozalib.Player {
	opts := audio.CommandOptions{
		Command: cfg.Audio.Command,
		Timeout: cfg.Audio.PlayTimeout,
	}
	var players []rozalib.Player
	if cfg.Audio.LocalFile != "" {
		local := opts
		local.Name = "local"
		players = append(players, audio.NewCommandPlayer(cfg.Audio.LocalFile, local))
	}
	if cfg.Audio.RemoteURL != "" {
		remote := opts
		remote.Name = "remote"
		players = append(players, audio.NewRemotePlayer(cfg.Audio.RemoteURL, audio.RemoteOptions{
			CommandOptions: remote,
			Fs:             afero.NewOsFs(),
			Dir:            cfg.CacheDir(),
		}))
	}
	return players
}

// probeFor unlocks on the first tier that plays. With no tiers there is
// nothing to unlock.
func probeFor(players []rozalib.Player) func(ctx context.Context) error {
	if len(players) == 0 {
		return nil
	}
	return func(ctx context.Context) error {
		var errs []error
		for _, p := range players {
			err := p.Play(ctx)
			if err == nil {
				return nil
			}
			errs = append(errs, &rozalib.PlaybackError{Tier: p.Name(), Err: err})
		}
		return errors.Join(errs...)
	}
}

// rpcSecret returns the bearer token. ROZA_TOKEN wins; otherwise the
// keyring or fallback file is read, and created when create is set.
func rpcSecret(cfg *config.Config, create bool) (string, error) {
	if tok := os.Getenv(rcommon.TokenEnv); tok != "" {
		return tok, nil
	}
	s := secret.New(cfg.SecretFile())
	var (
		tok string
		err error
	)
	if create {
		tok, _, err = s.Ensure()
	} else {
		tok, _, err = s.Get()
	}
	return tok, err
}
