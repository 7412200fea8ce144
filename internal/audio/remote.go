package audio

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// RemotePlayer downloads a remote asset once into a cache filesystem and
// plays the cached copy.
type RemotePlayer struct {
	rawURL string
	router *SchemeRouter
	fs     afero.Fs
	dir    string
	player *CommandPlayer

	mu sync.Mutex
}

// RemoteOptions configures a RemotePlayer.
type RemoteOptions struct {
	CommandOptions
	Router *SchemeRouter
	// Fs is the cache filesystem, afero.NewOsFs() if nil.
	Fs afero.Fs
	// Dir is the cache directory inside Fs.
	Dir string
}

// NewRemotePlayer plays rawURL.
func NewRemotePlayer(rawURL string, opts RemoteOptions) *RemotePlayer {
	if opts.Name == "" {
		opts.Name = "remote"
	}
	if opts.Router == nil {
		opts.Router = NewSchemeRouter(nil)
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Dir == "" {
		opts.Dir = "audio-cache"
	}
	return &RemotePlayer{
		rawURL: rawURL,
		router: opts.Router,
		fs:     opts.Fs,
		dir:    opts.Dir,
		player: NewCommandPlayer("", opts.CommandOptions),
	}
}

func (p *RemotePlayer) Name() string { return p.player.Name() }

// CachePath is where the asset is stored once fetched.
func (p *RemotePlayer) CachePath() string {
	sum := sha1.Sum([]byte(p.rawURL))
	ext := ".mp3"
	if u, err := url.Parse(p.rawURL); err == nil {
		if e := path.Ext(u.Path); e != "" {
			ext = e
		}
	}
	return filepath.Join(p.dir, hex.EncodeToString(sum[:8])+ext)
}

// Play fetches the asset if it is not cached yet, then plays it.
func (p *RemotePlayer) Play(ctx context.Context) error {
	local, err := p.Ensure(ctx)
	if err != nil {
		return err
	}
	return p.player.playFile(ctx, local)
}

// Ensure makes sure the asset is cached and returns its path.
func (p *RemotePlayer) Ensure(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	dst := p.CachePath()
	if fi, err := p.fs.Stat(dst); err == nil && fi.Size() > 0 {
		return dst, nil
	}
	if err := p.fs.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("error: cannot create audio cache: %w", err)
	}
	rc, err := p.router.Open(ctx, p.rawURL)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	tmp := dst + ".part"
	f, err := p.fs.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("error: cannot create %s: %w", tmp, err)
	}
	n, err := io.Copy(f, rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = fmt.Errorf("%w: empty download from %s", ErrMissingAsset, p.rawURL)
	}
	if err != nil {
		p.fs.Remove(tmp)
		return "", err
	}
	if err := p.fs.Rename(tmp, dst); err != nil {
		return "", err
	}
	return dst, nil
}
