// Package secret stores the RPC bearer token in the OS keyring, falling back
// to a user-only file in the config dir when no keyring service is available.
package secret

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	service   = "roza"
	account   = "rpc-secret"
	tokenSize = 32
	fileMode  = 0o600
)

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
	randRead      = rand.Read
)

// ErrNoSecret is returned when neither the keyring nor the file holds a token.
var ErrNoSecret = errors.New("rpc secret not found")

// Source tells where a token was found.
type Source string

const (
	SourceKeyring Source = "keyring"
	SourceFile    Source = "file"
)

// Store reads and writes the RPC token.
type Store struct {
	Service string
	Account string
	// File is the fallback location.
	File string
}

// New returns a store whose fallback file is path.
func New(path string) *Store {
	return &Store{Service: service, Account: account, File: path}
}

// Get returns the stored token.
func (s *Store) Get() (string, Source, error) {
	if tok, err := keyringGet(s.Service, s.Account); err == nil && tok != "" {
		return tok, SourceKeyring, nil
	}
	data, err := os.ReadFile(s.File)
	if errors.Is(err, os.ErrNotExist) {
		return "", "", ErrNoSecret
	}
	if err != nil {
		return "", "", fmt.Errorf("error: cannot read secret file: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", "", ErrNoSecret
	}
	return tok, SourceFile, nil
}

// Ensure returns the stored token, generating and saving one if none
// exists.
func (s *Store) Ensure() (string, Source, error) {
	tok, src, err := s.Get()
	if err == nil {
		return tok, src, nil
	}
	if !errors.Is(err, ErrNoSecret) {
		return "", "", err
	}
	return s.Rotate()
}

// Rotate replaces the token with a fresh random one.
func (s *Store) Rotate() (string, Source, error) {
	buf := make([]byte, tokenSize)
	if _, err := randRead(buf); err != nil {
		return "", "", fmt.Errorf("generate secret: %w", err)
	}
	tok := hex.EncodeToString(buf)
	if err := keyringSet(s.Service, s.Account, tok); err == nil {
		// drop any older file copy
		os.Remove(s.File)
		return tok, SourceKeyring, nil
	}
	if err := s.writeFile(tok); err != nil {
		return "", "", err
	}
	return tok, SourceFile, nil
}

// Delete removes the token from both locations.
func (s *Store) Delete() error {
	kerr := keyringDelete(s.Service, s.Account)
	ferr := os.Remove(s.File)
	if errors.Is(kerr, keyring.ErrNotFound) {
		kerr = nil
	}
	if errors.Is(ferr, os.ErrNotExist) {
		ferr = nil
	}
	return errors.Join(kerr, ferr)
}

func (s *Store) writeFile(tok string) error {
	dir := filepath.Dir(s.File)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".rpc-secret.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(tok); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write secret: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, fileMode); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, s.File); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename secret file: %w", err)
	}
	return nil
}
