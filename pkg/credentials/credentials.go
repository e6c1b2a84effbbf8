// Package credentials stores per-server bearer tokens in credentials.toml
// inside the .livewire/ directory.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/livewire/pkg/dotdir"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 0
)

// Manager manages reading and writing credentials.toml in the .livewire/ directory.
type Manager struct {
	ddm        *dotdir.Manager
	targetPath string
}

// NewManager creates a new credentials Manager. If override is non-empty it is
// used as the .livewire/ directory; otherwise the standard dotdir resolution
// applies.
func NewManager(override string) (*Manager, error) {
	mgr := &Manager{ddm: dotdir.NewManager()}

	target, err := mgr.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	mgr.targetPath = filepath.Join(target, credentialsFile)

	return mgr, nil
}

// HostKey normalizes a server URL or bare host into the key tokens are
// stored under: the lowercased host[:port].
func HostKey(server string) (string, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", errors.New("empty server")
	}

	if !strings.Contains(server, "://") {
		server = "http://" + server
	}

	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parsing server %q: %w", server, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server %q has no host", server)
	}

	return strings.ToLower(u.Host), nil
}

// Load reads credentials.toml from the target directory.
// Returns an empty Credentials if the file does not exist.
func (m *Manager) Load() (*Credentials, error) {
	data, err := os.ReadFile(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Credentials{
				Version: currentVersion,
				Hosts:   make(map[string]HostCredential),
			}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	creds := &Credentials{}
	if err := toml.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	if creds.Hosts == nil {
		creds.Hosts = make(map[string]HostCredential)
	}

	return creds, nil
}

// Save writes credentials to credentials.toml with 0600 permissions.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}

	return nil
}

// SetToken stores a bearer token for the given server.
func (m *Manager) SetToken(server, token string) error {
	key, err := HostKey(server)
	if err != nil {
		return err
	}

	creds, err := m.Load()
	if err != nil {
		return err
	}

	creds.Hosts[key] = HostCredential{Token: token}

	return m.Save(creds)
}

// GetToken returns the stored bearer token for the given server, or an
// empty string if none is stored.
func (m *Manager) GetToken(server string) (string, error) {
	key, err := HostKey(server)
	if err != nil {
		return "", err
	}

	creds, err := m.Load()
	if err != nil {
		return "", err
	}

	return creds.Hosts[key].Token, nil
}

// RemoveToken deletes the stored token for the given server.
func (m *Manager) RemoveToken(server string) error {
	key, err := HostKey(server)
	if err != nil {
		return err
	}

	creds, err := m.Load()
	if err != nil {
		return err
	}

	delete(creds.Hosts, key)

	return m.Save(creds)
}

// ListHosts returns the sorted host keys that have a stored token.
func (m *Manager) ListHosts() ([]string, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	hosts := make([]string, 0, len(creds.Hosts))
	for host := range creds.Hosts {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	return hosts, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// ResolveToken returns explicit when it is non-empty, otherwise the token
// stored for server. An empty result means the request goes out
// unauthenticated.
func (m *Manager) ResolveToken(explicit, server string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, nil
	}
	return m.GetToken(server)
}
