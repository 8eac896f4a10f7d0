package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/Novip1906/todo-api/internal/models"
)

const (
	defaultAPIURL  = "http://localhost:5000"
	defaultAuthURL = "http://localhost:5001"
	profileFile    = "profile.toml"
)

// Profile is what todoctl remembers between invocations.
type Profile struct {
	APIURL  string `toml:"api_url"`
	AuthURL string `toml:"auth_url"`
	Token   string `toml:"token,omitempty"`
	UserId  string `toml:"user_id,omitempty"`
	Email   string `toml:"email,omitempty"`
}

func (p *Profile) Caller() *models.Caller {
	if p.Token == "" || p.UserId == "" {
		return nil
	}
	return &models.Caller{Id: p.UserId, Email: p.Email}
}

func (p *Profile) SignOut() {
	p.Token = ""
	p.UserId = ""
	p.Email = ""
}

func profileDir() (string, error) {
	if dir := os.Getenv("TODOCTL_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(base, "todoctl"), nil
}

// LoadProfile reads the stored profile, applying defaults and then env
// overrides. A missing file is not an error.
func LoadProfile() (*Profile, error) {
	p := &Profile{APIURL: defaultAPIURL, AuthURL: defaultAuthURL}

	dir, err := profileDir()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, profileFile)
	if _, err := toml.DecodeFile(path, p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}

	if v := os.Getenv("TODO_API_URL"); v != "" {
		p.APIURL = v
	}
	if v := os.Getenv("TODO_AUTH_URL"); v != "" {
		p.AuthURL = v
	}
	return p, nil
}

func (p *Profile) Save() error {
	dir, err := profileDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}

	path := filepath.Join(dir, profileFile)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(p); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}
