package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/viper"

	"github.com/mcoot/bughunt/internal/api/response"
)

// Config keys, shared by flags, BUGHUNT_* environment variables and the config file
const (
	keyServer      = "server"
	keyOutput      = "output"
	keyProfileFile = "profile-file"
	keyVerbose     = "verbose"
)

// Config holds CLI configuration
type Config struct {
	ServerURL   string
	ProfileFile string
	Output      string
	Verbose     bool

	// Profile is the user saved by the last register or login
	Profile *response.User
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(keyServer, "http://localhost:4000")
	v.SetDefault(keyOutput, "text")
	v.SetDefault(keyProfileFile, filepath.Join(configDir(), "profile.json"))
	v.SetDefault(keyVerbose, false)

	v.SetEnvPrefix("BUGHUNT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// readConfigFile merges an optional YAML config file into v. A missing file
// is not an error.
func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

// loadConfig resolves configuration from v and loads the saved profile
func loadConfig(v *viper.Viper) (*Config, error) {
	c := &Config{
		ServerURL:   v.GetString(keyServer),
		ProfileFile: v.GetString(keyProfileFile),
		Output:      v.GetString(keyOutput),
		Verbose:     v.GetBool(keyVerbose),
	}
	if c.Output != "text" && c.Output != "json" {
		return nil, fmt.Errorf("invalid output format %q: must be text or json", c.Output)
	}
	if err := c.LoadProfile(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadProfile loads the saved user if there is one
func (c *Config) LoadProfile() error {
	data, err := os.ReadFile(c.ProfileFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // No profile is fine
		}
		return err
	}

	var profile response.User
	if err := json.Unmarshal(data, &profile); err != nil {
		return fmt.Errorf("failed to parse profile %s: %w", c.ProfileFile, err)
	}
	c.Profile = &profile
	return nil
}

// SaveProfile saves the user to the profile file
func (c *Config) SaveProfile(user response.User) error {
	c.Profile = &user

	dir := filepath.Dir(c.ProfileFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return os.WriteFile(c.ProfileFile, data, 0600)
}

// userID returns override if set, else the saved profile's id
func (c *Config) userID(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if c.Profile == nil {
		return "", errors.New("no user given: pass --user or log in first")
	}
	return c.Profile.ID, nil
}

// username returns override if set, else the saved profile's username
func (c *Config) username(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if c.Profile == nil {
		return "", errors.New("no username given: pass --username or log in first")
	}
	return c.Profile.Username, nil
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bughunt"
	}
	return filepath.Join(home, ".bughunt")
}
