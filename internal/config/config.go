package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/code-airgap/internal/domain/artifact"
)

// Config holds every externally configurable knob.
type Config struct {
	// CacheRoot is the directory holding one sub-directory per version.
	CacheRoot string `yaml:"cache_root"`
	// Workers is the width of the download pool.
	Workers int `yaml:"workers"`
	// Timeout bounds connecting, waiting for headers and every single body read.
	Timeout time.Duration `yaml:"timeout"`
	// ChunkSize is the buffer used to stream archives to disk.
	ChunkSize int `yaml:"chunk_size"`
	// Feeds are the two catalog endpoints.
	Feeds Feeds `yaml:"feeds"`
	// Artifacts describe where each archive kind is fetched from and how it is named.
	Artifacts Artifacts `yaml:"artifacts"`
	// Detect configures local version detection.
	Detect Detect `yaml:"detect"`
	// Remote describes the injection target.
	Remote Remote `yaml:"remote"`
}

// Feeds lists the catalog endpoints returning JSON arrays of version identifiers.
type Feeds struct {
	Server string `yaml:"server"`
	CLI    string `yaml:"cli"`
}

// Source describes one archive kind.
type Source struct {
	// Filename is the archive name inside a version directory and in the remote staging dir.
	Filename string `yaml:"filename"`
	// URL is a template containing VersionPlaceholder.
	URL string `yaml:"url"`
}

// URLFor renders the download URL for version.
func (s Source) URLFor(version string) string {
	return strings.ReplaceAll(s.URL, VersionPlaceholder, url.PathEscape(version))
}

// Artifacts groups the sources of both archive kinds.
type Artifacts struct {
	Server Source `yaml:"server"`
	CLI    Source `yaml:"cli"`
}

// Source returns the source of kind k.
func (a Artifacts) Source(k artifact.Kind) Source {
	if k == artifact.KindCLI {
		return a.CLI
	}

	return a.Server
}

// Filenames maps every kind to its archive filename.
func (a Artifacts) Filenames() map[artifact.Kind]string {
	return map[artifact.Kind]string{
		artifact.KindServer: a.Server.Filename,
		artifact.KindCLI:    a.CLI.Filename,
	}
}

// Detect configures how the local client version is probed.
type Detect struct {
	// Binaries are probed in order with --version.
	Binaries []string `yaml:"binaries"`
	// Line is the 0-based line of the --version output holding the identifier.
	Line int `yaml:"line"`
}

// Remote describes the injection target and its filesystem layout.
type Remote struct {
	User string `yaml:"user"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// IdentityFile is an optional private key; the SSH agent is used as well when available.
	IdentityFile string `yaml:"identity_file"`
	// KnownHostsFile verifies the host key.
	KnownHostsFile string `yaml:"known_hosts_file"`
	// InsecureIgnoreHostKey disables host key verification.
	InsecureIgnoreHostKey bool `yaml:"insecure_ignore_host_key"`
	// StagingDir receives the archives. May reference remote shell variables such as $HOME.
	StagingDir string `yaml:"staging_dir"`
	// InstallRoot is the server-install root. May reference remote shell variables such as $HOME.
	InstallRoot string `yaml:"install_root"`
}

// Address returns host:port.
func (r Remote) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

const (
	// DefaultConfigFilename is the settings file looked up when no path is given.
	DefaultConfigFilename = "code-airgap.yaml"

	// DefaultEnvFilename is the optional file with AIRGAP_* overrides.
	DefaultEnvFilename = ".env"

	// VersionPlaceholder is substituted in artifact URL templates.
	VersionPlaceholder = "{version}"

	// DefaultWorkers is the default download pool width.
	DefaultWorkers = 10

	// DefaultTimeout is the default per-request deadline.
	DefaultTimeout = 30 * time.Second

	// DefaultChunkSize is the default streaming buffer.
	DefaultChunkSize = 128 * 1024

	// DefaultSSHPort is used when remote.port is unset.
	DefaultSSHPort = 22

	// DefaultFilePermissions is the permission for saved settings.
	DefaultFilePermissions = 0o600

	maxPort = 65535
)

// Environment variables overriding file values.
const (
	EnvCacheRoot    = "AIRGAP_CACHE_ROOT"
	EnvRemoteUser   = "AIRGAP_REMOTE_USER"
	EnvRemoteHost   = "AIRGAP_REMOTE_HOST"
	EnvIdentityFile = "AIRGAP_IDENTITY_FILE"
)

var (
	errConfigIsNotSet   = errors.New("configuration is not set")
	errFeedRequired     = errors.New("feed endpoint must be provided")
	errFilenameInvalid  = errors.New("artifact filename must be a plain file name")
	errPlaceholder      = errors.New("artifact url must contain " + VersionPlaceholder)
	errNegativeLine     = errors.New("detect line must not be negative")
	errPortOutOfRange   = errors.New("remote port out of range")
	errUnsafeRemotePath = errors.New("remote path must not contain quotes, backslashes, backticks or newlines")
)

// Default returns the settings for the public VS Code update service.
func Default() *Config {
	return &Config{
		CacheRoot: ".",
		Workers:   DefaultWorkers,
		Timeout:   DefaultTimeout,
		ChunkSize: DefaultChunkSize,
		Feeds: Feeds{
			Server: "https://update.code.visualstudio.com/api/commits/stable/server-linux-x64",
			CLI:    "https://update.code.visualstudio.com/api/commits/stable/cli-alpine-x64",
		},
		Artifacts: Artifacts{
			Server: Source{
				Filename: "vscode-server-linux-x64.tar.gz",
				URL:      "https://update.code.visualstudio.com/commit:" + VersionPlaceholder + "/server-linux-x64/stable",
			},
			CLI: Source{
				Filename: "vscode-cli-alpine-x64.tar.gz",
				URL:      "https://update.code.visualstudio.com/commit:" + VersionPlaceholder + "/cli-alpine-x64/stable",
			},
		},
		Detect: Detect{
			Binaries: []string{"code", "code-insiders"},
			Line:     1,
		},
		Remote: Remote{
			Port:           DefaultSSHPort,
			KnownHostsFile: "~/.ssh/known_hosts",
			StagingDir:     "/tmp",
			InstallRoot:    "$HOME/.vscode-server",
		},
	}
}

// Load reads settings from path on top of Default, applies environment
// overrides and validates the result. An empty path means DefaultConfigFilename,
// which may be absent.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case !explicit && errors.Is(err, os.ErrNotExist):
		// Defaults only.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	ApplyEnv(cfg)

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// ApplyEnv overrides cfg with non-empty AIRGAP_* variables.
func ApplyEnv(cfg *Config) {
	overrides := map[string]*string{
		EnvCacheRoot:    &cfg.CacheRoot,
		EnvRemoteUser:   &cfg.Remote.User,
		EnvRemoteHost:   &cfg.Remote.Host,
		EnvIdentityFile: &cfg.Remote.IdentityFile,
	}

	for name, target := range overrides {
		if value := strings.TrimSpace(os.Getenv(name)); value != "" {
			*target = value
		}
	}
}

// Validate fills zero values with defaults and checks formatting.
//
//nolint:cyclop // Flat list of independent checks.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	defaults := Default()

	if cfg.CacheRoot == "" {
		cfg.CacheRoot = defaults.CacheRoot
	}

	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	for name, endpoint := range map[string]string{"server": cfg.Feeds.Server, "cli": cfg.Feeds.CLI} {
		if endpoint == "" {
			return fmt.Errorf("%s: %w", name, errFeedRequired)
		}

		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("invalid %s feed: %w", name, err)
		}
	}

	for _, kind := range artifact.Kinds() {
		if err := validateSource(kind, cfg.Artifacts.Source(kind)); err != nil {
			return err
		}
	}

	if cfg.Detect.Line < 0 {
		return errNegativeLine
	}

	return validateRemote(&cfg.Remote, &cfg.CacheRoot, defaults.Remote)
}

func validateSource(kind artifact.Kind, src Source) error {
	name := src.Filename
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("%s %q: %w", kind, name, errFilenameInvalid)
	}

	if !strings.Contains(src.URL, VersionPlaceholder) {
		return fmt.Errorf("%s: %w", kind, errPlaceholder)
	}

	if _, err := url.ParseRequestURI(src.URLFor("0")); err != nil {
		return fmt.Errorf("invalid %s artifact url: %w", kind, err)
	}

	return nil
}

func validateRemote(remote *Remote, cacheRoot *string, defaults Remote) error {
	if remote.Port == 0 {
		remote.Port = DefaultSSHPort
	}

	if remote.Port < 0 || remote.Port > maxPort {
		return fmt.Errorf("%d: %w", remote.Port, errPortOutOfRange)
	}

	if remote.StagingDir == "" {
		remote.StagingDir = defaults.StagingDir
	}

	if remote.InstallRoot == "" {
		remote.InstallRoot = defaults.InstallRoot
	}

	for _, p := range []string{remote.StagingDir, remote.InstallRoot} {
		if strings.ContainsAny(p, "\"\\`\n") {
			return fmt.Errorf("%q: %w", p, errUnsafeRemotePath)
		}
	}

	for _, p := range []*string{cacheRoot, &remote.IdentityFile, &remote.KnownHostsFile} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}

		*p = expanded
	}

	return nil
}
