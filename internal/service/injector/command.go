package injector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/oshokin/code-airgap/internal/config"
	"github.com/oshokin/code-airgap/internal/domain/artifact"
	"github.com/oshokin/code-airgap/internal/logger"
	"github.com/oshokin/code-airgap/internal/prompt"
	"github.com/oshokin/code-airgap/internal/remote"
	"github.com/oshokin/code-airgap/internal/repository/cache"
	"github.com/oshokin/code-airgap/internal/service/common"
	"github.com/oshokin/code-airgap/internal/service/detector"
)

// Options are inputs accepted by the inject entry point. Non-zero values override the configuration.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Version skips detection when set.
	Version string
	// User is the remote login.
	User string
	// Host is the remote host.
	Host string
	// Port is the remote SSH port.
	Port int
	// Identity is a private key file.
	Identity string
	// Local installs on this machine instead of a remote host.
	Local bool
}

// DialFunc opens the channel to the target.
type DialFunc func(ctx context.Context) (remote.Conn, error)

// Injector deploys one version from the cache to a target.
type Injector struct {
	store     cache.Repository
	provider  detector.Provider
	dial      DialFunc
	layout    Layout
	probe     Probe
	available func() ([]string, error)
}

// New creates an Injector.
func New(store cache.Repository, provider detector.Provider, dial DialFunc, layout Layout, probe Probe) *Injector {
	return &Injector{
		store:     store,
		provider:  provider,
		dial:      dial,
		layout:    layout,
		probe:     probe,
		available: store.Versions,
	}
}

// Run loads the configuration and injects the selected version.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "airgap-inject")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	applyOptions(cfg, opts)

	store := cache.NewFileStore(afero.NewOsFs(), cfg.CacheRoot, cfg.Artifacts.Filenames())
	prompter := prompt.New(nil)

	available, err := store.Versions()
	if err != nil {
		logger.WarnKV(ctx, "Could not list cached versions", "error", err)
	}

	provider := detector.Chain(
		detector.Logged("flag", detector.Fixed(opts.Version)),
		detector.Logged("installed client", detector.New(cfg.Detect, nil)),
		detector.Logged("prompt", prompter.Version(available)),
	)

	dial := func(ctx context.Context) (remote.Conn, error) {
		if opts.Local {
			logger.Info(ctx, "Installing on the local machine")

			return remote.NewLocal(), nil
		}

		return dialRemote(ctx, &cfg.Remote, prompter)
	}

	installation, err := New(store, provider, dial, LayoutFromConfig(cfg.Remote, cfg.Artifacts), DefaultProbe()).Inject(ctx)
	if err != nil {
		if errors.Is(err, ErrEnvironmentMismatch) {
			logger.Error(ctx, "The server runtime does not start on the target, check its glibc and libstdc++ versions")
		}

		return err
	}

	logger.InfoKV(ctx, "Injection complete",
		"version", installation.Version,
		"state", installation.State,
		"server_dir", installation.ServerDir,
		"cli", installation.CLIPath)

	return nil
}

func applyOptions(cfg *config.Config, opts *Options) {
	if opts.User != "" {
		cfg.Remote.User = opts.User
	}

	if opts.Host != "" {
		cfg.Remote.Host = opts.Host
	}

	if opts.Port > 0 {
		cfg.Remote.Port = opts.Port
	}

	if opts.Identity != "" {
		cfg.Remote.IdentityFile = opts.Identity
	}
}

// Inject selects a version, checks the cache, stages both archives and provisions them.
// Nothing is prompted for or dialed before both archives are known to be present.
func (in *Injector) Inject(ctx context.Context) (*artifact.Installation, error) {
	version, err := in.provider.Provide(ctx)
	if err != nil {
		return nil, fmt.Errorf("select version: %w", err)
	}

	version = strings.TrimSpace(version)
	if err = artifact.ValidateVersion(version); err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "version", version)

	paths, err := in.cachedArchives(ctx, version)
	if err != nil {
		return nil, err
	}

	plan, err := NewPlan(version, in.layout, in.probe)
	if err != nil {
		return nil, err
	}

	conn, err := in.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to target: %w", err)
	}

	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Could not close connection", "error", closeErr)
		}
	}()

	logger.InfoKV(ctx, "Staging archives", "dir", in.layout.StagingDir)

	if err = conn.Copy(ctx, paths, in.layout.StagingDir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransfer, err)
	}

	return NewProvisioner(conn).Provision(ctx, plan)
}

// cachedArchives returns the local paths of both archives of version, server first.
func (in *Injector) cachedArchives(ctx context.Context, version string) ([]string, error) {
	paths := make([]string, 0, len(artifact.Kinds()))

	var missing []string

	for _, kind := range artifact.Kinds() {
		record := in.store.Record(version, kind)
		if record.Presence != artifact.Present {
			missing = append(missing, fmt.Sprintf("%s (%s)", kind, record.Presence))

			continue
		}

		paths = append(paths, record.Path)
	}

	if len(missing) == 0 {
		return paths, nil
	}

	available, listErr := in.available()
	if listErr != nil {
		logger.WarnKV(ctx, "Could not list cached versions", "error", listErr)
	}

	logger.ErrorKV(ctx, "Version is not fully synced, run airgap-sync first", "missing", missing, "available", available)

	return nil, fmt.Errorf("%s: %s: %w", version, strings.Join(missing, ", "), ErrArtifactsMissing)
}

func dialRemote(ctx context.Context, remoteCfg *config.Remote, prompter *prompt.Prompter) (remote.Conn, error) {
	if remoteCfg.User == "" || remoteCfg.Host == "" {
		user := remoteCfg.User
		if user == "" {
			if operator, err := common.DetectOperator(); err == nil {
				user = operator
			}
		}

		user, host, err := prompter.Target(user, remoteCfg.Host)
		if err != nil {
			return nil, err
		}

		remoteCfg.User, remoteCfg.Host = user, host
	}

	return remote.DialSSH(ctx, &remote.SSHOptions{
		User:                  remoteCfg.User,
		Address:               remoteCfg.Address(),
		IdentityFile:          remoteCfg.IdentityFile,
		KnownHostsFile:        remoteCfg.KnownHostsFile,
		InsecureIgnoreHostKey: remoteCfg.InsecureIgnoreHostKey,
		Password:              prompter.Password(remoteCfg.User, remoteCfg.Host),
	})
}
