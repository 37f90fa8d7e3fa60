package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/soyeahso/kirpich/internal/command"
	"github.com/soyeahso/kirpich/internal/config"
	"github.com/soyeahso/kirpich/internal/domain"
	"github.com/soyeahso/kirpich/internal/hooks"
	"github.com/soyeahso/kirpich/internal/logging"
	"github.com/soyeahso/kirpich/internal/remote"
	"github.com/soyeahso/kirpich/internal/store"
)

// newRemote builds the messaging backend client selected by remote.mode.
func newRemote(cfg config.RemoteConfig, log *logging.Logger) domain.Remote {
	if cfg.Mode == "loopback" {
		log.Info().Msg("using loopback messaging backend")
		return remote.NewLoopback(cfg.MediaBaseURL)
	}

	var opts []remote.HTTPOption
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, remote.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	if cfg.Retries != nil {
		opts = append(opts, remote.WithRetries(*cfg.Retries, 200*time.Millisecond, 3*time.Second))
	}
	if cfg.MediaBaseURL != "" {
		opts = append(opts, remote.WithMediaBase(cfg.MediaBaseURL))
	}
	return remote.NewHTTPClient(cfg.BaseURL, log, opts...)
}

// openStore opens the SQLite store, or returns nil when cache.store is
// memory.
func openStore(cfg config.CacheConfig, log *logging.Logger) (*store.DB, error) {
	if cfg.Store != "sqlite" {
		log.Info().Msg("chat snapshot and audit log disabled (memory store)")
		return nil, nil
	}
	path := cfg.Path
	if path == "" {
		path = paths.Database()
	}
	db, err := store.Open(path, log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// attachStore wires the audit log and chat snapshots of db into the
// gateway options and prunes audit entries past retention.
func attachStore(ctx context.Context, db *store.DB, cfg config.CacheConfig, hm *hooks.Manager) []command.Option {
	if db == nil {
		return nil
	}

	audit := store.NewAuditLog(db)
	audit.Attach(hm)
	if cfg.AuditRetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.AuditRetentionDays)
		n, err := audit.Prune(ctx, cutoff)
		if err != nil {
			log.Warn().Err(err).Msg("pruning audit log")
		} else if n > 0 {
			log.Info().Int64("removed", n).Msg("audit log pruned")
		}
	}

	return []command.Option{command.WithSnapshots(store.NewChatSnapshotStore(db))}
}

// consolePresenter stands in for the desktop surface in one-shot commands:
// window calls do nothing and notifications go to the log.
type consolePresenter struct {
	log *logging.Logger
}

func (consolePresenter) CreateMainSurface() {}
func (consolePresenter) ShowMainSurface()   {}
func (consolePresenter) HideMainSurface()   {}
func (consolePresenter) FocusMainSurface()  {}

func (p consolePresenter) Notify(n domain.Notification) {
	p.log.Info().Str("title", n.Title).Msg(n.Body)
}

// oneShot is a command gateway built for a single CLI invocation.
type oneShot struct {
	*command.Gateway
	db    *store.DB
	hooks *hooks.Manager
}

func newOneShot(ctx context.Context) (*oneShot, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}

	db, err := openStore(cfg.Cache, log)
	if err != nil {
		return nil, err
	}

	hm := hooks.NewManager(log)
	opts := append(attachStore(ctx, db, cfg.Cache, hm),
		command.WithHooks(hm),
		command.WithLogger(log),
	)
	gw := command.New(newRemote(cfg.Remote, log), consolePresenter{log: log.Sub("notify")}, opts...)
	if err := gw.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("restoring chat snapshot")
	}
	return &oneShot{Gateway: gw, db: db, hooks: hm}, nil
}

// Close waits for pending hook handlers before closing the store they
// write to.
func (o *oneShot) Close() {
	o.hooks.Wait()
	if o.db != nil {
		o.db.Close()
	}
}

// credentialEnv reads KIRPICH_EMAIL and KIRPICH_PASSWORD.
type credentialEnv struct {
	Email    string `envconfig:"EMAIL"`
	Password string `envconfig:"PASSWORD"`
}

// resolveCredentials fills fields missing from flags with the environment.
func resolveCredentials(c domain.Credentials) (domain.Credentials, error) {
	var env credentialEnv
	if err := envconfig.Process("kirpich", &env); err != nil {
		return c, err
	}
	if c.Email == "" {
		c.Email = env.Email
	}
	if c.Password == "" {
		c.Password = env.Password
	}
	return c, nil
}

// login signs the one-shot gateway in with flag or environment
// credentials.
func (o *oneShot) login(ctx context.Context, creds domain.Credentials) error {
	creds, err := resolveCredentials(creds)
	if err != nil {
		return err
	}
	if _, err := o.Login(ctx, creds); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}
