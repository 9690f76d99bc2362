// Package cli реализует команды терминального клиента.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iudanet/camerannonces/internal/apperr"
	"github.com/iudanet/camerannonces/internal/client/app"
	"github.com/iudanet/camerannonces/internal/client/auth"
	"github.com/iudanet/camerannonces/internal/client/iocli"
	"github.com/iudanet/camerannonces/internal/client/session"
	"github.com/iudanet/camerannonces/internal/config"
)

const appName = "annonces"

// annotationOffline помечает команды, которым не нужен клиент
const annotationOffline = "offline"

const msgNotLoggedIn = "Vous n'êtes pas connecté. Lancez 'annonces login'."

var errNotLoggedIn = errors.New("not logged in")

// Opener собирает клиент из конфигурации
type Opener func(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app.App, error)

// BuildInfo - сведения о сборке для команды version
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

type Cli struct {
	io     iocli.IO
	cfg    *config.Config
	open   Opener
	build  BuildInfo
	logOut io.Writer

	app *app.App

	expiredShown atomic.Bool
	stopWatch    func()
	watchers     sync.WaitGroup
}

// Option настраивает Cli
type Option func(*Cli)

// WithLogOutput задаёт поток для логов (по умолчанию stderr)
func WithLogOutput(w io.Writer) Option {
	return func(c *Cli) {
		c.logOut = w
	}
}

func New(console iocli.IO, cfg *config.Config, open Opener, build BuildInfo, opts ...Option) *Cli {
	c := &Cli{
		io:     console,
		cfg:    cfg,
		open:   open,
		build:  build,
		logOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute выполняет команду и печатает ошибку. Ошибка возвращается для кода выхода.
func (c *Cli) Execute(ctx context.Context, args []string) error {
	c.expiredShown.Store(false)

	root := c.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if closeErr := c.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		c.renderError(err)
	}
	return err
}

func (c *Cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Client en ligne de commande pour les petites annonces du Cameroun",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationOffline] == "true" || cmd.Name() == "help" {
				return nil
			}
			return c.connect(cmd.Context())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(c.io)
	root.SetErr(c.io)

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfg.ServerURL, "server", c.cfg.ServerURL, "URL du serveur")
	flags.StringVar(&c.cfg.DBPath, "db", c.cfg.DBPath, "fichier de session locale")
	flags.StringVar(&c.cfg.CachePath, "cache", c.cfg.CachePath, "fichier du cache du catalogue")
	flags.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "niveau de journalisation (debug, info, warn, error)")
	flags.DurationVar(&c.cfg.RequestTimeout, "timeout", c.cfg.RequestTimeout, "délai maximal d'une requête")

	root.AddCommand(
		c.loginCommand(),
		c.registerCommand(),
		c.logoutCommand(),
		c.statusCommand(),
		c.whoamiCommand(),
		c.checkPhoneCommand(),
		c.resetPasswordCommand(),
		c.changePasswordCommand(),
		c.categoriesCommand(),
		c.citiesCommand(),
		c.regionsCommand(),
		c.listingsCommand(),
		c.listingCommand(),
		c.searchCommand(),
		c.favoritesCommand(),
		c.myListingsCommand(),
		c.versionCommand(),
	)
	return root
}

// connect открывает клиент, восстанавливает сессию и подписывается на её изменения
func (c *Cli) connect(ctx context.Context) error {
	logger, err := config.NewLogger(c.logOut, c.cfg.LogLevel)
	if err != nil {
		return err
	}

	a, err := c.open(ctx, c.cfg, logger)
	if err != nil {
		return err
	}
	c.app = a

	c.watch()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	// Сессию не удалось восстановить по причине, не связанной с входом
	if st := a.Session.State(); st.LastError != nil && !errors.Is(st.LastError, apperr.ErrSessionExpired) {
		c.io.Printf("Erreur: %s\n", st.LastError.Error())
	}
	return nil
}

// watch печатает сообщение об истёкшей сессии один раз за запуск
func (c *Cli) watch() {
	ch, cancel := c.app.Session.Watch()
	c.stopWatch = cancel

	c.watchers.Add(1)
	go func() {
		defer c.watchers.Done()
		for st := range ch {
			if errors.Is(st.LastError, apperr.ErrSessionExpired) && c.expiredShown.CompareAndSwap(false, true) {
				c.io.Println(apperr.MsgSessionExpired)
			}
		}
	}()
}

func (c *Cli) close() error {
	if c.app == nil {
		return nil
	}

	err := c.app.Close()
	if c.stopWatch != nil {
		c.stopWatch()
	}
	c.watchers.Wait()

	c.app = nil
	c.stopWatch = nil
	return err
}

// renderError печатает ошибку: поле формы для валидации, одна строка для остального
func (c *Cli) renderError(err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		if field := apperr.FieldOf(err); field != "" {
			c.io.Printf("✗ %s: %s\n", field, err.Error())
			return
		}
		c.io.Printf("✗ %s\n", err.Error())
	case errors.Is(err, apperr.ErrSessionExpired):
		if c.expiredShown.CompareAndSwap(false, true) {
			c.io.Println(apperr.MsgSessionExpired)
		}
	case errors.Is(err, errNotLoggedIn), errors.Is(err, session.ErrNotAuthenticated), errors.Is(err, auth.ErrNotLoggedIn):
		c.io.Println(msgNotLoggedIn)
	default:
		c.io.Printf("Erreur: %s\n", err.Error())
	}
}

// requireLogin возвращает errNotLoggedIn, если сессия анонимна
func (c *Cli) requireLogin() error {
	if !c.app.Session.State().IsAuthenticated() {
		return errNotLoggedIn
	}
	return nil
}
