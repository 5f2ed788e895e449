// Command storegate is a terminal client of the retail backend. It keeps the
// signed-in session in a local store so consecutive invocations share it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/storegate"
	"github.com/MrEthical07/storegate/internal/logger"
)

type app struct {
	envFile   string
	storeKind string
	storePath string
	redisAddr string
	output    string

	manager *storegate.Manager
	cleanup []func()
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:           "storegate",
		Short:         "Sign in to the retail backend and manage the local session",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file read before the environment (missing is fine)")
	root.PersistentFlags().StringVar(&a.storeKind, "store", "", "session store: file, redis or memory (env STOREGATE_STORE)")
	root.PersistentFlags().StringVar(&a.storePath, "store-path", "", "file store location (env STOREGATE_STORE_PATH)")
	root.PersistentFlags().StringVar(&a.redisAddr, "redis-addr", "", "redis address; \"mini\" starts an in-process miniredis")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "output format: text or json")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.registerCmd(),
		a.verifyCmd(),
		a.whoamiCmd(),
		a.refreshCmd(),
		a.openCmd(),
		a.passwordCmd(),
		a.profileCmd(),
		a.sessionsCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		a.close()
		fmt.Fprintln(os.Stderr, "error:", userMessage(err))
		os.Exit(exitCode(err))
	}
}

// open loads configuration, builds the manager and restores the stored
// session.
func (a *app) open(ctx context.Context) error {
	if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", a.envFile, err)
	}

	cfg, err := storegate.LoadConfig()
	if err != nil {
		return err
	}
	if a.storeKind != "" {
		cfg.Store.Kind = a.storeKind
	}
	if a.storePath != "" {
		cfg.Store.Path = a.storePath
	}

	logger.Init(logger.Config{Env: cfg.AppEnv, Level: cfg.Log.Level, ServiceName: "storegate"})
	a.cleanup = append(a.cleanup, func() { _ = logger.Sync() })

	b := storegate.New().
		WithConfig(cfg).
		WithNavigator(storegate.NavigatorFunc(func(target string) {
			fmt.Fprintf(os.Stderr, "-> %s\n", target)
		})).
		WithAuditSink(storegate.NewZapAuditSink(logger.Named("audit")))

	if a.redisAddr != "" {
		client, err := a.redisClient()
		if err != nil {
			return err
		}
		cfg.Store.Kind = "redis"
		b = b.WithConfig(cfg).WithRedis(client)
	}

	m, err := b.Build()
	if err != nil {
		return err
	}
	a.manager = m
	a.cleanup = append(a.cleanup, m.Close)

	if err := m.Rehydrate(ctx); err != nil && !errors.Is(err, storegate.ErrCorruptState) {
		return err
	} else if err != nil {
		fmt.Fprintln(os.Stderr, "stored session was unreadable and has been cleared")
	}
	return nil
}

func (a *app) redisClient() (redis.UniversalClient, error) {
	addr := a.redisAddr
	if addr == "mini" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		a.cleanup = append(a.cleanup, mr.Close)
		addr = mr.Addr()
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	a.cleanup = append(a.cleanup, func() { _ = client.Close() })
	return client, nil
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

func userMessage(err error) string {
	var se *storegate.Error
	if errors.As(err, &se) && se.Message != "" {
		msg := se.Message
		for field, m := range se.Fields {
			msg += fmt.Sprintf("\n  %s: %s", field, m)
		}
		return msg
	}
	return err.Error()
}

func exitCode(err error) int {
	switch storegate.KindOf(err) {
	case storegate.KindAuthentication, storegate.KindAuthorization:
		return 3
	case storegate.KindValidation:
		return 4
	case storegate.KindNetwork:
		return 5
	default:
		return 1
	}
}
