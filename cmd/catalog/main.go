package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"catalog-service/internal/api"
	"catalog-service/internal/api/middleware"
	"catalog-service/internal/auth"
	"catalog-service/internal/cache"
	"catalog-service/internal/config"
	"catalog-service/internal/database"
	"catalog-service/internal/logging"
	"catalog-service/internal/models"
	"catalog-service/internal/repository"
	"catalog-service/internal/service"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "catalog",
		Usage: "catalog and order management backend",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			createUserCommand(),
			createOrderCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat), nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run migrations and start the HTTP API",
		Action: func(c *cli.Context) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	decimal.MarshalJSONWithoutQuotes = true

	if err := database.MigrateUp(cfg.MigrateURL(), log); err != nil {
		return err
	}

	pool, err := database.ConnectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb, err := cache.ConnectRedis(ctx, cfg, log)
	if err != nil {
		return err
	}

	var (
		products   repository.ProductRepository  = repository.NewProductRepository(pool)
		categories repository.CategoryRepository = repository.NewCategoryRepository(pool)
	)
	if rdb != nil {
		defer rdb.Close()
		products = cache.NewCachedProductRepository(products, rdb, log)
		categories = cache.NewCachedCategoryRepository(categories, rdb, log)
	}

	secret, err := signingSecret(cfg, log)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokens(secret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	creds := auth.NewCredentialService(
		repository.NewUserRepository(pool),
		auth.NewBcryptHasher(cfg.BcryptCost),
		tokens,
		log,
	)
	if _, err := creds.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst)
	limiter.StartCleanup(ctx, 10*time.Minute)

	router := api.NewRouter(api.Dependencies{
		Guard:        auth.NewGuard(tokens),
		Credentials:  creds,
		Catalog:      service.NewCatalogService(products, categories, log),
		Orders:       service.NewOrderService(repository.NewOrderRepository(pool), log),
		LoginLimiter: limiter,
		Log:          log,
		TrustProxy:   cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// signingSecret uses JWT_SECRET when set. Otherwise the key is random and
// tokens do not survive a restart.
func signingSecret(cfg *config.Config, log logrus.FieldLogger) ([]byte, error) {
	if cfg.JWTSecret != "" {
		if len(cfg.JWTSecret) < auth.SecretSize {
			return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes", auth.SecretSize)
		}
		log.Info("using configured JWT_SECRET, tokens survive restarts")
		return []byte(cfg.JWTSecret), nil
	}

	log.Info("generated signing secret for this process, tokens are invalidated on restart")
	return auth.NewSecret()
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "manage the database schema",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					cfg, log, err := setup()
					if err != nil {
						return err
					}
					return database.MigrateUp(cfg.MigrateURL(), log)
				},
			},
			{
				Name:  "down",
				Usage: "roll back migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"},
				},
				Action: func(c *cli.Context) error {
					cfg, log, err := setup()
					if err != nil {
						return err
					}
					return database.MigrateDown(cfg.MigrateURL(), c.Int("steps"), log)
				},
			},
		},
	}
}

func createUserCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-user",
		Usage: "create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Required: true},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"NEW_USER_PASSWORD"}},
			&cli.BoolFlag{Name: "admin", Usage: "grant administrator rights"},
		},
		Action: func(c *cli.Context) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			pool, err := database.ConnectDB(c.Context, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			// Only the hasher is used; a throwaway key satisfies the constructor.
			secret, err := auth.NewSecret()
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokens(secret, cfg.TokenTTL)
			if err != nil {
				return err
			}

			creds := auth.NewCredentialService(repository.NewUserRepository(pool), auth.NewBcryptHasher(cfg.BcryptCost), tokens, log)
			user, err := creds.CreateAccount(c.Context, c.String("username"), c.String("password"), c.Bool("admin"))
			if err != nil {
				return err
			}

			fmt.Printf("created user %d (%s, admin=%t)\n", user.ID, user.Username, user.IsAdmin)
			return nil
		},
	}
}

func createOrderCommand() *cli.Command {
	return &cli.Command{
		Name:      "create-order",
		Usage:     "record an order received outside the API",
		ArgsUsage: "PRODUCT_ID:QUANTITY...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "customer-name", Required: true},
			&cli.StringFlag{Name: "customer-email", Required: true},
			&cli.StringFlag{Name: "shipping-address", Required: true},
			&cli.StringFlag{Name: "status", Value: models.StatusPending},
		},
		Action: func(c *cli.Context) error {
			items, err := parseItems(c.Args().Slice())
			if err != nil {
				return err
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}

			pool, err := database.ConnectDB(c.Context, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			orders := service.NewOrderService(repository.NewOrderRepository(pool), log)
			order, err := orders.PlaceOrder(c.Context, &models.Order{
				CustomerName:    c.String("customer-name"),
				CustomerEmail:   c.String("customer-email"),
				ShippingAddress: c.String("shipping-address"),
				Status:          c.String("status"),
			}, items)
			if err != nil {
				return err
			}

			fmt.Printf("created order %d with %d items, total %s\n", order.ID, len(order.Items), order.TotalAmount.StringFixed(2))
			return nil
		},
	}
}

func parseItems(args []string) ([]models.OrderItem, error) {
	if len(args) == 0 {
		return nil, errors.New("at least one PRODUCT_ID:QUANTITY argument is required")
	}

	items := make([]models.OrderItem, 0, len(args))
	for _, arg := range args {
		idStr, qtyStr, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("invalid item %q, want PRODUCT_ID:QUANTITY", arg)
		}
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid product id in %q: %w", arg, err)
		}
		qty, err := strconv.Atoi(qtyStr)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity in %q: %w", arg, err)
		}
		items = append(items, models.OrderItem{ProductID: id, Quantity: qty})
	}
	return items, nil
}
