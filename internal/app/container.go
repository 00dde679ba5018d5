package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/you/storefront/domain"
	"github.com/you/storefront/internal/config"
	"github.com/you/storefront/internal/http/apiclient"
	"github.com/you/storefront/internal/infrastructure/auth"
	"github.com/you/storefront/internal/infrastructure/database"
	"github.com/you/storefront/internal/infrastructure/repositories"
	"github.com/you/storefront/internal/observability"
	"github.com/you/storefront/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config

	// Observability
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Audit    domain.AuditLogger

	// Infrastructure
	RedisClient *database.RedisClient
	DB          *gorm.DB
	API         *apiclient.Client

	// Stores
	DurableStore   domain.SessionStore
	EphemeralStore domain.SessionStore

	// Services
	Persistence domain.PersistenceAdapter
	Session     *services.AuthSessionImpl
	Cart        *services.CartStoreImpl
	Checkout    *services.CheckoutOrchestrator
}

// NewContainer creates and initializes all dependencies. The session is left
// Initializing; call Start to restore it.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	container := &Container{Config: cfg, Logger: logger}

	if err := container.initObservability(); err != nil {
		return nil, err
	}
	if err := container.initStores(); err != nil {
		container.Close()
		return nil, err
	}
	container.initServices()

	return container, nil
}

func (c *Container) initObservability() error {
	c.Registry = prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(c.Registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	c.Metrics = metrics
	c.Audit = observability.NewAuditLogger(c.Logger)
	return nil
}

func (c *Container) initStores() error {
	switch c.Config.DurableBackend {
	case config.DurableSQL:
		db, err := database.OpenSQLite(c.Config.SQLPath, &repositories.DBSessionBlob{})
		if err != nil {
			return err
		}
		c.DB = db
		c.DurableStore = repositories.NewSQLSessionStore(db)
	case config.DurableRedis:
		c.RedisClient = database.NewRedis(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
		c.DurableStore = repositories.NewRedisSessionStore(c.RedisClient.Client, c.Config.RedisTTL)
	default:
		return fmt.Errorf("unknown durable storage %q", c.Config.DurableBackend)
	}

	c.EphemeralStore = repositories.NewMemorySessionStore(c.Config.EphemeralCapacity)
	return nil
}

func (c *Container) initServices() {
	c.API = apiclient.NewClient(c.Config.APIBaseURL, c.Config.APITimeout, c.Metrics, c.Logger)
	c.Persistence = services.NewPersistenceAdapter(c.DurableStore, c.EphemeralStore, c.Logger)
	c.Session = services.NewAuthSession(c.Persistence, c.API, auth.NewJWTInspector(), c.Audit, c.Logger)
	c.Cart = services.NewCartStore(c.Session, c.API, c.Audit, c.Metrics, c.Logger)
	c.Checkout = services.NewCheckoutOrchestrator(
		c.Session,
		c.Cart,
		c.API,
		c.API,
		services.CheckoutConfig{
			OTPTimeout:   c.Config.OTPTimeout,
			PlaceTimeout: c.Config.PlaceTimeout,
		},
		c.Audit,
		c.Metrics,
		c.Logger,
	)
}

// Start checks the durable store and restores any persisted session, which
// in turn loads the cart.
func (c *Container) Start(ctx context.Context) {
	if c.RedisClient != nil {
		if err := c.RedisClient.Ping(ctx); err != nil {
			c.Logger.Warn("durable session store unreachable, sessions will not survive restarts", zap.Error(err))
		}
	}
	c.Session.Restore(ctx)
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Cart != nil {
		c.Cart.Close()
	}

	var errs []error
	if c.RedisClient != nil {
		errs = append(errs, c.RedisClient.Close())
	}
	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
