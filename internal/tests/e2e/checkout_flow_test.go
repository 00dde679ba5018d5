package e2e

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/you/storefront/domain"
	"github.com/you/storefront/internal/app"
	"github.com/you/storefront/internal/config"
	"github.com/you/storefront/internal/tests/fakeapi"
)

func testConfig(t *testing.T, backend *fakeapi.Server, durable string) *config.Config {
	t.Helper()
	cfg := &config.Config{
		APIBaseURL:     backend.BaseURL(),
		APITimeout:     5 * time.Second,
		DurableBackend: durable,
		OTPTimeout:     2 * time.Second,
		PlaceTimeout:   2 * time.Second,
		LogLevel:       "debug",
	}
	switch durable {
	case config.DurableRedis:
		cfg.RedisAddr = miniredis.RunT(t).Addr()
	case config.DurableSQL:
		cfg.SQLPath = filepath.Join(t.TempDir(), "sessions.db")
	}
	return cfg
}

// startContainer builds and starts the app the way the CLI does
func startContainer(t *testing.T, cfg *config.Config) *app.Container {
	t.Helper()
	c, err := app.NewContainer(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	c.Start(context.Background())
	return c
}

func TestCheckoutFlow(t *testing.T) {
	for _, durable := range []string{config.DurableRedis, config.DurableSQL} {
		t.Run(durable, func(t *testing.T) {
			ctx := context.Background()
			backend := fakeapi.New(t)
			phone := "+15550100"
			user := backend.AddUser("ana", "s3cret", &phone)
			home := backend.AddAddress(user.ID, domain.Address{Type: "home", Street: "1 Main St", City: "Springfield", IsDefault: true})
			cfg := testConfig(t, backend, durable)

			c := startContainer(t, cfg)
			require.Equal(t, domain.AuthAnonymous, c.Session.State())

			_, err := c.Checkout.Begin(ctx)
			require.ErrorIs(t, err, domain.ErrCheckoutRedirect)
			require.Zero(t, backend.TotalHits(), "anonymous start must not touch the backend")

			_, err = c.Session.Authenticate(ctx, domain.Credentials{Username: "ana", Password: "s3cret"}, true)
			require.NoError(t, err)

			require.True(t, c.Cart.Add(ctx, 1, 2, nil))
			require.True(t, c.Cart.Add(ctx, 2, 1, nil))
			assert.Equal(t, 3, c.Cart.TotalItems())
			assert.Equal(t, "50.00", c.Cart.TotalPrice().StringFixed(2))

			// a restart restores the remembered session and its cart
			restarted := startContainer(t, cfg)
			require.Equal(t, domain.AuthAuthenticated, restarted.Session.State())
			assert.Equal(t, 3, restarted.Cart.TotalItems())

			co, err := restarted.Checkout.Begin(ctx)
			require.NoError(t, err)
			assert.Equal(t, home.ID, co.SelectedAddress())
			_, err = co.ResolveContactPhone(true, "")
			require.NoError(t, err)

			msg, err := co.RequestOTP(ctx)
			require.NoError(t, err)
			assert.Equal(t, "OTP sent to your email", msg)

			require.Error(t, co.VerifyOTP(ctx, "999999"))
			assert.Equal(t, "Invalid OTP", co.LastError())
			require.NoError(t, co.VerifyOTP(ctx, fakeapi.DefaultOTP))

			order, err := co.PlaceOrder(ctx)
			require.NoError(t, err)
			assert.Equal(t, "50.00", order.TotalAmount)
			assert.Empty(t, restarted.Cart.Items())
			assert.Empty(t, backend.Cart(user.ID))

			confirmed, err := restarted.Checkout.OrderConfirmation(ctx, order.ID)
			require.NoError(t, err)
			assert.Len(t, confirmed.Items, 2)

			restarted.Session.Logout(ctx)
			again := startContainer(t, cfg)
			assert.Equal(t, domain.AuthAnonymous, again.Session.State())
		})
	}
}

func TestCheckoutFlow_VerificationLapse(t *testing.T) {
	ctx := context.Background()
	backend := fakeapi.New(t)
	phone := "+15550100"
	user := backend.AddUser("ana", "s3cret", &phone)
	backend.AddAddress(user.ID, domain.Address{Type: "home", Street: "1 Main St", IsDefault: true})
	c := startContainer(t, testConfig(t, backend, config.DurableRedis))

	_, err := c.Session.Authenticate(ctx, domain.Credentials{Username: "ana", Password: "s3cret"}, false)
	require.NoError(t, err)
	require.True(t, c.Cart.Add(ctx, 3, 1, nil))

	co, err := c.Checkout.Begin(ctx)
	require.NoError(t, err)
	_, err = co.ResolveContactPhone(true, "")
	require.NoError(t, err)
	_, err = co.RequestOTP(ctx)
	require.NoError(t, err)
	require.NoError(t, co.VerifyOTP(ctx, fakeapi.DefaultOTP))

	backend.ExpireVerification(user.ID)
	_, err = co.PlaceOrder(ctx)
	require.ErrorIs(t, err, domain.ErrVerificationLapsed)
	assert.Equal(t, domain.CheckoutSelectingAddress, co.State())
	assert.Equal(t, 1, c.Cart.TotalItems())
	assert.Zero(t, backend.Orders())

	_, err = co.RequestOTP(ctx)
	require.NoError(t, err)
	require.NoError(t, co.VerifyOTP(ctx, fakeapi.DefaultOTP))
	_, err = co.PlaceOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Orders())
}

func TestCheckoutFlow_TransientPlacementFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	backend := fakeapi.New(t)
	phone := "+15550100"
	user := backend.AddUser("ana", "s3cret", &phone)
	backend.AddAddress(user.ID, domain.Address{Type: "home", Street: "1 Main St", IsDefault: true})
	c := startContainer(t, testConfig(t, backend, config.DurableSQL))

	_, err := c.Session.Authenticate(ctx, domain.Credentials{Username: "ana", Password: "s3cret"}, true)
	require.NoError(t, err)
	require.True(t, c.Cart.Add(ctx, 1, 1, nil))

	co, err := c.Checkout.Begin(ctx)
	require.NoError(t, err)
	_, _ = co.ResolveContactPhone(true, "")
	_, err = co.RequestOTP(ctx)
	require.NoError(t, err)
	require.NoError(t, co.VerifyOTP(ctx, fakeapi.DefaultOTP))

	backend.Fail("POST", "/api/orders/place/", 503, "", 1)
	_, err = co.PlaceOrder(ctx)
	require.Error(t, err)
	assert.Equal(t, domain.CheckoutOTPVerified, co.State())

	order, err := co.PlaceOrder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10.00", order.TotalAmount)
	assert.Equal(t, 1, backend.Orders())
	assert.Equal(t, 2, backend.Hits("POST", "/api/orders/place/"))
}

func TestCartFlow_UnauthorizedClearsCart(t *testing.T) {
	ctx := context.Background()
	backend := fakeapi.New(t)
	user := backend.AddUser("ana", "s3cret", nil)
	backend.SetCart(user.ID, []domain.CartItem{{Product: domain.CartProduct{ID: 1, Name: "Basic Tee", Price: "10.00"}, Quantity: 1}})
	c := startContainer(t, testConfig(t, backend, config.DurableRedis))

	_, err := c.Session.Authenticate(ctx, domain.Credentials{Username: "ana", Password: "s3cret"}, true)
	require.NoError(t, err)
	require.Equal(t, 1, c.Cart.TotalItems())

	backend.Fail("GET", "/api/cart/", 401, "Given token not valid for any token type", 1)
	c.Cart.Fetch(ctx)

	assert.Empty(t, c.Cart.Items())
	assert.Equal(t, domain.AuthAuthenticated, c.Session.State())
}
