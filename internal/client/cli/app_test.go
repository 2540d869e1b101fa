package cli

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/storefront/internal/client/apitest"
	"github.com/dmitrijs2005/storefront/internal/client/config"
	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/client/nav"
	"github.com/dmitrijs2005/storefront/internal/logging"
)

func testConfig(t *testing.T, srv *apitest.Server) *config.Config {
	t.Helper()
	return &config.Config{
		APIBaseURL:     srv.URL,
		RequestTimeout: 5 * time.Second,
		DataDir:        t.TempDir(),
		LogLevel:       "error",
		LogFormat:      "text",
	}
}

// newTestApp builds an App on cfg that reads input as if it were typed.
func newTestApp(t *testing.T, cfg *config.Config, input string) (*App, *bytes.Buffer) {
	t.Helper()
	stubTerminal(t, false, nil, nil)

	var out bytes.Buffer
	a, err := NewApp(context.Background(), cfg, logging.NewNop(), strings.NewReader(input), &out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a, &out
}

func seedCatalog(srv *apitest.Server) models.Product {
	srv.AddUser("alice", "a@x.com", "secret")
	return srv.AddProduct(models.Product{Name: "Hat", Price: 10, InStock: true, Category: models.CategoryMen})
}

func TestApp_GuardedRouteResumesAfterLogin(t *testing.T) {
	srv := apitest.NewServer(t)
	seedCatalog(srv)
	a, out := newTestApp(t, testConfig(t, srv), "alice\nsecret\n")
	ctx := context.Background()

	err := a.Products(ctx, nil)
	require.ErrorIs(t, err, errNotAllowed)
	assert.Equal(t, nav.RouteLogin, a.nav.Current())
	assert.Contains(t, out.String(), "Please log in to open /products")
	assert.Zero(t, srv.TotalCalls())

	require.NoError(t, a.Login(ctx))
	s := out.String()
	assert.Contains(t, s, "Welcome, alice!")
	assert.Contains(t, s, "ID  NAME  CATEGORY  PRICE   STOCK")
	assert.Contains(t, s, "Hat")
	assert.Contains(t, s, "$10.00")
	assert.Equal(t, nav.RouteProducts, a.nav.Current())
	assert.True(t, a.isLoggedIn())
}

func TestApp_DetailRouteResumesAfterLogin(t *testing.T) {
	srv := apitest.NewServer(t)
	p := seedCatalog(srv)
	a, out := newTestApp(t, testConfig(t, srv), "alice\nsecret\n")
	ctx := context.Background()

	require.ErrorIs(t, a.Show(ctx, []string{"1"}), errNotAllowed)
	require.NoError(t, a.Login(ctx))

	assert.Equal(t, nav.ProductPath(p.ID), a.nav.Current())
	assert.Contains(t, out.String(), "Name:")
	assert.Contains(t, out.String(), "Men's")
}

func TestApp_SessionSurvivesRestart(t *testing.T) {
	srv := apitest.NewServer(t)
	seedCatalog(srv)
	cfg := testConfig(t, srv)
	ctx := context.Background()

	first, _ := newTestApp(t, cfg, "alice\nsecret\n")
	require.NoError(t, first.Login(ctx))
	require.NoError(t, first.Close(ctx))

	second, out := newTestApp(t, cfg, "whoami\nexit\n")
	second.Run(ctx)
	second.session.Wait()

	s := out.String()
	assert.Contains(t, s, "Signed in as alice")
	assert.Contains(t, s, "alice <a@x.com>")
	assert.Contains(t, s, "storefront (alice /) > ")
	assert.True(t, second.isLoggedIn())
	assert.Equal(t, 1, srv.Calls(http.MethodGet, "/auth/me"))
}

func TestApp_RevokedSessionSignsOutOnRestart(t *testing.T) {
	srv := apitest.NewServer(t)
	seedCatalog(srv)
	cfg := testConfig(t, srv)
	ctx := context.Background()

	first, _ := newTestApp(t, cfg, "alice\nsecret\n")
	require.NoError(t, first.Login(ctx))
	require.NoError(t, first.Close(ctx))

	srv.RevokeTokens()
	second, out := newTestApp(t, cfg, "whoami\nexit\n")
	second.session.Wait()
	assert.False(t, second.isLoggedIn())

	second.Run(ctx)
	s := out.String()
	assert.Equal(t, 1, strings.Count(s, msgSessionEnded))
	assert.Contains(t, s, "Not logged in (anonymous)")
}

func TestApp_LogoutDoesNotReportEndedSession(t *testing.T) {
	srv := apitest.NewServer(t)
	seedCatalog(srv)
	a, out := newTestApp(t, testConfig(t, srv), "login\nalice\nsecret\nlogout\nexit\n")

	a.Run(context.Background())
	s := out.String()
	assert.Contains(t, s, "Logged out")
	assert.NotContains(t, s, msgSessionEnded)
}

func TestApp_REPLCreateAndList(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser("alice", "a@x.com", "secret")
	input := strings.Join([]string{
		"login", "alice", "secret",
		"add", "Scarf", "Warm scarf", "", "12.50", "y", "", "women",
		"products",
		"exit",
	}, "\n") + "\n"
	a, out := newTestApp(t, testConfig(t, srv), input)

	a.Run(context.Background())

	s := out.String()
	assert.Contains(t, s, "No products found")
	assert.Contains(t, s, "Product #1 created")
	assert.Contains(t, s, "Women's")
	assert.Contains(t, s, "$12.50")
	assert.True(t, strings.HasSuffix(s, "Bye!\n"))

	p, ok := srv.Product(1)
	require.True(t, ok)
	assert.Equal(t, "Scarf", p.Name)
	assert.Equal(t, "Warm scarf", p.Description)
	assert.True(t, p.InStock)
	assert.Equal(t, models.CategoryWomen, p.Category)
}

func TestApp_EditKeepsUnchangedFields(t *testing.T) {
	srv := apitest.NewServer(t)
	p := seedCatalog(srv)
	a, out := newTestApp(t, testConfig(t, srv), "alice\nsecret\n"+"\n\n20\nn\n\n\n")
	ctx := context.Background()
	require.NoError(t, a.Login(ctx))

	require.NoError(t, a.Edit(ctx, []string{"1"}))
	assert.Contains(t, out.String(), "Product #1 updated")
	assert.Equal(t, nav.RouteProducts, a.nav.Current())

	got, ok := srv.Product(p.ID)
	require.True(t, ok)
	assert.Equal(t, "Hat", got.Name)
	assert.Equal(t, 20.0, got.Price)
	assert.False(t, got.InStock)
	assert.Equal(t, models.CategoryMen, got.Category)
}

func TestApp_EditClearsOptionalFields(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.AddUser("alice", "a@x.com", "secret")
	p := srv.AddProduct(models.Product{
		Name: "Hat", Description: "Wool", ImageURL: "/img/hat.jpg",
		Price: 10, InStock: true, Category: models.CategoryMen,
	})
	a, _ := newTestApp(t, testConfig(t, srv), "alice\nsecret\n"+"\n-\n\n\n\n-\n\n")
	ctx := context.Background()
	require.NoError(t, a.Login(ctx))

	require.NoError(t, a.Edit(ctx, []string{"1"}))

	got, ok := srv.Product(p.ID)
	require.True(t, ok)
	assert.Equal(t, "Hat", got.Name)
	assert.Empty(t, got.Description)
	assert.Empty(t, got.ImageURL)
	assert.Equal(t, 10.0, got.Price)
	assert.True(t, got.InStock)
}

func TestApp_ProductsCategoryFilter(t *testing.T) {
	srv := apitest.NewServer(t)
	seedCatalog(srv)
	srv.AddProduct(models.Product{Name: "Dress", Price: 40, InStock: true, Category: models.CategoryWomen})
	a, out := newTestApp(t, testConfig(t, srv), "alice\nsecret\n")
	ctx := context.Background()
	require.NoError(t, a.Login(ctx))

	out.Reset()
	require.NoError(t, a.Products(ctx, []string{"--category", "Women"}))
	s := out.String()
	assert.Contains(t, s, "All (2)  Men's (1)  Women's (1)  General (0)")
	assert.Contains(t, s, "Dress")
	assert.NotContains(t, s, "Hat")

	out.Reset()
	require.NoError(t, a.Products(ctx, []string{"-c", "general", "0", "10"}))
	assert.Contains(t, out.String(), "No products in General")
	assert.NotContains(t, out.String(), "NAME")

	out.Reset()
	require.NoError(t, a.Products(ctx, []string{"--category", "all"}))
	assert.Contains(t, out.String(), "Hat")
	assert.Contains(t, out.String(), "Dress")
}

func TestApp_AddRejectsBadPriceLocally(t *testing.T) {
	srv := apitest.NewServer(t)
	seedCatalog(srv)
	a, out := newTestApp(t, testConfig(t, srv), "alice\nsecret\n"+"Socks\n\nabc\n")
	ctx := context.Background()
	require.NoError(t, a.Login(ctx))

	require.Error(t, a.Add(ctx))
	assert.Contains(t, out.String(), "Error: Price must be a number")
	assert.Zero(t, srv.Calls(http.MethodPost, "/products/"))
}

func TestApp_DeleteConfirmation(t *testing.T) {
	srv := apitest.NewServer(t)
	p := seedCatalog(srv)
	a, out := newTestApp(t, testConfig(t, srv), "alice\nsecret\n"+"n\n"+"y\n")
	ctx := context.Background()
	require.NoError(t, a.Login(ctx))

	require.NoError(t, a.Delete(ctx, []string{"1"}))
	assert.Contains(t, out.String(), "Cancelled")
	_, ok := srv.Product(p.ID)
	assert.True(t, ok)

	require.NoError(t, a.Delete(ctx, []string{"1"}))
	assert.Contains(t, out.String(), "Product deleted successfully")
	_, ok = srv.Product(p.ID)
	assert.False(t, ok)
}

func TestApp_ShowMissingProduct(t *testing.T) {
	srv := apitest.NewServer(t)
	seedCatalog(srv)
	a, out := newTestApp(t, testConfig(t, srv), "alice\nsecret\n")
	ctx := context.Background()
	require.NoError(t, a.Login(ctx))

	require.Error(t, a.Show(ctx, []string{"99"}))
	assert.Contains(t, out.String(), "Error: Product not found")
	assert.True(t, a.isLoggedIn())
}

func TestApp_ServerRejectsSessionMidway(t *testing.T) {
	srv := apitest.NewServer(t)
	p := seedCatalog(srv)
	a, out := newTestApp(t, testConfig(t, srv), "alice\nsecret\n"+"y\n"+"alice\nsecret\n")
	ctx := context.Background()
	require.NoError(t, a.Login(ctx))

	srv.RevokeTokens()
	require.Error(t, a.Delete(ctx, []string{"1"}))
	assert.Contains(t, out.String(), "Your session has ended")
	assert.False(t, a.isLoggedIn())
	assert.Equal(t, nav.RouteLogin, a.nav.Current())

	_, ok := srv.Product(p.ID)
	assert.True(t, ok)

	require.NoError(t, a.Login(ctx))
	assert.Equal(t, nav.ProductPath(p.ID), a.nav.Current())
	assert.Equal(t, 1, strings.Count(out.String(), msgSessionEnded))
	assert.Empty(t, a.takeNotice())
}

func TestApp_LoginFailure(t *testing.T) {
	srv := apitest.NewServer(t)
	seedCatalog(srv)
	a, out := newTestApp(t, testConfig(t, srv), "alice\nwrong\n")

	require.Error(t, a.Login(context.Background()))
	assert.Contains(t, out.String(), "Error: Incorrect username or password")
	assert.Equal(t, nav.AuthFailed, a.session.State().Status)
	assert.False(t, a.isLoggedIn())
}

func TestApp_Register(t *testing.T) {
	t.Run("password mismatch stays local", func(t *testing.T) {
		srv := apitest.NewServer(t)
		a, out := newTestApp(t, testConfig(t, srv), "bob\nb@x.com\n\nabcdef\nabcdeg\n")

		require.ErrorIs(t, a.Register(context.Background()), errPasswordMismatch)
		assert.Contains(t, out.String(), "Passwords do not match")
		assert.Zero(t, srv.TotalCalls())
	})

	t.Run("validation stays local", func(t *testing.T) {
		srv := apitest.NewServer(t)
		a, out := newTestApp(t, testConfig(t, srv), "bob\nb@x.com\n\nabc\nabc\n")

		require.Error(t, a.Register(context.Background()))
		assert.Contains(t, out.String(), "Password must be at least 6 characters long")
		assert.Zero(t, srv.TotalCalls())
	})

	t.Run("creates account and signs in", func(t *testing.T) {
		srv := apitest.NewServer(t)
		a, out := newTestApp(t, testConfig(t, srv), "bob\nb@x.com\nBob B.\nabcdef\nabcdef\n")

		require.NoError(t, a.Register(context.Background()))
		assert.Contains(t, out.String(), "Account created. Welcome, Bob B.!")
		assert.True(t, a.isLoggedIn())
		assert.Equal(t, nav.RouteProducts, a.nav.Current())
	})

	t.Run("duplicate account", func(t *testing.T) {
		srv := apitest.NewServer(t)
		srv.AddUser("bob", "b@x.com", "abcdef")
		a, out := newTestApp(t, testConfig(t, srv), "bob\nb@x.com\n\nabcdef\nabcdef\n")

		require.Error(t, a.Register(context.Background()))
		assert.Contains(t, out.String(), "Error: Username or email already registered")
		assert.Equal(t, nav.AuthFailed, a.session.State().Status)
	})
}

func TestApp_LogoutAndHome(t *testing.T) {
	srv := apitest.NewServer(t)
	seedCatalog(srv)
	a, out := newTestApp(t, testConfig(t, srv), "alice\nsecret\n")
	ctx := context.Background()

	require.NoError(t, a.Logout(ctx))
	assert.Contains(t, out.String(), "Not logged in")

	require.NoError(t, a.Login(ctx))
	require.NoError(t, a.Home(ctx))
	assert.Contains(t, out.String(), "Welcome back, alice!")

	require.NoError(t, a.Logout(ctx))
	assert.Contains(t, out.String(), "Logged out")
	assert.Equal(t, nav.RouteHome, a.nav.Current())
	assert.False(t, a.isLoggedIn())

	require.NoError(t, a.WhoAmI(ctx))
	assert.Contains(t, out.String(), "Not logged in (anonymous)")
}

func TestApp_UsageErrors(t *testing.T) {
	srv := apitest.NewServer(t)
	a, out := newTestApp(t, testConfig(t, srv), "")
	ctx := context.Background()

	require.ErrorIs(t, a.Products(ctx, []string{"x"}), errUsage)
	require.ErrorIs(t, a.Products(ctx, []string{"1", "2", "3"}), errUsage)
	require.ErrorIs(t, a.Products(ctx, []string{"--category", "kids"}), errUsage)
	require.ErrorIs(t, a.Products(ctx, []string{"--category"}), errUsage)
	require.ErrorIs(t, a.Show(ctx, nil), errUsage)
	require.Error(t, a.Edit(ctx, []string{"abc"}))
	assert.Contains(t, out.String(), "Usage: show <id>")
	assert.Contains(t, out.String(), `invalid product id "abc"`)
	assert.Zero(t, srv.TotalCalls())
}

func TestNewApp_SealedSessionAndMetrics(t *testing.T) {
	srv := apitest.NewServer(t)
	seedCatalog(srv)
	cfg := testConfig(t, srv)
	cfg.SealSession = true
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.RequestsPerSecond = 50

	a, _ := newTestApp(t, cfg, "alice\nsecret\n")
	require.NoError(t, a.Login(context.Background()))

	_, err := os.Stat(cfg.KeyPath())
	require.NoError(t, err)
	require.NotNil(t, a.metrics)
}

func TestNewApp_Errors(t *testing.T) {
	srv := apitest.NewServer(t)

	t.Run("bad base url", func(t *testing.T) {
		cfg := testConfig(t, srv)
		cfg.APIBaseURL = "ftp://example.com"
		_, err := NewApp(context.Background(), cfg, logging.NewNop(), strings.NewReader(""), &bytes.Buffer{})
		require.Error(t, err)
	})

	t.Run("missing openapi document", func(t *testing.T) {
		cfg := testConfig(t, srv)
		cfg.OpenAPISpec = cfg.DataDir + "/missing.yaml"
		_, err := NewApp(context.Background(), cfg, logging.NewNop(), strings.NewReader(""), &bytes.Buffer{})
		require.Error(t, err)
	})
}
