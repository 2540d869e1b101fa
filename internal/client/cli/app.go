package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/storefront/internal/client/client"
	"github.com/dmitrijs2005/storefront/internal/client/config"
	"github.com/dmitrijs2005/storefront/internal/client/nav"
	"github.com/dmitrijs2005/storefront/internal/client/services"
	"github.com/dmitrijs2005/storefront/internal/client/session"
	"github.com/dmitrijs2005/storefront/internal/cryptox"
	"github.com/dmitrijs2005/storefront/internal/filex"
	"github.com/dmitrijs2005/storefront/internal/logging"
)

const (
	metricsShutdownTimeout = 5 * time.Second

	msgSessionEnded = "Your session has ended. Please log in again."
)

// App is the interactive storefront client: the session, the product facade
// and the navigator behind the REPL.
type App struct {
	config   *config.Config
	log      logging.Logger
	db       *sql.DB
	session  *services.SessionManager
	products services.ProductService
	nav      *nav.Navigator
	reader   *bufio.Reader
	out      io.Writer

	metrics     *http.Server
	cancel      context.CancelFunc
	unsubscribe func()

	// notice is set from session transitions, which may happen on the
	// revalidation goroutine, and printed by the REPL before the next prompt.
	noticeMu   sync.Mutex
	lastStatus nav.Status
	notice     string
}

// NewApp opens the local database, wires the HTTP stack and starts session
// restoration. The returned App must be closed.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	dir, err := filex.EnsureDir(c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("error creating data directory: %w", err)
	}
	c.DataDir = dir

	db, err := client.InitDatabase(ctx, c.DatabasePath())
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	storeOpts := []session.Option{session.WithLogger(log)}
	if c.SealSession {
		sealer, err := loadSealer(c.KeyPath())
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		storeOpts = append(storeOpts, session.WithSealer(sealer))
	}
	store := session.NewSQLiteStore(db, storeOpts...)

	navigator := nav.NewNavigator()
	policy := client.NewUnauthorizedPolicy(store, navigator, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	hooks := []client.RequestHook{client.RequestID(), client.BearerToken(store)}
	if limiter := client.NewLimiter(c.RequestsPerSecond); limiter != nil {
		hooks = append(hooks, client.Throttle(limiter))
	}

	handlers := []client.ResponseHandler{client.NewMetrics(reg).Handle, client.NetworkErrorLogger(log)}
	if c.OpenAPISpec != "" {
		v, err := client.NewContractValidator(ctx, c.OpenAPISpec, c.APIBaseURL, log)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("error loading openapi document: %w", err)
		}
		handlers = append(handlers, v.Handle)
	}
	handlers = append(handlers, policy.Handle)

	hc, err := client.NewHTTPClient(c.APIBaseURL,
		client.WithTimeout(c.RequestTimeout),
		client.WithLogger(log),
		client.WithRequestHooks(hooks...),
		client.WithResponseHandlers(handlers...),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	rest := client.NewRESTClient(hc)
	runCtx, cancel := context.WithCancel(ctx)

	manager := services.NewSessionManager(runCtx, services.NewAuthService(rest, store),
		services.WithManagerLogger(log))
	policy.Subscribe(manager.HandleUnauthorized)

	a := &App{
		config:   c,
		log:      log,
		db:       db,
		session:  manager,
		products: services.NewProductService(rest),
		nav:      navigator,
		reader:   bufio.NewReader(in),
		out:      out,
		cancel:   cancel,
	}

	a.lastStatus = manager.State().Status
	a.unsubscribe = manager.Subscribe(a.onSessionChange)

	if c.MetricsAddr != "" {
		a.metrics = a.serveMetrics(runCtx, c.MetricsAddr, reg)
	}

	manager.Start(runCtx)
	return a, nil
}

func loadSealer(keyPath string) (*cryptox.Sealer, error) {
	key, err := cryptox.LoadOrCreateKey(keyPath)
	if err != nil {
		return nil, fmt.Errorf("error loading session key: %w", err)
	}
	return cryptox.NewSealer(key)
}

func (a *App) serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		a.log.Info(ctx, "serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error(ctx, "metrics server failed", "error", err)
		}
	}()
	return srv
}

// Run blocks in the REPL until the user exits, input ends or ctx is done.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to Storefront CLI (type 'help' for commands)")
	if st := a.session.State(); st.User != nil {
		fmt.Fprintf(a.out, "Signed in as %s\n", st.User.DisplayName())
	}
	runREPL(ctx, a, a.promptStatus, a.reader, a.out)
}

// onSessionChange queues a notice when a signed-in session ends without the
// user asking for it.
func (a *App) onSessionChange(st services.State) {
	a.noticeMu.Lock()
	defer a.noticeMu.Unlock()
	if a.lastStatus == nav.Authenticated && st.Status == nav.Anonymous {
		a.notice = msgSessionEnded
	}
	a.lastStatus = st.Status
}

// takeNotice returns and clears the pending notice.
func (a *App) takeNotice() string {
	a.noticeMu.Lock()
	defer a.noticeMu.Unlock()
	n := a.notice
	a.notice = ""
	return n
}

func (a *App) promptStatus() string {
	if n := a.takeNotice(); n != "" {
		fmt.Fprintln(a.out, n)
	}
	return a.getStatus()
}

// Close stops background work and releases the database.
func (a *App) Close(ctx context.Context) error {
	a.cancel()
	a.session.Wait()
	a.unsubscribe()

	if a.metrics != nil {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		if err := a.metrics.Shutdown(sctx); err != nil {
			a.log.Warn(ctx, "metrics server shutdown", "error", err)
		}
	}
	return a.db.Close()
}

func (a *App) isLoggedIn() bool {
	return a.session.State().Status == nav.Authenticated
}

// getStatus renders the prompt status: the user, if any, and the current route.
func (a *App) getStatus() string {
	s := a.nav.Current()
	if st := a.session.State(); st.User != nil {
		s = st.User.Username + " " + s
	}
	return fmt.Sprintf("(%s) ", s)
}
