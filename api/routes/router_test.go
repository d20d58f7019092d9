package routes

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/api/controllers"
	"github.com/angelmondragon/moviestore/internal/auth"
	"github.com/angelmondragon/moviestore/internal/cart"
	"github.com/angelmondragon/moviestore/internal/checkout"
	"github.com/angelmondragon/moviestore/internal/movies"
	"github.com/angelmondragon/moviestore/internal/orders"
	"github.com/angelmondragon/moviestore/internal/petitions"
	"github.com/angelmondragon/moviestore/internal/reviews"
	"github.com/angelmondragon/moviestore/internal/users"
	"github.com/angelmondragon/moviestore/pkg/auth/session"
	"github.com/angelmondragon/moviestore/pkg/config"
	"github.com/angelmondragon/moviestore/pkg/db/dbtest"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	"github.com/angelmondragon/moviestore/pkg/logger"
	"github.com/angelmondragon/moviestore/pkg/metrics"
	"github.com/angelmondragon/moviestore/pkg/outbox"
)

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		Session: config.SessionConfig{
			Secret:     "router-test-secret",
			TTL:        time.Hour,
			CookieName: "moviestore_session",
		},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    1024,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
	}
}

type testApp struct {
	conn   *gorm.DB
	server *httptest.Server
	client *http.Client
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := testConfig()
	logg := logger.Nop()
	dbClient, conn := dbtest.OpenClient(t)

	manager, err := session.NewManager(session.NewMemoryStore(), cfg.Session)
	require.NoError(t, err)

	userRepo := users.NewRepository(conn)
	movieRepo := movies.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	authSvc, err := auth.NewService(auth.ServiceParams{UserRepo: userRepo})
	require.NoError(t, err)
	registerSvc, err := auth.NewRegisterService(auth.RegisterServiceParams{DB: dbClient, PasswordConfig: cfg.Password})
	require.NoError(t, err)
	movieSvc, err := movies.NewService(movieRepo)
	require.NoError(t, err)
	reviewSvc, err := reviews.NewService(reviews.ServiceParams{
		DB: dbClient, Repo: reviews.NewRepository(conn), Movies: movieRepo, Emitter: emitter,
	})
	require.NoError(t, err)
	cartSvc, err := cart.NewService(movieRepo)
	require.NoError(t, err)
	ordersRepo := orders.NewRepository(conn)
	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		DB: dbClient, Cart: cartSvc, OrdersRepo: ordersRepo, Outbox: emitter,
	})
	require.NoError(t, err)
	ordersSvc, err := orders.NewService(ordersRepo)
	require.NoError(t, err)
	petitionSvc, err := petitions.NewService(petitions.ServiceParams{
		DB: dbClient, Repo: petitions.NewRepository(conn), Emitter: emitter,
	})
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	handler := NewRouter(cfg, logg, Infra{
		Sessions:       manager,
		Users:          userRepo,
		Metrics:        metrics.NewStoreMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Ready:          map[string]controllers.Pinger{"db": dbClient},
	}, Services{
		Auth:      authSvc,
		Register:  registerSvc,
		Movies:    movieSvc,
		Reviews:   reviewSvc,
		Cart:      cartSvc,
		Checkout:  checkoutSvc,
		Orders:    ordersSvc,
		Petitions: petitionSvc,
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testApp{conn: conn, server: server, client: client}
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Get(a.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// post fetches a CSRF token from csrfFrom before submitting the form.
func (a *testApp) post(t *testing.T, csrfFrom, path string, values url.Values) *http.Response {
	t.Helper()
	_, page := a.get(t, csrfFrom)
	match := csrfPattern.FindStringSubmatch(page)
	require.Len(t, match, 2, "no csrf token on %s", csrfFrom)

	if values == nil {
		values = url.Values{}
	}
	values.Set("csrf_token", match[1])
	resp, err := a.client.PostForm(a.server.URL+path, values)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp
}

func (a *testApp) signup(t *testing.T, username string) {
	t.Helper()
	resp := a.post(t, "/signup/", "/signup/", url.Values{
		"username":  {username},
		"email":     {username + "@example.com"},
		"password1": {"popcorn-night-42"},
		"password2": {"popcorn-night-42"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/movies/", resp.Header.Get("Location"))
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get(t, "/health/live")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"live"`)

	resp, body = app.get(t, "/health/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"db":"ok"`)
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.get(t, "/orders/")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login/?next="+url.QueryEscape("/orders/"), resp.Header.Get("Location"))
}

func TestUnknownMovieRendersNotFound(t *testing.T) {
	app := newTestApp(t)

	resp, _ := app.get(t, "/movies/not-a-uuid/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPostWithoutCSRFIsForbidden(t *testing.T) {
	app := newTestApp(t)
	movie := dbtest.MustCreateMovie(t, app.conn, "Heat", "9.99")

	resp, err := app.client.PostForm(app.server.URL+"/cart/add/"+movie.ID.String()+"/", url.Values{})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestShoppingFlow(t *testing.T) {
	app := newTestApp(t)
	alien := dbtest.MustCreateMovie(t, app.conn, "Alien", "10.00")
	brazil := dbtest.MustCreateMovie(t, app.conn, "Brazil", "5.00")

	alienPath := "/movies/" + alien.ID.String() + "/"

	resp := app.post(t, alienPath, "/cart/add/"+alien.ID.String()+"/", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	app.post(t, alienPath, "/cart/add/"+alien.ID.String()+"/", nil)
	app.post(t, alienPath, "/cart/add/"+brazil.ID.String()+"/", nil)

	_, body := app.get(t, "/cart/")
	assert.Contains(t, body, "Alien")
	assert.Contains(t, body, "25.00")

	// The anonymous cart survives signing up.
	app.signup(t, "ripley")
	_, body = app.get(t, "/cart/")
	assert.Contains(t, body, "25.00")

	resp = app.post(t, "/cart/", "/checkout/", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/orders/", resp.Header.Get("Location"))

	_, body = app.get(t, "/orders/")
	assert.Contains(t, body, "25.00")

	_, body = app.get(t, "/cart/")
	assert.Contains(t, body, "Your cart is empty")

	var count int64
	require.NoError(t, app.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCheckoutEmptyCartRedirectsBack(t *testing.T) {
	app := newTestApp(t)
	app.signup(t, "dallas")

	resp := app.post(t, "/cart/", "/checkout/", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/cart/", resp.Header.Get("Location"))
}

func TestReviewAndReportFlow(t *testing.T) {
	app := newTestApp(t)
	movie := dbtest.MustCreateMovie(t, app.conn, "Solaris", "7.50")
	author := dbtest.MustCreateUser(t, app.conn, "kelvin")
	dbtest.MustCreateReview(t, app.conn, movie.ID, author.ID, 5, "Haunting and slow.")
	moviePath := "/movies/" + movie.ID.String() + "/"

	app.signup(t, "snaut")
	_, body := app.get(t, moviePath)
	assert.Contains(t, body, "Haunting and slow.")

	resp := app.post(t, moviePath, "/reviews/add/"+movie.ID.String()+"/", url.Values{"rating": {"9"}, "text": {"Great"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.post(t, moviePath, "/reviews/add/"+movie.ID.String()+"/", url.Values{"rating": {"4"}, "text": {"Long but rewarding."}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, moviePath, resp.Header.Get("Location"))

	var reviewID string
	require.NoError(t, app.conn.Model(&models.Review{}).
		Select("id").Where("text = ?", "Haunting and slow.").Scan(&reviewID).Error)

	resp = app.post(t, moviePath, "/reviews/"+reviewID+"/report/", url.Values{"reason": {"spoilers"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	_, body = app.get(t, moviePath)
	assert.NotContains(t, body, "Haunting and slow.")
	assert.Contains(t, body, "Long but rewarding.")

	// Someone else's review cannot be edited.
	resp, _ = app.get(t, "/reviews/"+reviewID+"/edit/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPetitionFlow(t *testing.T) {
	app := newTestApp(t)
	app.signup(t, "tarkovsky")

	resp := app.post(t, "/petitions/", "/petitions/", url.Values{"movie_title": {"Stalker"}, "description": {"A classic."}})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var petition models.Petition
	require.NoError(t, app.conn.Where("movie_title = ?", "Stalker").First(&petition).Error)

	resp = app.post(t, "/petitions/", "/petitions/"+petition.ID.String()+"/vote/", url.Values{"vote_type": {"yes"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	_, body := app.get(t, "/petitions/")
	assert.Contains(t, body, "Yes: 1 | No: 0 | Total: 1")

	resp = app.post(t, "/petitions/", "/petitions/"+petition.ID.String()+"/delete/", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	_, body = app.get(t, "/petitions/")
	assert.NotContains(t, body, "Stalker")
}

func TestLogoutDropsSessionAndCart(t *testing.T) {
	app := newTestApp(t)
	movie := dbtest.MustCreateMovie(t, app.conn, "Ran", "8.00")
	app.signup(t, "hidetora")
	app.post(t, "/movies/"+movie.ID.String()+"/", "/cart/add/"+movie.ID.String()+"/", nil)

	resp := app.post(t, "/cart/", "/logout/", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	_, body := app.get(t, "/cart/")
	assert.Contains(t, body, "Your cart is empty")
	assert.True(t, strings.Contains(body, `href="/login/"`))
}

func TestMetricsEndpointExposesCounters(t *testing.T) {
	app := newTestApp(t)
	app.get(t, "/movies/")

	_, body := app.get(t, "/metrics")
	assert.Contains(t, body, "moviestore_http_requests_total")
}

