// Package apitest runs an in-memory storefront API for tests. It mirrors the
// real server's routes, payloads and error details closely enough to drive
// the client end to end.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/storefront/internal/client/models"
	"github.com/dmitrijs2005/storefront/internal/common"
)

type account struct {
	user     models.User
	password string
}

type override struct {
	status int
	body   any
}

// Server is a fake storefront API listening on a loopback port.
type Server struct {
	*httptest.Server
	t testing.TB

	mu            sync.Mutex
	accounts      map[string]*account
	tokens        map[string]int64
	products      map[int64]models.Product
	nextUserID    int64
	nextProductID int64
	nextToken     int
	overrides     map[string]override
	calls         map[string]int
	lastAuth      map[string]string
	meGate        chan struct{}
}

// NewServer starts a server that is closed when t finishes.
func NewServer(t testing.TB) *Server {
	s := &Server{
		t:         t,
		accounts:  map[string]*account{},
		tokens:    map[string]int64{},
		products:  map[int64]models.Product{},
		overrides: map[string]override{},
		calls:     map[string]int{},
		lastAuth:  map[string]string{},
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.With(s.requireAuth).Get("/me", s.me)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.listProducts)
		r.Get("/{id}", s.getProduct)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.createProduct)
			r.Put("/{id}", s.updateProduct)
			r.Delete("/{id}", s.deleteProduct)
		})
	})
	return r
}

// AddUser registers an account directly.
func (s *Server) AddUser(username, email, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, email, "", password)
}

func (s *Server) addUserLocked(username, email, fullName, password string) models.User {
	s.nextUserID++
	u := models.User{ID: s.nextUserID, Username: username, Email: email, FullName: fullName}
	s.accounts[username] = &account{user: u, password: password}
	return u
}

// IssueToken returns a fresh valid token for username.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(s.accounts[username].user.ID)
}

func (s *Server) issueTokenLocked(userID int64) string {
	s.nextToken++
	tok := "tok" + strconv.Itoa(s.nextToken)
	s.tokens[tok] = userID
	return tok
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]int64{}
}

// RevokeToken invalidates a single token.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func (s *Server) AddProduct(p models.Product) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProductID++
	p.ID = s.nextProductID
	s.products[p.ID] = p
	return p
}

func (s *Server) Product(id int64) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

// Override makes method+path answer status with body (JSON encoded unless it
// is a string, which is written raw).
func (s *Server) Override(method, path string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = override{status: status, body: body}
}

// Calls counts the requests received for method+path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// TotalCalls counts every request received.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// LastAuthorization is the Authorization header of the last method+path call.
func (s *Server) LastAuthorization(method, path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth[method+" "+path]
}

// HoldMe blocks /auth/me until the returned release func is called. Held
// requests are released automatically before the server closes.
func (s *Server) HoldMe() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.meGate = gate
	s.mu.Unlock()

	var once sync.Once
	release = func() { once.Do(func() { close(gate) }) }
	s.t.Cleanup(release)
	return release
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		s.mu.Lock()
		s.calls[key]++
		s.lastAuth[key] = r.Header.Get(common.AuthorizationHeaderName)
		ov, ok := s.overrides[key]
		s.mu.Unlock()

		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if str, isStr := ov.body.(string); isStr {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(ov.status)
			_, _ = w.Write([]byte(str))
			return
		}
		writeJSON(w, ov.status, ov.body)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get(common.AuthorizationHeaderName)
		if !strings.HasPrefix(h, common.BearerPrefix) {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		s.mu.Lock()
		_, ok := s.tokens[strings.TrimPrefix(h, common.BearerPrefix)]
		s.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) userFor(r *http.Request) (models.User, bool) {
	token := strings.TrimPrefix(r.Header.Get(common.AuthorizationHeaderName), common.BearerPrefix)

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	if !ok {
		return models.User{}, false
	}
	for _, a := range s.accounts {
		if a.user.ID == id {
			return a.user, true
		}
	}
	return models.User{}, false
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "invalid body"}},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.user.Username == reg.Username || a.user.Email == reg.Email {
			writeDetail(w, http.StatusBadRequest, "Username or email already registered")
			return
		}
	}
	writeJSON(w, http.StatusOK, s.addUserLocked(reg.Username, reg.Email, reg.FullName, reg.Password))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[username]
	if !ok || a.password != password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	writeJSON(w, http.StatusOK, models.LoginResponse{
		AccessToken: s.issueTokenLocked(a.user.ID),
		TokenType:   "bearer",
		User:        a.user,
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	gate := s.meGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	u, ok := s.userFor(r)
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	s.mu.Lock()
	all := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		all = append(all, p)
	}
	s.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if skip > len(all) {
		skip = len(all)
	}
	end := skip + limit
	if end > len(all) {
		end = len(all)
	}
	writeJSON(w, http.StatusOK, all[skip:end])
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(w, r)
	if ok {
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.AddProduct(fromInput(0, in)))
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	updated := fromInput(p.ID, in)

	s.mu.Lock()
	s.products[p.ID] = updated
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.products, p.ID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.DeleteResponse{Message: "Product deleted successfully"})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (models.Product, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid product id")
		return models.Product{}, false
	}
	p, ok := s.Product(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Product not found")
		return models.Product{}, false
	}
	return p, true
}

func decodeInput(w http.ResponseWriter, r *http.Request) (models.ProductInput, bool) {
	var in models.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid body: %v", err))
		return in, false
	}
	return in.Normalize(), true
}

func fromInput(id int64, in models.ProductInput) models.Product {
	return models.Product{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		InStock:     in.InStock == nil || *in.InStock,
		ImageURL:    in.ImageURL,
		Category:    in.Category,
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
