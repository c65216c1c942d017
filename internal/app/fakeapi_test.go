package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

type account struct {
	password string
	subject  string
	name     string
	role     string
}

// fakeAPI is an in-process stand-in for the store backend.
type fakeAPI struct {
	mu           sync.Mutex
	accounts     map[string]account
	orders       []map[string]any
	orderKeys    []string
	statusCalls  []map[string]int
	rejectOrders bool
}

func newFakeAPI(t *testing.T) (*fakeAPI, string) {
	t.Helper()
	f := &fakeAPI{
		accounts: map[string]account{
			"ana":   {password: "pw", subject: "cust-1", name: "Ana Lopez", role: "User"},
			"admin": {password: "pw", subject: "adm-1", name: "Root", role: "Admin"},
		},
	}
	srv := httptest.NewServer(f.routes())
	t.Cleanup(srv.Close)
	return f, srv.URL + "/api"
}

func (f *fakeAPI) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/authenticate/login", f.login)
		r.Get("/products", func(w http.ResponseWriter, r *http.Request) {
			search := strings.ToLower(r.URL.Query().Get("search"))
			if search == "" {
				writeJSON(w, http.StatusOK, fakeProducts)
				return
			}
			items := []map[string]any{}
			for _, p := range fakeProducts {
				if strings.Contains(strings.ToLower(p["name"].(string)), search) {
					items = append(items, p)
				}
			}
			writeJSON(w, http.StatusOK, map[string]any{"productItems": items, "total": len(items)})
		})
		r.Get("/products/admin", f.requireRole("Admin", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"productItems": fakeProducts[:1], "total": 57})
		}))
		r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
			for _, p := range fakeProducts {
				if p["id"] == chi.URLParam(r, "id") {
					writeJSON(w, http.StatusOK, p)
					return
				}
			}
			writeJSON(w, http.StatusNotFound, "Producto no encontrado")
		})
		r.Get("/orders", f.requireRole("", f.listOrders))
		r.Post("/orders", f.requireRole("", f.createOrder))
		r.Put("/orders/{id}/status", f.requireRole("Admin", f.updateStatus))
	})
	return r
}

var fakeProducts = []map[string]any{
	{"id": "1", "sku": "MUG", "name": "Mug", "currentUnitPrice": 10.0, "stockQuantity": 5, "isActive": true},
	{"id": "2", "sku": "TEA", "name": "Tea", "currentUnitPrice": 4.5, "stockQuantity": 50, "isActive": true},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&creds)

	f.mu.Lock()
	acc, ok := f.accounts[creds.Username]
	f.mu.Unlock()
	if !ok || acc.password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, "Usuario o contraseña incorrectos")
		return
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":         acc.subject,
		"unique_name": acc.name,
		"role":        acc.role,
		"exp":         time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("fake-api-secret"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (f *fakeAPI) requireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return []byte("fake-api-secret"), nil
		})
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if role != "" && claims["role"] != role {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (f *fakeAPI) listOrders(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectOrders {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token revoked"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{
		{"id": "ord-1", "customerName": "Ana Lopez", "status": 1, "totalAmount": 24.5},
		{"id": "ord-2", "customerName": "Juan Perez", "status": 3, "totalAmount": 10},
	}})
}

func (f *fakeAPI) createOrder(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectOrders {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token revoked"})
		return
	}
	f.orders = append(f.orders, body)
	f.orderKeys = append(f.orderKeys, r.Header.Get("Idempotency-Key"))
	writeJSON(w, http.StatusCreated, map[string]any{"id": "ord-1", "status": 1})
}

func (f *fakeAPI) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body map[string]int
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, body)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeAPI) setRejectOrders(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectOrders = v
}

func (f *fakeAPI) placedOrders() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.orders...)
}
