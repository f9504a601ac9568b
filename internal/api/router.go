package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/canteen-order/internal/api/middleware"
	"github.com/example/canteen-order/internal/auth"
)

func NewRouter(handlers *Handlers, jwtService *auth.JWTService) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.AuthMiddleware(jwtService)

	// The gateway callback carries a service token, not a student token.
	recordResult := middleware.RequireRole("gateway", "ops")(http.HandlerFunc(handlers.RecordTransactionResult))

	mux.Handle("/group-orders", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.ListGroupOrders(w, r)
		case http.MethodPost:
			handlers.CreateGroupOrder(w, r)
		default:
			respondErrorJSON(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/group-orders/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		switch {
		case len(segments) == 2 && r.Method == http.MethodGet:
			handlers.GetGroupOrder(w, r)
		case len(segments) == 3 && segments[2] == "join" && r.Method == http.MethodPost:
			handlers.JoinGroupOrder(w, r)
		case len(segments) == 3 && segments[2] == "items" && r.Method == http.MethodPost:
			handlers.SetItem(w, r)
		case len(segments) == 4 && segments[2] == "items" && r.Method == http.MethodPut:
			handlers.UpdateItemQuantity(w, r)
		case len(segments) == 4 && segments[2] == "items" && r.Method == http.MethodDelete:
			handlers.RemoveItem(w, r)
		case len(segments) == 3 && segments[2] == "split" && r.Method == http.MethodPut:
			handlers.SetSplitType(w, r)
		case len(segments) == 3 && segments[2] == "amounts" && r.Method == http.MethodPut:
			handlers.SetAmount(w, r)
		case len(segments) == 3 && segments[2] == "payer" && r.Method == http.MethodPut:
			handlers.SetPayer(w, r)
		case len(segments) == 3 && segments[2] == "payment" && r.Method == http.MethodPost:
			handlers.InitiatePayment(w, r)
		case len(segments) == 4 && segments[2] == "payment" && segments[3] == "result" && r.Method == http.MethodPost:
			recordResult.ServeHTTP(w, r)
		default:
			respondErrorJSON(w, "not found", http.StatusNotFound)
		}
	})))

	mux.Handle("/invites/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondErrorJSON(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handlers.ResolveInvite(w, r)
	})))

	mux.Handle("/menu", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondErrorJSON(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handlers.GetMenu(w, r)
	})))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.Metrics(withLogging(mux))
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
