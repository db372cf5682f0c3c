package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"google.golang.org/api/idtoken"

	"museum/api"
	"museum/roster"
	"museum/solver"
)

//go:embed schema.sql
var schema string

// solveLimits bounds the work one solve request may cause.
type solveLimits struct {
	timeout time.Duration
	params  solver.Params
	limiter *rate.Limiter
}

func main() {
	for _, key := range []string{"PGCONN", "CLIENT_ID", "CLIENT_SECRET", "ADMINS"} {
		if os.Getenv(key) == "" {
			fatal(key + " environment variable is required")
		}
	}

	limits, err := loadSolveLimits()
	if err != nil {
		fatal("invalid solve settings", "error", err)
	}

	db, err := sql.Open("postgres", os.Getenv("PGCONN"))
	if err != nil {
		fatal("failed to open database", "error", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fatal("failed to connect to database", "error", err)
	}
	slog.Info("connected to database")

	if _, err := db.Exec(schema); err != nil {
		fatal("failed to apply schema", "error", err)
	}

	http.HandleFunc("POST /auth/google/callback", handleGoogleCallback)
	http.HandleFunc("GET /api/admin/check", handleAdminCheck)
	http.HandleFunc("GET /api/museums", handleListMuseums(db))
	http.HandleFunc("POST /api/museums", handleCreateMuseum(db))
	http.HandleFunc("DELETE /api/museums/{museumID}", handleDeleteMuseum(db))
	http.HandleFunc("POST /api/museums/{museumID}/admins", handleAddMuseumAdmin(db))
	http.HandleFunc("DELETE /api/museums/{museumID}/admins/{adminID}", handleRemoveMuseumAdmin(db))
	http.HandleFunc("GET /api/museums/{museumID}/members", handleListMembers(db))
	http.HandleFunc("PUT /api/museums/{museumID}/members", handlePutMembers(db))
	http.HandleFunc("DELETE /api/museums/{museumID}/members/{name}", handleDeleteMember(db))
	http.HandleFunc("GET /api/museums/{museumID}/zones", handleListZones(db))
	http.HandleFunc("PUT /api/museums/{museumID}/zones", handlePutZones(db))
	http.HandleFunc("PATCH /api/museums/{museumID}/zones/{name}", handlePatchZone(db))
	http.HandleFunc("DELETE /api/museums/{museumID}/zones/{name}", handleDeleteZone(db))
	http.HandleFunc("GET /api/museums/{museumID}/export", handleExport(db))
	http.HandleFunc("PUT /api/museums/{museumID}/roster", handleImport(db))
	http.HandleFunc("POST /api/museums/{museumID}/solve", handleSolve(db, limits))
	http.Handle("GET /metrics", promhttp.Handler())
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "db unhealthy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ok")
	})

	slog.Info("listening", "addr", ":8080",
		"solve_timeout", limits.timeout, "max_states", limits.params.MaxStates)
	if err := http.ListenAndServe(":8080", nil); err != nil {
		fatal("server stopped", "error", err)
	}
}

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

// loadSolveLimits reads SOLVE_TIMEOUT, MAX_STATES and SOLVES_PER_SECOND.
func loadSolveLimits() (solveLimits, error) {
	limits := solveLimits{
		timeout: 10 * time.Second,
		params:  solver.Params{MaxStates: 500_000},
		limiter: rate.NewLimiter(rate.Limit(2), 4),
	}
	if v := os.Getenv("SOLVE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return limits, fmt.Errorf("SOLVE_TIMEOUT: %q is not a positive duration", v)
		}
		limits.timeout = d
	}
	if v := os.Getenv("MAX_STATES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return limits, fmt.Errorf("MAX_STATES: %q is not a positive number", v)
		}
		limits.params.MaxStates = n
	}
	if v := os.Getenv("SOLVES_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return limits, fmt.Errorf("SOLVES_PER_SECOND: %q is not a positive number", v)
		}
		limits.limiter = rate.NewLimiter(rate.Limit(f), max(1, int(2*f)))
	}
	return limits, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	credential := r.FormValue("credential")
	if credential == "" {
		http.Error(w, "missing credential", http.StatusBadRequest)
		return
	}

	payload, err := idtoken.Validate(r.Context(), credential, os.Getenv("CLIENT_ID"))
	if err != nil {
		slog.Warn("failed to validate token", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		http.Error(w, "token has no email", http.StatusUnauthorized)
		return
	}

	writeJSON(w, map[string]any{
		"email":   email,
		"name":    payload.Claims["name"],
		"picture": payload.Claims["picture"],
		"token":   signEmail(email),
	})
}

func signEmail(email string) string {
	h := hmac.New(sha256.New, []byte(os.Getenv("CLIENT_SECRET")))
	h.Write([]byte(email))
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return base64.RawURLEncoding.EncodeToString([]byte(email)) + "." + sig
}

func authorize(r *http.Request) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return "", false
	}
	emailBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", false
	}
	email := string(emailBytes)
	if !hmac.Equal([]byte(signEmail(email)), []byte(token)) {
		return "", false
	}
	return email, true
}

func isAdmin(email string) bool {
	return slices.ContainsFunc(strings.Split(os.Getenv("ADMINS"), ","), func(a string) bool {
		return strings.TrimSpace(a) == email
	})
}

func requireAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := authorize(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	if !isAdmin(email) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return "", false
	}
	return email, true
}

func isMuseumAdmin(db *sql.DB, email string, museumID int64) bool {
	var exists bool
	db.QueryRow("SELECT EXISTS(SELECT 1 FROM museum_admins WHERE museum_id = $1 AND email = $2)", museumID, email).Scan(&exists)
	return exists
}

// requireMuseumAdmin lets through site admins and the museum's own admins.
func requireMuseumAdmin(db *sql.DB, w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	email, ok := authorize(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", 0, false
	}
	museumID, err := strconv.ParseInt(r.PathValue("museumID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid museum ID", http.StatusBadRequest)
		return "", 0, false
	}
	if !isAdmin(email) && !isMuseumAdmin(db, email, museumID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return "", 0, false
	}
	return email, museumID, true
}

func handleAdminCheck(w http.ResponseWriter, r *http.Request) {
	email, ok := authorize(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]bool{"admin": isAdmin(email)})
}

func handleListMuseums(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		rows, err := db.QueryContext(r.Context(), `
			SELECT m.id, m.name, COALESCE(
				json_agg(json_build_object('id', ma.id, 'email', ma.email)) FILTER (WHERE ma.id IS NOT NULL),
				'[]'
			),
			(SELECT count(*) FROM members WHERE museum_id = m.id),
			(SELECT count(*) FROM zones WHERE museum_id = m.id)
			FROM museums m
			LEFT JOIN museum_admins ma ON ma.museum_id = m.id
			GROUP BY m.id, m.name
			ORDER BY m.id`)
		if err != nil {
			serverError(w, r, err)
			return
		}
		defer rows.Close()

		type museumAdmin struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		}
		type museum struct {
			ID      int64         `json:"id"`
			Name    string        `json:"name"`
			Admins  []museumAdmin `json:"admins"`
			Members int           `json:"members"`
			Zones   int           `json:"zones"`
		}

		museums := []museum{}
		for rows.Next() {
			var m museum
			var adminsJSON string
			if err := rows.Scan(&m.ID, &m.Name, &adminsJSON, &m.Members, &m.Zones); err != nil {
				serverError(w, r, err)
				return
			}
			json.Unmarshal([]byte(adminsJSON), &m.Admins)
			museums = append(museums, m)
		}
		writeJSON(w, museums)
	}
}

func handleCreateMuseum(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		var body api.Museum
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := body.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var id int64
		err := inTx(r.Context(), db, func(tx *sql.Tx) error {
			if err := tx.QueryRowContext(r.Context(), "INSERT INTO museums (name) VALUES ($1) RETURNING id", body.Name).Scan(&id); err != nil {
				return err
			}
			if body.Seed {
				return replaceRoster(r.Context(), tx, id, roster.Default())
			}
			return nil
		})
		if err != nil {
			serverError(w, r, err)
			return
		}
		slog.Info("museum created", "id", id, "name", body.Name, "seeded", body.Seed)
		writeJSON(w, map[string]any{"id": id, "name": body.Name})
	}
}

func handleDeleteMuseum(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		museumID, err := strconv.ParseInt(r.PathValue("museumID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid museum ID", http.StatusBadRequest)
			return
		}
		result, err := db.ExecContext(r.Context(), "DELETE FROM museums WHERE id = $1", museumID)
		if err != nil {
			serverError(w, r, err)
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			http.Error(w, "museum not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAddMuseumAdmin(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		museumID, err := strconv.ParseInt(r.PathValue("museumID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid museum ID", http.StatusBadRequest)
			return
		}
		var body api.Admin
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := body.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var id int64
		err = db.QueryRowContext(r.Context(), "INSERT INTO museum_admins (museum_id, email) VALUES ($1, $2) RETURNING id", museumID, body.Email).Scan(&id)
		if err != nil {
			addAdminError(w, r, err)
			return
		}
		writeJSON(w, map[string]any{"id": id, "email": body.Email})
	}
}

func addAdminError(w http.ResponseWriter, r *http.Request, err error) {
	switch pqCode(err) {
	case foreignKeyViolation:
		http.Error(w, "museum not found", http.StatusNotFound)
	case uniqueViolation:
		http.Error(w, "already a museum admin", http.StatusConflict)
	default:
		serverError(w, r, err)
	}
}

func handleRemoveMuseumAdmin(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		adminID, err := strconv.ParseInt(r.PathValue("adminID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid admin ID", http.StatusBadRequest)
			return
		}
		result, err := db.ExecContext(r.Context(), "DELETE FROM museum_admins WHERE id = $1", adminID)
		if err != nil {
			serverError(w, r, err)
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			http.Error(w, "museum admin not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListMembers(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, museumID, ok := requireMuseumAdmin(db, w, r)
		if !ok {
			return
		}
		ros, err := loadRoster(r.Context(), db, museumID, nil)
		if err != nil {
			serverError(w, r, err)
			return
		}
		writeJSON(w, ros.Document().Members)
	}
}

func handlePutMembers(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, museumID, ok := requireMuseumAdmin(db, w, r)
		if !ok {
			return
		}
		var body []api.Member
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := api.ValidateMembers(body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		members := make([]solver.Member, len(body))
		for i, m := range body {
			members[i] = m.Solver()
		}

		var ros *roster.Roster
		err := inTx(r.Context(), db, func(tx *sql.Tx) error {
			if err := putMembers(r.Context(), tx, museumID, members); err != nil {
				return err
			}
			var err error
			ros, err = loadRoster(r.Context(), tx, museumID, nil)
			return err
		})
		if err != nil {
			serverError(w, r, err)
			return
		}
		writeJSON(w, ros.Document().Members)
	}
}

func handleDeleteMember(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, museumID, ok := requireMuseumAdmin(db, w, r)
		if !ok {
			return
		}
		result, err := db.ExecContext(r.Context(), "DELETE FROM members WHERE museum_id = $1 AND name = $2", museumID, r.PathValue("name"))
		if err != nil {
			serverError(w, r, err)
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			http.Error(w, "member not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleListZones(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, museumID, ok := requireMuseumAdmin(db, w, r)
		if !ok {
			return
		}
		ros, err := loadRoster(r.Context(), db, museumID, nil)
		if err != nil {
			serverError(w, r, err)
			return
		}
		writeJSON(w, ros.Document().Zones)
	}
}

func handlePutZones(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, museumID, ok := requireMuseumAdmin(db, w, r)
		if !ok {
			return
		}
		var body []api.Zone
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := api.ValidateZones(body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		zones := make([]solver.Zone, len(body))
		for i, z := range body {
			zones[i] = z.Solver()
		}

		var ros *roster.Roster
		err := inTx(r.Context(), db, func(tx *sql.Tx) error {
			if err := putZones(r.Context(), tx, museumID, zones); err != nil {
				return err
			}
			var err error
			ros, err = loadRoster(r.Context(), tx, museumID, nil)
			return err
		})
		if err != nil {
			serverError(w, r, err)
			return
		}
		writeJSON(w, ros.Document().Zones)
	}
}

func handlePatchZone(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, museumID, ok := requireMuseumAdmin(db, w, r)
		if !ok {
			return
		}
		name := r.PathValue("name")
		var body api.ZonePatch
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := body.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var updated solver.Zone
		err := inTx(r.Context(), db, func(tx *sql.Tx) error {
			z, err := loadZone(r.Context(), tx, museumID, name)
			if err != nil {
				return err
			}
			ros := roster.New()
			if err := ros.PutZone(z); err != nil {
				return err
			}
			if err := body.Apply(ros, name); err != nil {
				return err
			}
			updated, _ = ros.Zone(name)
			return putZones(r.Context(), tx, museumID, []solver.Zone{updated})
		})
		switch {
		case errors.Is(err, roster.ErrUnknownZone):
			http.Error(w, "zone not found", http.StatusNotFound)
			return
		case err != nil:
			serverError(w, r, err)
			return
		}
		writeJSON(w, updated)
	}
}

func handleDeleteZone(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, museumID, ok := requireMuseumAdmin(db, w, r)
		if !ok {
			return
		}
		result, err := db.ExecContext(r.Context(), "DELETE FROM zones WHERE museum_id = $1 AND name = $2", museumID, r.PathValue("name"))
		if err != nil {
			serverError(w, r, err)
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			http.Error(w, "zone not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleExport(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, museumID, ok := requireMuseumAdmin(db, w, r)
		if !ok {
			return
		}
		if exists, err := museumExists(r.Context(), db, museumID); err != nil {
			serverError(w, r, err)
			return
		} else if !exists {
			http.Error(w, "museum not found", http.StatusNotFound)
			return
		}
		ros, err := loadRoster(r.Context(), db, museumID, nil)
		if err != nil {
			serverError(w, r, err)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="museum-%d.json"`, museumID))
		writeJSON(w, ros.Document())
	}
}

func handleImport(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, museumID, ok := requireMuseumAdmin(db, w, r)
		if !ok {
			return
		}
		var body api.Roster
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		ros, err := body.Build()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = inTx(r.Context(), db, func(tx *sql.Tx) error {
			return replaceRoster(r.Context(), tx, museumID, ros)
		})
		if err != nil {
			serverError(w, r, err)
			return
		}
		slog.Info("roster imported", "museum", museumID,
			"members", len(ros.Members()), "zones", len(ros.Zones()))
		writeJSON(w, ros.Document())
	}
}

func handleSolve(db *sql.DB, limits solveLimits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, museumID, ok := requireMuseumAdmin(db, w, r)
		if !ok {
			return
		}
		if !limits.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "too many solve requests", http.StatusTooManyRequests)
			return
		}

		var body api.SolveRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := body.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if exists, err := museumExists(r.Context(), db, museumID); err != nil {
			serverError(w, r, err)
			return
		} else if !exists {
			http.Error(w, "museum not found", http.StatusNotFound)
			return
		}
		ros, err := loadRoster(r.Context(), db, museumID, body.Zones)
		if err != nil {
			serverError(w, r, err)
			return
		}
		if len(ros.Members()) > api.MaxMembers || len(ros.Zones()) > api.MaxZones {
			http.Error(w, fmt.Sprintf("solving is limited to %d members and %d zones", api.MaxMembers, api.MaxZones),
				http.StatusUnprocessableEntity)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), limits.timeout)
		defer cancel()

		start := time.Now()
		sol, err := ros.Solve(ctx, limits.params)
		elapsed := time.Since(start)

		result, status, msg := api.SolveOutcome(err)
		observeSolve(result, elapsed, sol)
		if err != nil {
			slog.Warn("solve failed", "museum", museumID, "result", result, "elapsed", elapsed, "error", err)
			http.Error(w, msg, status)
			return
		}
		slog.Info("solved", "museum", museumID, "elapsed", elapsed,
			"members", len(ros.Members()), "zones", len(ros.Zones()))
		writeJSON(w, api.NewSolution(sol, elapsed))
	}
}
