package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/ruteri/identity-gateway/api"
	"github.com/ruteri/identity-gateway/auth"
	"github.com/ruteri/identity-gateway/interfaces"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// UserService is the identity flow surface the handler drives.
type UserService interface {
	ValidateToken(ctx context.Context, creds interfaces.Credentials) error
	Login(ctx context.Context, creds interfaces.Credentials, trusted bool) error
	Register(ctx context.Context, creds interfaces.Credentials) error
	Unregister(ctx context.Context, creds interfaces.Credentials) error
	Authenticate(ctx context.Context, creds interfaces.Credentials) (*interfaces.User, error)
	GdprExport(ctx context.Context, user *interfaces.User) (*interfaces.User, error)
	ListFiles(ctx context.Context, user *interfaces.User, global bool) (interfaces.FileIndex, error)
}

// TableService is the shared-secret table surface the handler drives.
type TableService interface {
	ListTables(ctx context.Context, key string) ([]string, error)
	CreateTable(ctx context.Context, key, name string) error
	DropTable(ctx context.Context, key, name string) error
	ListRows(ctx context.Context, key, table string) ([]interfaces.Row, error)
	GetRow(ctx context.Context, key, table, rowKey string) (json.RawMessage, error)
	PutRow(ctx context.Context, key, table, rowKey string, value json.RawMessage) error
	DeleteRow(ctx context.Context, key, table, rowKey string) error
}

// Handler processes HTTP requests for the user and app db APIs.
type Handler struct {
	users         UserService
	tables        TableService
	trustedOrigin string
	log           *slog.Logger
}

// NewHandler creates a new HTTP request handler with the specified dependencies.
//
// Parameters:
//   - users: Identity flows (login, register, unregister, reads)
//   - tables: App db operations behind the shared secret
//   - trustedOrigin: Frontend origin whose login requests are validated permissively
//   - log: Structured logger for operational insights
func NewHandler(users UserService, tables TableService, trustedOrigin string, log *slog.Logger) *Handler {
	return &Handler{
		users:         users,
		tables:        tables,
		trustedOrigin: trustedOrigin,
		log:           log,
	}
}

type userContextKey struct{}

func credentials(r *http.Request) interfaces.Credentials {
	return interfaces.Credentials{Token: auth.BearerToken(r.Header.Get("Authorization"))}
}

// isTrustedOrigin reports whether a login request comes from the first-party frontend.
func (h *Handler) isTrustedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if h.trustedOrigin == "" {
		return origin == ""
	}
	return origin == h.trustedOrigin
}

// HandleValidateToken checks the caller's credentials in strict mode.
//
// URL format: GET /api/v1/user/validate-token
func (h *Handler) HandleValidateToken(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, "validate-token", h.users.ValidateToken(r.Context(), credentials(r)))
}

// HandleLogin creates or refreshes the caller's user record.
//
// URL format: POST /api/v1/user/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, "login", h.users.Login(r.Context(), credentials(r), h.isTrustedOrigin(r)))
}

// HandleRegister creates the caller's user record and provisions its connections.
//
// URL format: POST /api/v1/user/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, "register", h.users.Register(r.Context(), credentials(r)))
}

// HandleUnregister tears down the caller's connections and deletes the record.
//
// URL format: POST /api/v1/user/unregister
func (h *Handler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, "unregister", h.users.Unregister(r.Context(), credentials(r)))
}

// RequireUser authenticates the request and stores the user in its context.
func (h *Handler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.users.Authenticate(r.Context(), credentials(r))
		if err != nil {
			h.fail(w, "authenticate", requestError(err, http.StatusUnauthorized))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey{}, user)))
	})
}

// UserFromContext returns the user stored by RequireUser.
func UserFromContext(ctx context.Context) (*interfaces.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*interfaces.User)
	return user, ok
}

// HandleGdpr returns the full record of the authenticated user.
//
// URL format: GET /api/v1/user/gdpr
func (h *Handler) HandleGdpr(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	export, err := h.users.GdprExport(r.Context(), user)
	if err != nil {
		h.fail(w, "gdpr", requestError(err, http.StatusUnauthorized))
		return
	}
	h.writeJSON(w, export)
}

// HandleListFiles returns the file index of the authenticated user.
//
// URL format: GET /api/v1/user/list-files?global=1
func (h *Handler) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	global := interfaces.ParseTruthy(r.URL.Query().Get(api.GlobalParam))
	index, err := h.users.ListFiles(r.Context(), user, global)
	if err != nil {
		h.fail(w, "list-files", requestError(err, http.StatusUnauthorized))
		return
	}
	h.writeJSON(w, index)
}

// HandleListTables returns every table name.
//
// URL format: GET /api/v1/plugins/app-db/tables?authKey=...
func (h *Handler) HandleListTables(w http.ResponseWriter, r *http.Request) {
	names, err := h.tables.ListTables(r.Context(), authKey(r))
	if err != nil {
		h.fail(w, "list tables", requestError(err, http.StatusForbidden))
		return
	}
	h.writeJSON(w, names)
}

// HandleCreateTable creates a table if it does not exist.
//
// URL format: POST /api/v1/plugins/app-db/tables?authKey=...
// Request body: {"name": "..."}
func (h *Handler) HandleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTableRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil || json.Unmarshal(body, &req) != nil {
		// The gate still authenticates and then rejects the empty name
		req.Name = ""
	}

	h.tableCommand(w, "create table", h.tables.CreateTable(r.Context(), authKey(r), req.Name))
}

// HandleDropTable drops a table and its rows.
//
// URL format: DELETE /api/v1/plugins/app-db/tables/{table}?authKey=...
func (h *Handler) HandleDropTable(w http.ResponseWriter, r *http.Request) {
	h.tableCommand(w, "drop table", h.tables.DropTable(r.Context(), authKey(r), urlParam(r, "table")))
}

// HandleListRows returns every row of a table.
//
// URL format: GET /api/v1/plugins/app-db/tables/{table}/data?authKey=...
func (h *Handler) HandleListRows(w http.ResponseWriter, r *http.Request) {
	rows, err := h.tables.ListRows(r.Context(), authKey(r), urlParam(r, "table"))
	if err != nil {
		h.fail(w, "list rows", requestError(err, http.StatusForbidden))
		return
	}
	h.writeJSON(w, rows)
}

// HandleGetRow returns the value stored under one key.
//
// URL format: GET /api/v1/plugins/app-db/tables/{table}/data/{key}?authKey=...
func (h *Handler) HandleGetRow(w http.ResponseWriter, r *http.Request) {
	value, err := h.tables.GetRow(r.Context(), authKey(r), urlParam(r, "table"), urlParam(r, "key"))
	if err != nil {
		h.fail(w, "get row", requestError(err, http.StatusForbidden))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(value)
}

// HandlePutRow replaces the value stored under one key with the request body.
//
// URL format: PUT /api/v1/plugins/app-db/tables/{table}/data/{key}?authKey=...
func (h *Handler) HandlePutRow(w http.ResponseWriter, r *http.Request) {
	value, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	h.tableCommand(w, "put row", h.tables.PutRow(r.Context(), authKey(r), urlParam(r, "table"), urlParam(r, "key"), value))
}

// HandleDeleteRow deletes one key.
//
// URL format: DELETE /api/v1/plugins/app-db/tables/{table}/data/{key}?authKey=...
func (h *Handler) HandleDeleteRow(w http.ResponseWriter, r *http.Request) {
	h.tableCommand(w, "delete row", h.tables.DeleteRow(r.Context(), authKey(r), urlParam(r, "table"), urlParam(r, "key")))
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request, op string, err error) {
	if err != nil {
		h.fail(w, op, requestError(err, http.StatusUnauthorized))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) tableCommand(w http.ResponseWriter, op string, err error) {
	if err != nil {
		h.fail(w, op, requestError(err, http.StatusForbidden))
		return
	}
	w.WriteHeader(api.StatusTableMutated)
}

func (h *Handler) fail(w http.ResponseWriter, op string, reqErr *RequestError) {
	if reqErr.StatusCode >= http.StatusInternalServerError {
		h.log.Error("Request failed", slog.String("op", op), slog.Int("status", reqErr.StatusCode), "err", reqErr.Err)
		http.Error(w, http.StatusText(reqErr.StatusCode)+": "+reqErr.Error(), reqErr.StatusCode)
		return
	}

	h.log.Debug("Request rejected", slog.String("op", op), slog.Int("status", reqErr.StatusCode), "err", reqErr.Err)
	http.Error(w, reqErr.Error(), reqErr.StatusCode)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

// requestError maps gateway errors onto status codes. authStatus is used
// for *interfaces.AuthError.
func requestError(err error, authStatus int) *RequestError {
	var (
		reqErr        *RequestError
		validationErr *interfaces.ValidationError
		driverErr     *interfaces.DriverError
	)

	switch {
	case errors.As(err, &reqErr):
		return reqErr
	case interfaces.IsAuthError(err):
		return &RequestError{StatusCode: authStatus, Err: err}
	case errors.As(err, &validationErr):
		return &RequestError{StatusCode: http.StatusBadRequest, Err: err}
	case errors.Is(err, interfaces.ErrUserNotFound),
		errors.Is(err, interfaces.ErrTableNotFound),
		errors.Is(err, interfaces.ErrRowNotFound):
		return &RequestError{StatusCode: http.StatusNotFound, Err: err}
	case errors.Is(err, interfaces.ErrUserExists):
		return &RequestError{StatusCode: http.StatusConflict, Err: err}
	case errors.As(err, &driverErr):
		return &RequestError{StatusCode: http.StatusBadGateway, Err: err}
	default:
		return &RequestError{StatusCode: http.StatusInternalServerError, Err: err}
	}
}

func authKey(r *http.Request) string {
	return r.URL.Query().Get(api.AuthKeyParam)
}

func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if value, err := url.PathUnescape(raw); err == nil {
		return value
	}
	return raw
}
