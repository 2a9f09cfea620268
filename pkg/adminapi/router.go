// Package adminapi is a read-mostly diagnostic HTTP API exposing the
// simulator's tag database and user ledger to operators. It is not, and
// carries no relation to, the MODBUS/TCP server: it's a separate,
// JWT-guarded introspection surface over the same Database handle the
// AFSEC dispatcher uses.
package adminapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ddurler/icomsim/internal/cli/health"
	"github.com/ddurler/icomsim/internal/logger"
	"github.com/ddurler/icomsim/pkg/tagdb"
)

// NewRouter builds the chi router serving db's introspection routes,
// guarding /tags/{zone}/{num}/value's PUT route (the only mutating
// route) behind auth when auth is non-nil.
//
// Routes:
//   - GET  /health                      - liveness probe
//   - GET  /tags                        - list every registered tag
//   - GET  /tags/{zone}/{num}            - one tag's current value
//   - PUT  /tags/{zone}/{num}/value      - set one tag's value (auth required)
//   - GET  /users                        - list registered notification users
//   - GET  /changes/{user}               - pop the next pending change for user
func NewRouter(db *tagdb.Database, auth *JWTService, startedAt time.Time) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", healthHandler(startedAt))

	r.Route("/tags", func(r chi.Router) {
		r.Get("/", listTagsHandler(db))
		r.Get("/{zone}/{num}", getTagHandler(db))

		setValue := setTagValueHandler(db)
		if auth != nil {
			setValue = requireAuth(auth, setValue)
		}
		r.Put("/{zone}/{num}/value", setValue)
	})

	r.Get("/users", listUsersHandler(db))
	r.Get("/changes/{user}", nextChangeHandler(db))

	return r
}

func healthHandler(startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := time.Since(startedAt)

		var resp health.Response
		resp.Status = "ok"
		resp.Timestamp = time.Now().Format(time.RFC3339)
		resp.Data.Service = "icomsim"
		resp.Data.StartedAt = startedAt.Format(time.RFC3339)
		resp.Data.Uptime = uptime.String()
		resp.Data.UptimeSec = int64(uptime.Seconds())

		writeJSON(w, http.StatusOK, resp)
	}
}

func listTagsHandler(db *tagdb.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags := db.ListTags()
		out := make([]tagView, len(tags))
		for i, t := range tags {
			out[i] = newTagView(db, t)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getTagHandler(db *tagdb.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIdTag(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid zone or tag number")
			return
		}
		tag, found := db.GetTagFromIdTag(id)
		if !found {
			writeError(w, http.StatusNotFound, "tag not registered")
			return
		}
		writeJSON(w, http.StatusOK, newTagView(db, tag))
	}
}

func setTagValueHandler(db *tagdb.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIdTag(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid zone or tag number")
			return
		}
		tag, found := db.GetTagFromIdTag(id)
		if !found {
			writeError(w, http.StatusNotFound, "tag not registered")
			return
		}

		var body struct {
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		idUser := db.GetIdUser("adminapi", false)
		if err := db.SetValue(idUser, tag, body.Value); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, newTagView(db, tag))
	}
}

func listUsersHandler(db *tagdb.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users := db.ListUsers()
		out := make([]userView, len(users))
		for i, u := range users {
			out[i] = userView{
				ID:              i,
				Name:            u.Name,
				UseNotification: u.UseNotification,
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func nextChangeHandler(db *tagdb.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idParam := chi.URLParam(r, "user")
		id, err := strconv.Atoi(idParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user id")
			return
		}
		change, ok := db.GetChange(tagdb.IdUser(id), true, true)
		if !ok {
			writeJSON(w, http.StatusNoContent, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id_user": change.IdUser,
			"id_tag":  change.IdTag.String(),
		})
	}
}

// tagView and userView are the diagnostic API's JSON shapes: deliberately
// flatter than the internal Tag/User structs, so internal field renames
// don't become API breaks.
type tagView struct {
	IdTag   string `json:"id_tag"`
	Label   string `json:"label"`
	Unity   string `json:"unity,omitempty"`
	Format  string `json:"format"`
	IsWrite bool   `json:"is_write"`
	Value   string `json:"value"`
}

func newTagView(db *tagdb.Database, t tagdb.Tag) tagView {
	return tagView{
		IdTag:   t.IdTag.String(),
		Label:   t.Label,
		Unity:   t.Unity,
		Format:  t.Format.String(),
		IsWrite: t.IsWrite,
		Value:   db.GetValueFromTag(t).String(),
	}
}

type userView struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	UseNotification bool   `json:"use_notification"`
}

func parseIdTag(r *http.Request) (tagdb.IdTag, bool) {
	zone, err := strconv.ParseUint(chi.URLParam(r, "zone"), 10, 8)
	if err != nil {
		return tagdb.IdTag{}, false
	}
	num, err := strconv.ParseUint(chi.URLParam(r, "num"), 16, 16)
	if err != nil {
		return tagdb.IdTag{}, false
	}
	return tagdb.NewIdTag(uint8(zone), uint16(num), [3]uint8{}), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs every request at DEBUG (INFO for non-health routes),
// following the teacher's control-plane API router's logging shape.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		args := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		}
		if r.URL.Path == "/health" {
			logger.Debug("adminapi request", args...)
		} else {
			logger.Info("adminapi request", args...)
		}
	})
}
