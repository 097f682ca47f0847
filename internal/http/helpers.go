package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"acorn/internal/core"
)

type requestIDKey struct{}

var errInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

const ownerHeader = "X-Owner-ID"

// ownerID extracts the caller's owner id from the request header. Requests
// without it are rejected with 401 before any handler logic runs.
func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(ownerHeader))
	if id == "" {
		writeError(w, http.StatusUnauthorized, "missing "+ownerHeader+" header")
		return "", false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id in path")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStorageError maps the domain sentinels onto HTTP statuses. Ledger
// rejections keep their exact message so clients see the same wording the
// ledger produces.
func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrGoalNotFound), errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, trimmed(err))
	case errors.Is(err, core.ErrNegativeDeposit):
		writeError(w, http.StatusBadRequest, core.ErrNegativeDeposit.Error())
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyOwner),
		errors.Is(err, core.ErrInvalidTarget),
		errors.Is(err, errInvalidDate):
		writeError(w, http.StatusBadRequest, trimmed(err))
	case errors.Is(err, core.ErrConflict):
		writeError(w, http.StatusConflict, core.ErrConflict.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// trimmed strips wrapping prefixes, keeping the sentinel's own message.
func trimmed(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	return msg
}

func parseDate(dateStr string) (time.Time, error) {
	return time.Parse("2006-01-02", dateStr)
}

// parseAmount accepts a decimal string ("125.50") and returns cents.
func parseAmount(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(s))
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
