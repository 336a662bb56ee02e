package handler

import (
	"bytes"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/appmate-io/wishlist-engine/internal/domain/product"
	"github.com/appmate-io/wishlist-engine/internal/domain/wishlist"
)

// writeJSON encodes the object built by fn and writes it with the given
// status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		h.lg.Debug("Write response", zap.Error(err))
	}
}

// writeError maps a domain error onto the API error envelope.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.lg.Error("Request failed", zap.Error(err))
		message = "internal error"
	}
	h.writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

func errorStatus(err error) (int, string) {
	var (
		invErr *wishlist.InvalidOptionError
		cfgErr *product.ConfigError
	)
	switch {
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, wishlist.ErrNotFound),
		errors.Is(err, wishlist.ErrItemNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, wishlist.ErrNotOwner):
		return http.StatusForbidden, err.Error()
	case errors.As(err, &invErr):
		return http.StatusUnprocessableEntity, invErr.Error()
	case errors.Is(err, wishlist.ErrNoVariantSelected),
		errors.Is(err, wishlist.ErrVariantUnavailable):
		return http.StatusConflict, err.Error()
	case errors.As(err, &cfgErr):
		return http.StatusUnprocessableEntity, cfgErr.Error()
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, ""
	}
}

// errBadRequest marks malformed request payloads.
var errBadRequest = errors.New("bad request")

// decodeBody parses the request body as a JSON object and dispatches each
// field to fn. Unknown fields are skipped. An empty body counts as an empty
// object, so requests whose fields are all optional may omit the body.
func decodeBody(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return errors.Wrap(errBadRequest, "read body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		return fn(d, key)
	}); err != nil {
		return errors.Wrapf(errBadRequest, "decode body: %v", err)
	}
	return nil
}
