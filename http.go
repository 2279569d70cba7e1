package webclip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/webclip/capture"
	"github.com/hazyhaar/webclip/container"
	"github.com/hazyhaar/webclip/internal/shield"
	"github.com/hazyhaar/webclip/kit"
	"github.com/hazyhaar/webclip/store"
)

// RegisterHTTP mounts the clip routes:
//
//	POST /clips                 trigger a capture, 201 with the clip summary
//	GET  /clips                 recent clips
//	GET  /clips/{id}            raw .inkclip bytes
//	GET  /clips/{id}/manifest   decoded container header
//
// Capture triggers are rate limited per client IP by server.capture_rate.
func (c *Clipper) RegisterHTTP(r chi.Router) {
	captureEP := c.captureEndpoint()
	inspectEP := c.inspectEndpoint()
	listEP := c.listEndpoint()
	rate := c.cfg.Server.CaptureRate
	limiter := shield.NewRateLimiter(rate.MaxRequests, rate.Window, c.logger)

	r.With(limiter.Middleware).Post("/clips", func(w http.ResponseWriter, r *http.Request) {
		var req captureReq
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
			return
		}
		resp, err := captureEP(httpContext(r), &req)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	})

	r.Get("/clips", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		resp, err := listEP(httpContext(r), &listReq{Limit: limit})
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/clips/{id}", func(w http.ResponseWriter, r *http.Request) {
		a, err := c.Raw(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		w.Header().Set("Content-Type", container.MIMEType)
		w.Header().Set("Content-Length", strconv.Itoa(len(a.Container)))
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, a.ID, container.Ext))
		_, _ = w.Write(a.Container)
	})

	r.Get("/clips/{id}/manifest", func(w http.ResponseWriter, r *http.Request) {
		resp, err := inspectEP(httpContext(r), &idReq{ID: chi.URLParam(r, "id")})
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

func httpContext(r *http.Request) context.Context {
	ctx := kit.WithTransport(r.Context(), "http")
	return kit.WithRemoteAddr(ctx, r.RemoteAddr)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrNoStore):
		return http.StatusNotFound
	case errors.Is(err, capture.ErrSelectCanceled):
		return http.StatusConflict
	case errors.Is(err, capture.ErrAborted):
		return http.StatusServiceUnavailable
	case errors.Is(err, capture.ErrCaptureFailure), errors.Is(err, container.ErrMalformedContainer):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
