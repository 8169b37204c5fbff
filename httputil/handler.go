// Copyright (c) 2026 BVK Chaitanya

package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// PostJSONHandler adapts a request/response function into an http.Handler.
// The request body is decoded as JSON and the response is written back as
// JSON. This is the server-side counterpart of the cmdutil.Post helper.
func PostJSONHandler[REQ, RESP any](fn func(context.Context, *REQ) (*RESP, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "only POST requests are supported", http.StatusMethodNotAllowed)
			return
		}
		req := new(REQ)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp, err := fn(r.Context(), req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("could not json-encode api response (ignored)", "path", r.URL.Path, "err", err)
		}
	})
}
