package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"warden.gg/internal/audit"
)

// Caps on captured request/response material. Anything larger is
// recorded as truncated rather than buffered in full.
const (
	maxCapturedBody     = 64 << 10
	maxCapturedResponse = 64 << 10
)

// responseRecorder tees the response into a capped buffer so the audit
// entry can carry the sanitized payload. Flush passes through for SSE.
type responseRecorder struct {
	http.ResponseWriter
	code      int
	buf       bytes.Buffer
	truncated bool
}

func (w *responseRecorder) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseRecorder) Write(p []byte) (int, error) {
	if w.buf.Len() < maxCapturedResponse {
		room := maxCapturedResponse - w.buf.Len()
		if len(p) > room {
			w.buf.Write(p[:room])
			w.truncated = true
		} else {
			w.buf.Write(p)
		}
	} else {
		w.truncated = true
	}
	return w.ResponseWriter.Write(p)
}

func (w *responseRecorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// auditBoundary wraps every privileged route. It installs a Capture in
// the context for authn and the handlers to fill, buffers request and
// response material, and records exactly one sanitized entry once the
// response has been emitted, whatever path produced it.
func (a *API) auditBoundary(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.recorder == nil || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		var body []byte
		var bodyTruncated bool
		if r.Body != nil && r.Method != http.MethodGet {
			limited := io.LimitReader(r.Body, maxCapturedBody+1)
			buf, err := io.ReadAll(limited)
			if err == nil {
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(buf), r.Body))
				if len(buf) > maxCapturedBody {
					body = buf[:maxCapturedBody]
					bodyTruncated = true
				} else {
					body = buf
				}
			}
		}

		capture := &audit.Capture{}
		ctx := audit.WithCapture(r.Context(), capture)
		rec := &responseRecorder{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(ctx))

		if !capture.MarkRecorded() {
			return
		}
		actor, targetType, targetID := capture.Snapshot()
		a.recorder.Record(r.Context(), audit.Params{
			AdminUserID: actor,
			Method:      r.Method,
			Path:        r.URL.Path,
			Status:      rec.code,
			TargetType:  targetType,
			TargetID:    targetID,
			Query:       queryValue(r.URL.Query()),
			Body:        jsonValue(body, bodyTruncated),
			Response:    jsonValue(rec.buf.Bytes(), rec.truncated),
			IPAddress:   clientIP(r),
		})
	})
}

func queryValue(q url.Values) any {
	if len(q) == 0 {
		return nil
	}
	out := make(map[string]any, len(q))
	for k, vs := range q {
		if len(vs) == 1 {
			out[k] = vs[0]
			continue
		}
		list := make([]any, len(vs))
		for i, v := range vs {
			list[i] = v
		}
		out[k] = list
	}
	return out
}

// jsonValue decodes captured bytes for sanitization. Non-JSON and
// truncated payloads are summarized instead of stored raw.
func jsonValue(raw []byte, truncated bool) any {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil
	}
	if truncated {
		return map[string]any{"truncated": true, "bytes": len(raw)}
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return map[string]any{"non_json": true, "bytes": len(raw)}
	}
	return v
}
