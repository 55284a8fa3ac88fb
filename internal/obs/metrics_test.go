package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                               "/",
		"/metrics":                       "/metrics",
		"/v1/users/abc/roles":            "/v1/users/:id/roles",
		"/v1/users/abc/restrictions":     "/v1/users/:id/restrictions",
		"/v1/moderation/actions":         "/v1/moderation/actions",
		"/v1/moderation/actions/abc":     "/v1/moderation/actions/:id",
		"/v1/queue/items/abc/assign":     "/v1/queue/items/:id/assign",
		"/v1/queue/workload":             "/v1/queue/workload",
		"/v1/queue/items?status=open":    "/v1/queue/items",
		"/v1/queue/items/abc/complete":   "/v1/queue/items/:id/complete",
		"/v1/moderation/actions/x/extra": "/v1/moderation/actions/:id/extra",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
