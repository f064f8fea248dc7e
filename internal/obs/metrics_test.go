package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/metrics", "/metrics"},
		{"/v1/members", "/v1/members"},
		{"/v1/members?page=2", "/v1/members"},
		{"/v1/members/stats", "/v1/members/stats"},
		{"/v1/members/01HZY3", "/v1/members/:id"},
		{"/v1/members/01HZY3/approve", "/v1/members/:id/approve"},
		{"/v1/associations", "/v1/associations"},
		{"/v1/associations/01HZY3", "/v1/associations/:id"},
		{"/v1/auth/login", "/v1/auth/login"},
		{"/v1/auth/register?utm=x", "/v1/auth/register"},
	}
	for _, tc := range cases {
		if got := CanonicalPath(tc.in); got != tc.want {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}
