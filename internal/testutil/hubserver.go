package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// HubUser is one entry of the hub's user listing as served by HubServer.
type HubUser struct {
	Name   string `json:"name"`
	Server any    `json:"server"`
}

// HubServer starts a fake hub that serves users on /hub/api/users to
// requests carrying token. It is closed when the test ends.
func HubServer(t *testing.T, token string, users []HubUser) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/hub/api/users" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "token "+token {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(users); err != nil {
			t.Errorf("encode users: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// RunningGuest is a HubUser with a live server.
func RunningGuest(name string) HubUser {
	return HubUser{Name: name, Server: "/user/" + name + "/"}
}

// IdleGuest is a HubUser without a server.
func IdleGuest(name string) HubUser {
	return HubUser{Name: name}
}
