package hub

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/p-arndt/guestpool/internal/config"
)

var (
	ErrUpstreamUnavailable = errors.New("hub unavailable")
	ErrMalformedResponse   = errors.New("malformed hub response")
)

const usersPath = "hub/api/users"

// User is one record of the hub's user listing. Server is kept raw because
// the hub reports it as null, an object, or a URL string depending on version.
type User struct {
	Name   string          `json:"name"`
	Server json.RawMessage `json:"server"`
}

// HasServer reports whether the record indicates a live server.
func (u User) HasServer() bool {
	s := bytes.TrimSpace(u.Server)
	switch string(s) {
	case "", "null", "false", `""`, "{}", "0":
		return false
	}
	return true
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(cfg config.Hub) *Client {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLSInsecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		baseURL: cfg.URL,
		token:   cfg.APIToken,
		http:    &http.Client{Timeout: timeout, Transport: transport},
	}
}

// Users fetches the hub's user listing.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("no hub url configured: %w", ErrUpstreamUnavailable)
	}
	url := strings.TrimRight(c.baseURL, "/") + "/" + usersPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", errors.Join(ErrUpstreamUnavailable, err))
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", errors.Join(ErrUpstreamUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("get users: status %d: %w", resp.StatusCode, ErrUpstreamUnavailable)
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("decode users: %w", errors.Join(ErrMalformedResponse, err))
	}
	return users, nil
}

// RunningUsers returns the names of users with a live server.
func (c *Client) RunningUsers(ctx context.Context) (map[string]struct{}, error) {
	users, err := c.Users(ctx)
	if err != nil {
		return nil, err
	}
	running := make(map[string]struct{})
	for _, u := range users {
		if u.Name == "" {
			continue
		}
		if u.HasServer() {
			running[u.Name] = struct{}{}
		}
	}
	return running, nil
}
