// Package roblox implements the authenticated session against the Roblox web
// API: anti-forgery token negotiation, identity resolution, the group role
// catalog, member lookups, and rank/shout mutations.
package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rbxgroups/ranking-system/internal/core/domain"
)

const (
	defaultAuthBaseURL   = "https://auth.roblox.com"
	defaultUsersBaseURL  = "https://users.roblox.com"
	defaultGroupsBaseURL = "https://groups.roblox.com"

	defaultTimeout = 15 * time.Second
	userAgent      = "rbxgroups-ranking-system"
)

// Config captures the settings for the Roblox client. The base URLs default
// to the production Roblox API hosts and exist so tests can point the client
// at a local server.
type Config struct {
	Cookie  string
	GroupID int64
	Timeout time.Duration

	AuthBaseURL   string
	UsersBaseURL  string
	GroupsBaseURL string
}

// session is the immutable state built by Initialize: the rotating
// anti-forgery token, the authenticated user, and the role catalog. A reset
// replaces the whole value; the pieces are never updated individually since a
// stale token is unsafe to mix with a fresh catalog.
type session struct {
	csrfToken string
	identity  domain.Identity
	roles     map[string]domain.RankRole
}

// Client implements ports.GroupClient over the Roblox web API.
type Client struct {
	http    *http.Client
	cookie  string
	groupID int64

	authURL   string
	usersURL  string
	groupsURL string

	session atomic.Pointer[session]
	log     zerolog.Logger
}

// New builds a Client. No network traffic happens until Initialize.
func New(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	authURL := cfg.AuthBaseURL
	if authURL == "" {
		authURL = defaultAuthBaseURL
	}
	usersURL := cfg.UsersBaseURL
	if usersURL == "" {
		usersURL = defaultUsersBaseURL
	}
	groupsURL := cfg.GroupsBaseURL
	if groupsURL == "" {
		groupsURL = defaultGroupsBaseURL
	}

	return &Client{
		http: &http.Client{
			Timeout: timeout,
			// The token mint endpoint answers with a redirect; the token is
			// in the first response's headers.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cookie:    cfg.Cookie,
		groupID:   cfg.GroupID,
		authURL:   authURL,
		usersURL:  usersURL,
		groupsURL: groupsURL,
		log:       log,
	}
}

// Initialize negotiates a fresh anti-forgery token, resolves the session's
// own identity and loads the group role catalog, then swaps the new session
// in atomically. In-flight calls keep using the old session and fail
// naturally if it had gone stale.
func (c *Client) Initialize(ctx context.Context) (domain.Identity, error) {
	token, err := c.mintToken(ctx)
	if err != nil {
		return domain.Identity{}, err
	}

	identity, err := c.authenticatedIdentity(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}

	roles, err := c.groupRoles(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}

	c.session.Store(&session{csrfToken: token, identity: identity, roles: roles})

	c.log.Info().
		Str("username", identity.Username).
		Int64("user_id", identity.UserID).
		Int("roles", len(roles)).
		Msg("roblox session initialized")
	return identity, nil
}

// mintToken issues a throwaway logout request; the anti-forgery token rides
// back on the x-csrf-token response header regardless of status code.
func (c *Client) mintToken(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, c.authURL+"/v2/logout", "", nil)
	if err != nil {
		return "", fmt.Errorf("mint csrf token: %w", err)
	}
	defer drain(resp)

	token := resp.Header.Get("x-csrf-token")
	if token == "" {
		return "", fmt.Errorf("mint csrf token: no token in response (status %d): %w", resp.StatusCode, domain.ErrAuthFailed)
	}
	return token, nil
}

func (c *Client) authenticatedIdentity(ctx context.Context, token string) (domain.Identity, error) {
	resp, err := c.do(ctx, http.MethodGet, c.usersURL+"/v1/users/authenticated", token, nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("resolve identity: %w", err)
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// Dominant real-world failure: the long-lived cookie expired.
		return domain.Identity{}, fmt.Errorf("resolve identity: status %d: %w", resp.StatusCode, domain.ErrAuthFailed)
	default:
		return domain.Identity{}, fmt.Errorf("resolve identity: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Identity{}, fmt.Errorf("resolve identity: decode: %w", err)
	}
	return domain.Identity{UserID: body.ID, Username: body.Name}, nil
}

func (c *Client) groupRoles(ctx context.Context, token string) (map[string]domain.RankRole, error) {
	url := fmt.Sprintf("%s/v1/groups/%d/roles", c.groupsURL, c.groupID)
	resp, err := c.do(ctx, http.MethodGet, url, token, nil)
	if err != nil {
		return nil, fmt.Errorf("load group roles: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("load group roles: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Roles []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
			Rank int    `json:"rank"`
		} `json:"roles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("load group roles: decode: %w", err)
	}

	roles := make(map[string]domain.RankRole, len(body.Roles))
	for _, r := range body.Roles {
		roles[r.Name] = domain.RankRole{ID: r.ID, Name: r.Name, Level: r.Rank}
	}
	return roles, nil
}

// ResolveSubject resolves a numeric ID or exact username to a canonical
// subject. A numeric identifier is verified upstream so a typo'd ID is
// reported as not found rather than silently recorded.
func (c *Client) ResolveSubject(ctx context.Context, identifier string) (domain.Subject, error) {
	sess, err := c.current()
	if err != nil {
		return domain.Subject{}, err
	}

	if id, convErr := strconv.ParseInt(identifier, 10, 64); convErr == nil {
		return c.subjectByID(ctx, sess, id)
	}
	return c.subjectByUsername(ctx, sess, identifier)
}

func (c *Client) subjectByID(ctx context.Context, sess *session, id int64) (domain.Subject, error) {
	url := fmt.Sprintf("%s/v1/users/%d", c.usersURL, id)
	resp, err := c.do(ctx, http.MethodGet, url, sess.csrfToken, nil)
	if err != nil {
		return domain.Subject{}, fmt.Errorf("resolve subject %d: %w", id, err)
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusNotFound {
		return domain.Subject{}, domain.ErrSubjectNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Subject{}, fmt.Errorf("resolve subject %d: unexpected status %d", id, resp.StatusCode)
	}

	var body struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Subject{}, fmt.Errorf("resolve subject %d: decode: %w", id, err)
	}
	return domain.Subject{ID: body.ID, Username: body.Name}, nil
}

func (c *Client) subjectByUsername(ctx context.Context, sess *session, username string) (domain.Subject, error) {
	payload := map[string]any{
		"usernames":          []string{username},
		"excludeBannedUsers": true,
	}
	resp, err := c.do(ctx, http.MethodPost, c.usersURL+"/v1/usernames/users", sess.csrfToken, payload)
	if err != nil {
		return domain.Subject{}, fmt.Errorf("resolve subject %q: %w", username, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return domain.Subject{}, fmt.Errorf("resolve subject %q: unexpected status %d", username, resp.StatusCode)
	}

	var body struct {
		Data []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Subject{}, fmt.Errorf("resolve subject %q: decode: %w", username, err)
	}
	if len(body.Data) == 0 {
		return domain.Subject{}, domain.ErrSubjectNotFound
	}
	return domain.Subject{ID: body.Data[0].ID, Username: body.Data[0].Name}, nil
}

// MemberRank returns the subject's current role within the configured group.
func (c *Client) MemberRank(ctx context.Context, subjectID int64) (domain.RankRole, error) {
	sess, err := c.current()
	if err != nil {
		return domain.RankRole{}, err
	}

	url := fmt.Sprintf("%s/v2/users/%d/groups/roles", c.groupsURL, subjectID)
	resp, err := c.do(ctx, http.MethodGet, url, sess.csrfToken, nil)
	if err != nil {
		return domain.RankRole{}, fmt.Errorf("member rank %d: %w", subjectID, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return domain.RankRole{}, fmt.Errorf("member rank %d: unexpected status %d", subjectID, resp.StatusCode)
	}

	var body struct {
		Data []struct {
			Group struct {
				ID int64 `json:"id"`
			} `json:"group"`
			Role struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
				Rank int    `json:"rank"`
			} `json:"role"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.RankRole{}, fmt.Errorf("member rank %d: decode: %w", subjectID, err)
	}

	for _, membership := range body.Data {
		if membership.Group.ID == c.groupID {
			return domain.RankRole{
				ID:    membership.Role.ID,
				Name:  membership.Role.Name,
				Level: membership.Role.Rank,
			}, nil
		}
	}
	return domain.RankRole{}, domain.ErrNotInGroup
}

// SetRank assigns roleID to the subject within the configured group.
func (c *Client) SetRank(ctx context.Context, subjectID, roleID int64) error {
	sess, err := c.current()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v1/groups/%d/users/%d", c.groupsURL, c.groupID, subjectID)
	resp, err := c.do(ctx, http.MethodPatch, url, sess.csrfToken, map[string]any{"roleId": roleID})
	if err != nil {
		return fmt.Errorf("set rank %d->%d: %w", subjectID, roleID, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Error().
			Int64("subject_id", subjectID).
			Int64("role_id", roleID).
			Int("status", resp.StatusCode).
			Str("body", string(detail)).
			Msg("rank mutation rejected")
		return fmt.Errorf("set rank %d->%d: unexpected status %d", subjectID, roleID, resp.StatusCode)
	}
	return nil
}

// SetShout replaces the group's public status message. Empty clears it.
func (c *Client) SetShout(ctx context.Context, message string) error {
	sess, err := c.current()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v1/groups/%d/status", c.groupsURL, c.groupID)
	resp, err := c.do(ctx, http.MethodPatch, url, sess.csrfToken, map[string]any{"message": message})
	if err != nil {
		return fmt.Errorf("set shout: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("set shout: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Roles returns a copy of the cached role catalog keyed by display name.
func (c *Client) Roles() map[string]domain.RankRole {
	sess := c.session.Load()
	if sess == nil {
		return nil
	}
	roles := make(map[string]domain.RankRole, len(sess.roles))
	for name, role := range sess.roles {
		roles[name] = role
	}
	return roles
}

// Identity returns the session's own user, or the zero value when no session
// has been established.
func (c *Client) Identity() domain.Identity {
	sess := c.session.Load()
	if sess == nil {
		return domain.Identity{}
	}
	return sess.identity
}

func (c *Client) current() (*session, error) {
	sess := c.session.Load()
	if sess == nil {
		return nil, domain.ErrNoSession
	}
	return sess, nil
}

// do issues one HTTP exchange with the session cookie, the anti-forgery
// token (when available) and an optional JSON body.
func (c *Client) do(ctx context.Context, method, url, csrfToken string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cookie", ".ROBLOSECURITY="+c.cookie)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if csrfToken != "" {
		req.Header.Set("X-CSRF-TOKEN", csrfToken)
	}

	return c.http.Do(req)
}

// drain discards the rest of the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
