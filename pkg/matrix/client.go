package matrix

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"creator-hub-backend/pkg/authz"

	"github.com/google/uuid"
)

// Adapter is the narrow slice of the homeserver this backend depends on.
// Provisioning calls return the external room id, or "" when the adapter
// is not configured; callers proceed with an empty external id rather
// than failing.
type Adapter interface {
	CreateSpace(name string) (string, error)
	CreateRoom(name, kind string) (string, error)
	AttachChild(parentID, childID string) error
	Kick(roomID, userID, reason string) error
	Ban(roomID, userID, reason string) error
	Unban(roomID, userID string) error
	Redact(roomID, eventID, reason string) error
}

// Client talks to a Matrix homeserver's client-server API with an
// application service access token. Failures surface as adapter_failure
// errors; the authorization gateway never absorbs or retries them.
// Retry/backoff policy belongs to the caller at this boundary.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient builds a client. An empty homeserver URL yields an
// unconfigured client whose provisioning calls return empty ids and
// whose moderation calls are no-ops.
func NewClient(homeserverURL, accessToken string) *Client {
	homeserverURL = strings.TrimSpace(homeserverURL)
	if homeserverURL != "" && !strings.HasPrefix(homeserverURL, "http") {
		homeserverURL = "https://" + homeserverURL
	}
	return &Client{
		baseURL:     strings.TrimSuffix(homeserverURL, "/"),
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Configured reports whether a homeserver is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

func (c *Client) CreateSpace(name string) (string, error) {
	if !c.Configured() {
		return "", nil
	}
	return c.createRoom(map[string]interface{}{
		"name":   name,
		"preset": "private_chat",
		"creation_content": map[string]interface{}{
			"type": "m.space",
		},
	})
}

func (c *Client) CreateRoom(name, kind string) (string, error) {
	if !c.Configured() {
		return "", nil
	}
	body := map[string]interface{}{
		"name":   name,
		"preset": "private_chat",
	}
	if kind != "" {
		body["topic"] = kind
	}
	return c.createRoom(body)
}

func (c *Client) createRoom(body map[string]interface{}) (string, error) {
	var out struct {
		RoomID string `json:"room_id"`
	}
	if err := c.do(http.MethodPost, "/_matrix/client/v3/createRoom", body, &out); err != nil {
		return "", err
	}
	return out.RoomID, nil
}

func (c *Client) AttachChild(parentID, childID string) error {
	if !c.Configured() || parentID == "" || childID == "" {
		return nil
	}
	endpoint := fmt.Sprintf("/_matrix/client/v3/rooms/%s/state/m.space.child/%s",
		url.PathEscape(parentID), url.PathEscape(childID))
	return c.do(http.MethodPut, endpoint, map[string]interface{}{
		"via": []string{c.serverName()},
	}, nil)
}

func (c *Client) Kick(roomID, userID, reason string) error {
	return c.membershipAction("kick", roomID, userID, reason)
}

func (c *Client) Ban(roomID, userID, reason string) error {
	return c.membershipAction("ban", roomID, userID, reason)
}

func (c *Client) Unban(roomID, userID string) error {
	return c.membershipAction("unban", roomID, userID, "")
}

func (c *Client) membershipAction(action, roomID, userID, reason string) error {
	if !c.Configured() || roomID == "" {
		return nil
	}
	endpoint := fmt.Sprintf("/_matrix/client/v3/rooms/%s/%s", url.PathEscape(roomID), action)
	body := map[string]interface{}{"user_id": userID}
	if reason != "" {
		body["reason"] = reason
	}
	return c.do(http.MethodPost, endpoint, body, nil)
}

func (c *Client) Redact(roomID, eventID, reason string) error {
	if !c.Configured() || roomID == "" {
		return nil
	}
	endpoint := fmt.Sprintf("/_matrix/client/v3/rooms/%s/redact/%s/%s",
		url.PathEscape(roomID), url.PathEscape(eventID), uuid.NewString())
	body := map[string]interface{}{}
	if reason != "" {
		body["reason"] = reason
	}
	return c.do(http.MethodPut, endpoint, body, nil)
}

func (c *Client) do(method, endpoint string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return authz.ErrAdapterFailure("matrix: " + err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return authz.ErrAdapterFailure("matrix: " + err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return authz.ErrAdapterFailure("matrix: " + err.Error())
	}
	if resp.StatusCode >= 400 {
		return authz.ErrAdapterFailure(fmt.Sprintf("matrix: status %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return authz.ErrAdapterFailure("matrix: bad response: " + err.Error())
		}
	}
	return nil
}

// serverName extracts the homeserver's DNS name for m.space.child "via".
func (c *Client) serverName() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
