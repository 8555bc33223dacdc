// Package upstream talks to the third-party game-statistics API.
//
// The API exposes one endpoint per player: GET <base>/<uid> returns the
// parsed showcase for that UID. The client normalises every failure mode
// (timeout, DNS, refused connection, non-2xx status, malformed body) into
// a single apperror.ErrUpstream so callers never branch on transport
// details. The raw cause stays attached for logging.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/sr-companion/internal/apperror"
)

// Named is a name-bearing sub-object of a roster entry (element, path).
type Named struct {
	Name string `json:"name"`
}

// Character is one roster entry from the upstream payload. Raw preserves
// the entry exactly as received so it can be persisted without this
// service having to model the full upstream schema.
type Character struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Rarity  int    `json:"rarity"`
	Level   int    `json:"level"`
	Rank    int    `json:"rank"`
	Element *Named `json:"element,omitempty"`
	Path    *Named `json:"path,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the full entry in Raw.
func (c *Character) UnmarshalJSON(data []byte) error {
	type alias Character
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = Character(a)
	c.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// ElementName returns the element's name or "".
func (c *Character) ElementName() string {
	if c.Element == nil {
		return ""
	}
	return c.Element.Name
}

// PathName returns the path's name or "".
func (c *Character) PathName() string {
	if c.Path == nil {
		return ""
	}
	return c.Path.Name
}

// Player is the profile summary part of the payload.
type Player struct {
	Nickname   string `json:"nickname"`
	Level      int    `json:"level"`
	WorldLevel int    `json:"world_level"`
}

// PlayerData is the full parsed response for one UID.
type PlayerData struct {
	Player     Player      `json:"player"`
	Characters []Character `json:"characters"`
}

// Config holds the upstream endpoint settings.
type Config struct {
	BaseURL string
	// Timeout bounds the whole call independently of the caller's context.
	// The upstream is slow on cache misses; 10s matches its worst case.
	Timeout time.Duration
}

// DefaultConfig points at the public parsed-info endpoint.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://api.mihomo.me/sr_info_parsed",
		Timeout: 10 * time.Second,
	}
}

// Client fetches player data over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a Client. The base URL is normalised to end without a slash.
func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// FetchPlayerRaw fetches the showcase for a UID and returns the response
// body verbatim, already checked to be valid JSON. The proxy route serves
// this directly so upstream fields this service never modelled still
// reach the frontend.
//
// The UID is used verbatim — format validation is the caller's job, since
// the proxy route accepts a wider range than the sync workflow does.
func (c *Client) FetchPlayerRaw(ctx context.Context, uid string) (json.RawMessage, error) {
	url := c.baseURL + "/" + uid

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperror.UpstreamFailed(uid, err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("fetching player data", slog.String("uid", uid), slog.String("url", url))

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("upstream request failed",
			slog.String("uid", uid),
			slog.String("error", err.Error()),
		)
		return nil, apperror.UpstreamFailed(uid, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused, then discard the body:
		// upstream error pages are HTML and useless to callers.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.logger.Warn("upstream returned non-success status",
			slog.String("uid", uid),
			slog.Int("status", resp.StatusCode),
		)
		return nil, apperror.UpstreamFailed(uid, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.UpstreamFailed(uid, fmt.Errorf("reading response: %w", err))
	}
	if !json.Valid(body) {
		return nil, apperror.UpstreamFailed(uid, fmt.Errorf("response is not valid JSON"))
	}
	return json.RawMessage(body), nil
}

// FetchPlayerData fetches and parses the current showcase for a UID.
func (c *Client) FetchPlayerData(ctx context.Context, uid string) (*PlayerData, error) {
	raw, err := c.FetchPlayerRaw(ctx, uid)
	if err != nil {
		return nil, err
	}

	var data PlayerData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, apperror.UpstreamFailed(uid, fmt.Errorf("decoding response: %w", err))
	}

	c.logger.Debug("player data fetched",
		slog.String("uid", uid),
		slog.String("nickname", data.Player.Nickname),
		slog.Int("characters", len(data.Characters)),
	)
	return &data, nil
}
