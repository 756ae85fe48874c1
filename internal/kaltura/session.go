package kaltura

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
)

const sessionTokenType = "KS"

// sessionSource starts a fresh admin session each time Token is called.
// It is wrapped in oauth2.ReuseTokenSource so a session is only started
// again once the previous one has expired.
type sessionSource struct {
	ctx    context.Context
	client *Client
}

func (s *sessionSource) Token() (*oauth2.Token, error) {
	ks, err := s.client.startSession(s.ctx)
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken: ks,
		TokenType:   sessionTokenType,
		Expiry:      time.Now().Add(s.client.sessionLength),
	}, nil
}

func (c *Client) session(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	token, err := oauth2.ReuseTokenSource(c.token, &sessionSource{ctx: ctx, client: c}).Token()
	if err != nil {
		return "", err
	}

	c.token = token
	return token.AccessToken, nil
}

func (c *Client) startSession(ctx context.Context) (string, error) {
	if c.secret == "" {
		return "", ErrNoSecret
	}

	params := map[string]any{
		"secret":    c.secret,
		"userId":    c.userID,
		"type":      SessionTypeAdmin,
		"partnerId": c.partnerID,
		"expiry":    int(c.sessionLength.Seconds()),
	}

	var ks string
	if err := c.post(ctx, c.sessionClient, "session", "start", params, &ks); err != nil {
		return "", err
	}
	if ks == "" {
		return "", fmt.Errorf("kaltura session.start: empty session")
	}

	slog.Debug("Kaltura session started", "partner_id", c.partnerID, "expires_in", c.sessionLength)
	return ks, nil
}

// resetSession drops the cached session so the next call starts a new one.
func (c *Client) resetSession() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}
