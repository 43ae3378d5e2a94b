package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"boomerang-backend/models"

	"github.com/google/uuid"
)

// MetadataItem is one cart line reduced to what the payment provider
// needs to build the session.
type MetadataItem struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// Metadata is the payload handed to the session-creation collaborator.
// It is ephemeral: built at checkout time, never persisted here.
type Metadata struct {
	UserID  uuid.UUID      `json:"userId"`
	Address models.Address `json:"address"`
	Items   []MetadataItem `json:"items"`
}

// Session is the provider's response: a URL the shopper is redirected to.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// SessionClient creates a payment session from checkout metadata.
type SessionClient interface {
	CreateSession(ctx context.Context, meta Metadata) (Session, error)
}

// HTTPSessionClient talks to the payment provider's session endpoint
// over plain HTTP with a bearer secret key.
type HTTPSessionClient struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

func NewHTTPSessionClient() *HTTPSessionClient {
	return &HTTPSessionClient{
		BaseURL:   os.Getenv("PAYMENT_API_URL"),
		SecretKey: os.Getenv("PAYMENT_SECRET_KEY"),
		Client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPSessionClient) CreateSession(ctx context.Context, meta Metadata) (Session, error) {
	if c.BaseURL == "" {
		return Session{}, errors.New("PAYMENT_API_URL not configured")
	}
	if c.SecretKey == "" {
		return Session{}, errors.New("PAYMENT_SECRET_KEY not configured")
	}

	body, err := json.Marshal(meta)
	if err != nil {
		return Session{}, fmt.Errorf("failed to encode checkout metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return Session{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("payment session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Session{}, fmt.Errorf("payment provider returned %d: %s", resp.StatusCode, string(snippet))
	}

	var sess Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return Session{}, fmt.Errorf("failed to decode payment session: %w", err)
	}
	if sess.URL == "" {
		return Session{}, errors.New("payment provider returned no redirect URL")
	}
	return sess, nil
}
