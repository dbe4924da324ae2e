package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"viral-kid-platform/internal/logger"
)

const defaultGraphAPIBase = "https://graph.facebook.com/v21.0"

// tokenRefreshMargin is how close to expiry a token may get before it
// is exchanged for a fresh one.
const tokenRefreshMargin = 5 * time.Minute

// defaultTokenLifetime is assumed when the exchange response omits
// expires_in (long-lived tokens last ~60 days).
const defaultTokenLifetime = 5184000 * time.Second

// Client performs calls against the Meta Graph API. All outbound
// requests share a 15-second timeout, a circuit breaker, and a
// request rate limiter.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

func NewClient() *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GraphAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL:     defaultGraphAPIBase,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		breaker:     breaker,
		rateLimiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// NewClientWithBaseURL points the client at a different API base.
// Used by tests to target a local server.
func NewClientWithBaseURL(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// doRequest runs one HTTP request through the rate limiter and
// breaker and returns the response body plus status code.
func (c *Client) doRequest(ctx context.Context, method, rawURL string, body []byte) (int, []byte, error) {
	tracer := otel.Tracer("graph-api-client")
	ctx, span := tracer.Start(ctx, "graph.request")
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", rawURL),
	)

	if err := c.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("graph.rate_limited", true))
		return 0, nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return &graphResponse{status: resp.StatusCode, body: respBody}, nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("graph.transport_error", true))
		return 0, nil, err
	}

	gr := result.(*graphResponse)
	span.SetAttributes(attribute.Int("http.status_code", gr.status))
	return gr.status, gr.body, nil
}

type graphResponse struct {
	status int
	body   []byte
}

// RefreshTokenIfNeeded returns a usable access token for the given
// credentials. Returns nil when no token exists. When the current
// token still has more than five minutes of validity it is returned
// unchanged without a network call; otherwise it is exchanged for a
// new long-lived token.
func (c *Client) RefreshTokenIfNeeded(ctx context.Context, creds Credentials) (*TokenResult, error) {
	if creds.AccessToken == "" {
		return nil, nil
	}

	if creds.TokenExpiresAt != nil && creds.TokenExpiresAt.After(time.Now().Add(tokenRefreshMargin)) {
		return &TokenResult{AccessToken: creds.AccessToken, ExpiresAt: *creds.TokenExpiresAt}, nil
	}

	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", creds.AppID)
	params.Set("client_secret", creds.AppSecret)
	params.Set("fb_exchange_token", creds.AccessToken)

	status, body, err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/oauth/access_token?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("failed to refresh Instagram token: %s", string(body))
	}

	var data struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	lifetime := defaultTokenLifetime
	if data.ExpiresIn > 0 {
		lifetime = time.Duration(data.ExpiresIn) * time.Second
	}

	return &TokenResult{
		AccessToken: data.AccessToken,
		ExpiresAt:   time.Now().Add(lifetime),
	}, nil
}

// GetRecentPosts fetches recent media for an account, used to
// populate the automation setup dropdown.
func (c *Client) GetRecentPosts(ctx context.Context, accessToken, instagramAccountID string, limit int) ([]Media, error) {
	if limit <= 0 {
		limit = 25
	}

	params := url.Values{}
	params.Set("fields", "id,caption,media_type,media_url,thumbnail_url,permalink,timestamp")
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("access_token", accessToken)

	status, body, err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/"+instagramAccountID+"/media?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("failed to fetch Instagram posts: %s", string(body))
	}

	var data struct {
		Data []Media `json:"data"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode media response: %w", err)
	}
	return data.Data, nil
}

// ReplyToComment posts a public reply under a comment. A non-2xx
// response is an error carrying the provider body, which makes the
// enclosing job eligible for queue-level retry.
func (c *Client) ReplyToComment(ctx context.Context, accessToken, commentID, message string) (*ReplyResult, error) {
	payload, err := json.Marshal(map[string]string{
		"message":      message,
		"access_token": accessToken,
	})
	if err != nil {
		return nil, err
	}

	status, body, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/"+commentID+"/replies", payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("failed to reply to comment: %s", string(body))
	}

	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode reply response: %w", err)
	}
	return &ReplyResult{CommentID: data.ID, Success: true}, nil
}

// SendDirectMessage sends a DM through the Instagram Messaging API.
// Provider-level failures are returned as a typed result, never as an
// error: DM rejections are routine (the 7-day messaging window,
// blocked recipients) and must be recorded on the interaction instead
// of aborting the caller. Only transport failures return an error.
func (c *Client) SendDirectMessage(ctx context.Context, accessToken, instagramAccountID, recipientID, message string) (*SendDMResult, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"recipient":    map[string]string{"id": recipientID},
		"message":      map[string]string{"text": message},
		"access_token": accessToken,
	})
	if err != nil {
		return nil, err
	}

	status, body, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/"+instagramAccountID+"/messages", payload)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		var errData struct {
			Error struct {
				Message string `json:"message"`
				Code    int    `json:"code"`
			} `json:"error"`
		}
		errMessage := string(body)
		if jsonErr := json.Unmarshal(body, &errData); jsonErr == nil && errData.Error.Message != "" {
			switch errData.Error.Code {
			case 10:
				return &SendDMResult{Success: false, Error: "User has not interacted within the 7-day messaging window"}, nil
			case 551:
				return &SendDMResult{Success: false, Error: "This user cannot receive messages from this account"}, nil
			}
			errMessage = errData.Error.Message
		}
		return &SendDMResult{Success: false, Error: errMessage}, nil
	}

	var data struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode DM response: %w", err)
	}
	return &SendDMResult{MessageID: data.MessageID, Success: true}, nil
}

// SubscribeToWebhook subscribes the account's app to comment events.
// Called once during account setup.
func (c *Client) SubscribeToWebhook(ctx context.Context, accessToken, instagramAccountID string) (bool, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"subscribed_fields": []string{"comments"},
		"access_token":      accessToken,
	})
	if err != nil {
		return false, err
	}

	status, body, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/"+instagramAccountID+"/subscribed_apps", payload)
	if err != nil {
		return false, err
	}
	if status < 200 || status >= 300 {
		return false, fmt.Errorf("failed to subscribe to webhook: %s", string(body))
	}

	var data struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return false, fmt.Errorf("failed to decode subscribe response: %w", err)
	}
	return data.Success, nil
}

// GetComment looks up a comment by ID. Returns nil without error on a
// non-2xx response.
func (c *Client) GetComment(ctx context.Context, accessToken, commentID string) (*Comment, error) {
	params := url.Values{}
	params.Set("fields", "id,text,from")
	params.Set("access_token", accessToken)

	status, body, err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/"+commentID+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, nil
	}

	var comment Comment
	if err := json.Unmarshal(body, &comment); err != nil {
		return nil, fmt.Errorf("failed to decode comment response: %w", err)
	}
	return &comment, nil
}
