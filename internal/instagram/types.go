package instagram

import "time"

// Media is one post returned by the Graph API media edge.
type Media struct {
	ID           string `json:"id"`
	Caption      string `json:"caption,omitempty"`
	MediaType    string `json:"media_type"` // IMAGE, VIDEO, CAROUSEL_ALBUM
	MediaURL     string `json:"media_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Permalink    string `json:"permalink"`
	Timestamp    string `json:"timestamp"`
}

// Comment is a single comment fetched by ID.
type Comment struct {
	ID   string      `json:"id"`
	Text string      `json:"text"`
	From CommentFrom `json:"from"`
}

type CommentFrom struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// WebhookPayload is the top-level body Meta posts to the webhook
// endpoint. Only comment changes are of interest here.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"` // Instagram account ID
	Time    int64           `json:"time"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string             `json:"field"`
	Value WebhookChangeValue `json:"value"`
}

type WebhookChangeValue struct {
	ID    string      `json:"id"` // comment ID
	Text  string      `json:"text"`
	From  CommentFrom `json:"from"`
	Media struct {
		ID string `json:"id"`
	} `json:"media"`
}

// CommentEvent pairs a validated comment change with the Instagram
// account it belongs to.
type CommentEvent struct {
	AccountID string
	Change    WebhookChange
}

// Credentials is the subset of stored credential material the client
// needs for API calls.
type Credentials struct {
	AppID          string
	AppSecret      string
	AccessToken    string
	TokenExpiresAt *time.Time
}

// TokenResult is the outcome of a token refresh check.
type TokenResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

// ReplyResult is the outcome of replying to a comment.
type ReplyResult struct {
	CommentID string
	Success   bool
}

// SendDMResult is the outcome of a direct-message attempt. Provider
// level failures are reported here rather than as errors because they
// are routine (messaging window, blocked recipient) and must be
// recorded per interaction.
type SendDMResult struct {
	MessageID string
	Success   bool
	Error     string
}

// TemplateVariables are the values available to {{placeholder}}
// interpolation in reply and DM templates.
type TemplateVariables struct {
	Username string
	Keyword  string
	Comment  string
}
