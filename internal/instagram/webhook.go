package instagram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// VerifyWebhookSignature checks the X-Hub-Signature-256 header Meta
// sends with webhook deliveries. The expected header format is
// "sha256=<hex>". Comparison is constant-time; missing inputs or a
// length mismatch return false rather than an error.
func VerifyWebhookSignature(rawBody []byte, signatureHeader, appSecret string) bool {
	if signatureHeader == "" || appSecret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(rawBody)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signatureHeader), []byte(expected))
}

// ParseWebhookPayload validates the structural shape of a webhook
// body: the object tag must be "instagram" and entry must be a JSON
// array. This is a gate, not full schema validation — nested fields
// are still checked defensively downstream.
func ParseWebhookPayload(body []byte) (*WebhookPayload, bool) {
	var probe struct {
		Object string          `json:"object"`
		Entry  json.RawMessage `json:"entry"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, false
	}
	if probe.Object != "instagram" {
		return nil, false
	}

	var entries []WebhookEntry
	if err := json.Unmarshal(probe.Entry, &entries); err != nil {
		return nil, false
	}

	return &WebhookPayload{Object: probe.Object, Entry: entries}, true
}

// ExtractCommentEvents flattens entries into comment changes, keeping
// only "comments" field changes that carry a comment id, non-empty
// text, commenter id and username, and a media id. Partial changes
// are dropped silently — Meta batches routinely contain noise and one
// bad change must not block its siblings.
func ExtractCommentEvents(payload *WebhookPayload) []CommentEvent {
	events := []CommentEvent{}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "comments" {
				continue
			}
			v := change.Value
			if v.ID == "" || v.Text == "" || v.From.ID == "" || v.From.Username == "" || v.Media.ID == "" {
				continue
			}
			events = append(events, CommentEvent{AccountID: entry.ID, Change: change})
		}
	}

	return events
}
