package instagram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "app-secret"
	body := []byte(`{"object":"instagram","entry":[]}`)

	if !VerifyWebhookSignature(body, signBody(body, secret), secret) {
		t.Fatal("valid signature rejected")
	}

	// Any single-byte mutation of the body invalidates the signature
	mutated := append([]byte{}, body...)
	mutated[0] = 'X'
	if VerifyWebhookSignature(mutated, signBody(body, secret), secret) {
		t.Fatal("mutated body accepted")
	}

	// Mutated header
	sig := signBody(body, secret)
	badSig := sig[:len(sig)-1] + "0"
	if badSig == sig {
		badSig = sig[:len(sig)-1] + "1"
	}
	if VerifyWebhookSignature(body, badSig, secret) {
		t.Fatal("mutated header accepted")
	}

	// Missing inputs never verify
	if VerifyWebhookSignature(body, "", secret) {
		t.Fatal("empty signature accepted")
	}
	if VerifyWebhookSignature(body, sig, "") {
		t.Fatal("empty secret accepted")
	}

	// Wrong length header
	if VerifyWebhookSignature(body, "sha256=abcd", secret) {
		t.Fatal("short header accepted")
	}
}

func TestParseWebhookPayloadGating(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"wrong object", `{"object":"other","entry":[]}`},
		{"entry not array", `{"object":"instagram","entry":"not-array"}`},
		{"missing entry", `{"object":"instagram"}`},
		{"invalid json", `{{{`},
		{"scalar body", `42`},
	}
	for _, tc := range cases {
		if _, ok := ParseWebhookPayload([]byte(tc.body)); ok {
			t.Errorf("%s: expected rejection", tc.name)
		}
	}

	payload, ok := ParseWebhookPayload([]byte(`{"object":"instagram","entry":[]}`))
	if !ok {
		t.Fatal("valid payload rejected")
	}
	if payload.Object != "instagram" || len(payload.Entry) != 0 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestExtractCommentEventsDropsPartialChanges(t *testing.T) {
	body := []byte(`{
		"object": "instagram",
		"entry": [
			{
				"id": "17841400000000001",
				"time": 1700000000,
				"changes": [
					{
						"field": "comments",
						"value": {
							"id": "c1",
							"text": "this is so boom worthy",
							"from": {"id": "u1", "username": "alice"},
							"media": {"id": "m1"}
						}
					},
					{
						"field": "comments",
						"value": {
							"id": "c2",
							"text": "missing media",
							"from": {"id": "u2", "username": "bob"}
						}
					},
					{
						"field": "mentions",
						"value": {
							"id": "c3",
							"text": "wrong field",
							"from": {"id": "u3", "username": "carol"},
							"media": {"id": "m3"}
						}
					}
				]
			}
		]
	}`)

	payload, ok := ParseWebhookPayload(body)
	if !ok {
		t.Fatal("payload rejected")
	}

	events := ExtractCommentEvents(payload)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	event := events[0]
	if event.AccountID != "17841400000000001" {
		t.Errorf("account id: got %q", event.AccountID)
	}
	if event.Change.Value.ID != "c1" || event.Change.Value.From.Username != "alice" {
		t.Errorf("unexpected change: %+v", event.Change.Value)
	}
}

func TestExtractCommentEventsEmptyText(t *testing.T) {
	payload := &WebhookPayload{
		Object: "instagram",
		Entry: []WebhookEntry{
			{
				ID: "acct",
				Changes: []WebhookChange{
					{Field: "comments", Value: WebhookChangeValue{
						ID:   "c1",
						From: CommentFrom{ID: "u1", Username: "alice"},
					}},
				},
			},
		},
	}
	payload.Entry[0].Changes[0].Value.Media.ID = "m1"

	if events := ExtractCommentEvents(payload); len(events) != 0 {
		t.Fatalf("change without text should be dropped, got %d", len(events))
	}
}
