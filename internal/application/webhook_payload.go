package application

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sponticoupon/claim-redemption-service/internal/domain"
)

// webhookPayload is the union of processor callback shapes we understand.
// Unknown fields are ignored; processors add fields freely.
type webhookPayload struct {
	SessionToken      string         `json:"sessionToken"`
	SessionTokenSnake string         `json:"session_token"`
	Metadata          map[string]any `json:"metadata"`
	Data              *struct {
		Object *struct {
			ClientReferenceID string         `json:"client_reference_id"`
			Metadata          map[string]any `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
	Resource *struct {
		CustomID string `json:"custom_id"`
	} `json:"resource"`
}

type sessionTokenExtractor struct {
	source  string
	extract func(p webhookPayload) string
}

// sessionTokenExtractors run in priority order: processor client reference,
// then processor metadata, then the generic top-level field.
var sessionTokenExtractors = []sessionTokenExtractor{
	{
		source: "client_reference",
		extract: func(p webhookPayload) string {
			if p.Data != nil && p.Data.Object != nil && p.Data.Object.ClientReferenceID != "" {
				return p.Data.Object.ClientReferenceID
			}
			if p.Resource != nil {
				return p.Resource.CustomID
			}
			return ""
		},
	},
	{
		source: "metadata",
		extract: func(p webhookPayload) string {
			if p.Data != nil && p.Data.Object != nil {
				if tok := metadataToken(p.Data.Object.Metadata); tok != "" {
					return tok
				}
			}
			return metadataToken(p.Metadata)
		},
	},
	{
		source: "top_level",
		extract: func(p webhookPayload) string {
			if p.SessionToken != "" {
				return p.SessionToken
			}
			return p.SessionTokenSnake
		},
	},
}

func metadataToken(bag map[string]any) string {
	for _, key := range []string{"session_token", "sessionToken"} {
		if v, ok := bag[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// extractSessionToken returns the claim correlation key and which payload
// shape supplied it.
func extractSessionToken(raw []byte) (token string, source string, err error) {
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", "", fmt.Errorf("%w: body is not a JSON object", domain.ErrInvalidPayload)
	}
	for _, ex := range sessionTokenExtractors {
		if tok := strings.TrimSpace(ex.extract(payload)); tok != "" {
			return tok, ex.source, nil
		}
	}
	return "", "", fmt.Errorf("%w: no session token in payload", domain.ErrInvalidPayload)
}
