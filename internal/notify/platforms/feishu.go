package platforms

import (
	"context"
	"strings"
)

type FeishuAdapter struct {
	client *HTTPClient
}

func NewFeishuAdapter(client *HTTPClient) *FeishuAdapter {
	return &FeishuAdapter{client: client}
}

func (a *FeishuAdapter) Name() string {
	return "feishu"
}

// Send posts an interactive card. secret, when set, is forwarded as the
// webhook signature header.
func (a *FeishuAdapter) Send(ctx context.Context, endpoint, secret string, msg Message) error {
	elements := []map[string]string{{
		"tag":  "markdown",
		"text": fallback(msg.Description, msg.Content),
	}}
	for _, f := range msg.Fields {
		elements = append(elements, map[string]string{
			"tag":  "markdown",
			"text": "**" + f.Name + "**: " + f.Value,
		})
	}
	payload := map[string]any{
		"msg_type": "interactive",
		"card": map[string]any{
			"header": map[string]any{
				"title": map[string]any{
					"tag":     "plain_text",
					"content": msg.Title,
				},
				"template": "blue",
			},
			"elements": elements,
		},
	}
	headers := map[string]string{}
	if s := strings.TrimSpace(secret); s != "" {
		headers["X-Lark-Signature"] = s
	}
	return a.client.PostJSON(ctx, endpoint, headers, payload)
}

func fallback(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
