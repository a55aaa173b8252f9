package httpclient

import (
	"net/http"
	"strings"
)

const redactedValue = "***"

// sensitiveHeaders are masked in payload logs regardless of the logger's own filter.
var sensitiveHeaders = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"set-cookie":    {},
	"apikey":        {},
	"x-api-key":     {},
}

func (c *client) logRequest(req *http.Request, body []byte, traceID string) {
	event := c.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", traceID)

	if len(req.Header) > 0 {
		event = event.Int("header_count", len(req.Header))
	}
	if len(body) > 0 {
		event = event.Int("body_size", len(body))
	}
	event.Msg("REST client request")

	if !c.config.LogPayloads {
		return
	}

	preview, truncated := c.preview(body)
	c.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("request_id", traceID).
		Interface("headers", redactHeaders(req.Header)).
		Int("body_size", len(body)).
		Str("body_truncated", boolString(truncated)).
		Bytes("body_preview", preview).
		Msg("REST client request")
}

func (c *client) logResponse(resp *Response, traceID string) {
	event := c.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Str("request_id", traceID)

	if len(resp.Body) > 0 {
		event = event.Int("body_size", len(resp.Body))
	}
	event.Msg("REST client response")

	if !c.config.LogPayloads {
		return
	}

	preview, truncated := c.preview(resp.Body)
	c.logger.Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Str("request_id", traceID).
		Interface("headers", redactHeaders(resp.Headers)).
		Int("body_size", len(resp.Body)).
		Str("body_truncated", boolString(truncated)).
		Bytes("body_preview", preview).
		Msg("REST client response")
}

func (c *client) preview(body []byte) ([]byte, bool) {
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = DefaultMaxPayloadLogBytes
	}
	if len(body) > limit {
		return body[:limit], true
	}
	return body, false
}

// redactHeaders returns a copy of h with credentials masked.
func redactHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		if _, ok := sensitiveHeaders[strings.ToLower(k)]; ok {
			out[k] = []string{redactedValue}
			continue
		}
		out[k] = v
	}
	return out
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
