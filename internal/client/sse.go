package client

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
)

// IssuerEvents subscribes to the server's issuer-change stream. It implements
// events.Subscriber for callers that cannot reach Kafka. The channel closes
// when ctx ends or the stream drops; reconnecting is up to the caller.
type IssuerEvents struct {
	c *Client
}

// IssuerEvents returns the stream subscriber of this client.
func (c *Client) IssuerEvents() *IssuerEvents {
	return &IssuerEvents{c: c}
}

// Subscribe opens the stream.
func (s *IssuerEvents) Subscribe(ctx context.Context) (<-chan events.Signal, error) {
	req, err := s.c.newRequest(ctx, http.MethodGet, "/events/issuers", nil, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	out := make(chan events.Signal, 8)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		var data strings.Builder
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				if data.Len() > 0 {
					sig := parseSignal(data.String())
					data.Reset()
					select {
					case out <- sig:
					case <-ctx.Done():
						return
					}
				}
			case strings.HasPrefix(line, "data:"):
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			}
		}
	}()
	return out, nil
}

// parseSignal decodes the data field. Any event still means "reload", so a bad payload yields an untyped signal.
func parseSignal(data string) events.Signal {
	var sig events.Signal
	_ = json.Unmarshal([]byte(data), &sig)
	return sig
}
