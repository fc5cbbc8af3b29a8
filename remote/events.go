// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/civic-sync/models"
)

const reconnectDelay = 5 * time.Second

// Subscribe opens the entity's server-sent event stream and delivers
// change notifications until ctx is cancelled. The connection is re-dialed
// after failures; events carry no ordering or delivery guarantee, so
// consumers must treat each one as a refetch trigger only.
//
// The returned channel is closed when ctx ends.
func (c *Client) Subscribe(ctx context.Context, ref models.EntityRef) <-chan models.ChangeEvent {
	out := make(chan models.ChangeEvent, 8)

	go func() {
		defer close(out)
		for {
			if err := c.streamEvents(ctx, ref, out); err != nil && ctx.Err() == nil {
				slog.Warn("event stream interrupted, reconnecting",
					"entity", ref.Key(), "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
		}
	}()

	return out
}

func (c *Client) streamEvents(ctx context.Context, ref models.EntityRef, out chan<- models.ChangeEvent) error {
	path := fmt.Sprintf("/entities/%s/%s/events", ref.Kind, ref.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode, Message: "event stream rejected"}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev models.ChangeEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			slog.Warn("malformed change event, dropping", "entity", ref.Key(), "error", err)
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
