package client

import (
	"bufio"
	"context"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/tankmon/pkg/events"
)

// SubscribeEvents calls fn for every event the daemon streams, until ctx
// is done or the daemon closes the stream.
func (c *Client) SubscribeEvents(ctx context.Context, fn func(events.Event)) error {
	resp, err := c.do(ctx, "/events")
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to subscribe to events")
	}
	defer closeBody(resp)

	if err := checkStatus(resp, ""); err != nil {
		return pkgerrors.Wrapf(err, "failed to subscribe to events")
	}

	err = readEvents(bufio.NewScanner(resp.Body), fn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readEvents parses a text/event-stream body. Comments and fields other
// than event and data are ignored.
func readEvents(sc *bufio.Scanner, fn func(events.Event)) error {
	var name string
	var data []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if len(data) > 0 {
				fn(events.Event{Name: name, Data: []byte(strings.Join(data, "\n"))})
			}
			name, data = "", nil
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
	return sc.Err()
}
