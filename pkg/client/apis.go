package client

import (
	"encoding/json"
	"net/url"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/tankmon/pkg/config"
	"github.com/charlie0129/tankmon/pkg/types"
)

func (c *Client) GetReading() (*types.TickResult, error) {
	ret, err := c.Get("/reading")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get reading")
	}

	var res types.TickResult
	if err := json.Unmarshal([]byte(ret), &res); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal reading")
	}
	return &res, nil
}

// GetHistory returns the recorded readings, oldest first. A zero last
// returns all of them.
func (c *Client) GetHistory(last time.Duration) ([]types.Record, error) {
	path := "/history"
	if last > 0 {
		path += "?last=" + url.QueryEscape(last.String())
	}

	ret, err := c.Get(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get history")
	}

	var records []types.Record
	if err := json.Unmarshal([]byte(ret), &records); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal history")
	}
	return records, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}

	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}
