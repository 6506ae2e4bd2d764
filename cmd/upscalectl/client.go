package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"upscaled/pkg/types"
)

// client is a thin wrapper over the daemon HTTP API.
type client struct {
	base string
	hc   *http.Client
}

func newClient(addr string) *client {
	return &client{
		base: "http://" + addr,
		hc:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) getJSON(path string, out any) error {
	resp, err := c.hc.Get(c.base + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) postJSON(path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.hc.Post(c.base+path, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) models() ([]types.ModelDescriptor, error) {
	var resp types.ModelsResponse
	if err := c.getJSON("/models", &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

func (c *client) status() (types.StatusResponse, error) {
	var resp types.StatusResponse
	err := c.getJSON("/status", &resp)
	return resp, err
}

func (c *client) initialize(req types.SwitchRequest) error {
	return c.postJSON("/initialize", req, nil)
}

func (c *client) switchModel(req types.SwitchRequest) error {
	return c.postJSON("/switch", req, nil)
}

func (c *client) clearCache() (int, error) {
	var resp map[string]int
	if err := c.postJSON("/cache/clear", struct{}{}, &resp); err != nil {
		return 0, err
	}
	return resp["removed"], nil
}

// process streams the run and delivers each session event to onEvent.
// Runs have no client-side timeout; they end when the daemon closes the
// stream.
func (c *client) process(ctx context.Context, req types.ProcessRequest, onEvent func(types.Event)) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/process", bytes.NewReader(b))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	streamClient := &http.Client{}
	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	sc := bufio.NewScanner(resp.Body)
	// Finished events of buffered runs carry the whole output payload on
	// one line.
	sc.Buffer(make([]byte, 0, 64*1024), 256<<20)
	var runErr error
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e types.Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		if e.Kind == types.EventError {
			runErr = fmt.Errorf("%s", e.Error)
		}
		onEvent(e)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return runErr
}

func apiError(resp *http.Response) error {
	var er types.ErrorResponse
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		return fmt.Errorf("%s (%d)", er.Error, er.Code)
	}
	return fmt.Errorf("unexpected status %s", resp.Status)
}
