package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jingdong00/FLAML/pkg/models"
)

// client is a thin wrapper over the tuned HTTP API.
type client struct {
	base string
	http *http.Client
}

func newClient(base string) *client {
	return &client{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) createSearch(experimentYAML string) (models.CreateSearchResponse, error) {
	var out models.CreateSearchResponse
	err := c.post("/v1/searches", models.CreateSearchRequest{Experiment: experimentYAML}, &out)
	return out, err
}

func (c *client) getJob(id string) (models.Job, error) {
	var out models.Job
	err := c.get("/v1/searches/"+id, &out)
	return out, err
}

func (c *client) listJobs() (models.JobList, error) {
	var out models.JobList
	err := c.get("/v1/searches", &out)
	return out, err
}

func (c *client) stopJob(id string) error {
	return c.post("/v1/searches/"+id+"/stop", nil, nil)
}

func (c *client) bestTrial(id string) (models.TrialView, error) {
	var out models.TrialView
	err := c.get("/v1/searches/"+id+"/best", &out)
	return out, err
}

func (c *client) trials(id string, offset, limit int) (models.TrialPage, error) {
	var out models.TrialPage
	err := c.get(fmt.Sprintf("/v1/searches/%s/trials?offset=%d&limit=%d", id, offset, limit), &out)
	return out, err
}

func (c *client) get(path string, out any) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func (c *client) post(path string, payload, out any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return err
		}
	}
	resp, err := c.http.Post(c.base+path, "application/json", &body)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
