package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/licita/internal/corpus"
	"github.com/hyperjump/licita/internal/models"
	"github.com/hyperjump/licita/internal/server"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// doJSON sends a request and decodes a JSON body when the status matches want.
func doJSON(method, u string, want int, out interface{}) error {
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func recommendViaHTTP(serverURL, tenderID string, topN int) (*models.RecommendationResponse, error) {
	u := strings.TrimRight(serverURL, "/") + "/api/v1/recommendations/" + url.PathEscape(tenderID)
	if topN > 0 {
		u += "?top_n=" + strconv.Itoa(topN)
	}
	var resp models.RecommendationResponse
	if err := doJSON(http.MethodGet, u, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func trainViaHTTP(serverURL string) (*corpus.Ticket, error) {
	var ticket corpus.Ticket
	u := strings.TrimRight(serverURL, "/") + "/api/v1/recommendations/train"
	if err := doJSON(http.MethodPost, u, http.StatusAccepted, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// waitForJob polls a rebuild job until it leaves the pending and running states.
func waitForJob(serverURL, token string, interval time.Duration) (*corpus.Job, error) {
	u := strings.TrimRight(serverURL, "/") + "/api/v1/recommendations/train/" + url.PathEscape(token)
	for {
		var job corpus.Job
		if err := doJSON(http.MethodGet, u, http.StatusOK, &job); err != nil {
			return nil, err
		}
		if job.State != corpus.JobPending && job.State != corpus.JobRunning {
			return &job, nil
		}
		time.Sleep(interval)
	}
}

func statusViaHTTP(serverURL string) (*server.StatusResponse, error) {
	var st server.StatusResponse
	if err := doJSON(http.MethodGet, strings.TrimRight(serverURL, "/")+"/api/v1/status", http.StatusOK, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
