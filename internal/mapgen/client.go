package mapgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"winr8te-bot/internal/config"

	"go.uber.org/zap"
)

// ErrGenerationTimeout is returned when the generation service did not have
// every requested map ready inside the configured wait bound.
var ErrGenerationTimeout = errors.New("mapgen: generation timed out")

type MapInfo struct {
	Seed     int64
	ID       string
	URL      string
	ImageURL string
}

type Client struct {
	http         *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	maxWait      time.Duration
	logger       *zap.Logger
}

func New(cfg config.RustMapsConfig, logger *zap.Logger) *Client {
	poll := time.Duration(cfg.PollSeconds) * time.Second
	if poll <= 0 {
		poll = 30 * time.Second
	}
	maxWait := time.Duration(cfg.MaxWaitMinutes) * time.Minute
	if maxWait <= 0 {
		maxWait = 30 * time.Minute
	}
	return &Client{
		http:         &http.Client{Timeout: 30 * time.Second},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		pollInterval: poll,
		maxWait:      maxWait,
		logger:       logger,
	}
}

type generationRequest struct {
	Size    int   `json:"size"`
	Seed    int64 `json:"seed"`
	Staging bool  `json:"staging"`
}

type mapResponse struct {
	Data struct {
		ID           string `json:"id"`
		URL          string `json:"url"`
		ImageURL     string `json:"imageUrl"`
		ImageIconURL string `json:"imageIconUrl"`
	} `json:"data"`
}

// RequestGeneration asks the service to start generating a map. A 409 means
// the map already exists, which is as good as accepted.
func (c *Client) RequestGeneration(ctx context.Context, seed int64, size int) error {
	body, err := json.Marshal(generationRequest{Size: size, Seed: seed, Staging: false})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/maps", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request generation for seed %d: %w", seed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusConflict:
		return nil
	default:
		return fmt.Errorf("request generation for seed %d: unexpected status %d", seed, resp.StatusCode)
	}
}

// PollStatus reports whether the map for a seed is ready; anything but a 200
// counts as not ready yet.
func (c *Client) PollStatus(ctx context.Context, seed int64, size int) (MapInfo, bool, error) {
	url := fmt.Sprintf("%s/maps/%d/%d?staging=false", c.baseURL, size, seed)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return MapInfo{}, false, err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return MapInfo{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return MapInfo{}, false, nil
	}

	var parsed mapResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return MapInfo{}, false, err
	}

	image := parsed.Data.ImageIconURL
	if image == "" {
		image = parsed.Data.ImageURL
	}
	return MapInfo{
		Seed:     seed,
		ID:       parsed.Data.ID,
		URL:      parsed.Data.URL,
		ImageURL: image,
	}, true, nil
}

// WaitForMaps polls until every seed's map is ready, the wait bound elapses,
// or the context is cancelled. Individual poll failures are tolerated; the
// next cycle retries.
func (c *Client) WaitForMaps(ctx context.Context, seeds []int64, size int) ([]MapInfo, error) {
	deadline := time.Now().Add(c.maxWait)
	c.logger.Info("waiting for map generation",
		zap.Int64s("seeds", seeds),
		zap.Duration("max_wait", c.maxWait))

	for {
		infos := make([]MapInfo, 0, len(seeds))
		allReady := true
		for _, seed := range seeds {
			info, ready, err := c.PollStatus(ctx, seed, size)
			if err != nil {
				c.logger.Warn("map status check failed", zap.Int64("seed", seed), zap.Error(err))
				allReady = false
				break
			}
			if !ready {
				allReady = false
				break
			}
			infos = append(infos, info)
		}
		if allReady {
			return infos, nil
		}

		if time.Now().Add(c.pollInterval).After(deadline) {
			return nil, ErrGenerationTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}
