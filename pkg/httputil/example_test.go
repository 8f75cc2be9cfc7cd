package httputil_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/pairlab/backend/pkg/config"
	"github.com/wonny/pairlab/backend/pkg/httputil"
	"github.com/wonny/pairlab/backend/pkg/logger"
)

// Example_basic downloads one symbol's daily closes through the shared client
func Example_basic() {
	cfg := &config.Config{
		Feed: config.FeedConfig{
			Timeout:           10 * time.Second,
			RequestsPerSecond: 2,
			Burst:             1,
			MaxRetries:        3,
		},
	}
	client := httputil.New(cfg, logger.NewNop())

	body, err := client.GetBody(context.Background(), "https://prices.example.com/SPY.csv")
	var statusErr *httputil.StatusError
	switch {
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		fmt.Println("unknown symbol")
	case err != nil:
		fmt.Printf("fetch failed: %v\n", err)
	default:
		fmt.Printf("received %d bytes\n", len(body))
	}
}

// Example_noRetry is what tests use against a local server
func Example_noRetry() {
	cfg := &config.Config{}
	client := httputil.NewWithTimeout(cfg, logger.NewNop(), 2*time.Second).DisableRetry()

	resp, err := client.Get(context.Background(), "http://127.0.0.1:8080/health")
	if err != nil {
		fmt.Printf("request failed: %v\n", err)
		return
	}
	defer resp.Body.Close()
	fmt.Printf("status %d\n", resp.StatusCode)
}
