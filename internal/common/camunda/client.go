package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"onboarding-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe client with connection checks and retrying
// command execution.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  500 * time.Millisecond,
	MaxDelay:   5 * time.Second,
}

func NewClient(address string, requestTimeout time.Duration) (*Client, error) {
	if requestTimeout == 0 {
		requestTimeout = 30 * time.Second
	}
	return NewClientWithConfig(&ClientConfig{
		GatewayAddress:         address,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         requestTimeout,
		RetryConfig:            DefaultRetryConfig,
	})
}

func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", config.GatewayAddress, err)
	}

	return &Client{client: zeebeClient, config: config}, nil
}

// NewFromZeebe wraps an already connected client, used by tests.
func NewFromZeebe(client zbc.Client, config *ClientConfig) *Client {
	if config == nil {
		config = &ClientConfig{RequestTimeout: 30 * time.Second, RetryConfig: DefaultRetryConfig}
	}
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}
	if config.ConnectionTimeout == 0 {
		config.ConnectionTimeout = 10 * time.Second
	}
	return &Client{client: client, config: config}
}

func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) RequestTimeout() time.Duration {
	return c.config.RequestTimeout
}

func (c *Client) Close() error {
	return c.client.Close()
}

// ExecuteWithRetry runs command until it succeeds, fails with a
// non-transient error, or the retry budget is spent. Errors come back as
// StandardErrors.
func (c *Client) ExecuteWithRetry(ctx context.Context, command func(context.Context) error, operationName string) error {
	retry := c.config.RetryConfig
	for attempt := 0; ; attempt++ {
		err := command(ctx)
		if err == nil {
			return nil
		}
		if !isRetryableZeebeError(err) || attempt >= retry.MaxRetries {
			return c.mapZeebeError(err, operationName, attempt)
		}

		delay := retry.BaseDelay * time.Duration(1<<attempt)
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return errors.NewTimeoutError("zeebe", fmt.Errorf("operation %s cancelled after %d attempts: %w", operationName, attempt+1, ctx.Err()))
		}
	}
}

// IsAlreadyExists reports a rejected duplicate, which the dispatcher treats
// as an idempotent success.
func IsAlreadyExists(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"deadline exceeded",
		"unavailable",
		"resource_exhausted",
		"broken pipe",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func (c *Client) mapZeebeError(err error, operation string, attempt int) error {
	lowerMsg := strings.ToLower(err.Error())

	wrapped := fmt.Errorf("zeebe operation '%s' failed", operation)
	if attempt > 0 {
		wrapped = fmt.Errorf("zeebe operation '%s' failed after %d attempts", operation, attempt+1)
	}
	wrapped = fmt.Errorf("%v: %w", wrapped, err)

	switch {
	case IsAlreadyExists(err):
		return err
	case strings.Contains(lowerMsg, "deadline exceeded"):
		return errors.NewTimeoutError("zeebe", wrapped)
	case strings.Contains(lowerMsg, "not found"):
		return errors.NewResourceNotFoundError("zeebe", wrapped.Error())
	case strings.Contains(lowerMsg, "permission denied") || strings.Contains(lowerMsg, "unauthenticated"):
		return errors.NewAuthenticationError(wrapped.Error())
	default:
		return errors.NewExternalServiceError("zeebe", wrapped)
	}
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
