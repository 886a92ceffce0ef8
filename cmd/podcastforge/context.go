package main

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"podcastforge/internal/api"
	"podcastforge/internal/config"
)

// ownerEnv overrides the default owner when --owner is not given.
const ownerEnv = "PODCASTFORGE_OWNER"

type commandContext struct {
	configFlag *string
	serverFlag *string
	tokenFlag  *string
	ownerFlag  *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, serverFlag, tokenFlag, ownerFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		serverFlag: serverFlag,
		tokenFlag:  tokenFlag,
		ownerFlag:  ownerFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.configPathFlag())
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) configPathFlag() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// serverAddress prefers --server, then paths.api_bind.
func (c *commandContext) serverAddress() string {
	if c.serverFlag != nil {
		if value := strings.TrimSpace(*c.serverFlag); value != "" {
			return value
		}
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return cfg.Paths.APIBind
	}
	return ""
}

func (c *commandContext) token() string {
	if c.tokenFlag != nil {
		if value := strings.TrimSpace(*c.tokenFlag); value != "" {
			return value
		}
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return cfg.Paths.APIToken
	}
	return ""
}

func (c *commandContext) owner() string {
	if c.ownerFlag != nil {
		if value := strings.TrimSpace(*c.ownerFlag); value != "" {
			return value
		}
	}
	if value := strings.TrimSpace(os.Getenv(ownerEnv)); value != "" {
		return value
	}
	return api.DefaultOwner
}

func (c *commandContext) client() *api.Client {
	return api.NewClient(c.serverAddress(), c.token(), c.owner())
}

// withClient runs fn against the daemon API and rewrites connection failures
// into a hint about starting the daemon.
func (c *commandContext) withClient(fn func(*api.Client) error) error {
	err := fn(c.client())
	if err == nil {
		return nil
	}
	return wrapDialError(err, c.serverAddress())
}

func wrapDialError(err error, address string) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return err
	}
	var urlErr *url.Error
	var opErr *net.OpError
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon at %s: connection refused; start it with `podcastforge start`", address)
	case errors.As(err, &opErr), errors.As(err, &urlErr):
		return fmt.Errorf("connect to daemon at %s: %w", address, err)
	default:
		return err
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
