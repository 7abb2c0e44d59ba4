package main

import (
	"errors"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"contentflow/internal/client"
	"contentflow/internal/common"
	"contentflow/internal/config"
)

type flags struct {
	server string
	grpc   string
	media  string
	token  string
	scope  string
	mode   string
}

type commandContext struct {
	flags *flags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(f *flags) *commandContext {
	return &commandContext{flags: f}
}

// ensureConfig reads .env and the environment once; flags override what they name.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		_ = godotenv.Load()
		cfg, err := config.Parse()
		if err != nil {
			c.configErr = err
			return
		}
		override(&cfg.Client.ServerURL, c.flags.server)
		override(&cfg.Client.GRPCAddr, c.flags.grpc)
		override(&cfg.Client.MediaURL, c.flags.media)
		override(&cfg.Client.Token, c.flags.token)
		override(&cfg.Client.Mode, c.flags.mode)
		c.config = cfg
	})
	return c.config, c.configErr
}

func override(dst *string, flag string) {
	if v := strings.TrimSpace(flag); v != "" {
		*dst = v
	}
}

func (c *commandContext) api() (*client.API, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return client.NewAPI(cfg.Client.ServerURL, cfg.Client.Token), nil
}

// session builds a Session for the token's actor and loads the scope.
func (c *commandContext) session(cmd *cobra.Command) (*client.Session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Client.Token == "" {
		return nil, errors.New("no token: pass --token or set CONTENTFLOW_TOKEN (see `contentctl token`)")
	}
	actor, err := common.PeekActor(cfg.Client.Token)
	if err != nil {
		return nil, err
	}
	api, err := c.api()
	if err != nil {
		return nil, err
	}
	s := client.NewSession(api, actor, c.flags.scope)
	if err := s.Refresh(cmd.Context()); err != nil {
		return nil, err
	}
	return s, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
