package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profeamigo/config"
	"profeamigo/services"
	"profeamigo/utils"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"serve", "migrate", "adduser"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestSetupJWTSecret(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Env = config.EnvProduction
	assert.Error(t, setupJWTSecret(cfg))

	cfg.Server.Env = config.EnvDevelopment
	require.NoError(t, setupJWTSecret(cfg))
	token, err := utils.GenerateJWTToken("1", "a", "A")
	require.NoError(t, err)
	_, err = utils.ParseJWTToken(token)
	assert.NoError(t, err)

	cfg.JWT.Secret = "short"
	require.NoError(t, setupJWTSecret(cfg))
}

func TestChatModel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Chat.Provider = config.ProviderOpenRouter
	assert.Nil(t, chatModel(cfg, nil))

	cfg.OpenRouter.APIKey = "key"
	_, ok := chatModel(cfg, nil).(*services.OpenRouter)
	assert.True(t, ok)

	cfg.Chat.Provider = config.ProviderGemini
	assert.Nil(t, chatModel(cfg, nil))
}
