package conf

import (
	"os"
	"path/filepath"
	"strings"
)

// Config represents application configuration
type Config struct {
	// Feishu configuration
	Feishu FeishuConfig

	// Data directory for the sqlite databases
	DataDir string

	// MaintainerID is the open_id of the bot's maintainer
	MaintainerID string

	// OrgAdminIDs are open_ids treated as organization admins
	OrgAdminIDs []string

	// Messages configuration (loaded from YAML)
	Messages *MessagesConfig

	// Debug mode
	Debug bool
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
	BotName   string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		homeDir, _ := os.UserHomeDir()
		dataDir = filepath.Join(homeDir, ".orgbot")
	}

	var orgAdminIDs []string
	for _, id := range strings.Split(os.Getenv("ORG_ADMIN_IDS"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			orgAdminIDs = append(orgAdminIDs, id)
		}
	}

	messages, err := LoadMessagesConfig(os.Getenv("MESSAGES_CONFIG_PATH"))
	if err != nil {
		messages = DefaultMessagesConfig()
	}

	return &Config{
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
			BotName:   os.Getenv("BOT_NAME"),
		},
		DataDir:      dataDir,
		MaintainerID: os.Getenv("MAINTAINER_ID"),
		OrgAdminIDs:  orgAdminIDs,
		Messages:     messages,
		Debug:        os.Getenv("DEBUG") == "true",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
