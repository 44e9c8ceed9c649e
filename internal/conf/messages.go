package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MessagesConfig contains the bot's user-facing message texts loaded from YAML
type MessagesConfig struct {
	AccessDenied    []string        `yaml:"access_denied"`
	ReadOnlyNotice  string          `yaml:"read_only_notice"`
	UnknownCommand  string          `yaml:"unknown_command"`
	AliasCycle      string          `yaml:"alias_cycle"`
	KeywordNotice   string          `yaml:"keyword_notice"`
	DefaultPrefixes []string        `yaml:"default_prefixes"`
	Moderation      ModerationTexts `yaml:"moderation"`
}

// ModerationTexts contains mute and timeout confirmation texts
type ModerationTexts struct {
	Muted     string `yaml:"muted"`
	Unmuted   string `yaml:"unmuted"`
	TimedOut  string `yaml:"timed_out"`
	Untimeout string `yaml:"untimeout"`
}

// LoadMessagesConfig loads message texts from YAML file
func LoadMessagesConfig(configPath string) (*MessagesConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/messages.yaml",
			"/etc/orgbot/messages.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "messages.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if b, err := os.ReadFile(p); err == nil {
			data = b
			loadedPath = p
			break
		}
	}

	if data == nil {
		fmt.Println("[Config] No messages.yaml found, using defaults")
		return DefaultMessagesConfig(), nil
	}
	fmt.Printf("[Config] Loading messages from: %s\n", loadedPath)

	var config MessagesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse messages.yaml: %w", err)
	}
	config.fillDefaults()
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *MessagesConfig) fillDefaults() {
	defaults := DefaultMessagesConfig()

	if len(c.AccessDenied) == 0 {
		c.AccessDenied = defaults.AccessDenied
	}
	if c.ReadOnlyNotice == "" {
		c.ReadOnlyNotice = defaults.ReadOnlyNotice
	}
	if c.UnknownCommand == "" {
		c.UnknownCommand = defaults.UnknownCommand
	}
	if c.AliasCycle == "" {
		c.AliasCycle = defaults.AliasCycle
	}
	if c.KeywordNotice == "" {
		c.KeywordNotice = defaults.KeywordNotice
	}
	if len(c.DefaultPrefixes) == 0 {
		c.DefaultPrefixes = defaults.DefaultPrefixes
	}
	if c.Moderation.Muted == "" {
		c.Moderation.Muted = defaults.Moderation.Muted
	}
	if c.Moderation.Unmuted == "" {
		c.Moderation.Unmuted = defaults.Moderation.Unmuted
	}
	if c.Moderation.TimedOut == "" {
		c.Moderation.TimedOut = defaults.Moderation.TimedOut
	}
	if c.Moderation.Untimeout == "" {
		c.Moderation.Untimeout = defaults.Moderation.Untimeout
	}
}

// FormatReadOnlyNotice fills the chat name into the read-only notice
func (c *MessagesConfig) FormatReadOnlyNotice(chatName string) string {
	return strings.ReplaceAll(c.ReadOnlyNotice, "{{chat}}", chatName)
}

// FormatKeywordNotice fills keyword and chat name into the notification text
func (c *MessagesConfig) FormatKeywordNotice(keyword, chatName, text string) string {
	result := c.KeywordNotice
	result = strings.ReplaceAll(result, "{{keyword}}", keyword)
	result = strings.ReplaceAll(result, "{{chat}}", chatName)
	result = strings.ReplaceAll(result, "{{message}}", text)
	return result
}

// DefaultMessagesConfig returns the default message texts
func DefaultMessagesConfig() *MessagesConfig {
	return &MessagesConfig{
		AccessDenied: []string{
			"I'm sorry Dave, I'm afraid I can't do that.",
			"ACCESS DENIED",
			"This operation requires a higher access level. Please ask an admin.",
			"Nice try.",
		},
		ReadOnlyNotice: "Sorry, the chat {{chat}} is in read-only mode. Your message was removed.",
		UnknownCommand: "Sorry, I didn't understand that command. Try `help` for a list of commands.",
		AliasCycle:     "Sorry, that command could not be run: ",
		KeywordNotice:  "Your keyword \"{{keyword}}\" was mentioned in {{chat}}:\n> {{message}}",
		DefaultPrefixes: []string{
			"@orgbot ",
		},
		Moderation: ModerationTexts{
			Muted:     "%s has been muted in this chat.",
			Unmuted:   "%s is no longer muted in this chat.",
			TimedOut:  "%s has been put in timeout for %s.",
			Untimeout: "%s is no longer in timeout.",
		},
	}
}
