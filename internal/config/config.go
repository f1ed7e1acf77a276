package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// AdapterConfig describes one managed game-server connection.
type AdapterConfig struct {
	AdapterID  string `yaml:"adapter_id"`
	ServerName string `yaml:"server_name"`
	WSURL      string `yaml:"ws_url"`
	AuthToken  string `yaml:"auth_token"`
}

// AppConfig is the full bridge configuration, loaded from the environment
// plus an optional YAML adapters file for multi-server deployments.
type AppConfig struct {
	Adapters []AdapterConfig

	DataDir string

	ChatMessagePrefix string
	WakePrefixes      []string
	EnableJoinQuit    bool
	RelaySlashCmds    bool

	ReconnectInterval time.Duration
	MaxRetries        int

	FilterBots bool
	BotPrefix  []string
	BotSuffix  []string

	RedisURL string

	ChatAPIURL   string
	ChatAPIToken string

	OpsListenAddr string
	AdminUsers    []string

	RconEnabled  bool
	RconHost     string
	RconPort     int
	RconPassword string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		DataDir:           "data",
		ChatMessagePrefix: "[MC]",
		WakePrefixes:      nil,
		EnableJoinQuit:    true,
		RelaySlashCmds:    false,
		ReconnectInterval: 3 * time.Second,
		MaxRetries:        5,
		FilterBots:        true,
		BotPrefix:         []string{"bot_", "Bot_"},
		RconHost:          "localhost",
		RconPort:          25575,
	}

	if v := strings.TrimSpace(os.Getenv("DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("CHAT_MESSAGE_PREFIX")); v != "" {
		cfg.ChatMessagePrefix = v
	}
	cfg.WakePrefixes = splitList(os.Getenv("WAKE_PREFIXES"))
	if v := strings.TrimSpace(os.Getenv("ENABLE_JOIN_QUIT")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EnableJoinQuit = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("RELAY_SLASH_COMMANDS")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RelaySlashCmds = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("RECONNECT_INTERVAL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReconnectInterval = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_RECONNECT_RETRIES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRetries = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("FILTER_BOTS")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.FilterBots = b
		}
	}
	if v := splitList(os.Getenv("BOT_PREFIXES")); len(v) > 0 {
		cfg.BotPrefix = v
	}
	cfg.BotSuffix = splitList(os.Getenv("BOT_SUFFIXES"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.ChatAPIURL = strings.TrimSpace(os.Getenv("CHAT_API_URL"))
	cfg.ChatAPIToken = strings.TrimSpace(os.Getenv("CHAT_API_TOKEN"))
	cfg.OpsListenAddr = strings.TrimSpace(os.Getenv("OPS_LISTEN_ADDR"))
	cfg.AdminUsers = splitList(os.Getenv("ADMIN_USERS"))

	if v := strings.TrimSpace(os.Getenv("RCON_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RconEnabled = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("RCON_HOST")); v != "" {
		cfg.RconHost = v
	}
	if v := strings.TrimSpace(os.Getenv("RCON_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RconPort = n
		}
	}
	cfg.RconPassword = strings.TrimSpace(os.Getenv("RCON_PASSWORD"))

	// Adapters: a YAML file wins; otherwise a single adapter from env vars.
	if path := strings.TrimSpace(os.Getenv("ADAPTERS_FILE")); path != "" {
		adapters, err := loadAdaptersFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Adapters = adapters
	} else if wsURL := strings.TrimSpace(os.Getenv("MC_WS_URL")); wsURL != "" {
		cfg.Adapters = []AdapterConfig{{
			AdapterID:  strings.TrimSpace(getenvDefault("MC_ADAPTER_ID", "minecraft_server_1")),
			ServerName: strings.TrimSpace(getenvDefault("MC_SERVER_NAME", "Server")),
			WSURL:      wsURL,
			AuthToken:  strings.TrimSpace(os.Getenv("MC_AUTH_TOKEN")),
		}}
	}

	if len(cfg.Adapters) == 0 {
		return nil, errors.New("no adapters configured: set ADAPTERS_FILE or MC_WS_URL")
	}
	seen := make(map[string]bool, len(cfg.Adapters))
	for _, a := range cfg.Adapters {
		if strings.TrimSpace(a.AdapterID) == "" || strings.TrimSpace(a.WSURL) == "" {
			return nil, fmt.Errorf("adapter %q: adapter_id and ws_url are required", a.AdapterID)
		}
		if seen[a.AdapterID] {
			return nil, fmt.Errorf("duplicate adapter_id %q", a.AdapterID)
		}
		seen[a.AdapterID] = true
	}
	return cfg, nil
}

func loadAdaptersFile(path string) ([]AdapterConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read adapters file: %w", err)
	}
	var doc struct {
		Adapters []AdapterConfig `yaml:"adapters"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse adapters file: %w", err)
	}
	return doc.Adapters, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
