// Package config loads the trading client's configuration from the process
// environment, following the same typed-getter pattern across every setting.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SkipPolicy controls when an AH snipe skips the wait-and-click confirm step
// in favour of a speculative pre-click (spec.md §4.2).
type SkipPolicy struct {
	Always           bool
	MinProfitEnabled bool
	MinProfit        decimal.Decimal
	UserFinder       bool
	Skins            bool
	ProfitPercentage bool
	ProfitPctThresh  decimal.Decimal
	MinPriceEnabled  bool
	MinPrice         decimal.Decimal
}

// Config holds every tunable of the orchestrator and its collaborators.
type Config struct {
	InGameName     string
	ControlLinkURL string
	ClientVersion  string
	SessionID      string

	EnableAHFlips     bool
	EnableBazaarFlips bool

	WebhookURL string

	TelegramToken  string
	TelegramChatID int64

	DatabaseDSN string

	PriceHostURL  string
	HypixelAPIURL string

	BedSpam         bool
	BedSpamDelay    time.Duration
	AutoCookieHours float64

	Skip SkipPolicy

	MaxTotalOrders int
	MaxBuyOrders   int
	BazaarTaxRate  decimal.Decimal

	CookieDuration     time.Duration
	CookiePriceCap     decimal.Decimal
	ProfitReportPeriod time.Duration
	BazaarRefreshEvery time.Duration
	OrderCooldown      time.Duration
	DailySellLimit     time.Duration

	Debug bool
}

// Load reads configuration from the environment, applying the documented
// defaults for anything left unset (spec.md §6 "Observable constants").
func Load() (*Config, error) {
	cfg := &Config{
		InGameName:     os.Getenv("INGAME_NAME"),
		ControlLinkURL: os.Getenv("WEBSOCKET_URL"),
		ClientVersion:  getEnv("CLIENT_VERSION", "1.8.9"),
		SessionID:      getEnv("SESSION_ID", ""),

		EnableAHFlips:     getEnvBool("ENABLE_AH_FLIPS", true),
		EnableBazaarFlips: getEnvBool("ENABLE_BAZAAR_FLIPS", true),

		WebhookURL: os.Getenv("WEBHOOK_URL"),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseDSN:   getEnv("DATABASE_DSN", "data/tradebot.db"),
		PriceHostURL:  getEnv("PRICE_HOST_URL", "https://sky.coflnet.com"),
		HypixelAPIURL: getEnv("HYPIXEL_API_URL", "https://api.hypixel.net"),

		BedSpam:         getEnvBool("BED_SPAM", true),
		BedSpamDelay:    getEnvDurationMs("BED_SPAM_CLICK_DELAY", 100*time.Millisecond),
		AutoCookieHours: getEnvFloat("AUTO_COOKIE", 0),

		MaxTotalOrders: getEnvInt("MAX_TOTAL_ORDERS", 14),
		MaxBuyOrders:   getEnvInt("MAX_BUY_ORDERS", 7),
		BazaarTaxRate:  getEnvDecimal("BAZAAR_TAX_RATE", decimal.NewFromFloat(0.0125)),

		CookieDuration:     getEnvDuration("COOKIE_DURATION", 4*24*time.Hour),
		CookiePriceCap:     getEnvDecimal("COOKIE_PRICE_CAP", decimal.NewFromInt(20_000_000)),
		ProfitReportPeriod: getEnvDuration("PROFIT_REPORT_INTERVAL", 30*time.Minute),
		BazaarRefreshEvery: getEnvDuration("BAZAAR_REFRESH_INTERVAL", 5*time.Minute),
		OrderCooldown:      getEnvDuration("ORDER_COOLDOWN", 60*time.Second),
		DailySellLimit:     getEnvDuration("DAILY_SELL_LIMIT", 24*time.Hour),

		Skip: SkipPolicy{
			Always:           getEnvBool("SKIP_ALWAYS", false),
			MinProfitEnabled: os.Getenv("SKIP_MIN_PROFIT") != "",
			MinProfit:        getEnvDecimal("SKIP_MIN_PROFIT", decimal.Zero),
			UserFinder:       getEnvBool("SKIP_USER_FINDER", false),
			Skins:            getEnvBool("SKIP_SKINS", false),
			ProfitPercentage: getEnvBool("SKIP_PROFIT_PERCENTAGE", false),
			ProfitPctThresh:  getEnvDecimal("SKIP_PROFIT_PERCENTAGE_THRESHOLD", decimal.NewFromFloat(0.10)),
			MinPriceEnabled:  os.Getenv("SKIP_MIN_PRICE") != "",
			MinPrice:         getEnvDecimal("SKIP_MIN_PRICE", decimal.Zero),
		},

		Debug: getEnvBool("DEBUG", false),
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.InGameName == "" {
		return nil, fmt.Errorf("INGAME_NAME is required")
	}
	if cfg.ControlLinkURL == "" {
		return nil, fmt.Errorf("WEBSOCKET_URL is required")
	}

	return cfg, nil
}

// SessionURL builds the control-link session URL (spec.md §6 "Session URL").
func (c *Config) SessionURL() string {
	u := c.ControlLinkURL
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%splayer=%s&version=%s&SId=%s", u, sep, c.InGameName, c.ClientVersion, c.SessionID)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDurationMs(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Millisecond
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
