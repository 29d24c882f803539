package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Steam    SteamConfig
	Admin    AdminConfig
	Wallet   WalletConfig
	Auction  AuctionConfig
	Raffle   RaffleConfig
	Telegram TelegramConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string
	Env            string
	PublicURL      string
	FrontendURL    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	Host      string
	Port      string
	Namespace string
	Database  string
	User      string
	Password  string
	Migrate   bool
}

// JWTConfig holds JWT signing settings
type JWTConfig struct {
	PrivateKeyPath string
	PublicKeyPath  string
	ExpirationMins int
	Issuer         string
}

// SteamConfig holds Steam OpenID and Web API settings
type SteamConfig struct {
	APIKey      string
	Realm       string
	CallbackURL string
	Currency    int // Steam market currency code, 7 = BRL
	PriceTTL    time.Duration
}

// AdminConfig holds the privileged Steam ID allow-list
type AdminConfig struct {
	SteamIDs []string
}

// WalletConfig holds wallet defaults
type WalletConfig struct {
	StartingBalance decimal.Decimal
	PointsPerTicket int
}

// AuctionConfig holds auction rules
type AuctionConfig struct {
	MinIncrement    decimal.Decimal
	AntiSnipeWindow time.Duration
	AntiSnipeExtend time.Duration
	SettleInterval  time.Duration
	FeePercent      decimal.Decimal
	MinDuration     time.Duration
	MaxDuration     time.Duration
}

// RaffleConfig holds raffle rules
type RaffleConfig struct {
	MaxTickets     int
	MaxPerPurchase int
	DrawInterval   time.Duration
	FeePercent     decimal.Decimal
}

// TelegramConfig holds admin alert settings
type TelegramConfig struct {
	Enabled  bool
	BotToken string
	ChatID   int64
}

var steamIDPattern = regexp.MustCompile(`^\d{17}$`)

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	publicURL := strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:8080"), "/")

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("SERVER_ENV", "development"),
			PublicURL:      publicURL,
			FrontendURL:    strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 0),
			AllowedOrigins: getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Database: DatabaseConfig{
			Host:      getEnv("DB_HOST", "localhost"),
			Port:      getEnv("DB_PORT", "8000"),
			Namespace: getEnv("DB_NAMESPACE", "rifas"),
			Database:  getEnv("DB_DATABASE", "main"),
			User:      getEnv("DB_USER", "root"),
			Password:  getEnv("DB_PASSWORD", "root"),
			Migrate:   getBoolEnv("DB_MIGRATE", true),
		},
		JWT: JWTConfig{
			PrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./keys/private.pem"),
			PublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./keys/public.pem"),
			ExpirationMins: getIntEnv("JWT_EXPIRATION_MINS", 60),
			Issuer:         getEnv("JWT_ISSUER", "epicstrade.gg"),
		},
		Steam: SteamConfig{
			APIKey:      getEnv("STEAM_API_KEY", ""),
			Realm:       getEnv("STEAM_REALM", publicURL),
			CallbackURL: getEnv("STEAM_CALLBACK_URL", publicURL+"/v1/auth/steam/callback"),
			Currency:    getIntEnv("STEAM_CURRENCY", 7),
			PriceTTL:    getDurationEnv("STEAM_PRICE_TTL", 10*time.Minute),
		},
		Admin: AdminConfig{
			SteamIDs: getSliceEnv("ADMIN_STEAM_IDS", nil),
		},
		Wallet: WalletConfig{
			StartingBalance: getDecimalEnv("WALLET_STARTING_BALANCE", decimal.Zero),
			PointsPerTicket: getIntEnv("WALLET_POINTS_PER_TICKET", 10),
		},
		Auction: AuctionConfig{
			MinIncrement:    getDecimalEnv("AUCTION_MIN_INCREMENT", decimal.NewFromInt(1)),
			AntiSnipeWindow: getDurationEnv("AUCTION_ANTI_SNIPE_WINDOW", 30*time.Second),
			AntiSnipeExtend: getDurationEnv("AUCTION_ANTI_SNIPE_EXTEND", 30*time.Second),
			SettleInterval:  getDurationEnv("AUCTION_SETTLE_INTERVAL", 5*time.Second),
			FeePercent:      getDecimalEnv("AUCTION_FEE_PERCENT", decimal.NewFromInt(5)),
			MinDuration:     getDurationEnv("AUCTION_MIN_DURATION", 5*time.Minute),
			MaxDuration:     getDurationEnv("AUCTION_MAX_DURATION", 14*24*time.Hour),
		},
		Raffle: RaffleConfig{
			MaxTickets:     getIntEnv("RAFFLE_MAX_TICKETS", 10000),
			MaxPerPurchase: getIntEnv("RAFFLE_MAX_PER_PURCHASE", 100),
			DrawInterval:   getDurationEnv("RAFFLE_DRAW_INTERVAL", time.Minute),
			FeePercent:     getDecimalEnv("RAFFLE_FEE_PERCENT", decimal.NewFromInt(10)),
		},
		Telegram: TelegramConfig{
			Enabled:  getBoolEnv("TELEGRAM_ENABLED", false),
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getInt64Env("TELEGRAM_CHAT_ID", 0),
		},
	}, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// IsAdmin reports whether steamID is on the admin allow-list
func (a AdminConfig) IsAdmin(steamID string) bool {
	for _, id := range a.SteamIDs {
		if strings.TrimSpace(id) == steamID {
			return true
		}
	}
	return false
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Server
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}

	// Database
	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Database.Port == "" {
		errs = append(errs, errors.New("DB_PORT is required"))
	}
	if c.Database.Namespace == "" {
		errs = append(errs, errors.New("DB_NAMESPACE is required"))
	}
	if c.Database.Database == "" {
		errs = append(errs, errors.New("DB_DATABASE is required"))
	}

	// JWT
	if c.IsProduction() {
		if c.JWT.PrivateKeyPath == "" {
			errs = append(errs, errors.New("JWT_PRIVATE_KEY_PATH is required in production"))
		}
		if c.Steam.APIKey == "" {
			errs = append(errs, errors.New("STEAM_API_KEY is required in production"))
		}
	}
	if c.JWT.ExpirationMins <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MINS must be positive"))
	}

	// Steam
	if !strings.HasPrefix(c.Steam.CallbackURL, c.Steam.Realm) {
		errs = append(errs, errors.New("STEAM_CALLBACK_URL must be under STEAM_REALM"))
	}
	if c.Steam.Currency <= 0 {
		errs = append(errs, errors.New("STEAM_CURRENCY must be positive"))
	}

	// Admin
	for _, id := range c.Admin.SteamIDs {
		if !steamIDPattern.MatchString(strings.TrimSpace(id)) {
			errs = append(errs, fmt.Errorf("ADMIN_STEAM_IDS contains an invalid SteamID64 '%s'", id))
		}
	}

	// Wallet
	if c.Wallet.StartingBalance.IsNegative() {
		errs = append(errs, errors.New("WALLET_STARTING_BALANCE must not be negative"))
	}
	if c.Wallet.PointsPerTicket < 0 {
		errs = append(errs, errors.New("WALLET_POINTS_PER_TICKET must not be negative"))
	}

	// Auction
	if !c.Auction.MinIncrement.IsPositive() {
		errs = append(errs, errors.New("AUCTION_MIN_INCREMENT must be positive"))
	}
	if err := validatePercent("AUCTION_FEE_PERCENT", c.Auction.FeePercent); err != nil {
		errs = append(errs, err)
	}
	if c.Auction.MinDuration <= 0 || c.Auction.MaxDuration < c.Auction.MinDuration {
		errs = append(errs, errors.New("AUCTION_MIN_DURATION must be positive and not exceed AUCTION_MAX_DURATION"))
	}

	// Raffle
	if c.Raffle.MaxTickets <= 0 {
		errs = append(errs, errors.New("RAFFLE_MAX_TICKETS must be positive"))
	}
	if c.Raffle.MaxPerPurchase <= 0 {
		errs = append(errs, errors.New("RAFFLE_MAX_PER_PURCHASE must be positive"))
	}
	if err := validatePercent("RAFFLE_FEE_PERCENT", c.Raffle.FeePercent); err != nil {
		errs = append(errs, err)
	}

	// Telegram
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required when TELEGRAM_ENABLED is true"))
		}
		if c.Telegram.ChatID == 0 {
			errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_ENABLED is true"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validatePercent(name string, v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be between 0 and 100", name)
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getDecimalEnv(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
