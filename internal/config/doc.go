// Package config manages application configuration for the rifas API.
//
// Configuration is read from environment variables. When a .env file is
// present in the working directory it is loaded first; variables already
// exported in the environment take precedence.
//
//	cfg, err := config.Load()
//	if err := cfg.Validate(); err != nil { ... }
//
// # Configuration Groups
//
//   - ServerConfig: HTTP server settings (port, public URL, CORS)
//   - DatabaseConfig: SurrealDB connection settings
//   - JWTConfig: access token signing
//   - SteamConfig: OpenID realm/callback, Web API key, market currency
//   - AdminConfig: the privileged Steam ID allow-list
//   - WalletConfig, AuctionConfig, RaffleConfig: business rules
//   - TelegramConfig: admin alert channel
//
// # Environment Variables
//
//	SERVER_PORT              - HTTP server port (default: 8080)
//	PUBLIC_URL               - externally reachable API base URL
//	STEAM_API_KEY            - Steam Web API key
//	ADMIN_STEAM_IDS          - comma separated SteamID64 allow-list
//	AUCTION_MIN_INCREMENT    - minimum bid increment in BRL (default: 1)
//	RAFFLE_FEE_PERCENT       - platform fee taken from raffle proceeds
//	TELEGRAM_BOT_TOKEN       - bot used for admin alerts
package config
