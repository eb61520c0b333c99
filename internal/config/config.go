/**
 * @description
 * This package handles the configuration management for the goal-service. It
 * uses the Viper library to read configuration from environment variables,
 * providing a centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 *
 * @notes
 * - All values are read once at process start and never mutated afterwards.
 * - The network mode (APP_ENV) selects between the testnet and mainnet
 *   deployments of the Accountable contract. The address is surfaced to the
 *   frame client and recorded with intents; this service never invokes it.
 */

package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Contract deployments per network mode.
const (
	testnetContractAddress = "0x094B9732f707Ce353732D1F0fBB2Fb4a09831635"
	mainnetContractAddress = "0x65Aa4Fa29abA1421b06A08854A605741b280BCef"
)

// Config holds all the configuration variables for the goal-service.
// These values are loaded from environment variables.
type Config struct {
	AppEnv      string `mapstructure:"APP_ENV"`
	ServerPort  string `mapstructure:"SERVER_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`

	RabbitMQURL        string `mapstructure:"RABBITMQ_URL"`
	GoalEventsExchange string `mapstructure:"GOAL_EVENTS_EXCHANGE"`

	NeynarAPIBaseURL string `mapstructure:"NEYNAR_API_BASE_URL"`
	NeynarAPIKey     string `mapstructure:"NEYNAR_API_KEY"`

	SessionJWTSecret  string `mapstructure:"SESSION_JWT_SECRET"`
	SessionTTLMinutes int    `mapstructure:"SESSION_TTL_MINUTES"`

	LookupRateLimitPerMinute int `mapstructure:"LOOKUP_RATE_LIMIT_PER_MINUTE"`

	IntentReconcileSchedule string `mapstructure:"INTENT_RECONCILE_SCHEDULE"`
	IntentStaleAfterMinutes int    `mapstructure:"INTENT_STALE_AFTER_MINUTES"`

	// Frame discovery document, served verbatim on /.well-known/farcaster.json.
	AccountAssociationHeader    string `mapstructure:"ACCOUNT_ASSOCIATION_HEADER"`
	AccountAssociationPayload   string `mapstructure:"ACCOUNT_ASSOCIATION_PAYLOAD"`
	AccountAssociationSignature string `mapstructure:"ACCOUNT_ASSOCIATION_SIGNATURE"`

	FrameVersion               string `mapstructure:"FRAME_VERSION"`
	FrameName                  string `mapstructure:"FRAME_NAME"`
	FrameIconURL               string `mapstructure:"FRAME_ICON_URL"`
	FrameHomeURL               string `mapstructure:"FRAME_HOME_URL"`
	FrameImageURL              string `mapstructure:"FRAME_IMAGE_URL"`
	FrameButtonTitle           string `mapstructure:"FRAME_BUTTON_TITLE"`
	FrameSplashImageURL        string `mapstructure:"FRAME_SPLASH_IMAGE_URL"`
	FrameSplashBackgroundColor string `mapstructure:"FRAME_SPLASH_BACKGROUND_COLOR"`
	FrameWebhookURL            string `mapstructure:"FRAME_WEBHOOK_URL"`
}

// IsDevelopment reports whether the service runs against the test network.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// ContractAddress returns the Accountable contract deployment for the
// configured network mode.
func (c Config) ContractAddress() string {
	if c.IsDevelopment() {
		return testnetContractAddress
	}
	return mainnetContractAddress
}

// LoadConfig reads configuration from environment variables.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig() (config Config, err error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "accountable:rate_limit")
	viper.SetDefault("GOAL_EVENTS_EXCHANGE", "accountable.goal_events")
	viper.SetDefault("NEYNAR_API_BASE_URL", "https://api.neynar.com")
	viper.SetDefault("SESSION_TTL_MINUTES", 60*24)
	viper.SetDefault("LOOKUP_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("INTENT_RECONCILE_SCHEDULE", "*/5 * * * *")
	viper.SetDefault("INTENT_STALE_AFTER_MINUTES", 10)
	viper.SetDefault("FRAME_VERSION", "1")
	viper.SetDefault("FRAME_NAME", "accountable")
	viper.SetDefault("FRAME_BUTTON_TITLE", "Get Me Accountable!")
	viper.SetDefault("FRAME_SPLASH_BACKGROUND_COLOR", "#f7f7f7")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("APP_ENV")
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("GOAL_EVENTS_EXCHANGE")
	_ = viper.BindEnv("NEYNAR_API_BASE_URL")
	_ = viper.BindEnv("NEYNAR_API_KEY")
	_ = viper.BindEnv("SESSION_JWT_SECRET")
	_ = viper.BindEnv("SESSION_TTL_MINUTES")
	_ = viper.BindEnv("LOOKUP_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("INTENT_RECONCILE_SCHEDULE")
	_ = viper.BindEnv("INTENT_STALE_AFTER_MINUTES")
	_ = viper.BindEnv("ACCOUNT_ASSOCIATION_HEADER")
	_ = viper.BindEnv("ACCOUNT_ASSOCIATION_PAYLOAD")
	_ = viper.BindEnv("ACCOUNT_ASSOCIATION_SIGNATURE")
	_ = viper.BindEnv("FRAME_VERSION")
	_ = viper.BindEnv("FRAME_NAME")
	_ = viper.BindEnv("FRAME_ICON_URL")
	_ = viper.BindEnv("FRAME_HOME_URL")
	_ = viper.BindEnv("FRAME_IMAGE_URL")
	_ = viper.BindEnv("FRAME_BUTTON_TITLE")
	_ = viper.BindEnv("FRAME_SPLASH_IMAGE_URL")
	_ = viper.BindEnv("FRAME_SPLASH_BACKGROUND_COLOR")
	_ = viper.BindEnv("FRAME_WEBHOOK_URL")

	if err = viper.Unmarshal(&config); err != nil {
		return config, err
	}

	if strings.TrimSpace(config.DatabaseURL) == "" {
		return config, errors.New("DATABASE_URL is required")
	}
	if strings.TrimSpace(config.SessionJWTSecret) == "" {
		return config, errors.New("SESSION_JWT_SECRET is required")
	}

	return config, nil
}
