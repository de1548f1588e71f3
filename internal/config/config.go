package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	AutoMigrate bool
	GinMode     string

	MerchantID   string
	ValidatorURL string
	ValidatorKey string

	RateLimitMax    int
	RateLimitWindow time.Duration
	RetryMax        int
	RetryBaseDelay  time.Duration
	ProviderTimeout time.Duration

	Asaas   AsaasConfig
	Cielo   CieloConfig
	Getnet  GetnetConfig
	Pagarme PagarmeConfig
	Rede    RedeConfig
	Stone   StoneConfig
}

type AsaasConfig struct {
	APIKey  string
	Sandbox bool
}

type CieloConfig struct {
	MerchantID  string
	MerchantKey string
	Sandbox     bool
}

type GetnetConfig struct {
	ClientID     string
	ClientSecret string
	SellerID     string
	Sandbox      bool
}

type PagarmeConfig struct {
	SecretKey string
}

type RedeConfig struct {
	PV      string
	Token   string
	Sandbox bool
}

type StoneConfig struct {
	APIKey string
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "payhub"),
		DBPassword:  getEnv("DB_PASSWORD", "payhub_secret"),
		DBName:      getEnv("DB_NAME", "payhub"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),
		AutoMigrate: getEnv("AUTO_MIGRATE", "false") == "true",
		GinMode:     getEnv("GIN_MODE", "debug"),

		MerchantID:   getEnv("MERCHANT_ID", ""),
		ValidatorURL: getEnv("VALIDATOR_URL", ""),
		ValidatorKey: getEnv("VALIDATOR_KEY", ""),

		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 60*time.Second),
		RetryMax:        getEnvInt("RETRY_MAX", 3),
		RetryBaseDelay:  getEnvDuration("RETRY_BASE_DELAY", time.Second),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),

		Asaas: AsaasConfig{
			APIKey:  getEnv("ASAAS_API_KEY", ""),
			Sandbox: getEnv("ASAAS_SANDBOX", "false") == "true",
		},
		Cielo: CieloConfig{
			MerchantID:  getEnv("CIELO_MERCHANT_ID", ""),
			MerchantKey: getEnv("CIELO_MERCHANT_KEY", ""),
			Sandbox:     getEnv("CIELO_SANDBOX", "false") == "true",
		},
		Getnet: GetnetConfig{
			ClientID:     getEnv("GETNET_CLIENT_ID", ""),
			ClientSecret: getEnv("GETNET_CLIENT_SECRET", ""),
			SellerID:     getEnv("GETNET_SELLER_ID", ""),
			Sandbox:      getEnv("GETNET_SANDBOX", "false") == "true",
		},
		Pagarme: PagarmeConfig{
			SecretKey: getEnv("PAGARME_SECRET_KEY", ""),
		},
		Rede: RedeConfig{
			PV:      getEnv("REDE_PV", ""),
			Token:   getEnv("REDE_TOKEN", ""),
			Sandbox: getEnv("REDE_SANDBOX", "false") == "true",
		},
		Stone: StoneConfig{
			APIKey: getEnv("STONE_API_KEY", ""),
		},
	}
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
