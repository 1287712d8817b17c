package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvRPCURL     = "RPC_URL"
	EnvPrivateKey = "PRIVATE_KEY"
	EnvNetwork    = "NETWORK"
)

// SecureConfig holds values that never live in the network config file
type SecureConfig struct {
	RPCURL     string
	PrivateKey string
}

// LoadEnv loads environment variables from .env file
func LoadEnv() error {
	return godotenv.Load()
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s not set", key)
	}
	return value, nil
}

func LoadSecureConfig() (*SecureConfig, error) {
	rpcURL, err := GetRequiredEnv(EnvRPCURL)
	if err != nil {
		return nil, fmt.Errorf("rpc endpoint not found: %w", err)
	}

	privateKey, err := GetRequiredEnv(EnvPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("private key not found: %w", err)
	}

	return &SecureConfig{
		RPCURL:     rpcURL,
		PrivateKey: privateKey,
	}, nil
}
