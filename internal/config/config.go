// Package config loads application configuration from environment
// variables. Required values fail startup with a fatal log rather than
// surfacing as runtime errors; a deployment with a missing JWT secret
// never begins serving.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration. Strings for identifiers and
// secrets, ints for durations and costs, matching how the values are used.
type Config struct {
	Env            string // application environment ("dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign access tokens
	JWTIssuer      string // iss claim stamped on and required from access tokens
	JWTAudience    string // aud claim stamped on and required from access tokens
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
}

// Load reads configuration from the environment. Missing required
// variables terminate the process.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		JWTIssuer:      envOr("JWT_ISSUER", "theratrack-api"),
		JWTAudience:    envOr("JWT_AUDIENCE", "theratrack-ui"),
		AccessTTLMin:   envIntOr("ACCESS_TOKEN_TTL_MIN", 60),
		RefreshTTLDays: envIntOr("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envIntOr("BCRYPT_COST", 12),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
