// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env    string // application environment (e.g. "dev", "prod")
	Port   string // HTTP port to listen on
	DBUser string
	DBPass string // may be empty
	DBHost string
	DBPort string
	DBName string
	// AutoMigrate creates the schema on startup when set.
	AutoMigrate bool

	JWTSecret string // secret used to verify access tokens

	SearchRadiusKm  float64 // radius used when a search names none
	SearchStepKm    float64 // radius increment when widening an empty search
	SearchCeilingKm float64 // largest radius a widened search may reach
	SearchResultCap int     // page size when a search names no limit

	GeocoderURL       string // base URL of a Nominatim compatible service; empty disables geocoding
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration

	AMQPURL string // property events are not published when empty

	LogLevel   string
	FluentHost string // structured logs are also shipped to fluentd when set
	FluentPort int
	FluentTag  string
}

// Load reads configuration values from environment variables, after
// loading a .env file from the working directory if there is one, and
// returns a Config.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.
func Load() Config {
	// a missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()
	return Config{
		Env:         must("APP_ENV"),
		Port:        must("APP_PORT"),
		DBUser:      must("DB_USER"),
		DBPass:      os.Getenv("DB_PASS"),
		DBHost:      must("DB_HOST"),
		DBPort:      must("DB_PORT"),
		DBName:      must("DB_NAME"),
		AutoMigrate: envBool("DB_AUTO_MIGRATE", false),
		JWTSecret:   must("JWT_SECRET"),

		SearchRadiusKm:  envFloat("SEARCH_DEFAULT_RADIUS_KM", 10),
		SearchStepKm:    envFloat("SEARCH_WIDEN_STEP_KM", 25),
		SearchCeilingKm: envFloat("SEARCH_WIDEN_CEILING_KM", 100),
		SearchResultCap: envInt("SEARCH_RESULT_CAP", 20),

		GeocoderURL:       os.Getenv("GEOCODER_URL"),
		GeocoderUserAgent: getenv("GEOCODER_USER_AGENT", "lodging-listings/1.0"),
		GeocoderTimeout:   envDur("GEOCODER_TIMEOUT", 5*time.Second),

		AMQPURL: os.Getenv("AMQP_URL"),

		LogLevel:   getenv("LOG_LEVEL", "info"),
		FluentHost: os.Getenv("FLUENT_HOST"),
		FluentPort: envInt("FLUENT_PORT", 24224),
		FluentTag:  getenv("FLUENT_TAG", "lodging"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
		return f
	}
	return d
}
