package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env        string // application environment (e.g. "dev", "prod")
	Port       string // HTTP port to listen on
	DBUser     string // database username
	DBPass     string // database password (optional)
	DBHost     string // database host address
	DBPort     string // database port number
	DBName     string // database name
	JWTSecret  string // HMAC secret used to sign pass tokens
	BcryptCost int    // bcrypt cost for password hashing

	DefaultPassTTL     time.Duration // lifetime of passes issued without an explicit TTL
	DefaultPassMaxUses int           // max uses of passes issued without an explicit limit
	AdminPassTTL       time.Duration // lifetime of the pass minted on admin login
	AdminPassMaxUses   int           // use ceiling of the admin pass
	HoldWindow         time.Duration // how long a slot hold lasts
	HoldSweepInterval  time.Duration // 0 disables the background sweeper
	TxMaxRetries       int           // extra attempts on deadlock / lock wait timeout
	TOTPSkew           uint          // accepted time steps either side of now

	RabbitURL          string // AMQP broker; empty disables event publishing
	ResendAPIKey       string
	ResendFrom         string
	TwilioSID          string
	TwilioToken        string
	TwilioWhatsAppFrom string
	OTLPEndpoint       string // OTLP/HTTP collector; empty disables tracing
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:        must("APP_ENV"),      // environment (dev/test/prod)
		Port:       must("APP_PORT"),     // port to bind the HTTP server
		DBUser:     must("DB_USER"),      // database user
		DBPass:     os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:     must("DB_HOST"),      // database host
		DBPort:     must("DB_PORT"),      // database port
		DBName:     must("DB_NAME"),      // database name
		JWTSecret:  must("JWT_SECRET"),   // secret used for signing pass tokens
		BcryptCost: mustInt("BCRYPT_COST"),

		DefaultPassTTL:     time.Duration(envInt("DEFAULT_PASS_TTL_HOURS", 72)) * time.Hour,
		DefaultPassMaxUses: envInt("DEFAULT_PASS_MAX_USES", 1),
		AdminPassTTL:       time.Duration(envInt("ADMIN_PASS_TTL_HOURS", 8)) * time.Hour,
		AdminPassMaxUses:   envInt("ADMIN_PASS_MAX_USES", 1000),
		HoldWindow:         envDur("HOLD_WINDOW", 10*time.Minute),
		HoldSweepInterval:  envDur("HOLD_SWEEP_INTERVAL", 0),
		TxMaxRetries:       envInt("TX_MAX_RETRIES", 3),
		TOTPSkew:           uint(max(envInt("TOTP_SKEW", 1), 0)),

		RabbitURL:          os.Getenv("RABBITMQ_URL"),
		ResendAPIKey:       os.Getenv("RESEND_API_KEY"),
		ResendFrom:         os.Getenv("RESEND_FROM"),
		TwilioSID:          os.Getenv("TWILIO_SID"),
		TwilioToken:        os.Getenv("TWILIO_TOKEN"),
		TwilioWhatsAppFrom: os.Getenv("TWILIO_WHATSAPP_FROM"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

// LoadDB reads only the database settings.  Used by hrctl, which has no
// HTTP server to configure.
func LoadDB() Config {
	return Config{
		Env:        envStr("APP_ENV", "dev"),
		DBUser:     must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"),
		DBHost:     must("DB_HOST"),
		DBPort:     must("DB_PORT"),
		DBName:     must("DB_NAME"),
		BcryptCost: envInt("BCRYPT_COST", 12),
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
