package config // package config loads application configuration from environment variables

import (
    "errors"  // errors joins every missing variable into one report
    "fmt"     // fmt formats validation errors
    "os"      // os provides access to environment variables
    "strings" // strings normalises enum-like values
    "time"    // time holds the monitor and shutdown durations
)

// Store drivers accepted in STORE_DRIVER.
const (
    DriverMySQL  = "mysql"
    DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The MySQL fields are only required when the
// store driver is mysql.
type Config struct {
    Env             string        // application environment (e.g. "dev", "prod")
    Port            string        // HTTP port to listen on
    StoreDriver     string        // "mysql" or "memory"
    DBUser          string        // database username
    DBPass          string        // database password (optional)
    DBHost          string        // database host address
    DBPort          string        // database port number
    DBName          string        // database name
    BcryptCost      int           // bcrypt cost for password hashing
    LogLevel        string        // zap level: debug, info, warn, error
    LogFormat       string        // "json" or "console"
    AMQPURL         string        // RabbitMQ URL; empty disables event publishing
    AuditConsumer   bool          // run the audit log consumer in-process
    AuditLogPath    string        // file the audit consumer appends to
    ShutdownTimeout time.Duration // grace period for in-flight requests
    Monitor         MonitorConfig
}

// MonitorConfig configures the low-stock monitor.
type MonitorConfig struct {
    Threshold     int64         // scan picks entries with 0 < stock < Threshold
    Cooldown      time.Duration // minimum time between two restocks of one entry
    RestockAmount int64         // units added per restock
}

// Load reads configuration values from environment variables and returns a
// Config.  Every missing or malformed required variable is reported in the
// returned error.
func Load() (Config, error) {
    l := &loader{}
    cfg := Config{
        Env:             envStr("APP_ENV", "dev"),                 // environment (dev/test/prod)
        Port:            envStr("APP_PORT", "8080"),               // port to bind the HTTP server
        StoreDriver:     strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
        DBPass:          os.Getenv("DB_PASS"),                     // database password (empty allowed)
        BcryptCost:      envInt("BCRYPT_COST", 10),                // bcrypt cost factor
        LogLevel:        envStr("LOG_LEVEL", "info"),
        LogFormat:       envStr("LOG_FORMAT", "json"),
        AMQPURL:         os.Getenv("AMQP_URL"),
        AuditConsumer:   envBool("AUDIT_CONSUMER_ENABLED", false),
        AuditLogPath:    envStr("AUDIT_LOG_PATH", "logs/audit.log"),
        ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
        Monitor: MonitorConfig{
            Threshold:     int64(envInt("STOCK_THRESHOLD", 10)),
            Cooldown:      envDur("RESTOCK_COOLDOWN", 7*24*time.Hour),
            RestockAmount: int64(envInt("RESTOCK_AMOUNT", 20)),
        },
    }
    if cfg.StoreDriver == DriverMySQL {
        cfg.DBUser = l.must("DB_USER") // database user
        cfg.DBHost = l.must("DB_HOST") // database host
        cfg.DBPort = l.must("DB_PORT") // database port
        cfg.DBName = l.must("DB_NAME") // database name
    }
    l.check(cfg.validate())
    return cfg, l.err()
}

// validate checks values that have defaults but can still be set wrong.
func (c Config) validate() error {
    var errs []error
    switch c.StoreDriver {
    case DriverMySQL, DriverMemory:
    default:
        errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMySQL, DriverMemory, c.StoreDriver))
    }
    if c.BcryptCost < 4 || c.BcryptCost > 31 {
        errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost))
    }
    if c.Monitor.Threshold <= 0 {
        errs = append(errs, fmt.Errorf("STOCK_THRESHOLD must be positive, got %d", c.Monitor.Threshold))
    }
    if c.Monitor.Cooldown <= 0 {
        errs = append(errs, fmt.Errorf("RESTOCK_COOLDOWN must be positive, got %s", c.Monitor.Cooldown))
    }
    if c.Monitor.RestockAmount <= 0 {
        errs = append(errs, fmt.Errorf("RESTOCK_AMOUNT must be positive, got %d", c.Monitor.RestockAmount))
    }
    return errors.Join(errs...)
}

// loader collects the errors of must so a misconfigured deployment
// sees every problem at once.
type loader struct {
    errs []error
}

func (l *loader) check(err error) {
    if err != nil {
        l.errs = append(l.errs, err)
    }
}

func (l *loader) err() error { return errors.Join(l.errs...) }

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        l.check(fmt.Errorf("missing required env var: %s", key))
    }
    return v
}
