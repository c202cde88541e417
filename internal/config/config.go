package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr          string
	DBDSN             string
	JWTIssuer         string
	JWTSecret         string
	JWTTTL            time.Duration
	WebSocketOrigin   string
	QuoteBaseURL      string
	QuoteTimeout      time.Duration
	QuotePollInterval time.Duration
	WatchSymbols      []string
	DemoStartBalance  decimal.Decimal
	AccountCurrency   string
	InstrumentSpecs   string
	LogLevel          string
	LogFile           string
}

func Load() (Config, error) {
	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	jwtTTL := os.Getenv("JWT_TTL")
	if jwtTTL == "" {
		missing = append(missing, "JWT_TTL")
	} else {
		d, err := time.ParseDuration(jwtTTL)
		if err != nil {
			return c, err
		}
		c.JWTTTL = d
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		missing = append(missing, "WS_ORIGIN")
	}
	c.QuoteBaseURL = os.Getenv("QUOTE_BASE_URL")
	if c.QuoteBaseURL == "" {
		missing = append(missing, "QUOTE_BASE_URL")
	}
	var err error
	c.QuoteTimeout, err = durationEnv("QUOTE_TIMEOUT", 2*time.Second)
	if err != nil {
		return c, err
	}
	c.QuotePollInterval, err = durationEnv("QUOTE_POLL_INTERVAL", time.Second)
	if err != nil {
		return c, err
	}
	for _, s := range strings.Split(os.Getenv("WATCH_SYMBOLS"), ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			c.WatchSymbols = append(c.WatchSymbols, s)
		}
	}
	demoStart := strings.TrimSpace(os.Getenv("DEMO_START_BALANCE"))
	if demoStart == "" {
		demoStart = "10000"
	}
	c.DemoStartBalance, err = decimal.NewFromString(demoStart)
	if err != nil || !c.DemoStartBalance.IsPositive() {
		return c, errors.New("invalid DEMO_START_BALANCE")
	}
	c.AccountCurrency = strings.ToUpper(strings.TrimSpace(os.Getenv("ACCOUNT_CURRENCY")))
	if c.AccountCurrency == "" {
		c.AccountCurrency = "USD"
	}
	c.InstrumentSpecs = os.Getenv("INSTRUMENT_SPECS")
	c.LogLevel = os.Getenv("LOG_LEVEL")
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.LogFile = os.Getenv("LOG_FILE")
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	// Accept both bare seconds and Go duration syntax.
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return d, nil
}
