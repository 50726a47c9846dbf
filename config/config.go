package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// MinInterval es el piso del intervalo entre ciclos.
	MinInterval = 300 * time.Second

	defaultIntervalSeconds = 600
	defaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36 Edg/136.0.0.0"
)

// Config es la configuración completa del bot.
type Config struct {
	CSFloat CSFloatConfig `yaml:"csfloat"`
	Steam   SteamConfig   `yaml:"steam"`
	Loop    LoopConfig    `yaml:"loop"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// CSFloatConfig contiene el acceso al marketplace.
type CSFloatConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	TradesLimit int    `yaml:"trades_limit"`
	AcceptMode  string `yaml:"accept_mode"` // bulk | single
}

// SteamConfig contiene credenciales y red de la cuenta de trading.
type SteamConfig struct {
	SteamID64      uint64 `yaml:"steam_id64"`
	Login          string `yaml:"login"`
	Password       string `yaml:"password"`
	SharedSecret   string `yaml:"shared_secret"`
	IdentitySecret string `yaml:"identity_secret"`
	APIKey         string `yaml:"api_key"` // opcional
	UserAgent      string `yaml:"user_agent"`
	Proxy          string `yaml:"proxy"`     // http(s):// o socks5://; el marketplace siempre lo usa
	UseProxy       bool   `yaml:"use_proxy"` // la sesión de Steam solo lo usa si esto es true
	InventoryCount int    `yaml:"inventory_count"`
}

// LoopConfig controla la espera entre ciclos.
type LoopConfig struct {
	IntervalSeconds  float64 `yaml:"interval_seconds"`
	Random           bool    `yaml:"random"`
	RandomMinSeconds float64 `yaml:"random_min"`
	RandomMaxSeconds float64 `yaml:"random_max"`
}

// StorageConfig controla dónde se persiste el estado local.
type StorageConfig struct {
	CookieFile    string `yaml:"cookie_file"`
	ProcessedFile string `yaml:"processed_file"`
	DSN           string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables AUTOTRADE_* sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Validate comprueba que estén los secretos sin los que el bot no puede operar.
func (c *Config) Validate() error {
	var errs []error
	required := []struct {
		name, value string
	}{
		{"csfloat.api_key", c.CSFloat.APIKey},
		{"steam.login", c.Steam.Login},
		{"steam.password", c.Steam.Password},
		{"steam.shared_secret", c.Steam.SharedSecret},
		{"steam.identity_secret", c.Steam.IdentitySecret},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}
	if c.Steam.SteamID64 == 0 {
		errs = append(errs, errors.New("steam.steam_id64 is required"))
	}
	switch c.CSFloat.AcceptMode {
	case "bulk", "single":
	default:
		errs = append(errs, fmt.Errorf("csfloat.accept_mode %q: want bulk or single", c.CSFloat.AcceptMode))
	}
	return errors.Join(errs...)
}

// Interval devuelve la espera hasta el próximo ciclo: fija, o uniforme en
// [random_min, random_max] si random está activo. Nunca menor a MinInterval.
func (c *Config) Interval() time.Duration {
	secs := c.Loop.IntervalSeconds
	if c.Loop.Random {
		lo, hi := c.Loop.RandomMinSeconds, c.Loop.RandomMaxSeconds
		secs = lo + rand.Float64()*(hi-lo)
	}
	d := time.Duration(secs * float64(time.Second))
	if d < MinInterval {
		return MinInterval
	}
	return d
}

// SteamProxy devuelve el proxy para la sesión de Steam ("" = directo).
func (c *Config) SteamProxy() string {
	if c.Steam.UseProxy {
		return c.Steam.Proxy
	}
	return ""
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	str := map[string]*string{
		"AUTOTRADE_CSFLOAT_API_KEY": &cfg.CSFloat.APIKey,
		"AUTOTRADE_ACCEPT_MODE":     &cfg.CSFloat.AcceptMode,
		"AUTOTRADE_STEAM_LOGIN":     &cfg.Steam.Login,
		"AUTOTRADE_STEAM_PASSWORD":  &cfg.Steam.Password,
		"AUTOTRADE_SHARED_SECRET":   &cfg.Steam.SharedSecret,
		"AUTOTRADE_IDENTITY_SECRET": &cfg.Steam.IdentitySecret,
		"AUTOTRADE_STEAM_API_KEY":   &cfg.Steam.APIKey,
		"AUTOTRADE_PROXY":           &cfg.Steam.Proxy,
		"AUTOTRADE_USER_AGENT":      &cfg.Steam.UserAgent,
		"AUTOTRADE_COOKIE_FILE":     &cfg.Storage.CookieFile,
		"AUTOTRADE_PROCESSED_FILE":  &cfg.Storage.ProcessedFile,
		"AUTOTRADE_DSN":             &cfg.Storage.DSN,
		"LOG_LEVEL":                 &cfg.Log.Level,
		"LOG_FORMAT":                &cfg.Log.Format,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("AUTOTRADE_STEAM_ID64"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("AUTOTRADE_STEAM_ID64: %w", err)
		}
		cfg.Steam.SteamID64 = id
	}
	if v := os.Getenv("AUTOTRADE_USE_PROXY"); v != "" {
		cfg.Steam.UseProxy = parseBool(v)
	}
	if v := os.Getenv("AUTOTRADE_INTERVAL_SECONDS"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("AUTOTRADE_INTERVAL_SECONDS: %w", err)
		}
		cfg.Loop.IntervalSeconds = secs
	}
	return nil
}

// parseBool acepta las formas habituales en archivos .env: yes/true/t/y/1.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "t", "y", "1":
		return true
	}
	return false
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.CSFloat.TradesLimit <= 0 {
		cfg.CSFloat.TradesLimit = 3000
	}
	if cfg.CSFloat.AcceptMode == "" {
		cfg.CSFloat.AcceptMode = "bulk"
	}
	cfg.CSFloat.AcceptMode = strings.ToLower(cfg.CSFloat.AcceptMode)
	if cfg.Steam.UserAgent == "" {
		cfg.Steam.UserAgent = defaultUserAgent
	}
	if cfg.Steam.InventoryCount <= 0 {
		cfg.Steam.InventoryCount = 2000
	}
	if cfg.Loop.IntervalSeconds <= 0 {
		cfg.Loop.IntervalSeconds = defaultIntervalSeconds
	}
	if cfg.Loop.Random {
		lo, hi := cfg.Loop.RandomMinSeconds, cfg.Loop.RandomMaxSeconds
		switch {
		case lo <= 0 || hi <= 0:
			slog.Warn("config: random interval needs random_min and random_max, using fixed interval")
			cfg.Loop.Random = false
		case lo > hi:
			slog.Warn("config: random_min is greater than random_max, using fixed interval",
				"random_min", lo, "random_max", hi)
			cfg.Loop.Random = false
		}
	}
	if cfg.Storage.CookieFile == "" {
		cfg.Storage.CookieFile = "cookies.json"
	}
	if cfg.Storage.ProcessedFile == "" {
		cfg.Storage.ProcessedFile = "processed_trades.json"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "autotrade.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
