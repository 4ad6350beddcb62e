package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/statarb/internal/domain"
)

// Config es la configuración completa del optimizador.
type Config struct {
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Data      DataConfig      `yaml:"data"`
	Output    OutputConfig    `yaml:"output"`
	Storage   StorageConfig   `yaml:"storage"`
	Fetch     FetchConfig     `yaml:"fetch"`
	API       APIConfig       `yaml:"api"`
	Log       LogConfig       `yaml:"log"`
}

// OptimizerConfig controla el grid search y el pipeline por par.
type OptimizerConfig struct {
	Windows     []int      `yaml:"windows"`
	EntryZs     []float64  `yaml:"entry_zs"`
	ExitZs      []float64  `yaml:"exit_zs"`
	StopZs      []float64  `yaml:"stop_zs"`
	FeePct      *float64   `yaml:"fee_pct"`      // nil → default; 0 es válido
	MinTrades   *int       `yaml:"min_trades"`   // nil → default; trades mínimos para ser elegible
	MinHistory  int        `yaml:"min_history"`  // filas alineadas mínimas por par
	Workers     int        `yaml:"workers"`      // goroutines por grid (0 = NumCPU)
	PairWorkers int        `yaml:"pair_workers"` // pares en paralelo (0 = NumCPU)
	Default     DefaultSet `yaml:"default"`
}

// DefaultSet son los parámetros que se emiten cuando ningún candidato es elegible.
type DefaultSet struct {
	Window int     `yaml:"window"`
	EntryZ float64 `yaml:"entry_z"`
	ExitZ  float64 `yaml:"exit_z"`
	StopZ  float64 `yaml:"stop_z"`
}

// DataConfig indica de dónde se leen pares y precios.
type DataConfig struct {
	PairsFile string `yaml:"pairs_file"` // CSV leg1,leg2,hedge_ratio
	PriceDir  string `yaml:"price_dir"`  // un <SYMBOL>.csv por símbolo
}

// OutputConfig indica dónde se escriben los StrategyRecord.
type OutputConfig struct {
	StrategiesPath string `yaml:"strategies_path"`
}

// StorageConfig controla dónde se persiste el histórico de ejecuciones.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// FetchConfig controla la descarga de histórico.
type FetchConfig struct {
	TopN         int     `yaml:"top_n"`
	LookbackDays int     `yaml:"lookback_days"`
	Interval     string  `yaml:"interval"`
	RatePerSec   float64 `yaml:"rate_per_sec"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	BinanceBase string `yaml:"binance_base"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML. Con path vacío
// solo se aplican entorno y defaults.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
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

// Grid devuelve el grid de parámetros configurado.
func (c *Config) Grid() domain.Grid {
	return domain.Grid{
		Windows: c.Optimizer.Windows,
		EntryZs: c.Optimizer.EntryZs,
		ExitZs:  c.Optimizer.ExitZs,
		StopZs:  c.Optimizer.StopZs,
	}
}

// Fee devuelve la comisión proporcional por trade cerrado.
func (c *Config) Fee() float64 {
	if c.Optimizer.FeePct == nil {
		return defaultFeePct
	}
	return *c.Optimizer.FeePct
}

// MinTrades devuelve el umbral de elegibilidad configurado.
func (c *Config) MinTrades() int {
	if c.Optimizer.MinTrades == nil {
		return defaultMinTrades
	}
	return *c.Optimizer.MinTrades
}

// DefaultParams devuelve el ParameterSet de fallback.
func (c *Config) DefaultParams() domain.ParameterSet {
	d := c.Optimizer.Default
	return domain.ParameterSet{Window: d.Window, EntryZ: d.EntryZ, ExitZ: d.ExitZ, StopZ: d.StopZ}
}

// Lookback devuelve la ventana de descarga como time.Duration.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Fetch.LookbackDays) * 24 * time.Hour
}

// Validate rechaza configuraciones que harían fallar todos los pares.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Grid().Validate(); err != nil {
		errs = append(errs, err)
	}
	if f := c.Fee(); f < 0 || f >= 1 {
		errs = append(errs, fmt.Errorf("fee_pct %v out of [0, 1)", f))
	}
	if n := c.MinTrades(); n < 1 {
		errs = append(errs, fmt.Errorf("min_trades %d must be >= 1", n))
	}
	if c.Optimizer.Default.Window < 1 {
		errs = append(errs, fmt.Errorf("default.window must be positive"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STATARB_DATA_DIR"); v != "" {
		cfg.Data.PriceDir = v
	}
	if v := os.Getenv("STATARB_PAIRS_FILE"); v != "" {
		cfg.Data.PairsFile = v
	}
	if v := os.Getenv("STATARB_OUTPUT"); v != "" {
		cfg.Output.StrategiesPath = v
	}
	if v := os.Getenv("STATARB_DB"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("STATARB_FEE_PCT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("STATARB_FEE_PCT %q: %w", v, err)
		}
		cfg.Optimizer.FeePct = &f
	}
	return nil
}

const (
	defaultFeePct    = 0.0012 // 0.06% taker × 2 patas
	defaultMinTrades = 3
)

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	o := &cfg.Optimizer
	if len(o.Windows) == 0 {
		o.Windows = []int{30, 60, 120, 240, 360}
	}
	if len(o.EntryZs) == 0 {
		o.EntryZs = []float64{1.5, 2.0, 2.5, 3.0}
	}
	if len(o.ExitZs) == 0 {
		o.ExitZs = []float64{0.0, 0.25, 0.5}
	}
	if len(o.StopZs) == 0 {
		o.StopZs = []float64{4.0, 5.0, 8.0}
	}
	if o.FeePct == nil {
		f := defaultFeePct
		o.FeePct = &f
	}
	if o.MinTrades == nil {
		n := defaultMinTrades
		o.MinTrades = &n
	}
	if o.MinHistory <= 0 {
		o.MinHistory = 500
	}
	if o.Default == (DefaultSet{}) {
		d := domain.DefaultParameterSet
		o.Default = DefaultSet{Window: d.Window, EntryZ: d.EntryZ, ExitZ: d.ExitZ, StopZ: d.StopZ}
	}

	if cfg.Data.PairsFile == "" {
		cfg.Data.PairsFile = "cointegrated_pairs.csv"
	}
	if cfg.Data.PriceDir == "" {
		cfg.Data.PriceDir = "data/raw"
	}
	if cfg.Output.StrategiesPath == "" {
		cfg.Output.StrategiesPath = "strategies.json"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "statarb.db"
	}
	if cfg.Fetch.TopN <= 0 {
		cfg.Fetch.TopN = 50
	}
	if cfg.Fetch.LookbackDays <= 0 {
		cfg.Fetch.LookbackDays = 365
	}
	if cfg.Fetch.Interval == "" {
		cfg.Fetch.Interval = "1m"
	}
	if cfg.API.BinanceBase == "" {
		cfg.API.BinanceBase = "https://fapi.binance.com"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
