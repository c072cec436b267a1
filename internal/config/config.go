package config

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/coordclean/internal/checks"
	"github.com/sells-group/coordclean/internal/cleaner"
	"github.com/sells-group/coordclean/internal/occurrence"
	"github.com/sells-group/coordclean/internal/outlier"
	"github.com/sells-group/coordclean/internal/reference"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig       `yaml:"log" mapstructure:"log"`
	Server     ServerConfig    `yaml:"server" mapstructure:"server"`
	Input      InputConfig     `yaml:"input" mapstructure:"input"`
	Clean      CleanConfig     `yaml:"clean" mapstructure:"clean"`
	References reference.Paths `yaml:"references" mapstructure:"references"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CorsOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// InputConfig describes the occurrence table.
type InputConfig struct {
	LonCol       string   `yaml:"lon_col" mapstructure:"lon_col"`
	LatCol       string   `yaml:"lat_col" mapstructure:"lat_col"`
	SpeciesCol   string   `yaml:"species_col" mapstructure:"species_col"`
	CountriesCol string   `yaml:"countries_col" mapstructure:"countries_col"`
	Additions    []string `yaml:"additions" mapstructure:"additions"`
	Encoding     string   `yaml:"encoding" mapstructure:"encoding"`
	Delimiter    string   `yaml:"delimiter" mapstructure:"delimiter"`
	Sheet        string   `yaml:"sheet" mapstructure:"sheet"`
	Query        string   `yaml:"query" mapstructure:"query"`
	DatabaseURL  string   `yaml:"database_url" mapstructure:"database_url"`
}

// CleanConfig selects the tests and their parameters.
type CleanConfig struct {
	Tests        []string           `yaml:"tests" mapstructure:"tests"`
	Value        string             `yaml:"value" mapstructure:"value"`
	Concurrency  int                `yaml:"concurrency" mapstructure:"concurrency"`
	Capitals     ProximityConfig    `yaml:"capitals" mapstructure:"capitals"`
	Centroids    CentroidsConfig    `yaml:"centroids" mapstructure:"centroids"`
	Countries    BufferConfig       `yaml:"countries" mapstructure:"countries"`
	Equal        EqualConfig        `yaml:"equal" mapstructure:"equal"`
	GBIF         GBIFConfig         `yaml:"gbif" mapstructure:"gbif"`
	Institutions InstitutionsConfig `yaml:"institutions" mapstructure:"institutions"`
	Outliers     OutliersConfig     `yaml:"outliers" mapstructure:"outliers"`
	Range        BufferConfig       `yaml:"range" mapstructure:"range"`
	Zeros        BufferConfig       `yaml:"zeros" mapstructure:"zeros"`
}

// BufferConfig is a single buffer parameter.
type BufferConfig struct {
	Buffer float64 `yaml:"buffer" mapstructure:"buffer"`
}

// ProximityConfig is a buffer with a distance model.
type ProximityConfig struct {
	Buffer float64 `yaml:"buffer" mapstructure:"buffer"`
	Geod   bool    `yaml:"geod" mapstructure:"geod"`
}

// CentroidsConfig configures the centroid test.
type CentroidsConfig struct {
	Buffer float64 `yaml:"buffer" mapstructure:"buffer"`
	Geod   bool    `yaml:"geod" mapstructure:"geod"`
	Detail string  `yaml:"detail" mapstructure:"detail"`
	Verify bool    `yaml:"verify" mapstructure:"verify"`
}

// EqualConfig configures the equal-coordinate test.
type EqualConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"`
}

// GBIFConfig configures the default-point test.
type GBIFConfig struct {
	Lon     float64 `yaml:"lon" mapstructure:"lon"`
	Lat     float64 `yaml:"lat" mapstructure:"lat"`
	MaxDist float64 `yaml:"max_dist" mapstructure:"max_dist"`
}

// InstitutionsConfig configures the institutions test.
type InstitutionsConfig struct {
	Buffer      float64 `yaml:"buffer" mapstructure:"buffer"`
	Geod        bool    `yaml:"geod" mapstructure:"geod"`
	Verify      bool    `yaml:"verify" mapstructure:"verify"`
	VerifyMltpl float64 `yaml:"verify_mltpl" mapstructure:"verify_mltpl"`
}

// OutliersConfig configures the outlier engine.
type OutliersConfig struct {
	Method    string  `yaml:"method" mapstructure:"method"`
	Mltpl     float64 `yaml:"mltpl" mapstructure:"mltpl"`
	TDI       float64 `yaml:"tdi" mapstructure:"tdi"`
	MinOccs   int     `yaml:"min_occs" mapstructure:"min_occs"`
	Intrinsic bool    `yaml:"intrinsic" mapstructure:"intrinsic"`
	Metric    string  `yaml:"metric" mapstructure:"metric"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("coordclean")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COORDCLEAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("input.lon_col", occurrence.DefaultLonCol)
	v.SetDefault("input.lat_col", occurrence.DefaultLatCol)
	v.SetDefault("input.species_col", occurrence.DefaultSpeciesCol)
	v.SetDefault("input.countries_col", occurrence.DefaultCountryCol)
	v.SetDefault("input.additions", []string{})
	v.SetDefault("input.encoding", "utf-8")
	v.SetDefault("input.delimiter", ",")
	v.SetDefault("clean.tests", []string{"capitals", "centroids", "equal", "institutions", "outliers", "seas", "zeros"})
	v.SetDefault("clean.value", "flagged")
	v.SetDefault("clean.concurrency", 1)
	v.SetDefault("clean.capitals.buffer", 10000)
	v.SetDefault("clean.capitals.geod", true)
	v.SetDefault("clean.centroids.buffer", 1000)
	v.SetDefault("clean.centroids.geod", true)
	v.SetDefault("clean.centroids.detail", "both")
	v.SetDefault("clean.centroids.verify", true)
	v.SetDefault("clean.countries.buffer", 0)
	v.SetDefault("clean.equal.mode", "absolute")
	v.SetDefault("clean.gbif.lon", 0)
	v.SetDefault("clean.gbif.lat", 0)
	v.SetDefault("clean.gbif.max_dist", 100000)
	v.SetDefault("clean.institutions.buffer", 100)
	v.SetDefault("clean.institutions.geod", false)
	v.SetDefault("clean.institutions.verify", false)
	v.SetDefault("clean.institutions.verify_mltpl", 10)
	v.SetDefault("clean.outliers.method", "quantile")
	v.SetDefault("clean.outliers.mltpl", 5)
	v.SetDefault("clean.outliers.tdi", 1000)
	v.SetDefault("clean.outliers.min_occs", 7)
	v.SetDefault("clean.outliers.intrinsic", false)
	v.SetDefault("clean.outliers.metric", "euclidean")
	v.SetDefault("clean.range.buffer", 0)
	v.SetDefault("clean.zeros.buffer", 0.5)
	for _, key := range []string{"capitals", "centroids", "countries", "institutions", "ranges", "seas", "urban"} {
		v.SetDefault("references."+key, "")
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on.
func (c *Config) Validate(mode string) error {
	switch mode {
	case "clean":
		return c.validateClean()
	case "serve":
		if c.Server.Port <= 0 {
			return eris.New("config: server.port must be > 0")
		}
		return c.validateClean()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}
}

func (c *Config) validateClean() error {
	var problems []string
	buffers := map[string]float64{
		"clean.capitals.buffer":     c.Clean.Capitals.Buffer,
		"clean.centroids.buffer":    c.Clean.Centroids.Buffer,
		"clean.countries.buffer":    c.Clean.Countries.Buffer,
		"clean.gbif.max_dist":       c.Clean.GBIF.MaxDist,
		"clean.institutions.buffer": c.Clean.Institutions.Buffer,
		"clean.range.buffer":        c.Clean.Range.Buffer,
		"clean.zeros.buffer":        c.Clean.Zeros.Buffer,
		"clean.outliers.mltpl":      c.Clean.Outliers.Mltpl,
		"clean.outliers.tdi":        c.Clean.Outliers.TDI,
	}
	for _, key := range sortedKeys(buffers) {
		if buffers[key] < 0 {
			problems = append(problems, key+" must be >= 0")
		}
	}
	if c.Clean.Institutions.VerifyMltpl < 0 {
		problems = append(problems, "clean.institutions.verify_mltpl must be >= 0")
	}
	if c.Clean.Concurrency < 1 || c.Clean.Concurrency > 64 {
		problems = append(problems, "clean.concurrency must be between 1 and 64")
	}
	if c.Clean.Outliers.MinOccs < 0 {
		problems = append(problems, "clean.outliers.min_occs must be >= 0")
	}
	if utf8.RuneCountInString(c.Input.Delimiter) > 1 {
		problems = append(problems, "input.delimiter must be a single character")
	}
	if len(problems) > 0 {
		return eris.Errorf("config: invalid settings: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Columns returns the configured table column names.
func (c *Config) Columns() occurrence.Columns {
	return occurrence.Columns{
		Lon:       c.Input.LonCol,
		Lat:       c.Input.LatCol,
		Species:   c.Input.SpeciesCol,
		Country:   c.Input.CountriesCol,
		Additions: c.Input.Additions,
	}
}

// CSVOptions returns the CSV reader settings.
func (c *Config) CSVOptions() occurrence.CSVOptions {
	opts := occurrence.CSVOptions{Encoding: c.Input.Encoding}
	if r, _ := utf8.DecodeRuneInString(c.Input.Delimiter); r != utf8.RuneError {
		opts.Delimiter = r
	}
	return opts
}

// Plan builds the typed cleaning plan from the configured test names and
// parameters.
func (c *Config) Plan() (cleaner.Plan, error) {
	return c.PlanFor(c.Clean.Tests, c.Clean.Value)
}

// PlanFor builds a plan for the given test names and value mode using the
// configured per-test parameters.
func (c *Config) PlanFor(tests []string, value string) (cleaner.Plan, error) {
	kinds, err := cleaner.ParseKinds(tests)
	if err != nil {
		return cleaner.Plan{}, err
	}
	mode, err := cleaner.ParseValueMode(value)
	if err != nil {
		return cleaner.Plan{}, err
	}

	plan := cleaner.Plan{Value: mode, Concurrency: c.Clean.Concurrency}
	for _, k := range kinds {
		t, err := c.test(k)
		if err != nil {
			return cleaner.Plan{}, eris.Wrapf(err, "config: %s", k)
		}
		plan.Tests = append(plan.Tests, t)
	}
	return plan, nil
}

func (c *Config) test(k cleaner.Kind) (cleaner.Test, error) {
	cc := c.Clean
	switch k {
	case cleaner.KindEqual:
		mode, err := checks.ParseEqualMode(cc.Equal.Mode)
		if err != nil {
			return nil, err
		}
		return cleaner.EqualTest{Mode: mode}, nil
	case cleaner.KindZeros:
		return cleaner.ZerosTest{Buffer: cc.Zeros.Buffer}, nil
	case cleaner.KindCapitals:
		return cleaner.CapitalsTest{Buffer: cc.Capitals.Buffer, Geod: cc.Capitals.Geod}, nil
	case cleaner.KindCentroids:
		detail, err := checks.ParseCentroidDetail(cc.Centroids.Detail)
		if err != nil {
			return nil, err
		}
		return cleaner.CentroidsTest{CentroidOptions: checks.CentroidOptions{
			Buffer: cc.Centroids.Buffer,
			Geod:   cc.Centroids.Geod,
			Detail: detail,
			Verify: cc.Centroids.Verify,
		}}, nil
	case cleaner.KindCountries:
		return cleaner.CountriesTest{Buffer: cc.Countries.Buffer}, nil
	case cleaner.KindOutliers:
		method, err := outlier.ParseMethod(cc.Outliers.Method)
		if err != nil {
			return nil, err
		}
		metric, err := outlier.ParseMetric(cc.Outliers.Metric)
		if err != nil {
			return nil, err
		}
		return cleaner.OutliersTest{Config: outlier.Config{
			Method:     method,
			Multiplier: cc.Outliers.Mltpl,
			TDI:        cc.Outliers.TDI,
			MinOccs:    cc.Outliers.MinOccs,
			Intrinsic:  cc.Outliers.Intrinsic,
			Metric:     metric,
			Workers:    cc.Concurrency,
		}}, nil
	case cleaner.KindGBIF:
		return cleaner.GBIFTest{DefaultPointOptions: checks.DefaultPointOptions{
			Lon:     cc.GBIF.Lon,
			Lat:     cc.GBIF.Lat,
			MaxDist: cc.GBIF.MaxDist,
		}}, nil
	case cleaner.KindInstitutions:
		return cleaner.InstitutionsTest{InstitutionOptions: checks.InstitutionOptions{
			Buffer:      cc.Institutions.Buffer,
			Geod:        cc.Institutions.Geod,
			Verify:      cc.Institutions.Verify,
			VerifyMltpl: cc.Institutions.VerifyMltpl,
		}}, nil
	case cleaner.KindRange:
		return cleaner.RangeTest{Buffer: cc.Range.Buffer}, nil
	default:
		return cleaner.DefaultTest(k), nil
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
