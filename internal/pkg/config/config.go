/*
Package config loads the gridzone run configuration.

The configuration is a JSON file. Values can be overridden with GRIDZONE_*
environment variables, which cmd/gridzone fills from a .env file first.
Relative input paths in the JSON file are resolved against its directory.
Paths taken from the environment are used as given, so a relative one is
relative to the working directory.
*/
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ohowland/gridzone/internal/pkg/circuit"
	"github.com/ohowland/gridzone/internal/pkg/pipeline"
)

var ErrInvalid = errors.New("invalid configuration")

// Input formats for Feeder.Format.
const (
	FormatDSS = "dss"
	FormatCSV = "csv"
)

// Feeder names the input files.
type Feeder struct {
	Lines  string `json:"Lines"`
	Format string `json:"Format"`
	Coords string `json:"Coords"`
}

// Mongo configures the mongodb sink. An empty URI disables it.
type Mongo struct {
	URI      string `json:"URI"`
	Database string `json:"Database"`
}

// SQL configures the sqldb sink. An empty Driver disables it.
type SQL struct {
	Driver   string `json:"Driver"`
	Server   string `json:"Server"`
	Port     int    `json:"Port"`
	Username string `json:"Username"`
	Password string `json:"Password"`
	Database string `json:"Database"`
}

// NATS configures the natshandler sink. An empty Server disables it.
type NATS struct {
	Server string `json:"Server"`
	Prefix string `json:"Prefix"`
}

// Neo4j configures the neo4jgraph sink. An empty URI disables it.
type Neo4j struct {
	URI      string `json:"URI"`
	Username string `json:"Username"`
	Password string `json:"Password"`
	Database string `json:"Database"`
}

// Datastreams holds the configuration of each result sink.
type Datastreams struct {
	Mongo Mongo `json:"Mongo"`
	SQL   SQL   `json:"SQL"`
	NATS  NATS  `json:"NATS"`
	Neo4j Neo4j `json:"Neo4j"`
}

// Webservice configures the HTTP view. An empty Addr disables it.
type Webservice struct {
	Addr           string   `json:"Addr"`
	AllowedOrigins []string `json:"AllowedOrigins"`
}

// Config is the whole run configuration.
type Config struct {
	Feeder      Feeder          `json:"Feeder"`
	Pipeline    pipeline.Config `json:"Pipeline"`
	Datastreams Datastreams     `json:"Datastreams"`
	Webservice  Webservice      `json:"Webservice"`
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set.
func LoadDotEnv(path string) error {
	return godotenv.Load(path)
}

// Load reads the JSON file at path, applies GRIDZONE_* variables from the
// process environment and validates the result.
func Load(path string) (Config, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with an explicit environment lookup.
func LoadWith(path string, lookup func(string) (string, bool)) (Config, error) {
	jsonConfig, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", circuit.ErrConfig, err)
	}
	cfg := Config{}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %v", circuit.ErrConfig, path, err)
	}

	cfg.resolve(filepath.Dir(path))
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	if cfg.Feeder.Format == "" {
		cfg.Feeder.Format = strings.TrimPrefix(strings.ToLower(filepath.Ext(cfg.Feeder.Lines)), ".")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"GRIDZONE_LINES":          &c.Feeder.Lines,
		"GRIDZONE_FORMAT":         &c.Feeder.Format,
		"GRIDZONE_COORDS":         &c.Feeder.Coords,
		"GRIDZONE_MONGO_URI":      &c.Datastreams.Mongo.URI,
		"GRIDZONE_SQL_DRIVER":     &c.Datastreams.SQL.Driver,
		"GRIDZONE_SQL_PASSWORD":   &c.Datastreams.SQL.Password,
		"GRIDZONE_NATS_SERVER":    &c.Datastreams.NATS.Server,
		"GRIDZONE_NEO4J_URI":      &c.Datastreams.Neo4j.URI,
		"GRIDZONE_NEO4J_PASSWORD": &c.Datastreams.Neo4j.Password,
		"GRIDZONE_ADDR":           &c.Webservice.Addr,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup("GRIDZONE_ZONES"); ok {
		k, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: GRIDZONE_ZONES=%q", ErrInvalid, v)
		}
		c.Pipeline.Zones.K = k
	}
	if v, ok := lookup("GRIDZONE_SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: GRIDZONE_SEED=%q", ErrInvalid, v)
		}
		c.Pipeline.Zones.Seed = seed
	}
	return nil
}

func (c *Config) resolve(dir string) {
	for _, p := range []*string{&c.Feeder.Lines, &c.Feeder.Coords} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Validate checks the fields a run cannot start without.
func (c Config) Validate() error {
	switch {
	case c.Feeder.Lines == "":
		return fmt.Errorf("%w: Feeder.Lines is required", ErrInvalid)
	case c.Feeder.Coords == "":
		return fmt.Errorf("%w: Feeder.Coords is required", ErrInvalid)
	case c.Feeder.Format != FormatDSS && c.Feeder.Format != FormatCSV:
		return fmt.Errorf("%w: unknown feeder format %q", ErrInvalid, c.Feeder.Format)
	case c.Pipeline.Zones.K < 1:
		return fmt.Errorf("%w: Pipeline.Zones.Count must be at least 1", ErrInvalid)
	}

	for _, z := range c.Pipeline.FaultZones {
		if z < 0 || z >= c.Pipeline.Zones.K {
			return fmt.Errorf("%w: fault zone %d outside %d zones", ErrInvalid, z, c.Pipeline.Zones.K)
		}
	}
	if d := c.Datastreams.SQL.Driver; d != "" && d != "mysql" && d != "postgres" {
		return fmt.Errorf("%w: unknown SQL driver %q", ErrInvalid, d)
	}
	return nil
}

// LineSource opens the configured line list.
func (c Config) LineSource() (circuit.LineSource, error) {
	if c.Feeder.Format == FormatCSV {
		return circuit.ReadCSV(c.Feeder.Lines)
	}
	return circuit.ReadDSS(c.Feeder.Lines)
}

// Coords reads the configured coordinate table.
func (c Config) Coords() (circuit.CoordTable, error) {
	return circuit.ReadCoords(c.Feeder.Coords)
}
