package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/ohowland/gridzone/internal/pkg/circuit"
	"gotest.tools/v3/assert"
)

func noEnv(string) (string, bool) { return "", false }

func envFrom(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoad(t *testing.T) {
	cfg, err := LoadWith("./testdata/gridzone.json", noEnv)
	assert.NilError(t, err)

	assert.Equal(t, cfg.Feeder.Lines, filepath.Join("testdata", "lines.csv"))
	assert.Equal(t, cfg.Feeder.Coords, filepath.Join("testdata", "coords.dat"))
	assert.Equal(t, cfg.Feeder.Format, FormatCSV)

	assert.Equal(t, cfg.Pipeline.Zones.K, 2)
	assert.Equal(t, cfg.Pipeline.Zones.Seed, uint64(42))
	assert.DeepEqual(t, cfg.Pipeline.Zones.Relabel, []int{1, 0})
	assert.DeepEqual(t, cfg.Pipeline.FaultZones, []int{1})
	assert.Equal(t, cfg.Pipeline.Timings[1].Blackout, 75.0)
	assert.Equal(t, cfg.Pipeline.Inflation, 1.15)

	assert.Equal(t, cfg.Datastreams.SQL.Port, 3306)
	assert.Equal(t, cfg.Datastreams.SQL.Server, "localhost")
	assert.Equal(t, cfg.Datastreams.NATS.Prefix, "gridzone")
	assert.Equal(t, cfg.Datastreams.Mongo.URI, "")
	assert.Equal(t, cfg.Webservice.Addr, ":8080")
}

func TestEnvOverrides(t *testing.T) {
	vars, err := godotenv.Read("./testdata/test.env")
	assert.NilError(t, err)
	assert.Equal(t, vars["GRIDZONE_SQL_PASSWORD"], "s3cret")

	vars["GRIDZONE_ADDR"] = ""
	cfg, err := LoadWith("./testdata/gridzone.json", envFrom(vars))
	assert.NilError(t, err)

	assert.Equal(t, cfg.Pipeline.Zones.Seed, uint64(7))
	assert.Equal(t, cfg.Datastreams.SQL.Password, "s3cret")
	assert.Equal(t, cfg.Webservice.Addr, "")
}

func TestEnvPathsFromWorkingDir(t *testing.T) {
	cfg, err := LoadWith("./testdata/gridzone.json", envFrom(map[string]string{
		"GRIDZONE_LINES":  "feeders/ieee123.dss",
		"GRIDZONE_COORDS": "/data/buscoords.dat",
	}))
	assert.NilError(t, err)

	assert.Equal(t, cfg.Feeder.Lines, "feeders/ieee123.dss")
	assert.Equal(t, cfg.Feeder.Coords, "/data/buscoords.dat")
	assert.Equal(t, cfg.Feeder.Format, FormatDSS)
}

func TestBadEnvOverride(t *testing.T) {
	_, err := LoadWith("./testdata/gridzone.json", envFrom(map[string]string{"GRIDZONE_ZONES": "seven"}))
	assert.Assert(t, errors.Is(err, ErrInvalid))
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadWith("./testdata/missing.json", noEnv)
	assert.Assert(t, errors.Is(err, circuit.ErrConfig))

	_, err = LoadWith("./testdata/malformed.json", noEnv)
	assert.Assert(t, errors.Is(err, circuit.ErrConfig))

	_, err = LoadWith("./testdata/bad_format.json", noEnv)
	assert.Assert(t, errors.Is(err, ErrInvalid))
	assert.ErrorContains(t, err, `"txt"`)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Config{}
		c.Feeder = Feeder{Lines: "a.dss", Coords: "b.dat", Format: FormatDSS}
		c.Pipeline.Zones.K = 7
		c.Pipeline.FaultZones = []int{4, 5, 6}
		return c
	}
	assert.NilError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no lines", func(c *Config) { c.Feeder.Lines = "" }},
		{"no coords", func(c *Config) { c.Feeder.Coords = "" }},
		{"no zones", func(c *Config) { c.Pipeline.Zones.K = 0 }},
		{"fault zone out of range", func(c *Config) { c.Pipeline.FaultZones = []int{7} }},
		{"unknown driver", func(c *Config) { c.Datastreams.SQL.Driver = "sqlite" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Assert(t, errors.Is(c.Validate(), ErrInvalid))
		})
	}
}

func TestInputs(t *testing.T) {
	cfg, err := LoadWith("./testdata/gridzone.json", noEnv)
	assert.NilError(t, err)

	src, err := cfg.LineSource()
	assert.NilError(t, err)
	n := 0
	for src.Next() {
		n++
	}
	assert.NilError(t, src.Err())
	assert.Equal(t, n, 4)

	coords, err := cfg.Coords()
	assert.NilError(t, err)
	assert.Equal(t, len(coords), 3)
}
