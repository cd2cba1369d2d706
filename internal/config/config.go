// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package config

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

type Log struct {
	Path  string `yaml:"path"`
	Name  string `yaml:"name"`
	Debug bool   `yaml:"debug"`
}

type Decode struct {
	// Strict requires constructs to account for every input byte.
	Strict bool `yaml:"strict"`
}

type Global struct {
	Log    Log    `yaml:"log"`
	Decode Decode `yaml:"decode"`
}

type Config struct {
	Global Global `yaml:"global"`
}

func Default() Config {
	return Config{
		Global: Global{
			Log:    Log{Name: "tesig.log"},
			Decode: Decode{Strict: true},
		},
	}
}

// ReadConfigFile reads configFile over the defaults. A missing file yields the defaults.
func ReadConfigFile(configFile string) (Config, error) {
	c := Default()

	f, err := os.Open(configFile)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, err
	}
	return c, nil
}
