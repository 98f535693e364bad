package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Server     Server     `koanf:"server"`
	Database   Database   `koanf:"db"`
	Forecast   Forecast   `koanf:"forecast"`
	Bedrock    Bedrock    `koanf:"bedrock"`
	Comprehend Comprehend `koanf:"comprehend"`
	Serp       Serp       `koanf:"serp"`
	DevMode    bool       `koanf:"devmode"`
}

type Server struct {
	Addr string `koanf:"addr"`
	// RequestTimeoutSeconds bounds the total time a single request may take
	// before a timeout response is synthesized.
	RequestTimeoutSeconds int `koanf:"requesttimeoutseconds"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Forecast struct {
	// ModelURL is the legacy forecasting endpoint.
	ModelURL string `koanf:"modelurl"`
	// NewModelURL is the schedule-aware forecasting endpoint.
	NewModelURL    string `koanf:"newmodelurl"`
	TimeoutSeconds int    `koanf:"timeoutseconds"`
}

type Bedrock struct {
	Region  string `koanf:"region"`
	ModelID string `koanf:"modelid"`
}

type Comprehend struct {
	Region         string `koanf:"region"`
	TimeoutSeconds int    `koanf:"timeoutseconds"`
}

type Serp struct {
	BaseURL        string `koanf:"baseurl"`
	APIKey         string `koanf:"apikey"`
	TimeoutSeconds int    `koanf:"timeoutseconds"`
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Server: Server{
			Addr:                  ":8080",
			RequestTimeoutSeconds: 60,
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "eventpulse",
			Pass:   "",
			Name:   "eventpulse",
			Schema: "eventpulse",
		},
		Forecast: Forecast{
			ModelURL:       "http://localhost:8501/predict",
			NewModelURL:    "http://localhost:8502/predict",
			TimeoutSeconds: 30,
		},
		Bedrock: Bedrock{
			Region:  "us-east-1",
			ModelID: "amazon.nova-lite-v1:0",
		},
		Comprehend: Comprehend{
			Region:         "us-east-1",
			TimeoutSeconds: 5,
		},
		Serp: Serp{
			BaseURL:        "https://serpapi.com/search",
			TimeoutSeconds: 10,
		},
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "EVENTPULSE_",
		TransformFunc: func(k, v string) (string, any) {
			// Transform the key.
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "EVENTPULSE_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
