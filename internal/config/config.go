package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "PLANNER_"

type Application struct {
	Listen   string   `koanf:"listen"`
	Database Database `koanf:"db"`
	Reminder Reminder `koanf:"reminder"`
	Stats    Stats    `koanf:"stats"`
	Backup   Backup   `koanf:"backup"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Reminder struct {
	// Cron is a robfig/cron schedule, descriptors such as "@every 1m" included.
	Cron        string `koanf:"cron"`
	HorizonDays int    `koanf:"horizondays"`
}

type Stats struct {
	Days int `koanf:"days"`
}

type Backup struct {
	Dir string `koanf:"dir"`
}

func Defaults() Application {
	return Application{
		Listen: ":8181",
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "planner",
			Pass:   "",
			Name:   "planner",
			Schema: "planner",
		},
		Reminder: Reminder{
			Cron:        "@every 1m",
			HorizonDays: 30,
		},
		Stats: Stats{
			Days: 30,
		},
		Backup: Backup{
			Dir: "./backup",
		},
	}
}

// Load layers defaults, the YAML file at path and PLANNER_ environment variables.
// Variables from a .env file in the working directory are loaded first when present.
func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
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

	// Variables already set in the environment win over the .env file.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Errorf("error loading .env file: %v", err)
		return Application{}, err
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
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
