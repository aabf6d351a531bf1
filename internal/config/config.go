package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"clip-trivia-service/internal/domain"
	"clip-trivia-service/internal/infra/file"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		StaticDir      string   `yaml:"static_dir"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Game struct {
		QuestionDelay string `yaml:"question_delay"`
		AnswerDelay   string `yaml:"answer_delay"`
		CommDelay     string `yaml:"comm_delay"`
		CodeAttempts  int    `yaml:"code_attempts"`
	} `yaml:"game"`
	Catalog struct {
		CSVPath      string `yaml:"csv_path"`
		TTL          string `yaml:"ttl"`
		VideoPrefix  string `yaml:"video_prefix"`
		VideoExt     string `yaml:"video_ext"`
		PosterPrefix string `yaml:"poster_prefix"`
		PosterExt    string `yaml:"poster_ext"`
	} `yaml:"catalog"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Load reads YAML config from path. A missing file yields the zero config so
// defaults apply.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Delays returns the game timings, falling back to the defaults per field.
func (c Config) Delays() domain.Delays {
	d := domain.DefaultDelays()
	return domain.Delays{
		Question: TTLDuration(c.Game.QuestionDelay, d.Question),
		Answer:   TTLDuration(c.Game.AnswerDelay, d.Answer),
		Comm:     TTLDuration(c.Game.CommDelay, d.Comm),
	}
}

// MediaLayout returns the clip reference layout, falling back to the defaults per field.
func (c Config) MediaLayout() file.MediaLayout {
	layout := file.DefaultMediaLayout()
	if c.Catalog.VideoPrefix != "" {
		layout.VideoPrefix = c.Catalog.VideoPrefix
	}
	if c.Catalog.VideoExt != "" {
		layout.VideoExt = c.Catalog.VideoExt
	}
	if c.Catalog.PosterPrefix != "" {
		layout.PosterPrefix = c.Catalog.PosterPrefix
	}
	if c.Catalog.PosterExt != "" {
		layout.PosterExt = c.Catalog.PosterExt
	}
	return layout
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
