package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds everything a monitoring session needs. Values come from a YAML
// file with environment variables taking priority.
type Config struct {
	Postgres struct {
		DSN string `yaml:"dsn" env:"DATABASE_DSN"`
	} `yaml:"postgres"`

	Minio struct {
		Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	} `yaml:"minio"`

	Kafka struct {
		Brokers        []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		GroupID        string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
		CommandTopic   string   `yaml:"command_topic" env:"COMMAND_TOPIC"`
		ArrivalTopic   string   `yaml:"arrival_topic" env:"ARRIVAL_TOPIC"`
		HeartbeatTopic string   `yaml:"heartbeat_topic" env:"HEARTBEAT_TOPIC"`
	} `yaml:"kafka"`

	Detection struct {
		Endpoint string `yaml:"endpoint" env:"DETECTION_ENDPOINT"`
	} `yaml:"detection"`

	// Calibration output: cameras and their patrol points.
	ZonesPath string `yaml:"zones_path" env:"ZONES_PATH"`

	Patrol PatrolConfig `yaml:"patrol"`
}

// PatrolConfig exposes every detection threshold as configuration. The
// defaults are starting points, not contractual constants.
type PatrolConfig struct {
	MatchDistance      float64       `yaml:"match_distance" env:"PATROL_MATCH_DISTANCE"`
	TrackTimeout       time.Duration `yaml:"track_timeout" env:"PATROL_TRACK_TIMEOUT"`
	DwellThreshold     time.Duration `yaml:"dwell_threshold" env:"PATROL_DWELL_THRESHOLD"`
	CooldownWindow     time.Duration `yaml:"cooldown_window" env:"PATROL_COOLDOWN_WINDOW"`
	ConfidenceFloor    float64       `yaml:"confidence_floor" env:"PATROL_CONFIDENCE_FLOOR"`
	AgreementFraction  float64       `yaml:"agreement_fraction" env:"PATROL_AGREEMENT_FRACTION"`
	IdentityWindow     int           `yaml:"identity_window" env:"PATROL_IDENTITY_WINDOW"`
	FaceMatchTolerance float64       `yaml:"face_match_tolerance" env:"PATROL_FACE_MATCH_TOLERANCE"`
}

// UnmarshalYAML accepts Go duration strings ("3s", "5m") for the time-based
// thresholds and leaves absent keys at their current (default) values.
func (p *PatrolConfig) UnmarshalYAML(value *yaml.Node) error {
	type raw struct {
		MatchDistance      float64 `yaml:"match_distance"`
		TrackTimeout       string  `yaml:"track_timeout"`
		DwellThreshold     string  `yaml:"dwell_threshold"`
		CooldownWindow     string  `yaml:"cooldown_window"`
		ConfidenceFloor    float64 `yaml:"confidence_floor"`
		AgreementFraction  float64 `yaml:"agreement_fraction"`
		IdentityWindow     int     `yaml:"identity_window"`
		FaceMatchTolerance float64 `yaml:"face_match_tolerance"`
	}
	var r raw
	if err := value.Decode(&r); err != nil {
		return err
	}

	if r.MatchDistance != 0 {
		p.MatchDistance = r.MatchDistance
	}
	if r.ConfidenceFloor != 0 {
		p.ConfidenceFloor = r.ConfidenceFloor
	}
	if r.AgreementFraction != 0 {
		p.AgreementFraction = r.AgreementFraction
	}
	if r.IdentityWindow != 0 {
		p.IdentityWindow = r.IdentityWindow
	}
	if r.FaceMatchTolerance != 0 {
		p.FaceMatchTolerance = r.FaceMatchTolerance
	}

	for _, d := range []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{r.TrackTimeout, &p.TrackTimeout, "track_timeout"},
		{r.DwellThreshold, &p.DwellThreshold, "dwell_threshold"},
		{r.CooldownWindow, &p.CooldownWindow, "cooldown_window"},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("patrol config: bad %s %q: %w", d.name, d.raw, err)
		}
		*d.dst = parsed
	}

	return nil
}

// DefaultPatrolConfig mirrors the thresholds the product ran with.
func DefaultPatrolConfig() PatrolConfig {
	return PatrolConfig{
		MatchDistance:      75,
		TrackTimeout:       5 * time.Second,
		DwellThreshold:     3 * time.Second,
		CooldownWindow:     5 * time.Minute,
		ConfidenceFloor:    0.5,
		AgreementFraction:  0.5,
		IdentityWindow:     10,
		FaceMatchTolerance: 0.8,
	}
}

func LoadConfig(filename string) (*Config, error) {
	cfg := &Config{Patrol: DefaultPatrolConfig()}

	if filename == "" {
		filename = "internal/config/local.yaml"
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", filename, err)
	}

	// Environment variables win over file values.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Patrol.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects threshold values that would make the state machines
// degenerate (zero dwell, negative distances).
func (p PatrolConfig) Validate() error {
	if p.MatchDistance <= 0 {
		return fmt.Errorf("patrol config: match_distance must be > 0, got %v", p.MatchDistance)
	}
	if p.TrackTimeout <= 0 {
		return fmt.Errorf("patrol config: track_timeout must be > 0, got %v", p.TrackTimeout)
	}
	if p.DwellThreshold <= 0 {
		return fmt.Errorf("patrol config: dwell_threshold must be > 0, got %v", p.DwellThreshold)
	}
	if p.CooldownWindow < 0 {
		return fmt.Errorf("patrol config: cooldown_window must be >= 0, got %v", p.CooldownWindow)
	}
	if p.AgreementFraction <= 0 || p.AgreementFraction >= 1 {
		return fmt.Errorf("patrol config: agreement_fraction must be in (0, 1), got %v", p.AgreementFraction)
	}
	if p.IdentityWindow <= 0 {
		return fmt.Errorf("patrol config: identity_window must be > 0, got %v", p.IdentityWindow)
	}
	if p.FaceMatchTolerance <= 0 {
		return fmt.Errorf("patrol config: face_match_tolerance must be > 0, got %v", p.FaceMatchTolerance)
	}
	return nil
}
