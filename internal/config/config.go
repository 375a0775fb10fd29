package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

const localTimezone = "Local"

type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Output    OutputConfig    `yaml:"output"`
	Consumers ConsumersConfig `yaml:"consumers"`
	Classify  ClassifyConfig  `yaml:"classify"`
	Download  DownloadConfig  `yaml:"download"`
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Timezone  string          `yaml:"timezone"`
	LogLevel  string          `yaml:"log_level"`

	location *time.Location
}

// SourceConfig describes the contiguous range of partition files to load:
// FilePattern formatted with FirstPartition .. FirstPartition+PartitionCount-1.
type SourceConfig struct {
	Dir            string `yaml:"dir"`
	FilePattern    string `yaml:"file_pattern"`
	FirstPartition int    `yaml:"first_partition"`
	PartitionCount int    `yaml:"partition_count"`
}

type OutputConfig struct {
	Dir             string `yaml:"dir"`
	MultiTitlesFile string `yaml:"multi_titles_file"`
	VideoListFile   string `yaml:"video_list_file"`
	NoColor         bool   `yaml:"no_color"`
}

// ConsumersConfig switches the terminal consumers of a run on or off.
type ConsumersConfig struct {
	Posts       bool `yaml:"posts"`
	MultiTitles bool `yaml:"multi_titles"`
	VideoList   bool `yaml:"video_list"`
}

// ScheduleConfig repeats the run every Interval. Zero runs once and exits.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type ClassifyConfig struct {
	OnMalformed string `yaml:"on_malformed"`
}

type DownloadConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether the catalog database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

// Enabled reports whether post events should be published.
func (r RabbitMQConfig) Enabled() bool {
	return r.URL != ""
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Location returns the timezone used for date tokens.
func (c *Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	return time.Local
}

func (c *Config) setDefaults() {
	if c.Source.Dir == "" {
		c.Source.Dir = "."
	}
	if c.Source.FilePattern == "" {
		c.Source.FilePattern = "group%d.json"
	}
	if c.Source.FirstPartition == 0 {
		c.Source.FirstPartition = 1
	}
	if c.Source.PartitionCount == 0 {
		c.Source.PartitionCount = 32
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Output.MultiTitlesFile == "" {
		c.Output.MultiTitlesFile = "multi_titles.json"
	}
	if c.Output.VideoListFile == "" {
		c.Output.VideoListFile = "vidlist.txt"
	}
	if !c.Consumers.Posts && !c.Consumers.MultiTitles && !c.Consumers.VideoList {
		c.Consumers.VideoList = true
	}
	if c.Classify.OnMalformed == "" {
		c.Classify.OnMalformed = "fail"
	}
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = "MediaGrabber/1.0"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "media_grabber"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "posts"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "materialized_posts"
	}
	if c.Timezone == "" {
		c.Timezone = localTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) expandPaths() error {
	var err error
	if c.Source.Dir, err = homedir.Expand(c.Source.Dir); err != nil {
		return fmt.Errorf("expand source dir: %w", err)
	}
	if c.Output.Dir, err = homedir.Expand(c.Output.Dir); err != nil {
		return fmt.Errorf("expand output dir: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Source.PartitionCount < 0 {
		return fmt.Errorf("source.partition_count must be positive, got %d", c.Source.PartitionCount)
	}
	switch c.Classify.OnMalformed {
	case "fail", "skip":
	default:
		return fmt.Errorf("classify.on_malformed must be fail or skip, got %q", c.Classify.OnMalformed)
	}
	if c.Download.Timeout < 0 {
		return fmt.Errorf("download.timeout must not be negative")
	}
	if c.Schedule.Interval < 0 {
		return fmt.Errorf("schedule.interval must not be negative")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	c.location = loc

	return nil
}
