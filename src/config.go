package cwkey

/*------------------------------------------------------------------
 *
 * Purpose:   	Read configuration information from a file.
 *
 * Description:	YAML or TOML, chosen by the file name extension.
 *		Anything not mentioned keeps the value from
 *		DefaultConfig.  For example:
 *
 *		    speed: 20
 *		    tone: 700
 *		    key:
 *		      method: gpiod
 *		      device: gpiochip0
 *		      line: 17
 *		    ptt:
 *		      method: cm108
 *		    server:
 *		      announce: true
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGuardMS    = 300
	DefaultSampleRate = 44100
	DefaultAmplitude  = 50
)

type SidetoneBackend string

const (
	SidetoneNone      SidetoneBackend = "none"
	SidetonePortAudio SidetoneBackend = "portaudio"
	SidetoneOto       SidetoneBackend = "oto"
)

type SidetoneConfig struct {
	Backend    SidetoneBackend `yaml:"backend" toml:"backend"`
	SampleRate int             `yaml:"sample_rate" toml:"sample_rate"`
	Amplitude  int             `yaml:"amplitude" toml:"amplitude"` // 0 .. 100
}

type ServerConfig struct {
	Listen     string `yaml:"listen" toml:"listen"`
	Announce   bool   `yaml:"announce" toml:"announce"`
	DNSSDName  string `yaml:"dns_sd_name" toml:"dns_sd_name"`
	AllowExit  bool   `yaml:"allow_exit" toml:"allow_exit"`
	PTY        string `yaml:"pty" toml:"pty"` // Symlink for the pseudo terminal.  Empty for none.
	QueueDepth int    `yaml:"queue_depth" toml:"queue_depth"`
}

type Config struct {
	Speed int `yaml:"speed" toml:"speed"`
	Tone  int `yaml:"tone" toml:"tone"`

	GuardMS int `yaml:"guard_ms" toml:"guard_ms"`
	TailMS  int `yaml:"tail_ms" toml:"tail_ms"`

	Cancellable     bool   `yaml:"cancellable" toml:"cancellable"`
	TimestampFormat string `yaml:"timestamp_format" toml:"timestamp_format"`

	Key LineConfig `yaml:"key" toml:"key"`
	PTT LineConfig `yaml:"ptt" toml:"ptt"`

	// Sound card name or number, e.g. "plughw:1,0", for finding the
	// matching CM108 GPIO device.
	AudioDevice string `yaml:"audio_device" toml:"audio_device"`

	Sidetone SidetoneConfig `yaml:"sidetone" toml:"sidetone"`
	Server   ServerConfig   `yaml:"server" toml:"server"`

	LogLevel string `yaml:"log_level" toml:"log_level"`
}

var (
	ErrConfigFormat = errors.New("config file must be .yaml, .yml or .toml")
	ErrConfigValue  = errors.New("invalid config value")
)

func DefaultConfig() Config {
	return Config{ //nolint:exhaustruct
		Speed:   DefaultWPM,
		Tone:    DefaultToneHz,
		GuardMS: DefaultGuardMS,
		Key:     LineConfig{Method: LineNone}, //nolint:exhaustruct
		PTT:     LineConfig{Method: LineNone}, //nolint:exhaustruct
		Sidetone: SidetoneConfig{
			Backend:    SidetoneNone,
			SampleRate: DefaultSampleRate,
			Amplitude:  DefaultAmplitude,
		},
		Server: ServerConfig{ //nolint:exhaustruct
			Listen:     fmt.Sprintf(":%d", DefaultServerPort),
			QueueDepth: DefaultQueueDepth,
		},
		LogLevel: "info",
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        LoadConfig
 *
 * Purpose:    	Read and check a configuration file.
 *
 * Returns:	DefaultConfig with the file's settings on top, after
 *		Validate.
 *
 *--------------------------------------------------------------------*/

func LoadConfig(path string) (Config, error) {
	var cfg = DefaultConfig()

	var b, err = os.ReadFile(path) //nolint:gosec // User-supplied config file from CLI
	if err != nil {
		return cfg, fmt.Errorf("could not read config file: %w", err)
	}

	if err := ParseConfig(&cfg, filepath.Ext(path), b); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// ParseConfig decodes b on top of what is already in cfg.  ext is a file
// name extension with the dot.
func ParseConfig(cfg *Config, ext string, b []byte) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	case ".toml":
		return toml.Unmarshal(b, cfg)
	default:
		return fmt.Errorf("%w, not %q", ErrConfigFormat, ext)
	}
}

// Validate fills in what is missing and rejects what makes no sense.
// Speed out of range snaps to the default and a tone of 0 or less
// means the default, the same as for the transmitter.
func (c *Config) Validate() error {
	var problems []error

	if NewTiming(c.Speed).WPM() != c.Speed {
		logger.Warn("speed out of range, using default", "speed", c.Speed, "default", DefaultWPM)
		c.Speed = DefaultWPM
	}
	if c.Tone <= 0 {
		c.Tone = DefaultToneHz
	}

	if c.GuardMS < 0 {
		problems = append(problems, fmt.Errorf("%w: guard_ms %d", ErrConfigValue, c.GuardMS))
	}
	if c.TailMS < 0 {
		problems = append(problems, fmt.Errorf("%w: tail_ms %d", ErrConfigValue, c.TailMS))
	}

	for _, l := range []*LineConfig{&c.Key, &c.PTT} {
		l.Method = LineMethod(strings.ToLower(string(l.Method)))
		switch l.Method {
		case "":
			l.Method = LineNone
		case LineNone, LineSerial, LineGPIOD, LineCM108:
		default:
			problems = append(problems, fmt.Errorf("%w %q", ErrUnknownMethod, l.Method))
		}
	}

	var st = &c.Sidetone
	st.Backend = SidetoneBackend(strings.ToLower(string(st.Backend)))
	switch st.Backend {
	case "":
		st.Backend = SidetoneNone
	case SidetoneNone, SidetonePortAudio, SidetoneOto:
	default:
		problems = append(problems, fmt.Errorf("%w: sidetone backend %q", ErrConfigValue, st.Backend))
	}
	if st.SampleRate <= 0 {
		st.SampleRate = DefaultSampleRate
	}
	if st.Amplitude < 0 || st.Amplitude > 100 {
		problems = append(problems, fmt.Errorf("%w: sidetone amplitude %d, 0 to 100", ErrConfigValue, st.Amplitude))
	}

	if c.Server.Listen == "" {
		c.Server.Listen = fmt.Sprintf(":%d", DefaultServerPort)
	}
	if c.Server.QueueDepth <= 0 {
		c.Server.QueueDepth = DefaultQueueDepth
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Errorf("%w: log_level: %w", ErrConfigValue, err))
	}

	return errors.Join(problems...)
}

func (c Config) Guard() time.Duration {
	return time.Duration(c.GuardMS) * time.Millisecond
}

func (c Config) Tail() time.Duration {
	return time.Duration(c.TailMS) * time.Millisecond
}

// TransmitterOptions has everything except the lines, tone generator
// and delayer, which the caller opens.
func (c Config) TransmitterOptions() Options {
	return Options{ //nolint:exhaustruct
		WPM:             c.Speed,
		ToneHz:          c.Tone,
		Guard:           c.Guard(),
		Tail:            c.Tail(),
		Cancellable:     c.Cancellable,
		TimestampFormat: c.TimestampFormat,
	}
}
