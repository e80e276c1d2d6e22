package log

// Config is the `log:` section of the configuration file.
type Config struct {
	Level     string           `mapstructure:"level"`   // trace / debug / info / warn / error
	Pattern   string           `mapstructure:"pattern"` // see formatter
	Time      string           `mapstructure:"time"`    // Go time layout
	Appenders []AppenderConfig `mapstructure:"appenders"`
}

// AppenderConfig selects one output. Options are decoded per type.
type AppenderConfig struct {
	Type    string                 `mapstructure:"type"` // console / file
	Options map[string]interface{} `mapstructure:"options"`
}

const (
	DefaultPattern = "%time [%level] %msg %field%n"
	DefaultTime    = "2006-01-02 15:04:05.000"
)

// DefaultConfig logs info and above to stderr.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Pattern: DefaultPattern,
		Time:    DefaultTime,
		Appenders: []AppenderConfig{
			{Type: AppenderConsole, Options: map[string]interface{}{"target": "stderr"}},
		},
	}
}
