// Package config loads and validates docanalyzer configuration from file,
// environment and flags.
package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
)

// EnvPrefix prefixes every environment override, e.g. DOCANALYZER_SERVER_PORT.
const EnvPrefix = "DOCANALYZER"

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Model     ModelConfig     `mapstructure:"model"`
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Summarize SummarizeConfig `mapstructure:"summarize"`
	QA        QAConfig        `mapstructure:"qa"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Parser    ParserConfig    `mapstructure:"parser"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	MaxUploadMB   int64         `mapstructure:"max_upload_mb" validate:"gte=1"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace" validate:"gte=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Style string `mapstructure:"style" validate:"oneof=json console"`
}

// ModelConfig selects the model backends. The service backend serves both
// summarization and span prediction; ollama only replaces summarization.
type ModelConfig struct {
	Backend      string        `mapstructure:"backend" validate:"oneof=service ollama"`
	ServiceURL   string        `mapstructure:"service_url" validate:"required,url"`
	OllamaURL    string        `mapstructure:"ollama_url" validate:"omitempty,url"`
	OllamaModel  string        `mapstructure:"ollama_model" validate:"required_if=Backend ollama"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RateLimit    int           `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst    int           `mapstructure:"rate_burst" validate:"gte=0"`
	SummaryModel string        `mapstructure:"summary_model"`
	QAModel      string        `mapstructure:"qa_model"`
}

type TokenizerConfig struct {
	VocabPath string `mapstructure:"vocab_path" validate:"required"`
	Lowercase bool   `mapstructure:"lowercase"`
}

type SummarizeConfig struct {
	ChunkSize    int                    `mapstructure:"chunk_size" validate:"gte=1"`
	Concurrency  int                    `mapstructure:"concurrency" validate:"gte=1,lte=64"`
	ChunkTimeout time.Duration          `mapstructure:"chunk_timeout" validate:"gt=0"`
	Params       entities.SummaryParams `mapstructure:"params"`
}

type QAConfig struct {
	MaxTokens int `mapstructure:"max_tokens" validate:"gte=8,lte=4096"`
}

type CacheConfig struct {
	Backend  string        `mapstructure:"backend" validate:"oneof=memory sqlite none"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
	Path     string        `mapstructure:"path" validate:"required_if=Backend sqlite"`
	Capacity uint64        `mapstructure:"capacity"`
}

type ParserConfig struct {
	PDFBackend     string        `mapstructure:"pdf_backend" validate:"oneof=pdfcpu service"`
	ServiceURL     string        `mapstructure:"service_url" validate:"omitempty,url"`
	ServiceTimeout time.Duration `mapstructure:"service_timeout" validate:"gte=0"`
	TempDir        string        `mapstructure:"temp_dir"`
	MaxFileMB      int64         `mapstructure:"max_file_mb" validate:"gte=1"`
}

type WatchConfig struct {
	// Enabled runs the inbox watcher inside serve.
	Enabled    bool          `mapstructure:"enabled"`
	InboxDir   string        `mapstructure:"inbox_dir" validate:"required"`
	OutputDir  string        `mapstructure:"output_dir" validate:"required"`
	Extensions []string      `mapstructure:"extensions" validate:"min=1,dive,required"`
	Debounce   time.Duration `mapstructure:"debounce" validate:"gte=0"`
}

// SetDefaults registers every key with its default so env overrides apply
// during Unmarshal.
func SetDefaults(v *viper.Viper) {
	params := entities.DefaultSummaryParams()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.shutdown_grace", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.style", "json")

	v.SetDefault("model.backend", "service")
	v.SetDefault("model.service_url", "http://localhost:8090")
	v.SetDefault("model.ollama_url", "http://localhost:11434")
	v.SetDefault("model.ollama_model", "llama3.2")
	v.SetDefault("model.timeout", "120s")
	v.SetDefault("model.rate_limit", 10)
	v.SetDefault("model.rate_burst", 10)
	v.SetDefault("model.summary_model", "facebook/bart-large-cnn")
	v.SetDefault("model.qa_model", "deepset/bert-base-cased-squad2")

	v.SetDefault("tokenizer.vocab_path", "./models/vocab.txt")
	v.SetDefault("tokenizer.lowercase", false)

	v.SetDefault("summarize.chunk_size", 1000)
	v.SetDefault("summarize.concurrency", 3)
	v.SetDefault("summarize.chunk_timeout", "30s")
	v.SetDefault("summarize.params.max_length", params.MaxLength)
	v.SetDefault("summarize.params.min_length", params.MinLength)
	v.SetDefault("summarize.params.num_beams", params.NumBeams)
	v.SetDefault("summarize.params.length_penalty", params.LengthPenalty)
	v.SetDefault("summarize.params.early_stopping", params.EarlyStopping)

	v.SetDefault("qa.max_tokens", 512)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.path", "./cache/summaries.db")
	v.SetDefault("cache.capacity", 1024)

	v.SetDefault("parser.pdf_backend", "pdfcpu")
	v.SetDefault("parser.service_url", "http://localhost:8081")
	v.SetDefault("parser.service_timeout", "60s")
	v.SetDefault("parser.temp_dir", "")
	v.SetDefault("parser.max_file_mb", 32)

	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.inbox_dir", "./inbox")
	v.SetDefault("watch.output_dir", "./summaries")
	v.SetDefault("watch.extensions", []string{".pdf", ".docx", ".txt"})
	v.SetDefault("watch.debounce", "500ms")
}

// Configure wires env overrides and reads configFile, or docanalyzer.yaml
// from the working directory or $HOME/.docanalyzer when configFile is empty.
// A missing default config file is not an error.
func Configure(v *viper.Viper, configFile string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("docanalyzer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.docanalyzer")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return eris.Wrap(err, "reading config")
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "decoding config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrap(err, "validating config")
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Namespace()+" failed "+fe.Tag()+tagParam(fe))
	}
	return eris.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func tagParam(fe validator.FieldError) string {
	if fe.Param() == "" {
		return ""
	}
	return "=" + fe.Param()
}

// Addr returns host:port for the HTTP server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
