package publishers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-rss/pkg/registryfile"
)

// Sink types accepted in a publisher's "type" field.
const (
	TypeHTTP      = "http"
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeGCPPubSub = "gcp_pubsub"
)

const (
	defaultHTTPMethod  = http.MethodPost
	defaultHTTPTimeout = 5 * time.Second
)

type registryFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig is one sink declared in the publishers file. Exactly the
// block matching Type is read.
type PublisherConfig struct {
	ID        string                    `json:"id" yaml:"id"`
	Type      string                    `json:"type" yaml:"type"`
	Enabled   *bool                     `json:"enabled" yaml:"enabled"`
	HTTP      *HTTPPublisherConfig      `json:"http" yaml:"http"`
	SQS       *SQSPublisherConfig       `json:"sqs" yaml:"sqs"`
	SNS       *SNSPublisherConfig       `json:"sns" yaml:"sns"`
	GCPPubSub *GCPPubSubPublisherConfig `json:"gcp_pubsub" yaml:"gcp_pubsub"`
}

// HTTPPublisherConfig posts events as JSON to a webhook.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// AWSAuthConfig pins static credentials. Left empty, the SDK default chain applies.
type AWSAuthConfig struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

// SQSPublisherConfig sends events to an SQS queue. Endpoint overrides the AWS
// endpoint, e.g. for LocalStack.
type SQSPublisherConfig struct {
	QueueURL string        `json:"uri" yaml:"uri"`
	Region   string        `json:"region" yaml:"region"`
	Endpoint string        `json:"endpoint" yaml:"endpoint"`
	Auth     AWSAuthConfig `json:"auth" yaml:"auth"`
}

// SNSPublisherConfig publishes events to an SNS topic.
type SNSPublisherConfig struct {
	TopicARN string        `json:"topic_arn" yaml:"topic_arn"`
	Region   string        `json:"region" yaml:"region"`
	Endpoint string        `json:"endpoint" yaml:"endpoint"`
	Auth     AWSAuthConfig `json:"auth" yaml:"auth"`
}

// GCPPubSubPublisherConfig publishes events to a Pub/Sub topic.
type GCPPubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// ConfigRegistry holds the publisher entries of one file. It is immutable after load.
type ConfigRegistry struct {
	entries []PublisherConfig
	byID    map[string]PublisherConfig
}

// LoadRegistry reads publisher entries from a YAML or JSON file. An empty path
// yields an empty registry: publishing is optional.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return newConfigRegistry(nil)
	}

	var file registryFile
	if err := registryfile.Load(path, &file); err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	return newConfigRegistry(file.Publishers)
}

func newConfigRegistry(list []PublisherConfig) (*ConfigRegistry, error) {
	reg := &ConfigRegistry{byID: make(map[string]PublisherConfig, len(list))}
	for i, raw := range list {
		cfg := raw.normalized()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.byID[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.byID[cfg.ID] = cfg
		reg.entries = append(reg.entries, cfg)
	}
	return reg, nil
}

// normalized returns a trimmed copy with defaults applied. Sink blocks are
// copied so the caller's config is never mutated.
func (cfg PublisherConfig) normalized() PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		enabled := true
		cfg.Enabled = &enabled
	}

	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = defaultHTTPMethod
		}
		c.Headers = cleanHeaders(c.Headers)
		cfg.HTTP = &c
	}
	if cfg.SQS != nil {
		c := *cfg.SQS
		c.QueueURL, c.Region, c.Endpoint = trim3(c.QueueURL, c.Region, c.Endpoint)
		cfg.SQS = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		c.TopicARN, c.Region, c.Endpoint = trim3(c.TopicARN, c.Region, c.Endpoint)
		cfg.SNS = &c
	}
	if cfg.GCPPubSub != nil {
		c := *cfg.GCPPubSub
		c.ProjectID, c.Topic, c.CredentialsFile = trim3(c.ProjectID, c.Topic, c.CredentialsFile)
		cfg.GCPPubSub = &c
	}
	return cfg
}

// Validate reports the first problem that would stop the sink from being built.
func (cfg PublisherConfig) Validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}

	var err error
	switch cfg.Type {
	case "":
		err = errors.New("type is required")
	case TypeHTTP:
		if cfg.HTTP == nil {
			return fmt.Errorf("publisher %q: http block is required", cfg.ID)
		}
		err = requireFields("http", field{"url", cfg.HTTP.URL})
	case TypeSQS:
		if cfg.SQS == nil {
			return fmt.Errorf("publisher %q: sqs block is required", cfg.ID)
		}
		err = requireFields("sqs", field{"uri", cfg.SQS.QueueURL}, field{"region", cfg.SQS.Region})
	case TypeSNS:
		if cfg.SNS == nil {
			return fmt.Errorf("publisher %q: sns block is required", cfg.ID)
		}
		err = requireFields("sns", field{"topic_arn", cfg.SNS.TopicARN}, field{"region", cfg.SNS.Region})
	case TypeGCPPubSub:
		if cfg.GCPPubSub == nil {
			return fmt.Errorf("publisher %q: gcp_pubsub block is required", cfg.ID)
		}
		err = requireFields("gcp_pubsub", field{"project_id", cfg.GCPPubSub.ProjectID}, field{"topic", cfg.GCPPubSub.Topic})
	default:
		err = fmt.Errorf("unsupported type %q", cfg.Type)
	}
	if err != nil {
		return fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	return nil
}

type field struct {
	name, value string
}

func requireFields(block string, fields ...field) error {
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, block+"."+f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func trim3(a, b, c string) (string, string, string) {
	return strings.TrimSpace(a), strings.TrimSpace(b), strings.TrimSpace(c)
}

// cleanHeaders drops entries whose name or value is blank.
func cleanHeaders(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// timeout is the per-request deadline of the webhook call.
func (c *HTTPPublisherConfig) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultHTTPTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ByID returns the entry with the given id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	cfg, ok := r.byID[strings.TrimSpace(id)]
	return cfg, ok
}

// All returns every entry in file order.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	return append([]PublisherConfig(nil), r.entries...)
}

// Enabled returns the entries not switched off with "enabled: false".
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	var out []PublisherConfig
	for _, cfg := range r.All() {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue reports the enabled flag, which defaults to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}
