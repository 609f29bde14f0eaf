package config

import (
	"encoding/json"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultNodename       = "zenoh-bridge-ros2"
	DefaultNamespace      = "/"
	DefaultDomain         = 0
	DefaultQueriesTimeout = 5.0
)

var (
	v = viper.GetViper()
)

func init() {
	v.SetConfigName("zenoh-bridge-ros2")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/zenoh-bridge-ros2/")
	v.AddConfigPath("$HOME/.zenoh-bridge-ros2/")
	v.AddConfigPath(".")
}

var (
	global    = &Config{}
	globalMux sync.RWMutex
)

func Global() *Config {
	globalMux.RLock()
	defer globalMux.RUnlock()

	cfg := &Config{}
	*cfg = *global
	return cfg
}

func Set(c *Config) {
	globalMux.Lock()
	defer globalMux.Unlock()

	global = c
}

type LogConfig struct {
	Output   string             `yaml:",omitempty" json:"output,omitempty"`
	Level    string             `yaml:",omitempty" json:"level,omitempty"`
	Format   string             `yaml:",omitempty" json:"format,omitempty"`
	Rotation *LogRotationConfig `yaml:",omitempty" json:"rotation,omitempty"`
}

type LogRotationConfig struct {
	// MaxSize is the maximum size in megabytes of the log file before it gets
	// rotated. It defaults to 100 megabytes.
	MaxSize int `yaml:"maxSize,omitempty" json:"maxSize,omitempty"`
	// MaxAge is the maximum number of days to retain old log files based on the
	// timestamp encoded in their filename.
	MaxAge int `yaml:"maxAge,omitempty" json:"maxAge,omitempty"`
	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int `yaml:"maxBackups,omitempty" json:"maxBackups,omitempty"`
	// LocalTime determines if the time used for formatting the timestamps in
	// backup files is the computer's local time. The default is to use UTC time.
	LocalTime bool `yaml:"localTime,omitempty" json:"localTime,omitempty"`
	// Compress determines if the rotated log files should be compressed
	// using gzip.
	Compress bool `yaml:",omitempty" json:"compress,omitempty"`
}

type APIConfig struct {
	Addr       string `json:"addr"`
	PathPrefix string `yaml:"pathPrefix,omitempty" json:"pathPrefix,omitempty"`
	AccessLog  bool   `yaml:"accesslog,omitempty" json:"accesslog,omitempty"`
}

type MetricsConfig struct {
	Addr string `json:"addr"`
	Path string `yaml:",omitempty" json:"path,omitempty"`
}

// InterfacesConfig is a per-kind set of interface name regexes, used both
// for the allow and the deny set.
type InterfacesConfig struct {
	Publishers     []string `yaml:",omitempty" json:"publishers,omitempty"`
	Subscribers    []string `yaml:",omitempty" json:"subscribers,omitempty"`
	ServiceServers []string `yaml:"service_servers,omitempty" json:"service_servers,omitempty" mapstructure:"service_servers"`
	ServiceClients []string `yaml:"service_clients,omitempty" json:"service_clients,omitempty" mapstructure:"service_clients"`
	ActionServers  []string `yaml:"action_servers,omitempty" json:"action_servers,omitempty" mapstructure:"action_servers"`
	ActionClients  []string `yaml:"action_clients,omitempty" json:"action_clients,omitempty" mapstructure:"action_clients"`
}

type Config struct {
	// ID is the bridge identity used in its admin space and liveliness
	// tokens. A random identity is generated when unset.
	ID        string `yaml:",omitempty" json:"id,omitempty"`
	Namespace string `yaml:",omitempty" json:"namespace,omitempty"`
	Nodename  string `yaml:",omitempty" json:"nodename,omitempty"`
	// Domain is the DDS domain id. Falls back to the ROS_DOMAIN_ID
	// environment variable, else 0.
	Domain *int `yaml:",omitempty" json:"domain,omitempty"`
	// LocalhostOnly restricts DDS to the loopback interface. Falls back to
	// ROS_LOCALHOST_ONLY=1.
	LocalhostOnly *bool `yaml:"localhost_only,omitempty" json:"localhost_only,omitempty" mapstructure:"localhost_only"`
	// SHMEnabled enables the shared-memory DDS transport, when the DDS
	// implementation was built with support for it.
	SHMEnabled bool `yaml:"shm_enabled,omitempty" json:"shm_enabled,omitempty" mapstructure:"shm_enabled"`

	Allow *InterfacesConfig `yaml:",omitempty" json:"allow,omitempty"`
	Deny  *InterfacesConfig `yaml:",omitempty" json:"deny,omitempty"`

	// PubMaxFrequencies is a list of "<regex>=<max_hz>" rules limiting the
	// publication rate of matching topic routes.
	PubMaxFrequencies []string `yaml:"pub_max_frequencies,omitempty" json:"pub_max_frequencies,omitempty" mapstructure:"pub_max_frequencies"`

	// ReliableRoutesBlocking makes routes for RELIABLE DDS writers publish
	// with blocking congestion control on the zenoh side.
	ReliableRoutesBlocking bool `yaml:"reliable_routes_blocking,omitempty" json:"reliable_routes_blocking,omitempty" mapstructure:"reliable_routes_blocking"`

	// QueriesTimeout bounds, in seconds, the queries to peer bridges for
	// their advertised routes and for historical data. Defaults to 5.0.
	QueriesTimeout float64 `yaml:"queries_timeout,omitempty" json:"queries_timeout,omitempty" mapstructure:"queries_timeout"`

	Log     *LogConfig     `yaml:",omitempty" json:"log,omitempty"`
	API     *APIConfig     `yaml:",omitempty" json:"api,omitempty"`
	Metrics *MetricsConfig `yaml:",omitempty" json:"metrics,omitempty"`
}

func (c *Config) Load() error {
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(c)
}

func (c *Config) Read(r io.Reader) error {
	if err := v.ReadConfig(r); err != nil {
		return err
	}

	return v.Unmarshal(c)
}

func (c *Config) ReadFile(file string) error {
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	return v.Unmarshal(c)
}

func (c *Config) Write(w io.Writer, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.Encode(c)
		return nil
	case "yaml":
		fallthrough
	default:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		enc.SetIndent(2)

		return enc.Encode(c)
	}
}

// BridgeID returns the configured bridge identity, generating a random one
// on first call when unset.
func (c *Config) BridgeID() string {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return c.ID
}

// NodeName returns the configured ROS node name of the bridge itself.
func (c *Config) NodeName() string {
	if c.Nodename == "" {
		return DefaultNodename
	}
	return c.Nodename
}

// NodeNamespace returns the ROS namespace prefix of the bridge's own presence.
func (c *Config) NodeNamespace() string {
	if c.Namespace == "" {
		return DefaultNamespace
	}
	return c.Namespace
}

// DomainID returns the DDS domain id, honoring the ROS_DOMAIN_ID fallback.
func (c *Config) DomainID() int {
	if c.Domain != nil {
		return *c.Domain
	}
	if s := os.Getenv("ROS_DOMAIN_ID"); s != "" {
		if d, err := strconv.Atoi(s); err == nil {
			return d
		}
	}
	return DefaultDomain
}

// IsLocalhostOnly reports whether DDS should be restricted to loopback,
// honoring the ROS_LOCALHOST_ONLY fallback.
func (c *Config) IsLocalhostOnly() bool {
	if c.LocalhostOnly != nil {
		return *c.LocalhostOnly
	}
	return os.Getenv("ROS_LOCALHOST_ONLY") == "1"
}

// QueriesTimeoutDuration returns the per-peer query timeout as a duration.
func (c *Config) QueriesTimeoutDuration() time.Duration {
	t := c.QueriesTimeout
	if t <= 0 {
		t = DefaultQueriesTimeout
	}
	return time.Duration(t * float64(time.Second))
}
