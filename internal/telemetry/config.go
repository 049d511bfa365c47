package telemetry

import (
	"net"
	"os"
	"strconv"

	"github.com/google/uuid"
)

const (
	// EnvCollectTelemetry opts out of telemetry when set to a false value.
	EnvCollectTelemetry = "AI4OPS_MCP_COLLECT_TELEMETRY"
	// EnvInstrumentationKey enables Application Insights export.
	EnvInstrumentationKey = "APPLICATIONINSIGHTS_INSTRUMENTATION_KEY"
)

// Config represents the telemetry configuration
type Config struct {
	// Enabled controls whether telemetry collection is active
	Enabled bool
	// DeviceID is a name-based UUID derived from the machine, never the raw address
	DeviceID string
	// instrumentationKey for Azure application insights
	instrumentationKey string
	// OTLPEndpoint for OpenTelemetry Protocol export
	OTLPEndpoint string
	// ServiceName identifies the service in telemetry
	ServiceName string
	// ServiceVersion identifies the service version in telemetry
	ServiceVersion string
}

// NewConfig creates a new telemetry configuration from environment variables
func NewConfig(serviceName, serviceVersion string) *Config {
	cfg := &Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Enabled:        true,
	}

	if envVal := os.Getenv(EnvCollectTelemetry); envVal != "" {
		if enabled, err := strconv.ParseBool(envVal); err == nil {
			cfg.Enabled = enabled
		}
	}

	if cfg.Enabled {
		cfg.DeviceID = generateDeviceID()
		cfg.instrumentationKey = os.Getenv(EnvInstrumentationKey)
	}

	return cfg
}

// deviceNamespace scopes device ids to this server.
var deviceNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("ai4ops-mcp/device"))

// generateDeviceID derives a stable, non-reversible device id from the first
// hardware address, falling back to the host name.
func generateDeviceID() string {
	return deviceIDFor(hardwareAddr(), hostName())
}

func deviceIDFor(mac, host string) string {
	source := "mac:" + mac
	if mac == "" {
		source = "host:" + host
	}
	return uuid.NewSHA1(deviceNamespace, []byte(source)).String()
}

func hardwareAddr() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback == 0 && len(iface.HardwareAddr) > 0 {
			return iface.HardwareAddr.String()
		}
	}
	return ""
}

func hostName() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// HasOTLP returns whether OTLP export is configured
func (c *Config) HasOTLP() bool {
	return c.Enabled && c.OTLPEndpoint != ""
}

// HasApplicationInsights returns whether application insights export is configured
func (c *Config) HasApplicationInsights() bool {
	return c.Enabled && c.instrumentationKey != ""
}

// SetOTLPEndpoint sets the OTLP endpoint for CLI configuration
func (c *Config) SetOTLPEndpoint(endpoint string) {
	c.OTLPEndpoint = endpoint
}
