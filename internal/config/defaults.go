package config

const (
	defaultConfigPath      = "~/.config/wiretap/config.toml"
	defaultServerHost      = "localhost"
	defaultServerPort      = 7549
	defaultBackend         = BackendGateway
	defaultTimeoutSeconds  = 30
	defaultClientVersion   = "2018.3"
	defaultGatewayListen   = "127.0.0.1:7549"
	defaultGatewayDatabase = "~/.local/share/wiretap/nodes.db"
	defaultVolume          = "stonefs"
	defaultLibraryList     = "Libraries"
	defaultProjectWidth    = "1920"
	defaultProjectHeight   = "1080"
	defaultProjectFPS      = "25"
	defaultProjectAspect   = "1.7778"
	defaultProjectField    = "PROGRESSIVE"
	defaultProjectDepth    = "10-bit"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	lockFileSuffix         = ".lock"
	versionEnvVar          = "WIRETAP_VERSION"
	serverEnvVar           = "WIRETAP_SERVER"
)

// Backend names accepted by server.backend.
const (
	BackendGateway = "gateway"
	BackendLocal   = "local"
)

// FieldDominanceChoices lists the accepted project field dominance values.
var FieldDominanceChoices = []string{"FIELD_1", "FIELD_2", "PROGRESSIVE"}

// DepthChoices lists the accepted project frame depths.
var DepthChoices = []string{"8-bit", "10-bit", "12-bit", "12-bit u", "16-bit fp"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Host:           defaultServerHost,
			Port:           defaultServerPort,
			Backend:        defaultBackend,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Gateway: Gateway{
			Listen:            defaultGatewayListen,
			Database:          defaultGatewayDatabase,
			Volumes:           []string{defaultVolume},
			LibraryLists:      []string{defaultLibraryList},
			SupportedVersions: []string{defaultClientVersion},
		},
		Project: Project{
			Width:          defaultProjectWidth,
			Height:         defaultProjectHeight,
			FPS:            defaultProjectFPS,
			Aspect:         defaultProjectAspect,
			FieldDominance: defaultProjectField,
			Depth:          defaultProjectDepth,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
