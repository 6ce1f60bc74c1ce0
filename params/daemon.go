package params

type ListenerConfig struct {
	// Network is the network to listen on.
	// The network must be "tcp", "tcp4", "tcp6", "unix" or "unixpacket".
	Network string
	// Address is the address to listen on.
	Address string
}

// OverlayDaemonConfig configures the HTTP daemon that fronts the engine
// for browser viewers.
type OverlayDaemonConfig struct {
	ListenerConfig

	// WebsocketPath serves commit/notice pushes to connected viewers.
	WebsocketPath string

	Engine *EngineConfig
}

func DefaultOverlayDaemonConfig() *OverlayDaemonConfig {
	return &OverlayDaemonConfig{
		ListenerConfig: ListenerConfig{
			Network: "tcp",
			Address: "localhost:3311",
		},
		WebsocketPath: "/socket",
		Engine:        DefaultEngineConfig(),
	}
}

func DefaultTestOverlayDaemonConfig() *OverlayDaemonConfig {
	return &OverlayDaemonConfig{
		ListenerConfig: ListenerConfig{
			Network: "tcp",
			Address: "localhost:3333",
		},
		WebsocketPath: "/socket",
		Engine:        DefaultEngineConfig(),
	}
}
