package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath string

	// Fetching
	WorkerCount     int
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	HostInterval    time.Duration
	UserAgent       string
	FeedsFile       string

	// HTTP server
	Port     string
	BaseURL  string
	Username string
	Password string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

// AuthEnabled reports whether the API requires basic auth
func (c *Cfg) AuthEnabled() bool {
	return c.Password != ""
}
