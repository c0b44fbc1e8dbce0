package cli

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile    string
	EnvFile    string
	Addr       string
	ListModels bool
	TestMode   bool

	// API flags
	Provider string
	Model    string
	BaseURL  string

	// Logging flags
	LogLevel  string
	LogFormat string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		EnvFile:   ".env",
		Addr:      ":8080",
		Provider:  "deepseek",
		LogLevel:  "info",
		LogFormat: "text",
	}
}
