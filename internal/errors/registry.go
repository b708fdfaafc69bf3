package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E109)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "No gatewire.json found",
		Detail:   "The configuration file could not be located in the working directory.",
		DocURL:   "https://gatewire.dev/docs/errors/E100",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid gatewire.json",
		Detail:   "The configuration file exists but could not be parsed as JSON.",
		DocURL:   "https://gatewire.dev/docs/errors/E101",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid environment configuration",
		Detail:   "One or more GATEWIRE_* environment variables could not be parsed.",
		DocURL:   "https://gatewire.dev/docs/errors/E102",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Bot token missing",
		Detail:   "A bot token is required to connect to the gateway. Set it in gatewire.json or via GATEWIRE_TOKEN.",
		DocURL:   "https://gatewire.dev/docs/errors/E103",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Invalid shard count",
		Detail:   "The shard count must be zero (resolve from the gateway) or a positive integer.",
		DocURL:   "https://gatewire.dev/docs/errors/E104",
	},
	"E105": {
		Category: CategoryConfig,
		Message:  "Invalid log level",
		Detail:   "The log level must be one of: debug, info, warn, error.",
		DocURL:   "https://gatewire.dev/docs/errors/E105",
	},
	"E106": {
		Category: CategoryConfig,
		Message:  "Invalid presence status",
		Detail:   "The presence status must be one of: online, dnd, idle, invisible.",
		DocURL:   "https://gatewire.dev/docs/errors/E106",
	},

	// ============================================
	// Gateway Errors (E110-E119)
	// ============================================

	"E110": {
		Category: CategoryGateway,
		Message:  "Gateway URL resolution failed",
		Detail:   "The HTTP request for the gateway connection URL did not succeed.",
		DocURL:   "https://gatewire.dev/docs/errors/E110",
	},
	"E111": {
		Category: CategoryGateway,
		Message:  "Gateway connection failed",
		Detail:   "The WebSocket connection to the gateway could not be established.",
		DocURL:   "https://gatewire.dev/docs/errors/E111",
	},
	"E112": {
		Category: CategoryGateway,
		Message:  "Session start limit exhausted",
		Detail:   "The bot has no identify budget remaining for the current window.",
		DocURL:   "https://gatewire.dev/docs/errors/E112",
	},
	"E113": {
		Category: CategoryGateway,
		Message:  "Disconnected with a fatal close code",
		Detail:   "The gateway closed the connection with a code that forbids reconnecting.",
		DocURL:   "https://gatewire.dev/docs/errors/E113",
	},

	// ============================================
	// Authentication Errors (E120-E129)
	// ============================================

	"E120": {
		Category: CategoryAuth,
		Message:  "Authentication failed",
		Detail:   "The gateway rejected the bot token during identify (close code 4004).",
		DocURL:   "https://gatewire.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryAuth,
		Message:  "Privileged intents not enabled",
		Detail:   "The identify requested intents the bot is not approved for (close code 4014).",
		DocURL:   "https://gatewire.dev/docs/errors/E121",
	},
	"E122": {
		Category: CategoryAuth,
		Message:  "Invalid intents",
		Detail:   "The identify carried an intents value the gateway does not recognize (close code 4013).",
		DocURL:   "https://gatewire.dev/docs/errors/E122",
	},
	"E123": {
		Category: CategoryAuth,
		Message:  "Sharding required",
		Detail:   "The bot is in too many guilds for a single connection (close code 4011).",
		DocURL:   "https://gatewire.dev/docs/errors/E123",
	},

	// ============================================
	// CLI Errors (E130-E139)
	// ============================================

	"E130": {
		Category: CategoryCLI,
		Message:  "Debug server failed to start",
		Detail:   "The debug HTTP listener could not bind to the configured address.",
		DocURL:   "https://gatewire.dev/docs/errors/E130",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
