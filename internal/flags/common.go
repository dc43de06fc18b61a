package flags

import "time"

// Root flags are persistent: every command shares the same viper keys, so they are
// bound once on the root command.
var (
	RootStrings = []Def[string]{
		{"chain-id", "network.id", "", "Network identifier: address book key and, when numeric, the expected chain ID"},
		{"rpc-endpoint", "credentials.rpc-endpoint", "", "Explicit JSON-RPC endpoint (overrides RPC_ENDPOINT)"},
		{"network", "credentials.network", "", "Named network (overrides NETWORK)"},
		{"addressbook-dir", "addressbook.dir", "", "Directory holding <network-id>.json address books"},
		{"artifacts-dir", "contracts.artifacts-dir", "", "Directory holding compiled Market and Media artifacts"},
		{"log-level", "log.level", "", "Log level (debug, info, warn, error)"},
		{"log-format", "log.format", "", "Log format (json, text)"},
		{EnvFile, "", ".env", "Dotenv file loaded before reading the environment"},
	}

	RootInts = []Def[int64]{
		{Gwei, "gas.price-gwei", 0, "Gas price in gwei (1-99)"},
	}

	RootDurations = []Def[time.Duration]{
		{"timeout", "timeout", 0, "Upper bound for the whole invocation (0 waits indefinitely)"},
	}
)

const (
	EnvFile = "env-file"
	Gwei    = "gwei"
)
