package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Option Spreads Configuration

[gateway]
# Websocket bridge in front of the brokerage gateway
url = "ws://127.0.0.1:7498/bridge"
client_id = 0
# Connection attempts before giving up
dial_attempts = 3
dial_delay = "500ms"

[collector]
# Strikes kept on each side of the at-the-money strike
strike_window = 7
# Expiration must be more than this many days away
min_days_to_expiry = 21
# Maximum wait for each metadata request
request_timeout = "10s"
# Stop waiting for quotes after this long without a tick
quiescence = "5s"
# Capacity of the quote update queue
queue_size = 1024
exchange = "SMART"
currency = "USD"
# Request snapshot quotes instead of streaming
snapshot = false
# Gateway codes that are logged and ignored
informational_codes = [200, 2104, 2106, 2107, 2108, 2119, 2158, 10167]

[logging]
# debug, info, warn, error
level = "info"
console = true
file = true
max_size = 50
max_backups = 5
max_age = 14
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0600); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
