package config

import (
	"fmt"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validClientTypes = map[string]bool{
	"sabnzbd": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}
	if c.Server.PollInterval.Std() < 0 {
		errs = append(errs, "server.poll_interval: must not be negative")
	}

	// At least one library required
	if c.Libraries.Movies.Root == "" && c.Libraries.Series.Root == "" &&
		c.Libraries.Music.Root == "" && c.Libraries.Books.Root == "" {
		errs = append(errs, "libraries: at least one library root must be configured")
	}

	seen := make(map[string]bool, len(c.Clients))
	for i, client := range c.Clients {
		label := client.Name
		if label == "" {
			errs = append(errs, fmt.Sprintf("clients[%d].name: required", i))
			label = fmt.Sprintf("clients[%d]", i)
		}
		if seen[client.Name] && client.Name != "" {
			errs = append(errs, fmt.Sprintf("clients.%s: duplicate name", client.Name))
		}
		seen[client.Name] = true

		if !validClientTypes[client.Type] {
			errs = append(errs, fmt.Sprintf("clients.%s.type: unknown type %q", label, client.Type))
		}
		if client.URL == "" {
			errs = append(errs, fmt.Sprintf("clients.%s.url: required", label))
		}
		if client.APIKey == "" {
			errs = append(errs, fmt.Sprintf("clients.%s.api_key: required", label))
		}
		// Path mapping is all-or-nothing
		if (client.RemotePath == "") != (client.LocalPath == "") {
			errs = append(errs, fmt.Sprintf("clients.%s: remote_path and local_path must be set together", label))
		}
	}

	return errs
}
