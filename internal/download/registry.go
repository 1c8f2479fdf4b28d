package download

import (
	"fmt"
	"log/slog"

	"github.com/vmunix/grabarr/internal/config"
)

// BuildClients constructs the client registry from configuration. The daemon
// and the CLI both wire clients through here so the two cannot drift.
func BuildClients(configs []config.ClientConfig, logger *slog.Logger) ([]*RegisteredClient, error) {
	clients := make([]*RegisteredClient, 0, len(configs))
	for _, cc := range configs {
		var client Client
		switch cc.Type {
		case "sabnzbd":
			client = NewSABnzbdClient(cc.URL, cc.APIKey, logger)
		default:
			return nil, fmt.Errorf("clients.%s: unknown type %q", cc.Name, cc.Type)
		}
		clients = append(clients, &RegisteredClient{
			Name:     cc.Name,
			Priority: cc.Priority,
			Enabled:  cc.Enabled,
			Client:   client,
			PathMap: PathMapping{
				RemotePath: cc.RemotePath,
				LocalPath:  cc.LocalPath,
			},
		})
	}
	return clients, nil
}
