// -----------------------------------------------------------------------
// Startup banner - product, version and the settings that shape the engine
// -----------------------------------------------------------------------

package common

import (
	"fmt"

	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner with the resolved configuration
func PrintBanner(config *Config, version string) {
	b := banner.New().SetStyle(banner.StyleDouble).SetWidth(72)

	b.PrintTopLine()
	b.PrintCenteredText("BulkOps")
	b.PrintCenteredText("Bulk action engine " + version)
	b.PrintSeparatorLine()
	b.PrintKeyValue("Environment", config.Environment, 20)
	b.PrintKeyValue("Listening", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port), 20)
	b.PrintKeyValue("Concurrent jobs", fmt.Sprintf("%d", config.Bulk.MaxConcurrentJobs), 20)
	b.PrintKeyValue("Queue size", fmt.Sprintf("%d", config.Bulk.QueueSize), 20)
	b.PrintKeyValue("Storage", storageLabel(config.Storage.Badger), 20)
	b.PrintBottomLine()
}

func storageLabel(c BadgerConfig) string {
	if c.InMemory {
		return "badger (in-memory)"
	}
	return "badger " + c.Path
}
