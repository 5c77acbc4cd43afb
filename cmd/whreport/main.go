// cmd/whreport/main.go
// CLI laporan work-history dari file JSON atau store SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/Strikerin/SalesPerformanceDashboard/cmd/whreport/commands"
)

var BuildVersion = "dev" // diisi saat ldflags

func main() {
	root := commands.NewRootCommand(BuildVersion)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
