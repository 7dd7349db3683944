// Command plockd is the cluster-wide POSIX advisory byte-range lock
// coordinator daemon, one instance per cluster node.
package main

import (
	"fmt"
	"os"

	"github.com/clusterfs/plockd/cmd/plockd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
