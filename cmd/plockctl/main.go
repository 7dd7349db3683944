// Command plockctl is the operational client for plockd: it talks to a
// running daemon's admin HTTP surface to fetch dumps, trigger manual
// checkpoints, and check health.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	adminAddr string
	client    = &http.Client{Timeout: 10 * time.Second}
)

func main() {
	root := &cobra.Command{
		Use:   "plockctl",
		Short: "plockctl - operational client for plockd",
	}
	root.PersistentFlags().StringVar(&adminAddr, "addr", "http://localhost:9700", "plockd admin HTTP address")

	root.AddCommand(dumpCmd(), checkpointCmd(), healthCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump [group]",
		Short: "fetch and render a mount group's held locks and waiters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := get(cmd, "/dump/"+args[0])
			if err != nil {
				return err
			}
			renderDump(cmd.OutOrStdout(), body)
			return nil
		},
	}
}

func checkpointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint [group]",
		Short: "force a checkpoint write for a mount group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Post(adminAddr+"/checkpoint/"+args[0], "", nil)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusAccepted {
				body, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("checkpoint failed: %s: %s", resp.Status, body)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "checkpoint accepted")
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "check daemon health",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := get(cmd, "/healthz")
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(body))
			return nil
		},
	}
}

func get(cmd *cobra.Command, path string) ([]byte, error) {
	resp, err := client.Get(adminAddr + path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", resp.Status, body)
	}
	return body, nil
}

// renderDump reformats the dump's
// "<number> [WAITING] <WR|RD> <start>-<end> nodeid <n> pid <p> owner <hex>"
// lines (rangelock.MountGroup.Dump, spec.md §6) as a table, using
// olekukonko/tablewriter the way the teacher renders tabular CLI
// output.
func renderDump(w io.Writer, body []byte) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Resource", "Status", "Mode", "Range", "Node", "PID", "Owner"})

	for _, line := range strings.Split(string(body), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		number := fields[0]
		rest := fields[1:]
		status := "held"
		if len(rest) > 0 && rest[0] == "WAITING" {
			status = "waiting"
			rest = rest[1:]
		}
		if len(rest) < 2 {
			continue
		}
		mode, rng := rest[0], rest[1]
		kv := keyValues(rest[2:])

		table.Append([]string{number, status, mode, rng, kv["nodeid"], kv["pid"], kv["owner"]})
	}
	table.Render()
}

// keyValues collapses a flat "key value key value ..." field list (the
// trailing nodeid/pid/owner portion of a dump line) into a lookup map.
func keyValues(fields []string) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		m[fields[i]] = fields[i+1]
	}
	return m
}
