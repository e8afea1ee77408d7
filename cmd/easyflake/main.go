// easyflake CLI - generate, inspect, and serve distributed 64-bit IDs.
//
// Usage:
//   easyflake generate [flags]       Generate IDs
//   easyflake parse <id>             Parse and inspect an ID
//   easyflake encode <id> <format>   Convert an ID to a different format
//   easyflake validate <id>          Validate an ID's structure
//   easyflake bench                  Run performance benchmarks
//   easyflake grpc [flags]           Run the node-ID lease server
//   easyflake audit lookup|node      Query an audit database
//
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	daemon "github.com/sevlyar/go-daemon"
	"github.com/urfave/cli"

	"github.com/sxyafiq/easyflake/audit"
	"github.com/sxyafiq/easyflake/easyflake"
	"github.com/sxyafiq/easyflake/internal/pidfile"
	"github.com/sxyafiq/easyflake/internal/xlog"
	"github.com/sxyafiq/easyflake/leaseserver"
)

const version = "1.0.0"

func main() {
	app := cli.NewApp()
	app.Name = "easyflake"
	app.Usage = "distributed 64-bit ID generator"
	app.Version = version

	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "debug", Usage: "enable debug-level logging"},
		cli.BoolFlag{Name: "no-color", Usage: "disable colorized log output"},
	}
	app.Before = func(c *cli.Context) error {
		xlog.SetDebug(c.GlobalBool("debug"))
		xlog.SetColor(!c.GlobalBool("no-color"))
		return nil
	}

	app.Commands = []cli.Command{
		cmdGenerate(),
		cmdParse(),
		cmdEncode(),
		cmdValidate(),
		cmdBench(),
		cmdGRPC(),
		cmdAudit(),
	}

	if err := app.Run(os.Args); err != nil {
		xlog.Error("%v", err)
		os.Exit(1)
	}
}

// layoutFromContext builds the BitLayout the rest of the commands decode
// against, from the shared --node-bits/--sequence-bits/--epoch flags.
func layoutFromContext(c *cli.Context) easyflake.BitLayout {
	epoch := c.Float64("epoch")
	if epoch == 0 {
		epoch = easyflake.DefaultEpoch
	}
	return easyflake.BitLayout{
		NodeBits:     c.Int("node-bits"),
		SequenceBits: c.Int("sequence-bits"),
		Epoch:        epoch,
	}
}

var layoutFlags = []cli.Flag{
	cli.IntFlag{Name: "node-bits", Value: 8, Usage: "bits reserved for the node ID"},
	cli.IntFlag{Name: "sequence-bits", Value: 8, Usage: "bits reserved for the per-tick sequence"},
	cli.Float64Flag{Name: "epoch", Usage: "reference epoch, seconds since Unix epoch (default: easyflake's built-in default)"},
}

// ============================================================================
// generate
// ============================================================================

func cmdGenerate() cli.Command {
	return cli.Command{
		Name:    "generate",
		Aliases: []string{"gen", "g"},
		Usage:   "generate one or more IDs",
		Flags: append([]cli.Flag{
			cli.IntFlag{Name: "count", Value: 1, Usage: "number of IDs to generate"},
			cli.Int64Flag{Name: "node", Value: 0, Usage: "fixed node ID"},
			cli.StringFlag{Name: "format", Value: "decimal", Usage: "output format: decimal, base32, base58, base62, hex"},
			cli.BoolFlag{Name: "json", Usage: "output full details as JSON"},
			cli.StringFlag{Name: "audit-db", Usage: "record each generated id to this SQLite database (see the audit command to query it)"},
		}, layoutFlags...),
		Action: func(c *cli.Context) error {
			node := c.Int64("node")
			cfg := easyflake.Config{
				NodeID:       &node,
				NodeIDBits:   c.Int("node-bits"),
				SequenceBits: c.Int("sequence-bits"),
				Epoch:        c.Float64("epoch"),
			}
			flake, err := easyflake.New(cfg)
			if err != nil {
				return err
			}

			var auditLog *audit.Log
			if dbPath := c.String("audit-db"); dbPath != "" {
				auditLog, err = audit.Open(dbPath)
				if err != nil {
					return fmt.Errorf("opening audit db: %w", err)
				}
				defer auditLog.Close()
			}

			count := c.Int("count")
			ctx := context.Background()
			start := time.Now()

			ids := make([]easyflake.ID, count)
			for i := 0; i < count; i++ {
				id, err := flake.GetID(ctx)
				if err != nil {
					return fmt.Errorf("generating id %d: %w", i, err)
				}
				ids[i] = id
				if auditLog != nil {
					if err := auditLog.Record(ctx, id, flake.Layout()); err != nil {
						return fmt.Errorf("recording id %d to audit db: %w", i, err)
					}
				}
			}
			elapsed := time.Since(start)

			if c.Bool("json") {
				return outputGenerateJSON(ids, flake.Layout(), elapsed)
			}

			for _, id := range ids {
				fmt.Println(formatID(id, c.String("format")))
			}
			if count > 100 {
				rate := float64(count) / elapsed.Seconds()
				fmt.Fprintf(os.Stderr, "\ngenerated %d ids in %v (%.0f ids/sec)\n", count, elapsed, rate)
			}
			return nil
		},
	}
}

func formatID(id easyflake.ID, format string) string {
	return id.Format(format)
}

func outputGenerateJSON(ids []easyflake.ID, layout easyflake.BitLayout, elapsed time.Duration) error {
	type idInfo struct {
		ID        string    `json:"id"`
		Base62    string    `json:"base62"`
		Hex       string    `json:"hex"`
		Timestamp time.Time `json:"timestamp"`
		Node      int64     `json:"node"`
		Sequence  int64     `json:"sequence"`
	}
	type output struct {
		Count      int      `json:"count"`
		Duration   string   `json:"duration"`
		RatePerSec float64  `json:"rate_per_sec"`
		IDs        []idInfo `json:"ids"`
	}

	infos := make([]idInfo, len(ids))
	for i, id := range ids {
		_, node, seq := id.Components(layout)
		infos[i] = idInfo{
			ID:        id.String(),
			Base62:    id.Base62(),
			Hex:       id.Hex(),
			Timestamp: id.Time(layout),
			Node:      node,
			Sequence:  seq,
		}
	}

	out := output{
		Count:      len(ids),
		Duration:   elapsed.String(),
		RatePerSec: float64(len(ids)) / elapsed.Seconds(),
		IDs:        infos,
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// ============================================================================
// parse / encode / validate share a flexible multi-format parser
// ============================================================================

func parseIDFlexible(s string) (easyflake.ID, error) {
	if id, err := easyflake.ParseString(s); err == nil {
		return id, nil
	}
	if id, err := easyflake.ParseBase62(s); err == nil {
		return id, nil
	}
	if id, err := easyflake.ParseBase58(s); err == nil {
		return id, nil
	}
	if id, err := easyflake.ParseHex(s); err == nil {
		return id, nil
	}
	return easyflake.ParseBase32(s)
}

func cmdParse() cli.Command {
	return cli.Command{
		Name:      "parse",
		Aliases:   []string{"p"},
		Usage:     "parse and inspect an id",
		ArgsUsage: "<id>",
		Flags:     layoutFlags,
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.NewExitError("usage: easyflake parse <id>", 1)
			}
			id, err := parseIDFlexible(c.Args().Get(0))
			if err != nil {
				return cli.NewExitError(fmt.Sprintf("unable to parse id %q", c.Args().Get(0)), 1)
			}

			layout := layoutFromContext(c)
			ts, node, seq := id.Components(layout)

			fmt.Printf("easyflake ID: %s\n\n", id)
			fmt.Printf("Components:\n")
			fmt.Printf("  Timestamp:  %s (%d ticks since epoch)\n", id.Time(layout).Format(time.RFC3339), ts)
			fmt.Printf("  Node ID:    %d\n", node)
			fmt.Printf("  Sequence:   %d\n\n", seq)
			fmt.Printf("Encodings:\n")
			fmt.Printf("  Decimal:    %s\n", id.String())
			fmt.Printf("  Base62:     %s\n", id.Base62())
			fmt.Printf("  Base58:     %s\n", id.Base58())
			fmt.Printf("  Base32:     %s\n", id.Base32())
			fmt.Printf("  Hex:        %s\n\n", id.Hex())
			fmt.Printf("Age:          %v\n", id.Age(layout).Round(time.Millisecond))
			fmt.Printf("Valid:        %v\n", id.IsValid(layout))
			return nil
		},
	}
}

func cmdEncode() cli.Command {
	return cli.Command{
		Name:      "encode",
		Aliases:   []string{"enc", "e"},
		Usage:     "convert an id to a different encoding",
		ArgsUsage: "<id> <format>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return cli.NewExitError("usage: easyflake encode <id> <format>", 1)
			}
			id, err := parseIDFlexible(c.Args().Get(0))
			if err != nil {
				return cli.NewExitError(fmt.Sprintf("unable to parse id %q: %v", c.Args().Get(0), err), 1)
			}
			fmt.Println(formatID(id, c.Args().Get(1)))
			return nil
		},
	}
}

func cmdValidate() cli.Command {
	return cli.Command{
		Name:      "validate",
		Aliases:   []string{"val", "v"},
		Usage:     "validate an id's structure",
		ArgsUsage: "<id>",
		Flags:     layoutFlags,
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.NewExitError("usage: easyflake validate <id>", 1)
			}
			id, err := parseIDFlexible(c.Args().Get(0))
			if err != nil {
				fmt.Printf("INVALID: unable to parse id %q: %v\n", c.Args().Get(0), err)
				return cli.NewExitError("", 1)
			}

			layout := layoutFromContext(c)
			if !id.IsValid(layout) {
				ts, node, seq := id.Components(layout)
				fmt.Printf("INVALID: id structure is invalid\n\n")
				fmt.Printf("Components:\n")
				fmt.Printf("  Timestamp:  %d\n", ts)
				fmt.Printf("  Node ID:    %d\n", node)
				fmt.Printf("  Sequence:   %d\n", seq)
				return cli.NewExitError("", 1)
			}

			ts, node, seq := id.Components(layout)
			fmt.Printf("VALID: id structure is valid\n\n")
			fmt.Printf("Components:\n")
			fmt.Printf("  Timestamp:  %s\n", id.Time(layout).Format(time.RFC3339))
			fmt.Printf("  Node ID:    %d\n", node)
			fmt.Printf("  Sequence:   %d\n", seq)
			fmt.Printf("  Age:        %v\n", id.Age(layout).Round(time.Millisecond))
			return nil
		},
	}
}

// ============================================================================
// bench
// ============================================================================

func cmdBench() cli.Command {
	return cli.Command{
		Name:    "bench",
		Aliases: []string{"b"},
		Usage:   "run performance benchmarks",
		Flags: append([]cli.Flag{
			cli.DurationFlag{Name: "duration", Value: 3 * time.Second, Usage: "benchmark duration"},
			cli.Int64Flag{Name: "node", Value: 0, Usage: "fixed node ID"},
		}, layoutFlags...),
		Action: func(c *cli.Context) error {
			node := c.Int64("node")
			cfg := easyflake.Config{
				NodeID:       &node,
				NodeIDBits:   c.Int("node-bits"),
				SequenceBits: c.Int("sequence-bits"),
				Epoch:        c.Float64("epoch"),
			}
			flake, err := easyflake.New(cfg)
			if err != nil {
				return err
			}

			duration := c.Duration("duration")
			ctx := context.Background()

			fmt.Printf("running benchmark (duration: %v, node: %d)\n\n", duration, node)

			count := 0
			start := time.Now()
			deadline := start.Add(duration)
			for time.Now().Before(deadline) {
				if _, err := flake.GetID(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "error generating id: %v\n", err)
					break
				}
				count++
			}
			elapsed := time.Since(start)
			rate := float64(count) / elapsed.Seconds()
			nsPerOp := float64(elapsed.Nanoseconds()) / float64(count)

			fmt.Printf("Generated:  %d ids\n", count)
			fmt.Printf("Duration:   %v\n", elapsed)
			fmt.Printf("Rate:       %.0f ids/sec (%.0f ns/op)\n", rate, nsPerOp)
			return nil
		},
	}
}

// ============================================================================
// grpc
// ============================================================================

func cmdGRPC() cli.Command {
	return cli.Command{
		Name:  "grpc",
		Usage: "run the node-id lease server",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "host, h", Value: "[::]", Usage: "listen host"},
			cli.IntFlag{Name: "port, p", Value: 50051, Usage: "listen port"},
			cli.BoolFlag{Name: "daemon, d", Usage: "daemonize the server process"},
			cli.StringFlag{Name: "pid-file", Usage: "write the server's pid to this file (requires --daemon)"},
		},
		Action: func(c *cli.Context) error {
			daemonize := c.Bool("daemon")
			pidFilePath := c.String("pid-file")

			if pidFilePath != "" && !daemonize {
				xlog.Error("--pid-file requires --daemon (refusing to run a pid file with no process supervising it)")
				return cli.NewExitError("", 1)
			}

			if daemonize {
				return runDaemonized(c, pidFilePath)
			}

			var pf *pidfile.File
			if pidFilePath != "" {
				f, err := pidfile.Acquire(pidFilePath)
				if err != nil {
					return cli.NewExitError(fmt.Sprintf("acquiring pid file: %v", err), 1)
				}
				pf = f
				defer pf.Release()
			}

			endpoint := fmt.Sprintf("%s:%d", c.String("host"), c.Int("port"))
			return leaseserver.ListenAndServe(endpoint)
		},
	}
}

// runDaemonized forks the server into the background via go-daemon, the Go
// analogue of the original tooling's python-daemon-based launcher.
func runDaemonized(c *cli.Context, pidFilePath string) error {
	logFileName := "easyflake.log"
	if pidFilePath != "" {
		logFileName = strings.TrimSuffix(pidFilePath, ".pid") + ".log"
	}

	cntxt := &daemon.Context{
		PidFileName: pidFilePath,
		PidFilePerm: 0o644,
		LogFileName: logFileName,
		LogFilePerm: 0o640,
		WorkDir:     "./",
		Umask:       0o027,
	}

	child, err := cntxt.Reborn()
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("daemonizing: %v", err), 1)
	}
	if child != nil {
		// Parent process: the child has been spawned, nothing left to do.
		return nil
	}
	defer cntxt.Release()

	endpoint := fmt.Sprintf("%s:%d", c.String("host"), c.Int("port"))
	return leaseserver.ListenAndServe(endpoint)
}

// ============================================================================
// audit
// ============================================================================

// cmdAudit exposes the audit log populated by `generate --audit-db`: look up
// a single id, or list what a node issued.
func cmdAudit() cli.Command {
	return cli.Command{
		Name:  "audit",
		Usage: "inspect an audit database written by generate --audit-db",
		Subcommands: []cli.Command{
			cmdAuditLookup(),
			cmdAuditNode(),
		},
	}
}

func cmdAuditLookup() cli.Command {
	return cli.Command{
		Name:      "lookup",
		Usage:     "print the audit entry for one id",
		ArgsUsage: "<db> <id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return cli.NewExitError("usage: easyflake audit lookup <db> <id>", 1)
			}
			id, err := parseIDFlexible(c.Args().Get(1))
			if err != nil {
				return cli.NewExitError(fmt.Sprintf("unable to parse id %q: %v", c.Args().Get(1), err), 1)
			}

			log, err := audit.Open(c.Args().Get(0))
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			defer log.Close()

			entry, err := log.Lookup(context.Background(), id)
			if err != nil {
				return cli.NewExitError(fmt.Sprintf("looking up id %s: %v", id, err), 1)
			}
			printAuditEntry(entry)
			return nil
		},
	}
}

func cmdAuditNode() cli.Command {
	return cli.Command{
		Name:      "node",
		Usage:     "list the ids a node has issued, most recent first",
		ArgsUsage: "<db> <node-id>",
		Flags: []cli.Flag{
			cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum entries to list"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return cli.NewExitError("usage: easyflake audit node <db> <node-id>", 1)
			}
			nodeID, err := easyflake.ParseString(c.Args().Get(1))
			if err != nil {
				return cli.NewExitError(fmt.Sprintf("invalid node id %q", c.Args().Get(1)), 1)
			}

			log, err := audit.Open(c.Args().Get(0))
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			defer log.Close()

			entries, err := log.ByNode(context.Background(), nodeID.Int64(), c.Int("limit"))
			if err != nil {
				return cli.NewExitError(err.Error(), 1)
			}
			for _, entry := range entries {
				printAuditEntry(entry)
			}
			return nil
		},
	}
}

func printAuditEntry(e audit.Entry) {
	fmt.Printf("%s  node=%d sequence=%d issued_at=%s\n",
		e.ID, e.NodeID, e.Sequence, e.IssuedAt.Format(time.RFC3339Nano))
}
