package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli"

	"github.com/sxyafiq/easyflake/audit"
	"github.com/sxyafiq/easyflake/easyflake"
)

func grpcContext(t *testing.T, args []string) *cli.Context {
	t.Helper()
	app := cli.NewApp()
	cmd := cmdGRPC()

	set := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
	for _, f := range cmd.Flags {
		f.Apply(set)
	}
	if err := set.Parse(args); err != nil {
		t.Fatal(err)
	}
	return cli.NewContext(app, set, nil)
}

// TestGRPCRejectsPidFileWithoutDaemon is boundary scenario S8: `grpc
// --pid-file foo.pid` without `--daemon` must exit non-zero and must not
// start the server.
func TestGRPCRejectsPidFileWithoutDaemon(t *testing.T) {
	ctx := grpcContext(t, []string{"--pid-file", "foo.pid"})

	err := cmdGRPC().Action.(func(*cli.Context) error)(ctx)
	if err == nil {
		t.Fatal("expected an error when --pid-file is set without --daemon")
	}
	if exitErr, ok := err.(cli.ExitCoder); !ok || exitErr.ExitCode() == 0 {
		t.Fatalf("expected a non-zero ExitCoder, got %v", err)
	}
}

func TestGRPCDaemonAndPidFileDefaultToUnset(t *testing.T) {
	ctx := grpcContext(t, []string{})
	if ctx.Bool("daemon") {
		t.Fatal("expected daemon to default to false")
	}
	if ctx.String("pid-file") != "" {
		t.Fatal("expected pid-file to default to empty")
	}
}

// auditContext builds a *cli.Context for a leaf audit subcommand, the same
// technique grpcContext uses to invoke an Action without going through
// cli.App.Run.
func auditContext(t *testing.T, cmd cli.Command, args []string) *cli.Context {
	t.Helper()
	app := cli.NewApp()

	set := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
	for _, f := range cmd.Flags {
		f.Apply(set)
	}
	if err := set.Parse(args); err != nil {
		t.Fatal(err)
	}
	return cli.NewContext(app, set, nil)
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	w.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

// TestAuditLookupPrintsRecordedEntry exercises the generate --audit-db ->
// audit lookup round trip end to end through the CLI's own Action funcs.
func TestAuditLookupPrintsRecordedEntry(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")

	layout := easyflake.BitLayout{NodeBits: 8, SequenceBits: 8, Epoch: easyflake.DefaultEpoch}
	shift := uint(layout.SequenceBits + layout.NodeBits)
	nodeShift := uint(layout.SequenceBits)
	id := easyflake.ID((1000 << shift) | (7 << nodeShift) | 3)

	log, err := audit.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := log.Record(context.Background(), id, layout); err != nil {
		t.Fatal(err)
	}
	log.Close()

	ctx := auditContext(t, cmdAuditLookup(), []string{dbPath, id.String()})
	out := captureStdout(t, func() {
		if err := cmdAuditLookup().Action.(func(*cli.Context) error)(ctx); err != nil {
			t.Fatal(err)
		}
	})

	if !strings.Contains(out, id.String()) || !strings.Contains(out, "node=7") {
		t.Fatalf("expected lookup output to mention the id and node, got %q", out)
	}
}
