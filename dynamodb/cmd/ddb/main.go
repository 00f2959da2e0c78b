// ddb inspects and queries services defined in ddb.schema.yaml files.
//
// # Installation
//
//	go install github.com/acksell/colldb/dynamodb/cmd/ddb@latest
//
// # Commands
//
//	ddb check   Validate schemas and list their collections
//	ddb plan    Show the key condition a query compiles to
//	ddb query   Run a query and print the items as JSON
//	ddb put     Write an entity to the local store
//
// # Quick Start
//
//	ddb check
//	ddb put --entity employee employeeId=e1 office=gw level=3
//	ddb query --collection workplaces --op between --bound level=1 --upper level=5 office=gw
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

const version = "0.1.0"

var errUsage = errors.New("usage")

func main() {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ddb: %v\n", err)
		os.Exit(1)
	}
	if err := run(context.Background(), os.Args[1:], dir, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run executes one command. Errors are reported to stderr before returning.
func run(ctx context.Context, args []string, dir string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errUsage
	}
	cmd, args := args[0], args[1:]

	var err error
	switch cmd {
	case "check":
		err = runCheck(ctx, args, dir, stdout, stderr)
	case "plan":
		err = runPlan(ctx, args, dir, stdout, stderr)
	case "query":
		err = runQuery(ctx, args, dir, stdout, stderr)
	case "put":
		err = runPut(ctx, args, dir, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "ddb version %s\n", version)
		return nil
	default:
		fmt.Fprintf(stderr, "ddb: unknown command %q\n\n", cmd)
		printUsage(stderr)
		return errUsage
	}

	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		fmt.Fprintf(stderr, "ddb %s: %v\n", cmd, err)
	}
	return err
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `ddb - composite key and collection tools

Usage:
  ddb <command> [flags] [attribute=value ...]

Commands:
  check   Validate schemas and list their collections
  plan    Show the key condition a query compiles to
  query   Run a query and print the items as JSON
  put     Write an entity to the local store
  version Print the version

Examples:
  ddb check
  ddb plan --entity employee --index byOffice --op gt --bound level=3 office=gw
  ddb query --collection workplaces --all office=gw

Configuration (optional):
  Create ddb.yaml; DDB_* and AWS_* variables, also read from .env, override it:

    schema: ./ddb.schema.yaml   # DDB_SCHEMA
    backend: local              # DDB_BACKEND, local or aws
    dataDir: ./data             # DDB_DATA_DIR, empty for in-memory
    region: eu-west-1           # AWS_REGION
    log: {level: info, format: console}

Run 'ddb <command> --help' for more information on a command.`)
}
