// Command docql-cli is a small interactive shell for the driver: a cobra
// root command dials a Connection, then drops into a peterh/liner-editable
// REPL of fixed, non-query-language commands — grounded on the teacher's
// platform/cmd/cli (cobra as the command frame) and docdb/cmd/docdbsh (a
// line-oriented shell talking to the same client package the library
// exposes, rather than a second protocol implementation).
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/kartikbazzad/bunbase/docql"
	"github.com/kartikbazzad/bunbase/docql/config"
	"github.com/kartikbazzad/bunbase/docql/datum"
	"github.com/kartikbazzad/bunbase/docql/internal/logger"
)

var (
	flagHost    string
	flagPort    int
	flagAuthKey string
	flagDB      string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docql-cli",
	Short: "Interactive shell for the docql driver",
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Connect and start the REPL",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "localhost", "server host")
	rootCmd.PersistentFlags().IntVar(&flagPort, "port", 28015, "server port")
	rootCmd.PersistentFlags().StringVar(&flagAuthKey, "auth-key", "", "auth key")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "test", "default database")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
	rootCmd.AddCommand(shellCmd)
	rootCmd.RunE = shellCmd.RunE
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runShell() error {
	cfg := config.Default()
	cfg.Host = flagHost
	cfg.Port = flagPort
	cfg.AuthKey = flagAuthKey
	cfg.Database = flagDB
	if flagVerbose {
		cfg.Log = logger.New(os.Stderr, logger.LevelDebug, "[docql-cli]")
	}

	conn, err := docql.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	fmt.Printf("docql-cli connected to %s:%d (db=%s). Type .help for commands.\n", cfg.Host, cfg.Port, cfg.Database)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("docql> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				return nil
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if quit := dispatch(conn, cfg, input); quit {
			return nil
		}
	}
}

// dispatch runs one REPL command. It intentionally supports a fixed set of
// commands rather than a general query-language parser: the driver's value
// is the term-builder API, not a second surface syntax for it.
func dispatch(conn *docql.Connection, cfg config.Config, input string) (quit bool) {
	fields := strings.Fields(input)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case ".exit", ".quit":
		return true
	case ".help":
		printHelp()
	case ".range":
		cmdRange(conn, args)
	case ".table":
		cmdTable(conn, args)
	case ".get":
		cmdGet(conn, args)
	default:
		fmt.Printf("unknown command %q (see .help)\n", cmd)
	}
	return false
}

func printHelp() {
	fmt.Print(`commands:
  .range N        print the sequence 0..N-1
  .table NAME     print every document in table NAME
  .get NAME ID    print the document with the given id from table NAME
  .exit           leave the shell
`)
}

func cmdRange(conn *docql.Connection, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: .range N")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("N must be an integer:", err)
		return
	}
	printAll(docql.Range(n), conn)
}

func cmdTable(conn *docql.Connection, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: .table NAME")
		return
	}
	printAll(docql.Table(args[0]), conn)
}

func cmdGet(conn *docql.Connection, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: .get NAME ID")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d, err := docql.Table(args[0]).Get(args[1]).RunOne(ctx, conn, 10*time.Second)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(datumString(d))
}

func printAll(q docql.Query, conn *docql.Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := q.Run(ctx, conn)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer c.Close()

	count := 0
	err = c.Each(10*time.Second, func(d datum.Datum) (bool, error) {
		fmt.Println(datumString(d))
		count++
		return true, nil
	})
	if err != nil {
		fmt.Println("error:", err)
	}
	fmt.Printf("(%d row(s))\n", count)
}

func datumString(d datum.Datum) string {
	return datum.String(d)
}
