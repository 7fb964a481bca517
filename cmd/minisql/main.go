package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"golang.org/x/term"

	"github.com/Chahine-tech/minisql-go/internal/config"
	"github.com/Chahine-tech/minisql-go/internal/display"
	"github.com/Chahine-tech/minisql-go/pkg/engine"
	"github.com/Chahine-tech/minisql-go/pkg/logger"
)

const banner = `
 ███╗   ███╗██╗███╗   ██╗██╗███████╗ ██████╗ ██╗
 ████╗ ████║██║████╗  ██║██║██╔════╝██╔═══██╗██║
 ██╔████╔██║██║██╔██╗ ██║██║███████╗██║   ██║██║
 ██║╚██╔╝██║██║██║╚██╗██║██║╚════██║██║▄▄ ██║██║
 ██║ ╚═╝ ██║██║██║  ██║██║███████║╚██████╔╝███████╗
 ╚═╝     ╚═╝╚═╝╚═╝  ╚═╝╚═╝╚══════╝ ╚══▀▀═╝ ╚══════╝

 Welcome to minisql — a tiny disk-backed SQL engine.
`

var version = "dev"

type options struct {
	BaseDir  string `long:"base-dir" description:"Directory holding the databases" value-name:"dir"`
	Config   string `long:"config" description:"YAML configuration file" value-name:"path"`
	SQL      string `long:"sql" description:"Execute the given statements and exit" value-name:"statements"`
	File     string `long:"file" description:"Execute statements from a file and exit" value-name:"path"`
	NoColor  bool   `long:"no-color" description:"Disable ANSI colors"`
	DebugAST bool   `long:"debug-ast" description:"Dump the parsed query before executing"`
	Verbose  bool   `short:"v" long:"verbose" description:"Enable debug logging"`
	Version  bool   `long:"version" description:"Show version"`
	Help     bool   `long:"help" description:"Show this help"`
}

func main() {
	var opts options
	flagParser := flags.NewParser(&opts, flags.None)
	flagParser.Usage = "[options]"
	if _, err := flagParser.ParseArgs(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if opts.Help {
		flagParser.WriteHelp(os.Stdout)
		return
	}
	if opts.Version {
		fmt.Println(version)
		return
	}

	cfg, err := config.LoadConfig(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if opts.BaseDir != "" {
		cfg.Storage.BaseDir = opts.BaseDir
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}

	display.SetEnabled(colorsEnabled(cfg.Output.Colors, opts.NoColor))

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := os.MkdirAll(cfg.Storage.BaseDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not create base directory: %v\n", err)
		os.Exit(1)
	}

	catalog, err := engine.NewCatalog(cfg.Storage.BaseDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case opts.SQL != "":
		runStatements(catalog, opts.SQL, opts.DebugAST)
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		runStatements(catalog, string(data), opts.DebugAST)
	default:
		runREPL(catalog, cfg.REPL.Prompt, opts.DebugAST)
	}
}

func colorsEnabled(mode string, noColor bool) bool {
	if noColor {
		return false
	}
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// runStatements executes a ;-separated batch, printing each response.
func runStatements(catalog *engine.Catalog, input string, debugAST bool) {
	for _, stmt := range strings.Split(input, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if debugAST {
			_, _ = pp.Fprintln(os.Stderr, catalog.Parse(stmt))
		}
		fmt.Println(catalog.Execute(stmt))
	}
}

// runREPL reads lines until a ';' completes a statement and hands the text
// to the executor. The meta commands help, clear, exit and cancel are
// handled here and never reach the engine.
func runREPL(catalog *engine.Catalog, prompt string, debugAST bool) {
	fmt.Print(banner)
	printHelp()

	scanner := bufio.NewScanner(os.Stdin)
	var buffer strings.Builder

	printPrompt(catalog, prompt, buffer.Len() > 0)
	for scanner.Scan() {
		line := scanner.Text()

		if buffer.Len() == 0 {
			switch strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ";"))) {
			case "help":
				printHelp()
				printPrompt(catalog, prompt, false)
				continue
			case "clear":
				fmt.Print("\033[2J\033[H")
				printPrompt(catalog, prompt, false)
				continue
			case "exit":
				fmt.Println("Bye.")
				return
			}
		}
		if strings.EqualFold(strings.TrimSpace(line), "cancel") {
			buffer.Reset()
			fmt.Println(display.Dim("Statement cancelled."))
			printPrompt(catalog, prompt, false)
			continue
		}

		buffer.WriteString(line)
		buffer.WriteString("\n")

		for {
			text := buffer.String()
			idx := strings.Index(text, ";")
			if idx < 0 {
				break
			}
			stmt := strings.TrimSpace(text[:idx])
			buffer.Reset()
			buffer.WriteString(strings.TrimLeft(text[idx+1:], " \t\n\r"))

			if stmt == "" {
				continue
			}
			if debugAST {
				_, _ = pp.Fprintln(os.Stderr, catalog.Parse(stmt))
			}
			fmt.Println(catalog.Execute(stmt))
		}
		printPrompt(catalog, prompt, buffer.Len() > 0)
	}
}

func printPrompt(catalog *engine.Catalog, prompt string, continuation bool) {
	if continuation {
		fmt.Print("   ...> ")
		return
	}
	if db := catalog.CurrentDatabase(); db != "" {
		fmt.Printf("%s:%s> ", prompt, display.Highlight(db))
		return
	}
	fmt.Printf("%s> ", prompt)
}

func printHelp() {
	fmt.Println(display.Header("Quick start:"))
	fmt.Println("  CREATE DATABASE shop;        USE shop;")
	fmt.Println("  CREATE TABLE users (id INT, name TEXT, age INT);")
	fmt.Println("  INSERT INTO users VALUES (1, 'Alice', 25);")
	fmt.Println("  SELECT * FROM users WHERE age > 20;")
	fmt.Println("  UPDATE users SET age = 26 WHERE id = 1;")
	fmt.Println("  DELETE FROM users WHERE id = 1;")
	fmt.Println("  SHOW TABLES;                 SHOW DATABASES;")
	fmt.Println()
	fmt.Println(display.Header("Commands:") + " help, clear, cancel, exit")
	fmt.Println()
}
