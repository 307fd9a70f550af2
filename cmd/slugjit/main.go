package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"slugjit/internal/interp"
	"slugjit/internal/jit"
	"slugjit/internal/lexer"
	"slugjit/internal/logger"
	"slugjit/internal/parser"
	"slugjit/internal/util"
)

var (
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
)

func main() {
	cfg := parseFlags()

	logWriter := configureLogWriter(cfg.LogFile)
	logger.SetOutput(logWriter)
	logger.SetLevel(logLevelFromString(cfg.LogLevel))

	args := flag.Args()
	if len(args) != 1 {
		printHelp()
		os.Exit(1)
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "slugjit: %v\n", err)
		os.Exit(1)
	}

	if err := run(string(src), cfg); err != nil {
		fmt.Fprintf(os.Stderr, "slugjit: %v\n", err)
		os.Exit(1)
	}
}

func run(src string, cfg util.Configuration) error {
	l := lexer.New(src)
	p := parser.New(l, src)
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		return fmt.Errorf("parsing failed with %d error(s)", len(errs))
	}

	if cfg.DebugAST {
		fmt.Fprintln(os.Stderr, parser.RenderASTAsText(program, 0))
	}

	i := interp.New()

	if !cfg.UseJIT {
		return execute(func() error {
			for _, stmt := range program.Statements {
				if err := i.ExecuteTopLevel(stmt); err != nil {
					return err
				}
			}
			return nil
		})
	}

	driver := jit.New(i)
	defer driver.Close()
	return execute(func() error { return driver.ExecuteProgram(program) })
}

// execute recovers exactly once, at the top of the execution harness, from
// any panic that escapes either the interpreter or the JIT's native calls
// (for example a coercion panic when a native function receives a
// non-Integer argument) and turns it into the same diagnostic-and-exit-1
// path an ordinary runtime error takes.
func execute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("runtime panic: %v", r)
		}
	}()
	return fn()
}

func parseFlags() util.Configuration {
	var cfg util.Configuration
	var showVersion, showHelp bool

	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.BoolVar(&showHelp, "help", false, "print help and exit")
	flag.BoolVar(&cfg.UseJIT, "jit", false, "ahead-of-execution compile user functions to native code")
	flag.BoolVar(&cfg.DebugAST, "debug-ast", false, "print the parsed AST to stderr before running")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.StringVar(&cfg.LogFile, "log-file", "", "write logs to this file instead of stderr")
	flag.Parse()

	if showVersion {
		printVersion()
		os.Exit(0)
	}
	if showHelp {
		printHelp()
		os.Exit(0)
	}

	cfg.Version, cfg.BuildDate, cfg.Commit = Version, BuildDate, Commit
	return cfg
}

func configureLogWriter(path string) io.Writer {
	if path == "" {
		return os.Stderr
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "slugjit: could not open log file %q, falling back to stderr: %v\n", path, err)
		return os.Stderr
	}
	return f
}

func logLevelFromString(level string) logger.Level {
	switch level {
	case "debug":
		return logger.DEBUG
	case "warn":
		return logger.WARN
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}

func printVersion() {
	fmt.Printf("slugjit %s (%s, %s)\n", Version, Commit, BuildDate)
}

func printHelp() {
	fmt.Println("usage: slugjit [--jit] [--debug-ast] [--log-level=LEVEL] [--log-file=PATH] <filename>")
	flag.PrintDefaults()
}
