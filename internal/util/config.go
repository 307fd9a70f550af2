package util

// Configuration carries the values cmd/slugjit's flags resolve into,
// separate from the flag.FlagSet itself so the rest of the program never
// depends on package flag directly.
type Configuration struct {
	Version   string
	BuildDate string
	Commit    string

	LogLevel string
	LogFile  string

	DebugAST bool
	UseJIT   bool
}
