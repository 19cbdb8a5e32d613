package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fleetflow/fleetflow/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("fleetflow", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
Fleetflow - blueprint expansion and variable resolution for device workflows.

Usage:
  fleetflow [options] [WORKFLOW_PATH]

Arguments:
  WORKFLOW_PATH
    Path to a workflow .yaml file.

Options:
`)
		flagSet.PrintDefaults()
	}

	workflowFlag := flagSet.String("workflow", "", "Path to the workflow file.")
	varsRootFlag := flagSet.String("vars-root", "", "Directory holding defaults.yaml files. Empty disables blueprint expansion.")
	var workflowRoots stringList
	flagSet.Var(&workflowRoots, "workflow-root", "Workflow base directory for domain inference. Repeatable.")
	var blueprintDirs stringList
	flagSet.Var(&blueprintDirs, "blueprint-dir", "Directory to index for the blueprint catalog. Repeatable.")
	inventoryFlag := flagSet.String("inventory", "", "Path to the device inventory file.")
	var varFlags stringList
	flagSet.Var(&varFlags, "var", "Variable override in name=value form. Repeatable.")
	checkFlag := flagSet.Bool("check", false, "Resolve every task per device after expansion.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := *workflowFlag
	if path == "" && flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if path == "" {
		slog.Debug("No workflow path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cliVars := make(map[string]string, len(varFlags))
	for _, pair := range varFlags {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid --var %q: must be name=value", pair)}
		}
		cliVars[name] = value
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		WorkflowPath:  path,
		VarsRoot:      *varsRootFlag,
		WorkflowRoots: workflowRoots,
		BlueprintDirs: blueprintDirs,
		InventoryPath: *inventoryFlag,
		Vars:          cliVars,
		Check:         *checkFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.")
	return config, false, nil
}
