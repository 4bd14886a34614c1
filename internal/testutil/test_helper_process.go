// Package testutil provides test utilities and helpers for shipset tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
)

// HelperProcessConfig configures the behavior of TestHelperProcess.
type HelperProcessConfig struct {
	// ExitCode is the exit code to return (default 0).
	ExitCode int `json:"exit_code"`
	// Stdout is the content to write to stdout.
	Stdout string `json:"stdout"`
	// Stderr is the content to write to stderr.
	Stderr string `json:"stderr"`
	// RecordFile, when set, receives one line per invocation holding the
	// working directory, the arguments and the values of RecordEnv.
	RecordFile string `json:"record_file,omitempty"`
	// RecordEnv lists environment variables to include in the record.
	RecordEnv []string `json:"record_env,omitempty"`
}

// HelperProcessEnvVars contains the environment variable names used by TestHelperProcess.
const (
	// EnvWantHelperProcess signals that the test binary should run as a helper process.
	EnvWantHelperProcess = "GO_WANT_HELPER_PROCESS"
	// EnvHelperProcessConfig contains JSON-encoded HelperProcessConfig.
	EnvHelperProcessConfig = "GO_HELPER_PROCESS_CONFIG"
)

// TestHelperProcess is a function to be called from a test function
// to implement the helper process pattern. When invoked with GO_WANT_HELPER_PROCESS=1,
// it behaves as a mock subprocess and exits without returning.
//
// Usage in test file:
//
//	func TestHelperProcess(t *testing.T) {
//	    testutil.TestHelperProcess(t)
//	}
//
// If GO_WANT_HELPER_PROCESS is not set, it returns immediately, allowing
// normal test execution.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(EnvWantHelperProcess) != "1" {
		return
	}

	config := parseHelperConfig()
	runHelperProcess(config, helperArgs(os.Args))
	// runHelperProcess calls os.Exit, so this line is never reached
}

// parseHelperConfig parses HelperProcessConfig from environment variable.
func parseHelperConfig() HelperProcessConfig {
	config := HelperProcessConfig{}
	configJSON := os.Getenv(EnvHelperProcessConfig)
	if configJSON != "" {
		// Ignore parse errors; use defaults on failure
		_ = json.Unmarshal([]byte(configJSON), &config)
	}
	return config
}

// helperArgs returns the arguments following "--" on the test binary command line.
func helperArgs(argv []string) []string {
	for i, arg := range argv {
		if arg == "--" {
			return argv[i+1:]
		}
	}
	return nil
}

// runHelperProcess executes the helper process behavior and always exits.
func runHelperProcess(config HelperProcessConfig, args []string) {
	if config.RecordFile != "" {
		if err := appendRecord(config, args); err != nil {
			fmt.Fprintf(os.Stderr, "helper: %v\n", err)
			os.Exit(125)
		}
	}

	if config.Stdout != "" {
		fmt.Fprint(os.Stdout, config.Stdout)
	}
	if config.Stderr != "" {
		fmt.Fprint(os.Stderr, config.Stderr)
	}

	// Always exit with configured code (defaults to 0)
	os.Exit(config.ExitCode)
}

func appendRecord(config HelperProcessConfig, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	fields := []string{wd, strings.Join(args, " ")}
	for _, name := range config.RecordEnv {
		fields = append(fields, name+"="+os.Getenv(name))
	}

	f, err := os.OpenFile(config.RecordFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, strings.Join(fields, "\t"))
	return err
}

// HelperCommand describes an invocation of the test binary as a helper
// process: the executable, its arguments and the environment that turns it
// into a mock command. args are passed through after "--".
type HelperCommand struct {
	Path string
	Args []string
	Env  map[string]string
}

// NewHelperCommand builds a HelperCommand that runs the test function
// testName (which must call TestHelperProcess) with config.
func NewHelperCommand(t *testing.T, testName string, config HelperProcessConfig, args ...string) HelperCommand {
	t.Helper()

	testBinary, err := os.Executable()
	if err != nil {
		t.Fatalf("failed to get test binary path: %v", err)
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		t.Fatalf("failed to encode helper config: %v", err)
	}

	return HelperCommand{
		Path: testBinary,
		Args: append([]string{"-test.run=^" + testName + "$", "--"}, args...),
		Env: map[string]string{
			EnvWantHelperProcess:   "1",
			EnvHelperProcessConfig: string(configJSON),
		},
	}
}

// HelperRecord is one line written by a helper process invocation.
type HelperRecord struct {
	Dir  string
	Args string
	Env  map[string]string
}

// ReadHelperRecords parses the invocations recorded in path. A missing file
// means no invocation happened.
func ReadHelperRecords(t *testing.T, path string) []HelperRecord {
	t.Helper()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("reading helper records: %v", err)
	}

	var records []HelperRecord
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		rec := HelperRecord{Dir: fields[0], Env: make(map[string]string)}
		if len(fields) > 1 {
			rec.Args = fields[1]
		}
		for _, kv := range fields[min(2, len(fields)):] {
			k, v, _ := strings.Cut(kv, "=")
			rec.Env[k] = v
		}
		records = append(records, rec)
	}
	return records
}
