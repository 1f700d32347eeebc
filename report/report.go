// Package report renders test execution events for a terminal: per-test
// pass/fail lines, breakpoint and debug traces, failure diagnostics with
// the offending instruction named, and a final summary.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/gbkit/gbunit/cpu"
	"github.com/gbkit/gbunit/isa"
	"github.com/gbkit/gbunit/runner"
)

// SilenceLevel controls how much per-test output the logger produces.
// Failure details and the final summary are always printed.
type SilenceLevel int

const (
	// SilenceNone prints a line for every test.
	SilenceNone SilenceLevel = iota
	// SilencePassing suppresses the per-test lines of passing tests.
	SilencePassing
	// SilenceAll suppresses all per-test lines, leaving only the summary.
	SilenceAll
)

var (
	passText = color.New(color.FgGreen).Sprint("passed")
	failText = color.New(color.FgRed).Sprint("failed")
)

// Logger aggregates the results of every test run against one ROM.
type Logger struct {
	ROM     string
	Silence SilenceLevel

	out    io.Writer
	passed int
	total  int
}

// Option configures a Logger.
type Option func(*Logger)

// WithOutput directs the logger's output to w instead of standard output.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) {
		l.out = w
	}
}

// NewLogger creates a logger for one ROM's test run.
func NewLogger(rom string, silence SilenceLevel, opts ...Option) *Logger {
	l := &Logger{
		ROM:     rom,
		Silence: silence,
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Passed returns how many tests have passed so far.
func (l *Logger) Passed() int { return l.passed }

// Total returns how many tests have completed so far.
func (l *Logger) Total() int { return l.total }

// AllPassed reports whether every completed test passed.
func (l *Logger) AllPassed() bool { return l.passed == l.total }

// Finish prints the run summary.
func (l *Logger) Finish() {
	fmt.Fprintf(l.out, "%s: All tests complete. %d/%d passed.\n",
		l.ROM, l.passed, l.total)
}

// MakeTest returns a reporter for one named test. Each reporter feeds its
// verdict back into the logger's counters.
func (l *Logger) MakeTest(name string) *TestReporter {
	return &TestReporter{logger: l, name: name}
}

// TestReporter renders the events of a single test. It implements
// runner.Reporter.
type TestReporter struct {
	logger *Logger
	name   string
}

// LogBreakpoint prints the full register dump at a breakpoint.
func (t *TestReporter) LogBreakpoint(s *cpu.State) {
	if t.logger.Silence >= SilenceAll {
		return
	}
	fmt.Fprintf(t.logger.out, "%s: breakpoint @ $%04X\n%s\n",
		t.prefix(), s.PC, s)
}

// LogDebug prints a one-line register trace at a debug instruction.
func (t *TestReporter) LogDebug(s *cpu.State) {
	if t.logger.Silence >= SilenceAll {
		return
	}
	fmt.Fprintf(t.logger.out,
		"%s: debug @ $%04X: a=$%02X bc=$%04X de=$%04X hl=$%04X f=%s\n",
		t.prefix(), s.PC, s.A, s.BC(), s.DE(), s.HL(), &s.F)
}

// Pass records a passing test.
func (t *TestReporter) Pass() {
	t.logger.passed++
	t.logger.total++
	if t.logger.Silence >= SilencePassing {
		return
	}
	fmt.Fprintf(t.logger.out, "%s: %s\n", t.prefix(), passText)
}

// Failure records a test that never reached an exit point, dumping the CPU
// state and naming the instruction at the failure site.
func (t *TestReporter) Failure(reason runner.FailureReason, s *cpu.State) {
	t.logger.total++
	fmt.Fprintf(t.logger.out, "%s: %s (%s)\n%s\n",
		t.prefix(), failText, reason, indent(diagnostic(s)))
}

// Incorrect records a test whose final state did not match expectations.
func (t *TestReporter) Incorrect(result runner.CompareResult, s *cpu.State) {
	t.logger.total++
	fmt.Fprintf(t.logger.out, "%s: %s\n%s%s\n",
		t.prefix(), failText,
		indent(strings.TrimRight(result.String(), "\n")),
		"\n"+indent(diagnostic(s)))
}

func (t *TestReporter) prefix() string {
	return t.logger.ROM + ": " + t.name
}

// diagnostic renders the register dump plus the instruction at PC.
func diagnostic(s *cpu.State) string {
	op := s.Read(s.PC)
	var name string
	if op == 0xCB {
		name = isa.MnemonicCB(s.Read(s.PC + 1))
	} else {
		name = isa.Mnemonic(op)
	}
	return fmt.Sprintf("%s\nAt instruction: %s", s, name)
}

func indent(text string) string {
	return "  " + strings.ReplaceAll(text, "\n", "\n  ")
}
