package runner

import (
	"slices"

	"github.com/gbkit/gbunit/cpu"
)

// FailureReason classifies why a test failed before its exit point.
type FailureReason int

const (
	// FailureNone marks a test that reached an exit point; the verdict then
	// depends on the result comparison alone.
	FailureNone FailureReason = iota

	// FailureCrash means execution reached a crash address.
	FailureCrash

	// FailureInvalidOpcode means the CPU fetched an encoding with no
	// defined behavior.
	FailureInvalidOpcode

	// FailureTimeout means the cycle budget ran out.
	FailureTimeout
)

// String implements fmt.Stringer.
func (f FailureReason) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureCrash:
		return "crashed"
	case FailureInvalidOpcode:
		return "invalid opcode"
	case FailureTimeout:
		return "timed out"
	}
	return "unknown"
}

// Reporter receives the events of one test execution. The runner never
// writes output itself; presentation is entirely the reporter's concern.
type Reporter interface {
	// LogBreakpoint is called when a breakpoint instruction executes and
	// breakpoints are enabled.
	LogBreakpoint(s *cpu.State)

	// LogDebug is called when a debug-print instruction executes and
	// breakpoints are enabled.
	LogDebug(s *cpu.State)

	// Pass is called exactly once if the test passes.
	Pass()

	// Failure is called when execution fails to reach an exit point. The
	// CPU state is the state at the point of failure.
	Failure(reason FailureReason, s *cpu.State)

	// Incorrect is called when execution reached an exit point but the
	// final state did not match the expected result.
	Incorrect(result CompareResult, s *cpu.State)
}

// TestConfig is one fully resolved test: a name, the execution controls,
// the initial machine state and the expected final state.
type TestConfig struct {
	Name string

	// CallerAddress is pushed onto the stack before execution as the
	// return address of the code under test. Reaching it is an exit.
	CallerAddress uint16

	// CrashAddresses fail the test when reached. ExitAddresses end it
	// normally, same as returning to the caller.
	CrashAddresses []uint16
	ExitAddresses  []uint16

	// EnableBreakpoints controls whether `ld b, b` and `ld d, d` report
	// through the Reporter. Execution continues either way.
	EnableBreakpoints bool

	// Timeout is the cycle budget. A test still running once this many
	// cycles have elapsed fails.
	Timeout uint64

	Initial Registers
	Result  *Registers
}

// Default execution controls. The caller address sits in HRAM where test
// code is unlikely to live, and the timeout is generous enough for any
// reasonable unit of code.
const (
	DefaultCallerAddress = 0xFFFF
	DefaultTimeout       = 65536
)

// NewTestConfig creates a named test with default execution controls and no
// constraints on initial or final state.
func NewTestConfig(name string) *TestConfig {
	return &TestConfig{
		Name:              name,
		CallerAddress:     DefaultCallerAddress,
		EnableBreakpoints: true,
		Timeout:           DefaultTimeout,
	}
}

// Clone deep-copies the test so two runs cannot share mutable state.
func (t *TestConfig) Clone() *TestConfig {
	clone := *t
	clone.CrashAddresses = append([]uint16(nil), t.CrashAddresses...)
	clone.ExitAddresses = append([]uint16(nil), t.ExitAddresses...)
	clone.Initial = t.Initial.Clone()
	if t.Result != nil {
		result := t.Result.Clone()
		clone.Result = &result
	}
	return &clone
}

// Run executes the test on a fresh CPU and reports the verdict: true on
// pass, false on any failure. Exactly one of Pass, Failure or Incorrect is
// invoked on the reporter.
func (t *TestConfig) Run(s *cpu.State, r Reporter) bool {
	t.Initial.Configure(s)

	// Synthesize the caller's stack frame so `ret` terminates the test.
	// Bypasses push so setup costs no cycles.
	s.Write(s.SP-1, byte(t.CallerAddress))
	s.Write(s.SP-2, byte(t.CallerAddress>>8))
	s.SP -= 2

run:
	for {
		// Termination checks happen before each fetch, so a test whose
		// entry point is already an exit (or crash) never executes an
		// instruction.
		if s.PC == t.CallerAddress || slices.Contains(t.ExitAddresses, s.PC) {
			break
		}
		if slices.Contains(t.CrashAddresses, s.PC) {
			r.Failure(FailureCrash, s)
			return false
		}
		if s.Cycles >= t.Timeout {
			r.Failure(FailureTimeout, s)
			return false
		}

		switch s.Step() {
		case cpu.Break:
			if t.EnableBreakpoints {
				r.LogBreakpoint(s)
			}
		case cpu.Debug:
			if t.EnableBreakpoints {
				r.LogDebug(s)
			}
		case cpu.Halt, cpu.Stop:
			// The CPU has nothing to wake it up, so halting ends the
			// test normally.
			break run
		case cpu.InvalidOpcode:
			r.Failure(FailureInvalidOpcode, s)
			return false
		}
	}

	if t.Result != nil {
		if result := t.Result.Compare(s); !result.OK() {
			r.Incorrect(result, s)
			return false
		}
	}
	r.Pass()
	return true
}
