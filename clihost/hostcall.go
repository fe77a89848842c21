// Package clihost implements the host-call mini-language of spec.md §6:
// parseable strings denoting one call against the host-call engine
// (internal/hostcall) or the pipeline's arb router, used by the CLI and by
// reproduction files. Grounded directly on the original source's
// dqcsim/src/reproduction/host_call.rs (HostCall's FromStr/Display), with
// ArbData/ArbCmd grammars delegated to internal/arb's ParseData/ParseCmd
// and Cmd.String (already ported there).
package clihost

import (
	"fmt"
	"strings"

	"github.com/dqcsim/dqcsim/dqerr"
	"github.com/dqcsim/dqcsim/internal/arb"
)

// Function names a host-call mini-language verb.
type Function int

const (
	Start Function = iota
	Wait
	Send
	Recv
	Yield
	Arb
)

var functionNames = map[Function]string{
	Start: "start", Wait: "wait", Send: "send", Recv: "recv", Yield: "yield", Arb: "arb",
}

func (f Function) String() string { return functionNames[f] }

var functionsByAbbreviation = buildAbbreviations()

func buildAbbreviations() map[string]Function {
	counts := make(map[string]int)
	owner := make(map[string]Function)
	for f, name := range functionNames {
		for n := 1; n <= len(name); n++ {
			prefix := name[:n]
			counts[prefix]++
			owner[prefix] = f
		}
	}
	m := make(map[string]Function, len(owner))
	for prefix, f := range owner {
		if counts[prefix] == 1 {
			m[prefix] = f
		}
	}
	return m
}

func parseFunction(s string) (Function, error) {
	if f, ok := functionsByAbbreviation[strings.ToLower(s)]; ok {
		return f, nil
	}
	return 0, dqerr.InvalidArgumentf("%s is not a valid host call function; valid values are start, wait, send, recv, yield, or arb", s)
}

// Call is one host-call mini-language invocation: Start/Send carry an
// ArbData, Arb carries a target plugin name and an ArbCmd, the rest take no
// argument.
type Call struct {
	Function Function
	Data     arb.Data
	Target   string
	Cmd      arb.Cmd
}

// ParseCall parses the grammar of spec.md §6: `start[:<ArbData>]`, `wait`,
// `send:<ArbData>`, `recv`, `yield`, `arb:<plugin>:<ArbCmd>`. Function names
// may be abbreviated to any unambiguous prefix, mirroring host_call.rs's
// EnumVariants-derived FromStr.
func ParseCall(s string) (Call, error) {
	name, argument, hasArgument := cutOnce(s, ':')
	fn, err := parseFunction(name)
	if err != nil {
		return Call{}, err
	}

	switch fn {
	case Start:
		if !hasArgument {
			return Call{Function: Start, Data: arb.Default()}, nil
		}
		data, err := arb.ParseData(argument)
		if err != nil {
			return Call{}, err
		}
		return Call{Function: Start, Data: data}, nil

	case Wait:
		if hasArgument {
			return Call{}, dqerr.InvalidArgumentf("the wait call does not take an argument")
		}
		return Call{Function: Wait}, nil

	case Send:
		if !hasArgument {
			return Call{}, dqerr.InvalidArgumentf("the send call requires an ArbData argument")
		}
		data, err := arb.ParseData(argument)
		if err != nil {
			return Call{}, err
		}
		return Call{Function: Send, Data: data}, nil

	case Recv:
		if hasArgument {
			return Call{}, dqerr.InvalidArgumentf("the recv call does not take an argument")
		}
		return Call{Function: Recv}, nil

	case Yield:
		if hasArgument {
			return Call{}, dqerr.InvalidArgumentf("the yield call does not take an argument")
		}
		return Call{Function: Yield}, nil

	case Arb:
		if !hasArgument {
			return Call{}, dqerr.InvalidArgumentf("the arb call requires a plugin and an ArbCmd argument")
		}
		target, cmdStr, ok := cutOnce(argument, ':')
		if !ok {
			return Call{}, dqerr.InvalidArgumentf("the arb call requires a plugin and an ArbCmd argument")
		}
		cmd, err := arb.ParseCmd(cmdStr)
		if err != nil {
			return Call{}, err
		}
		return Call{Function: Arb, Target: target, Cmd: cmd}, nil
	}
	panic("unreachable")
}

func cutOnce(s string, sep byte) (before, after string, found bool) {
	i := strings.IndexByte(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}

// String renders c back into the mini-language grammar, round-tripping
// with ParseCall.
func (c Call) String() string {
	switch c.Function {
	case Start:
		return fmt.Sprintf("start:%s", c.Data)
	case Wait:
		return "wait"
	case Send:
		return fmt.Sprintf("send:%s", c.Data)
	case Recv:
		return "recv"
	case Yield:
		return "yield"
	case Arb:
		return fmt.Sprintf("arb:%s:%s", c.Target, c.Cmd)
	}
	return ""
}
