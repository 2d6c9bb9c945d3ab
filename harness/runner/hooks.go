package runner

import (
	"context"
	"fmt"
	"regexp"

	"github.com/kasuganosora/battlerunner/harness/hook"
	"github.com/kasuganosora/battlerunner/harness/testctx"
	"go.uber.org/zap"
)

var placeholderRe = regexp.MustCompile(`\$\{([^{}]+)\}`)

// ExpandVariables returns a BeforeInstruction hook that replaces ${name}
// with the context variable name. An unknown name is an error.
func ExpandVariables() hook.Fn {
	return func(_ context.Context, _ string, data any) (any, error) {
		ev, ok := data.(*InstructionEvent)
		if !ok {
			return data, nil
		}
		var missing string
		ev.Instruction = placeholderRe.ReplaceAllStringFunc(ev.Instruction, func(m string) string {
			name := placeholderRe.FindStringSubmatch(m)[1]
			v, err := ev.Context.GetVariable(name)
			if err != nil {
				if missing == "" {
					missing = name
				}
				return m
			}
			return fmt.Sprint(v)
		})
		if missing != "" {
			return ev, fmt.Errorf("instruction %q: unknown variable %q", ev.Instruction, missing)
		}
		return ev, nil
	}
}

// TraceInstructions returns a BeforeInstruction hook that logs every
// instruction at debug level.
func TraceInstructions(logger *zap.Logger) hook.Fn {
	return func(_ context.Context, _ string, data any) (any, error) {
		if ev, ok := data.(*InstructionEvent); ok {
			logger.Debug("instruction",
				zap.String("phase", ev.Phase),
				zap.String("instruction", ev.Instruction),
				zap.Int("round", round(ev.Context)))
		}
		return data, nil
	}
}

func round(sc *testctx.Context) int {
	if sc.Battle == nil {
		return 0
	}
	return sc.Battle.Round
}
