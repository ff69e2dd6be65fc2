// Package code bridges a sandboxed code-execution backend into the tool
// system. The sandbox itself (interpreter choice, resource limits, isolation)
// lives behind the Executor boundary; this package only turns an
// implementation into a callable spec.
package code

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/reagent/core"
	"github.com/hupe1980/reagent/tool"
)

// Executor defines the interface for executing code snippets.
type Executor interface {
	// Execute runs the given snippet and returns its captured output or an
	// error.
	Execute(ctx context.Context, language, source string) (string, error)
}

// Options customize the constructed tool spec.
type Options struct {
	// Name of the exposed tool. Defaults to "execute_code".
	Name string

	// Description shown to the model. When empty a default is generated,
	// naming Languages if set.
	Description string

	// Languages accepted by the executor. Advertised in the generated
	// description and echoed in the language argument docs; the executor
	// remains the authority on what actually runs.
	Languages []string
}

type executeArgs struct {
	Language string `json:"language" jsonschema:"Language of the snippet, e.g. python."`
	Source   string `json:"source" jsonschema:"Source code to execute."`
}

// NewTool wraps an Executor as a callable tool spec. Executor failures reach
// the model as structured execution errors like any other handler failure;
// successful runs return an object with an "output" field.
func NewTool(exec Executor, optFns ...func(o *Options)) *core.Spec {
	opts := Options{
		Name: "execute_code",
	}
	for _, optFn := range optFns {
		optFn(&opts)
	}
	if opts.Description == "" {
		opts.Description = "Executes a code snippet in a sandbox and returns its output."
		if len(opts.Languages) > 0 {
			opts.Description += " Supported languages: " + strings.Join(opts.Languages, ", ") + "."
		}
	}

	return tool.MustNew(opts.Name, opts.Description, func(toolCtx *core.ToolContext, args executeArgs) (any, error) {
		out, err := exec.Execute(toolCtx.Context(), args.Language, args.Source)
		if err != nil {
			return nil, fmt.Errorf("execute %s snippet: %w", args.Language, err)
		}
		return map[string]any{"output": out}, nil
	})
}
