package engine

import (
	"fmt"
	"strings"

	"github.com/hupe1980/reagent/core"
	"github.com/hupe1980/reagent/hook"
	"github.com/hupe1980/reagent/internal/util"
	"github.com/hupe1980/reagent/registry"
)

// assemble turns the reconciled registry, the hook pipeline, and the round's
// effect overrides into the model request input. Hooks narrow the active
// candidates first, overrides then replace whole aspects, and tag
// substitution runs last so overridden text renders the same way declared
// text does.
func (e *Engine) assemble(step *core.Step) core.RoundInput {
	cands := hook.Candidates{
		Systems:   defNames(e.registry.Active(registry.KindSystem)),
		Variables: defNames(e.registry.Active(registry.KindVariable)),
		Tools: append(
			defNames(e.registry.Active(registry.KindTool)),
			defNames(e.registry.Active(registry.KindAgent))...),
	}
	cands = e.hooks.Apply(e.round, cands)

	variables := e.variableAspect(cands.Variables)
	if override, ok := step.Variables(); ok {
		variables = override
	}

	systems := e.systemAspect(cands.Systems)
	if override, ok := step.Systems(); ok {
		systems = override
	}

	tools := e.toolAspect(cands.Tools)
	if override, ok := step.Tools(); ok {
		tools = override
	}

	messages := e.transcript.Messages()
	if override, ok := step.Messages(); ok {
		messages = override
	}

	repl := e.tagReplacements(variables)

	return core.RoundInput{
		Instructions: e.renderInstructions(systems, repl),
		Systems:      systems,
		Variables:    variables,
		Messages:     renderContents(messages, repl),
		Tools:        tools,
	}
}

// variableAspect resolves the surviving variable names to their declared
// values.
func (e *Engine) variableAspect(names []string) map[string]any {
	vars := make(map[string]any, len(names))
	for _, name := range names {
		if d, ok := e.registry.Lookup(registry.KindVariable, name); ok {
			vars[name] = d.Value()
		}
	}
	return vars
}

// systemAspect resolves the surviving system names to their section texts.
func (e *Engine) systemAspect(names []string) []string {
	sections := make([]string, 0, len(names))
	for _, name := range names {
		if d, ok := e.registry.Lookup(registry.KindSystem, name); ok {
			sections = append(sections, util.Stringify(d.Value()))
		}
	}
	return sections
}

// toolAspect resolves the surviving tool and agent names to wire
// definitions.
func (e *Engine) toolAspect(names []string) []core.ToolDefinition {
	defs := make([]core.ToolDefinition, 0, len(names))
	for _, name := range names {
		if spec := e.lookupSpec(name); spec != nil {
			defs = append(defs, spec.Definition())
		}
	}
	return defs
}

// tagReplacements maps every declared definition's tag to its rendered form.
// Variable tags render as the round's effective value, so a variables
// override also rewrites tag references; all other kinds render as their
// name. Narrowed or disabled definitions keep rendering, a raw tag must
// never reach the model.
func (e *Engine) tagReplacements(variables map[string]any) map[string]string {
	repl := make(map[string]string)
	for _, d := range e.registry.Declared(registry.KindVariable) {
		value := d.Value()
		if v, ok := variables[d.Name()]; ok {
			value = v
		}
		repl[d.Tag()] = util.Stringify(value)
	}
	for _, kind := range []registry.Kind{registry.KindSystem, registry.KindTool, registry.KindAgent} {
		for _, d := range e.registry.Declared(kind) {
			repl[d.Tag()] = d.Name()
		}
	}
	return repl
}

// renderInstructions joins the system sections, appends any pending
// reminders, and substitutes tags.
func (e *Engine) renderInstructions(systems []string, repl map[string]string) string {
	sections := make([]string, 0, len(systems)+1)
	for _, s := range systems {
		if s != "" {
			sections = append(sections, s)
		}
	}
	if rem := e.registry.DrainReminded(); len(rem) > 0 {
		sections = append(sections, reminderSection(rem))
		for _, d := range rem {
			e.remindLog = append(e.remindLog, string(d.Kind())+":"+d.Name())
		}
	}
	return util.Substitute(strings.Join(sections, "\n\n"), repl)
}

// reminderSection restates reminded definitions as an emphasis block at the
// end of the instructions.
func reminderSection(defs []*registry.Definition) string {
	var b strings.Builder
	b.WriteString("Reminders:")
	for _, d := range defs {
		switch d.Kind() {
		case registry.KindVariable:
			fmt.Fprintf(&b, "\n- %s = %s", d.Name(), util.Stringify(d.Value()))
		case registry.KindSystem:
			fmt.Fprintf(&b, "\n- %s", util.Stringify(d.Value()))
		default:
			fmt.Fprintf(&b, "\n- The %q tool is available.", d.Name())
		}
	}
	return b.String()
}

// renderContents substitutes tags inside text parts, copying only the
// contents it changes.
func renderContents(contents []core.Content, repl map[string]string) []core.Content {
	if len(contents) == 0 || len(repl) == 0 {
		return contents
	}
	out := make([]core.Content, len(contents))
	copy(out, contents)
	for i, c := range out {
		var parts []core.Part
		for j, p := range c.Parts {
			tp, ok := p.(core.TextPart)
			if !ok {
				continue
			}
			sub := util.Substitute(tp.Text, repl)
			if sub == tp.Text {
				continue
			}
			if parts == nil {
				parts = make([]core.Part, len(c.Parts))
				copy(parts, c.Parts)
			}
			tp.Text = sub
			parts[j] = tp
		}
		if parts != nil {
			out[i].Parts = parts
		}
	}
	return out
}

func defNames(defs []*registry.Definition) []string {
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name())
	}
	return names
}

func toolNames(defs []core.ToolDefinition) []string {
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return names
}
