package main

import (
	"fmt"

	"plcsim/internal/config"
	"plcsim/internal/iosim"
	"plcsim/internal/memspace"
)

func sectionFromString(s string) (memspace.Section, error) {
	switch s {
	case "bits":
		return memspace.Bits, nil
	case "words16":
		return memspace.Words16, nil
	case "words32":
		return memspace.Words32, nil
	case "words64":
		return memspace.Words64, nil
	default:
		return 0, fmt.Errorf("unknown section %q", s)
	}
}

func viewFromRef(ref config.MemspaceRef) (iosim.View, error) {
	section, err := sectionFromString(ref.Section)
	if err != nil {
		return iosim.View{}, err
	}
	return iosim.View{Section: section, Addr: ref.Addr, N: ref.Count()}, nil
}

func taskConfigsFromSimulations(sims []config.SimulationConfig) ([]iosim.TaskConfig, error) {
	out := make([]iosim.TaskConfig, 0, len(sims))
	for _, sim := range sims {
		target, err := viewFromRef(sim.Target)
		if err != nil {
			return nil, fmt.Errorf("simulation %q: target: %w", sim.ID, err)
		}

		var source *iosim.View
		if sim.Source != nil {
			v, err := viewFromRef(*sim.Source)
			if err != nil {
				return nil, fmt.Errorf("simulation %q: source: %w", sim.ID, err)
			}
			source = &v
		}

		operands := make([]iosim.Operand, 0, len(sim.Operands))
		for _, op := range sim.Operands {
			switch {
			case op.Value != nil:
				operands = append(operands, iosim.Operand{IsValue: true, Value: *op.Value})
			case op.Memspace != nil:
				v, err := viewFromRef(*op.Memspace)
				if err != nil {
					return nil, fmt.Errorf("simulation %q: operand: %w", sim.ID, err)
				}
				operands = append(operands, iosim.Operand{Ref: v})
			default:
				return nil, fmt.Errorf("simulation %q: operand has neither value nor memspace", sim.ID)
			}
		}

		funcSpec := iosim.FuncSpec{
			Type:          iosim.FuncType(sim.Function.Type),
			Value:         sim.Function.Value,
			Range:         sim.Function.Range,
			Operator:      sim.Function.Operator,
			Operands:      operands,
			TransformOut:  sim.Function.Transform.Out,
		}
		if len(sim.Function.Transform.In) == 2 {
			funcSpec.TransformLow = sim.Function.Transform.In[0]
			funcSpec.TransformHigh = sim.Function.Transform.In[1]
		}

		out = append(out, iosim.TaskConfig{
			ID:     sim.ID,
			Target: target,
			Source: source,
			Func:   funcSpec,
			Pause:  secondsToDuration(sim.Pause),
		})
	}
	return out, nil
}
