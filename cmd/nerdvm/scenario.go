package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"nerdkernel/internal/fact"
	"nerdkernel/internal/term"
	"nerdkernel/internal/vm"
)

// factLiteral is the YAML shape of one seeded fact, following the same
// term-literal convention the program exchange format uses:
// predicate/arguments/time are the same {atom:...}/{struct:...} literals
// a compiled program embeds.
type factLiteral struct {
	Predicate struct {
		Namespace string `yaml:"namespace"`
		Name      string `yaml:"name"`
	} `yaml:"predicate"`
	Polarity  string         `yaml:"polarity"`
	Scope     []string       `yaml:"scope"`
	Arguments map[string]any `yaml:"arguments"`
	Time      any            `yaml:"time,omitempty"`
}

// factsFile is the top-level YAML document `nerdvm query`/`closure` load
// to seed a fact store without first running a program.
type factsFile struct {
	Facts []factLiteral `yaml:"facts"`
}

// rulesFile is the top-level YAML document for `nerdvm closure`: a list
// of rule literals in the same shape the CLOSURE opcode accepts.
type rulesFile struct {
	Rules []any `yaml:"rules"`
}

func loadFactsFile(path string, opts term.Options) ([]fact.Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read facts file: %w", err)
	}
	var doc factsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse facts file: %w", err)
	}

	out := make([]fact.Instance, 0, len(doc.Facts))
	for i, fl := range doc.Facts {
		args := make(map[string]term.Term, len(fl.Arguments))
		for slot, raw := range fl.Arguments {
			t, err := vm.LiteralToTerm(raw)
			if err != nil {
				return nil, fmt.Errorf("facts[%d].arguments.%s: %w", i, slot, err)
			}
			args[slot] = t
		}

		var tr *term.TimeRef
		if fl.Time != nil {
			t, err := vm.LiteralToTerm(fl.Time)
			if err != nil {
				return nil, fmt.Errorf("facts[%d].time: %w", i, err)
			}
			atom, ok := t.(term.Atom)
			if !ok || atom.Type != term.TypeTime {
				return nil, fmt.Errorf("facts[%d].time: expected a time atom literal", i)
			}
			payload, _ := atom.Payload.(term.TimeRef)
			tr = &payload
		}

		polarity := fact.Assert
		if fl.Polarity != "" {
			polarity = fact.Polarity(fl.Polarity)
		}

		pred := term.NewSymbolId(fl.Predicate.Namespace, fl.Predicate.Name)
		f, err := fact.New(pred, args, polarity, fl.Scope, tr, opts)
		if err != nil {
			return nil, fmt.Errorf("facts[%d]: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// seedStore asserts every fact from path into store, returning the
// number seeded.
func seedStore(store fact.Store, path string, opts term.Options) (int, error) {
	facts, err := loadFactsFile(path, opts)
	if err != nil {
		return 0, err
	}
	for _, f := range facts {
		if _, err := store.Assert(f); err != nil {
			return 0, fmt.Errorf("seed fact: %w", err)
		}
	}
	return len(facts), nil
}

func loadRulesFile(path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var doc rulesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	return doc.Rules, nil
}
