package testutils

import (
	"github.com/papercomputeco/graphchat/pkg/cypher"
	"github.com/papercomputeco/graphchat/pkg/graph"
	"github.com/papercomputeco/graphchat/pkg/llm"
)

// NewCypherLoop wires the model-backed synthesizer and executor over g.
func NewCypherLoop(call llm.CallFunc, g graph.Graph) (*cypher.Synthesizer, *cypher.Executor) {
	validator := cypher.NewLLMValidator(call, "")
	synth := cypher.NewSynthesizer(cypher.SynthesizerConfig{
		Generator: cypher.NewLLMGenerator(call, ""),
		Validator: validator,
	}, nil)
	exec := cypher.NewExecutor(cypher.ExecutorConfig{
		Graph:     g,
		Validator: validator,
	}, nil)
	return synth, exec
}
