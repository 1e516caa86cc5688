package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlimeAI/slime-core/pkg/pipeline"
)

const sampleSpec = `
phases:
  train:
    handlers:
      - kind: epoch
        id: epoch_loop
        exec_ranks: unfiltered
        wrappers:
          - kind: timer
            id: epoch_timer
        children:
          - kind: step
            id: train_step
            exec_ranks: [0, 1]
          - kind: checkpoint
            id: ckpt
            exec_ranks: [0]
            config:
              interval: 100
  eval:
    handlers:
      - kind: step
        id: eval_step
        exec_ranks: none
`

func TestParse_FullSpec(t *testing.T) {
	spec, err := Parse([]byte(sampleSpec))
	require.NoError(t, err)

	train := spec.Phases["train"]
	require.Len(t, train.Handlers, 1)

	epoch := train.Handlers[0]
	assert.Equal(t, "epoch", epoch.Kind)
	assert.Equal(t, "epoch_loop", epoch.ID)
	assert.True(t, epoch.ExecRanks.Ranks().IsUnfiltered())
	require.Len(t, epoch.Wrappers, 1)
	assert.Equal(t, "timer", epoch.Wrappers[0].Kind)
	require.Len(t, epoch.Children, 2)

	step := epoch.Children[0]
	assert.Equal(t, []int{0, 1}, step.ExecRanks.Ranks().Members())

	ckpt := epoch.Children[1]
	assert.Equal(t, 100, ckpt.Config["interval"])

	evalStep := spec.Phases["eval"].Handlers[0]
	assert.True(t, evalStep.ExecRanks.Ranks().IsNone())
}

func TestRanksSpec_AbsentMeansUnfiltered(t *testing.T) {
	var r *RanksSpec
	assert.True(t, r.Ranks().IsUnfiltered())
}

func TestRanksSpec_RejectsBadScalar(t *testing.T) {
	_, err := Parse([]byte(`
phases:
  train:
    handlers:
      - kind: step
        exec_ranks: sometimes
`))
	assert.ErrorContains(t, err, "exec_ranks")
}

func TestRanksSpec_RejectsNonIntegerSequence(t *testing.T) {
	_, err := Parse([]byte(`
phases:
  train:
    handlers:
      - kind: step
        exec_ranks: [zero]
`))
	assert.ErrorContains(t, err, "integers")
}

func TestRanksSpec_MarshalRoundTrip(t *testing.T) {
	for _, ranks := range []pipeline.ExecRanks{
		pipeline.Unfiltered(),
		pipeline.NoRanks(),
		pipeline.Ranks(2, 0),
	} {
		r := RanksSpec{ranks: ranks}
		out, err := r.MarshalYAML()
		require.NoError(t, err)
		assert.NotNil(t, out)
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no phases",
			yaml: `phases: {}`,
			want: "no phases",
		},
		{
			name: "empty phase",
			yaml: "phases:\n  train:\n    handlers: []",
			want: "declares no handlers",
		},
		{
			name: "missing kind",
			yaml: "phases:\n  train:\n    handlers:\n      - id: x",
			want: "missing kind",
		},
		{
			name: "duplicate id",
			yaml: "phases:\n  train:\n    handlers:\n      - kind: a\n        id: x\n      - kind: b\n        id: x",
			want: "duplicate handler id",
		},
		{
			name: "wrapper missing kind",
			yaml: "phases:\n  train:\n    handlers:\n      - kind: a\n        id: x\n        wrappers:\n          - id: w",
			want: "wrapper",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.ErrorContains(t, err, tc.want)
		})
	}
}
