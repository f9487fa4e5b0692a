package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"grantcrm/internal/core"
)

func TestStageValueAcceptsIDsAndLabels(t *testing.T) {
	m := core.DefaultStageMachine()
	cases := []struct {
		raw  string
		want core.Stage
	}{
		{"intake", "intake"},
		{"In Progress", "in_progress"},
		{" submitted ", "submitted"},
		{"CLOSED – WON", "won"},
	}
	for _, c := range cases {
		var s core.Stage
		require.NoError(t, newStageValue(m, &s).Set(c.raw), c.raw)
		require.Equal(t, c.want, s, c.raw)
	}

	var s core.Stage
	err := newStageValue(m, &s).Set("research")
	require.ErrorContains(t, err, "intake, qualified")
}

func TestStageListValueSplitsAndRepeats(t *testing.T) {
	m := core.DefaultStageMachine()
	var stages []core.Stage
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Var(&stageListValue{machine: m, stages: &stages}, "stage", "")
	require.NoError(t, fs.Parse([]string{"--stage", "won,lost", "--stage", "Intake"}))
	require.Equal(t, []core.Stage{"won", "lost", "intake"}, stages)
	require.Equal(t, "won,lost,intake", fs.Lookup("stage").Value.String())
}

func TestGrantPatchOnlyIncludesChangedFlags(t *testing.T) {
	var f grantFlags
	fs := pflag.NewFlagSet("edit", pflag.ContinueOnError)
	f.bind(fs)
	require.NoError(t, fs.Parse([]string{"--notes", "", "--region", "Kenya"}))

	p := f.patch(fs)
	require.NotNil(t, p.Notes)
	require.Equal(t, "", *p.Notes)
	require.NotNil(t, p.Region)
	require.Equal(t, "Kenya", *p.Region)
	require.Nil(t, p.Name)
	require.Nil(t, p.Website)
	require.False(t, p.IsEmpty())
}
