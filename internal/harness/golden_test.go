package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"alice_blog", "ownership", "rejections"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestdata(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
		})
	}
}

func TestMarshalSnapshot_Canonical(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "s",
		PostIDWidth:  1,
		Trace: []TraceEvent{
			{Type: EventAirdrop, To: "a", Lamports: 5, Seq: 1},
			{Type: EventInstruction, Instruction: "create_post", Signer: "a", Outcome: "Success", PostID: u64(0), Seq: 2},
			{Type: EventInstruction, Instruction: "init_user", Signer: "a", Outcome: "AUTHORIZATION"},
		},
	}
	data, err := MarshalSnapshot(snapshot)
	require.NoError(t, err)

	want := `{"post_id_width":1,"scenario_name":"s","trace":[` +
		`{"lamports":5,"seq":1,"to":"a","type":"airdrop"},` +
		`{"instruction":"create_post","outcome":"Success","post_id":0,"seq":2,"signer":"a","type":"instruction"},` +
		`{"instruction":"init_user","outcome":"AUTHORIZATION","seq":0,"signer":"a","type":"instruction"}]}` + "\n"
	assert.Equal(t, want, string(data))
}
