package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeAgentOutput(t *testing.T) {
	data := []byte(`{"type":"agent_output","agentId":2,"agentName":"Content Writer","content":"draft ready","taskId":"task-abc-123","seq":3}`)

	msg, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, KindAgentOutput, msg.Kind())

	out, ok := msg.(*AgentOutputMessage)
	require.True(t, ok)
	require.Equal(t, uint(2), out.AgentID)
	require.Equal(t, "task-abc-123", out.TaskID)
	require.Equal(t, 3, out.Seq)

	key, keyed := out.DedupeKey()
	require.True(t, keyed)
	require.Equal(t, "task-abc-123:2:3", key)
}

func TestDecodeTaskSubmit(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"task_submit","content":"Explain WebSockets","taskId":"client-chosen-id"}`))
	require.NoError(t, err)

	sub, ok := msg.(*TaskSubmitMessage)
	require.True(t, ok)
	require.Equal(t, "Explain WebSockets", sub.Content)

	key, keyed := sub.DedupeKey()
	require.True(t, keyed)
	require.Equal(t, "client-chosen-id", key)
}

func TestDecodeTaskSubmitWithoutIDHasNoKey(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"task_submit","content":"hello"}`))
	require.NoError(t, err)

	_, keyed := msg.DedupeKey()
	require.False(t, keyed)
}

func TestSystemMessageNeverKeyed(t *testing.T) {
	msg := NewSystemMessage("agents ready")
	require.Equal(t, KindSystemMessage, msg.Kind())
	require.NotEmpty(t, msg.Timestamp)

	_, keyed := msg.DedupeKey()
	require.False(t, keyed)
}

func TestTaskStatusKeyIncludesStatus(t *testing.T) {
	pending := NewTaskStatusMessage("t-1", "pending")
	completed := NewTaskStatusMessage("t-1", "completed")

	pk, ok := pending.DedupeKey()
	require.True(t, ok)
	ck, ok := completed.DedupeKey()
	require.True(t, ok)
	require.NotEqual(t, pk, ck)
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	cases := map[string][]byte{
		"not json":               []byte(`{broken`),
		"missing type":           []byte(`{"content":"hi"}`),
		"unknown type":           []byte(`{"type":"shutdown"}`),
		"output without task id": []byte(`{"type":"agent_output","agentId":1,"seq":1}`),
		"status without task id": []byte(`{"type":"task_status","status":"pending"}`),
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			msg, err := Decode(data)
			require.Nil(t, msg)

			var malformed *ErrMalformed
			require.True(t, errors.As(err, &malformed))
			require.NotEmpty(t, malformed.Reason)
		})
	}
}

func TestOutputKeysDistinguishAgentAndSeq(t *testing.T) {
	a := &AgentOutputMessage{TaskID: "t-1", AgentID: 1, Seq: 1}
	b := &AgentOutputMessage{TaskID: "t-1", AgentID: 2, Seq: 1}
	c := &AgentOutputMessage{TaskID: "t-1", AgentID: 1, Seq: 2}

	ka, _ := a.DedupeKey()
	kb, _ := b.DedupeKey()
	kc, _ := c.DedupeKey()
	require.NotEqual(t, ka, kb)
	require.NotEqual(t, ka, kc)
	require.NotEqual(t, kb, kc)
}
