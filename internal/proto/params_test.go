package proto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirecall-server/internal/core"
)

func TestDecodeInvite_Accepts_Array_And_Serialized_Targets(t *testing.T) {
	req := require.New(t)

	fromArray, err := DecodeInvite(json.RawMessage(`{
		"userId":"A","number":2,"targets":[{"userId":"B"},"C"],
		"typeOfMedia":"video","typeOfSession":"S1"}`))
	req.NoError(err)
	req.Equal(InviteParams{
		UserID: "A", Number: 2, Targets: `[{"userId":"B"},"C"]`,
		TypeOfMedia: "video", TypeOfSession: "S1",
	}, fromArray)

	fromString, err := DecodeInvite(json.RawMessage(`{
		"userId":"A","number":"2","targets":"[{\"target_0\":\"B\"}]",
		"typeOfMedia":"audio","typeOfSession":"S1"}`))
	req.NoError(err)
	req.Equal(2, fromString.Number)
	req.Equal(`[{"target_0":"B"}]`, fromString.Targets)
}

func TestDecodeInvite_Accepts_Legacy_Aliases(t *testing.T) {
	req := require.New(t)

	p, err := DecodeInvite(json.RawMessage(`{
		"userId":"A","number":1,"targetUsers":["B"],
		"typeOffMedia":"all","typeOffSession":"{\"type\":\"GROUP\"}"}`))
	req.NoError(err)
	req.Equal(`["B"]`, p.Targets)
	req.Equal("all", p.TypeOfMedia)
	req.Equal(`{"type":"GROUP"}`, p.TypeOfSession)
}

func TestDecodeInvite_Missing_Fields_Named_In_Order(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{name: "no params", raw: ``, field: "userId"},
		{name: "null params", raw: `null`, field: "userId"},
		{name: "no number", raw: `{"userId":"A"}`, field: "number"},
		{name: "no targets", raw: `{"userId":"A","number":1}`, field: "targets"},
		{name: "no media", raw: `{"userId":"A","number":1,"targets":[]}`, field: "typeOfMedia"},
		{name: "no session", raw: `{"userId":"A","number":1,"targets":[],"typeOfMedia":"audio"}`, field: "typeOfSession"},
		{name: "null user", raw: `{"userId":null,"number":1}`, field: "userId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInvite(json.RawMessage(tt.raw))
			require.ErrorIs(t, err, core.ErrMissingParameter)
			ce, ok := core.AsCoreError(err)
			require.True(t, ok)
			require.Equal(t, tt.field, ce.Field)
			require.Equal(t, string(MethodInvited), ce.Method)
		})
	}
}

func TestDecodeInvite_Empty_Strings_Are_Present(t *testing.T) {
	p, err := DecodeInvite(json.RawMessage(`{"userId":"A","number":0,"targets":"","typeOfMedia":"","typeOfSession":""}`))
	require.NoError(t, err)
	require.Equal(t, "", p.Targets)
	require.Equal(t, 0, p.Number)
}

func TestDecodeInvite_Malformed_Fields(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{name: "number not numeric", raw: `{"userId":"A","number":"two"}`, field: "number"},
		{name: "user id not string", raw: `{"userId":5,"number":1}`, field: "userId"},
		{name: "not an object", raw: `[1,2]`, field: "params"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInvite(json.RawMessage(tt.raw))
			require.ErrorIs(t, err, core.ErrMalformedPayload)
			ce, ok := core.AsCoreError(err)
			require.True(t, ok)
			require.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestDecodeAnswer(t *testing.T) {
	req := require.New(t)

	p, err := DecodeAnswer(json.RawMessage(`{"targetId":"B","inviterId":"A","typeOfMedia":"audio","decision":"accept"}`))
	req.NoError(err)
	req.Equal(AnswerParams{TargetID: "B", InviterID: "A", TypeOfMedia: "audio", Decision: "accept"}, p)

	_, err = DecodeAnswer(json.RawMessage(`{"targetId":"B","inviterId":"A","typeOfMedia":"audio","decision":"maybe"}`))
	req.ErrorIs(err, core.ErrMalformedPayload)
	ce, _ := core.AsCoreError(err)
	req.Equal("decision", ce.Field)

	_, err = DecodeAnswer(json.RawMessage(`{"targetId":"B","typeOfMedia":"audio","decision":"reject"}`))
	req.ErrorIs(err, core.ErrMissingParameter)
	ce, _ = core.AsCoreError(err)
	req.Equal("inviterId", ce.Field)
}

func TestMethodCatalog(t *testing.T) {
	for _, m := range Methods {
		require.True(t, m.Known(), m)
	}
	require.False(t, Method("hangup").Known())
	require.True(t, MethodPing.Liveness())
	require.False(t, MethodInvited.Liveness())
}

func TestRequestIsNotification(t *testing.T) {
	var r Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"ping"}`), &r))
	require.True(t, r.IsNotification())

	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":null,"method":"ping"}`), &r))
	require.True(t, r.IsNotification())

	r = Request{}
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":7,"method":"ping"}`), &r))
	require.False(t, r.IsNotification())
}

func TestInviteResultOmitsTargetsWhenNil(t *testing.T) {
	b, err := json.Marshal(InviteResult{Status: "OK", UserID: "A", Number: 0})
	require.NoError(t, err)
	require.NotContains(t, string(b), "targets")

	empty := []TargetState{}
	b, err = json.Marshal(InviteResult{Status: "OK", Targets: &empty})
	require.NoError(t, err)
	require.Contains(t, string(b), `"targets":[]`)
}
