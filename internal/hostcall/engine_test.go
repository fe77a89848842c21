package hostcall

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/proto"
)

// scriptedTransport replays a fixed sequence of responses, one per
// RunRequest call, and records the requests it was given.
type scriptedTransport struct {
	responses []proto.RunResponse
	requests  []proto.RunRequest
	err       error
}

func (s *scriptedTransport) RunRequest(req proto.RunRequest) (proto.RunResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return proto.RunResponse{}, s.err
	}
	if len(s.responses) == 0 {
		return proto.RunResponse{}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func completeData(js string) *arb.Data {
	d := arb.Default()
	_ = d.SetJSONString(js)
	return &d
}

func TestStartWaitReturnsCompletionResult(t *testing.T) {
	transport := &scriptedTransport{responses: []proto.RunResponse{
		{Complete: completeData(`{"status":"done"}`)},
	}}
	e := NewEngine(transport)
	require.NoError(t, e.Start(arb.Default()))
	result, err := e.Wait()
	require.NoError(t, err)
	js, _ := result.JSONString()
	require.JSONEq(t, `{"status":"done"}`, js)
	require.Equal(t, Complete, e.State())
	require.Len(t, transport.requests, 1)
	require.NotNil(t, transport.requests[0].Start)
}

func TestSendRecvRoundTrip(t *testing.T) {
	msg := arb.Default()
	_ = msg.SetJSONString(`{"hello":1}`)
	transport := &scriptedTransport{responses: []proto.RunResponse{
		{Messages: []arb.Data{msg}},
	}}
	e := NewEngine(transport)
	require.NoError(t, e.Start(arb.Default()))
	require.NoError(t, e.Send(arb.Default()))

	got, err := e.Recv()
	require.NoError(t, err)
	js, _ := got.JSONString()
	require.JSONEq(t, `{"hello":1}`, js)
}

func TestYieldIsNoOpWithNothingPending(t *testing.T) {
	transport := &scriptedTransport{}
	e := NewEngine(transport)
	require.NoError(t, e.Start(arb.Default()))
	// The Start flush hasn't happened yet (asynchronous); a bare Yield with
	// pending start data should perform exactly one round trip...
	require.NoError(t, e.Yield())
	require.Len(t, transport.requests, 1)
	// ...and a second Yield with nothing new queued should not.
	require.NoError(t, e.Yield())
	require.Len(t, transport.requests, 1)
}

func TestRecvDeadlocksWithNoDataAndNoProgress(t *testing.T) {
	transport := &scriptedTransport{responses: []proto.RunResponse{{}}}
	e := NewEngine(transport)
	require.NoError(t, e.Start(arb.Default()))
	_, err := e.Recv()
	require.Error(t, err)
}

func TestRecvDeadlocksAfterCompletionWithoutMessage(t *testing.T) {
	transport := &scriptedTransport{responses: []proto.RunResponse{
		{Complete: completeData(`{}`)},
	}}
	e := NewEngine(transport)
	require.NoError(t, e.Start(arb.Default()))
	_, err := e.Recv()
	require.Error(t, err)
}

func TestWaitDeadlocksWhenTransportStopsMakingProgress(t *testing.T) {
	transport := &scriptedTransport{responses: []proto.RunResponse{{}, {}}}
	e := NewEngine(transport)
	require.NoError(t, e.Start(arb.Default()))
	_, err := e.Wait()
	require.Error(t, err)
}

func TestStartTwiceIsInvalidOperation(t *testing.T) {
	e := NewEngine(&scriptedTransport{})
	require.NoError(t, e.Start(arb.Default()))
	err := e.Start(arb.Default())
	require.Error(t, err)
}

func TestSendBeforeStartIsInvalidOperation(t *testing.T) {
	e := NewEngine(&scriptedTransport{})
	err := e.Send(arb.Default())
	require.Error(t, err)
}
