package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nymtech/nym-client-outqueue/mixmsg"
)

func TestSubmitter_CoalescesFragmentsIntoLaneBursts(t *testing.T) {
	s := NewSubmitter(WithMaxBatchSize(4), WithFlushInterval(time.Hour))
	defer s.Close()

	ctx := context.Background()
	general := mixmsg.General()
	for i := 0; i < 4; i++ {
		err := s.Submit(ctx, general, mixmsg.RealMessage{FragmentId: mixmsg.FragmentId(i)})
		require.NoError(t, err)
	}

	select {
	case burst := <-s.Bursts():
		assert.Equal(t, general, burst.Lane)
		assert.Len(t, burst.Messages, 4)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for burst")
	}
}

func TestSubmitter_FlushIntervalDeliversPartialBatch(t *testing.T) {
	s := NewSubmitter(WithMaxBatchSize(100), WithFlushInterval(10*time.Millisecond))
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Submit(ctx, mixmsg.Retransmission(), mixmsg.RealMessage{FragmentId: 1}))

	select {
	case burst := <-s.Bursts():
		assert.Equal(t, mixmsg.Retransmission(), burst.Lane)
		assert.Len(t, burst.Messages, 1)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for flush-interval burst")
	}
}

func TestSubmitter_SeparatesDistinctLanesIntoDistinctBursts(t *testing.T) {
	s := NewSubmitter(WithMaxBatchSize(4), WithFlushInterval(time.Hour))
	defer s.Close()

	ctx := context.Background()
	conn1 := mixmsg.Connection(1)
	conn2 := mixmsg.Connection(2)
	require.NoError(t, s.Submit(ctx, conn1, mixmsg.RealMessage{FragmentId: 1}))
	require.NoError(t, s.Submit(ctx, conn2, mixmsg.RealMessage{FragmentId: 2}))
	require.NoError(t, s.Submit(ctx, conn1, mixmsg.RealMessage{FragmentId: 3}))
	require.NoError(t, s.Submit(ctx, conn2, mixmsg.RealMessage{FragmentId: 4}))

	seen := make(map[mixmsg.TransmissionLane][]mixmsg.FragmentId)
	for i := 0; i < 2; i++ {
		select {
		case burst := <-s.Bursts():
			for _, m := range burst.Messages {
				seen[burst.Lane] = append(seen[burst.Lane], m.FragmentId)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for bursts")
		}
	}

	assert.Equal(t, []mixmsg.FragmentId{1, 3}, seen[conn1])
	assert.Equal(t, []mixmsg.FragmentId{2, 4}, seen[conn2])
}

func TestSubmitter_SubmitAndWaitBlocksUntilFlush(t *testing.T) {
	s := NewSubmitter(WithMaxBatchSize(1), WithFlushInterval(time.Hour), WithOutputBuffer(1))
	defer s.Close()

	done := make(chan error, 1)
	go func() {
		done <- s.SubmitAndWait(context.Background(), mixmsg.General(), mixmsg.RealMessage{FragmentId: 9})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("SubmitAndWait did not return")
	}

	burst := <-s.Bursts()
	assert.Equal(t, mixmsg.FragmentId(9), burst.Messages[0].FragmentId)
}
