// Command outqueuedemo wires one outqueue.Control against an in-memory
// topology and a synthetic fragment submitter, runs it until SIGINT or a
// fixed duration elapses, and prints periodic status reports to stderr.
//
// Run with: go run ./cmd/outqueuedemo
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joeycumines/logiface"

	"github.com/nymtech/nym-client-outqueue/ack"
	"github.com/nymtech/nym-client-outqueue/config"
	"github.com/nymtech/nym-client-outqueue/ingest"
	"github.com/nymtech/nym-client-outqueue/logging"
	"github.com/nymtech/nym-client-outqueue/mixmsg"
	"github.com/nymtech/nym-client-outqueue/outqueue"
	"github.com/nymtech/nym-client-outqueue/topology"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "how long to run before exiting (0 disables the timer)")
	immediate := flag.Bool("immediate", false, "disable Poisson cover traffic and run in immediate mode")
	verbose := flag.Bool("verbose", false, "log at debug level instead of informational")
	flag.Parse()

	level := logiface.LevelInformational
	if *verbose {
		level = logiface.LevelDebug
	}
	logger := logging.New(os.Stderr, level)

	top := topology.NewSource()
	top.Set(&topology.Topology{Gateways: []topology.Gateway{
		{Address: "gateway-a.example:1789"},
		{Address: "gateway-b.example:1789"},
	}})

	notifier := ack.NewNotifier()
	submitter := ingest.NewSubmitter()
	defer submitter.Close()

	cfg := config.New(
		config.WithAverageMessageSendingDelay(20*time.Millisecond),
		config.WithCoverPacketSize(1024),
		config.WithDisablePoisson(*immediate),
		config.WithOwnFullDestination("demo-client@gateway-a.example"),
	)

	mixTx := make(chan mixmsg.MixPacket, 8)
	closes := make(chan uint64)

	control := outqueue.New(cfg, submitter.Bursts(), closes, mixTx, notifier, top, outqueue.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	go feedSyntheticTraffic(ctx, submitter)
	go drainTransport(ctx, mixTx, logger)
	go reportStatus(ctx, control.Shutdown(), logger)

	if err := control.Run(ctx); err != nil && err != context.DeadlineExceeded {
		fmt.Fprintf(os.Stderr, "outqueuedemo: engine exited: %v\n", err)
	}
}

// feedSyntheticTraffic submits a trickle of fragments to a handful of
// connection lanes, standing in for a real SOCKS5 producer.
func feedSyntheticTraffic(ctx context.Context, submitter *ingest.Submitter) {
	ticker := time.NewTicker(30 * time.Millisecond)
	defer ticker.Stop()

	var nextFragment uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lane := mixmsg.Connection(uint64(rand.IntN(3)) + 1)
			msg := mixmsg.RealMessage{
				Packet:     mixmsg.MixPacket{Payload: make([]byte, 256)},
				FragmentId: mixmsg.FragmentId(nextFragment),
			}
			nextFragment++
			_ = submitter.Submit(ctx, lane, msg)
		}
	}
}

// drainTransport stands in for the gateway WebSocket transport
// collaborator (out of scope): it just discards packets, simulating an
// always-available downstream.
func drainTransport(ctx context.Context, mixTx <-chan mixmsg.MixPacket, logger logging.Logger) {
	count := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-mixTx:
			count++
			if count%100 == 0 {
				logger.Info().Int("packets_sent", count).Log("outqueuedemo: transport progress")
			}
		}
	}
}

func reportStatus(ctx context.Context, handle outqueue.Handle, logger logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-handle.StatusMessages():
			switch {
			case msg.Exited:
				logger.Notice().Log("outqueuedemo: engine exited")
			case msg.Backlog != nil:
				logger.Info().
					Int("lanes", msg.Backlog.Lanes).
					Int("bytes", msg.Backlog.Bytes).
					Int("packets", msg.Backlog.Packets).
					Int("multiplier", msg.Backlog.Multiplier).
					Log("outqueuedemo: backlog")
			case msg.Escalation != outqueue.EscalationNone:
				logger.Warning().Str("escalation", msg.Escalation.String()).Log("outqueuedemo: gateway health escalation")
			}
		}
	}
}
