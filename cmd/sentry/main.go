// Command sentry is a demonstration entrypoint wiring the RLPx Auth
// Handshake core and the Body Download Sequencer together: it accepts one
// inbound RLPx connection, completes the handshake, then runs one
// sequencer tick against a local header store and withdraws whatever
// bodies are ready.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/silkwormgo/sentry/crypto"
	"github.com/silkwormgo/sentry/node"
	"github.com/silkwormgo/sentry/rlpx"
	"github.com/silkwormgo/sentry/sentry"
	"github.com/silkwormgo/sentry/storage"
)

func main() {
	app := &cli.App{
		Name:  "sentry",
		Usage: "RLPx handshake + body download sequencer demo",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "datadir", Value: "./sentry-data", Usage: "directory for the header store and lock file"},
			&cli.StringFlag{Name: "listen", Value: "127.0.0.1:30303", Usage: "address to accept one inbound RLPx connection on"},
			&cli.StringFlag{Name: "logfile", Value: "", Usage: "rotated log file path (stderr if empty)"},
			&cli.StringFlag{Name: "loglevel", Value: "info", Usage: "trace|debug|info|warn|error|crit"},
			&cli.Uint64Flag{Name: "highest-body", Value: 0, Usage: "highest body already in the store"},
			&cli.Uint64Flag{Name: "highest-header", Value: 0, Usage: "highest header already staged"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	n, err := node.New(node.Config{
		DataDir:  c.String("datadir"),
		LogFile:  c.String("logfile"),
		LogLevel: c.String("loglevel"),
	})
	if err != nil {
		return err
	}
	defer n.Close()

	headerStore, err := storage.OpenHeaderStore(c.String("datadir") + "/headers")
	if err != nil {
		return err
	}
	defer headerStore.Close()

	stats := sentry.NewStatistics(prometheus.DefaultRegisterer)
	seq := sentry.NewSequencer(headerStore, stats)
	seq.Start(c.Uint64("highest-body"), c.Uint64("highest-header"))

	localKeys, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", c.String("listen"))
	if err != nil {
		return fmt.Errorf("sentry: listen on %s: %w", c.String("listen"), err)
	}
	defer listener.Close()
	log.Info("sentry: waiting for one inbound RLPx connection", "addr", c.String("listen"))

	conn, err := listener.Accept()
	if err != nil {
		return fmt.Errorf("sentry: accept: %w", err)
	}
	defer conn.Close()

	h := &rlpx.Handshake{LocalKeys: localKeys, ClientID: "sentry/1.0"}
	secrets, hello, err := h.DoRecipient(context.Background(), conn)
	if err != nil {
		return fmt.Errorf("sentry: handshake failed: %w", err)
	}
	log.Info("sentry: handshake complete", "peer_client_id", hello.ClientID, "aes_secret_len", len(secrets.AESSecret))

	driveSequencer(seq)
	return nil
}

// driveSequencer ticks the sequencer once and withdraws whatever bodies
// are ready, as one step of an outer event loop would (the loop itself is
// out of this module's scope). No replies are fed in here, so nothing is
// ready to withdraw.
func driveSequencer(seq *sentry.Sequencer) {
	now := time.Now()
	packet, penalties, minBlock := seq.RequestMoreBodies(now, 1)
	for _, p := range penalties {
		log.Warn("sentry: peer penalized", "peer", p.PeerID, "kind", p.Kind)
	}
	log.Info("sentry: issued body request", "count", len(packet.Hashes), "min_block", minBlock)

	for _, block := range seq.WithdrawReadyBodies() {
		log.Info("sentry: body ready", "height", block.NumberU64(), "hash", block.Hash().Hex())
	}
}
