package rfm69

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MAC timing constants (see stack.rs in the original driver this was
// ported from).
const (
	// macAckTXDelay delays sending a MAC ACK by this much so the original
	// sender has time to switch from Tx to Rx mode.
	macAckTXDelay = 10 * time.Millisecond
	macAckTimeout = 50 * time.Millisecond
	txRetryDelay  = 200 * time.Millisecond
)

// ErrAckTimeout is returned by SendPacket when all retries of an
// acknowledged send are exhausted without receiving an ACK.
var ErrAckTimeout = errors.New("rfm69: ack timeout")

// MAC is a small stop-and-wait link layer over a Transceiver. It owns no
// state beyond the transceiver and the node's own address; retry counters
// are stack-local to SendPacket.
//
// SendPacket and ReceivePacket are not concurrency-safe against themselves:
// only one call of either may be in flight at a time per MAC, matching the
// half-duplex radio underneath.
type MAC struct {
	trx     Transceiver
	address Address
}

// NewMAC returns a MAC that sends and receives as address, over trx.
func NewMAC(trx Transceiver, address Address) *MAC {
	return &MAC{trx: trx, address: address}
}

// recvResult carries back the outcome of a Transceiver.Recv call run on a
// background goroutine so it can be raced against ctx.Done.
type recvResult struct {
	frame Frame
	err   error
}

// recvCtx waits for trx.Recv to return or ctx to expire, whichever comes
// first. Transceiver.Recv has no cancellation of its own (it blocks on
// hardware), so a timed-out call leaves its goroutine running until Recv
// eventually returns; the result is then discarded.
func recvCtx(ctx context.Context, trx Transceiver) (Frame, error) {
	ch := make(chan recvResult, 1)
	go func() {
		frame, err := trx.Recv()
		ch <- recvResult{frame, err}
	}()

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case res := <-ch:
		return res.frame, res.err
	}
}

// SendPacket builds a frame from dst/flags/data and transmits it.
//
// If flags is NoAck or Ack(0), it is sent once with no expectation of a
// reply. If flags is Ack(r) with r >= 1, the frame is (re)sent up to r times,
// each attempt followed by a bounded wait for the matching ACK; the first
// ACK received ends the call successfully. If all r attempts are exhausted
// without an ACK, SendPacket fails with ErrAckTimeout.
func (m *MAC) SendPacket(ctx context.Context, dst Address, flags Flags, data []byte) error {
	frame, err := NewFrame(m.address, dst, flags, data)
	if err != nil {
		return fmt.Errorf("rfm69: build frame: %w", err)
	}

	if !flags.IsAck() || flags.Retries() == 0 {
		globalLogger.Info("sending packet")
		return m.trx.Send(&frame)
	}

	retries := flags.Retries()
	for i := uint8(1); i <= retries; i++ {
		globalLogger.Info("sending packet and waiting for ack")
		if err := m.trx.Send(&frame); err != nil {
			return err
		}

		ackCtx, cancel := context.WithTimeout(ctx, macAckTimeout)
		err := m.waitForMACAck(ackCtx, dst)
		cancel()
		if err == nil {
			globalLogger.Info("received valid ack")
			return nil
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if i < retries {
			select {
			case <-time.After(txRetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	globalLogger.Warn("ack timeout, retries exhausted")
	return ErrAckTimeout
}

// ReceivePacket blocks until a frame addressed to this node (or a broadcast)
// arrives, replying with an ACK first if the sender requested one.
//
// Frames destined for a different unicast address are silently dropped and
// ReceivePacket keeps waiting.
func (m *MAC) ReceivePacket(ctx context.Context) (Frame, error) {
	for {
		frame, err := recvCtx(ctx, m.trx)
		if err != nil {
			return Frame{}, err
		}

		switch {
		case !frame.Dst.IsBroadcast() && frame.Dst == m.address:
			if frame.Flags.IsAck() && frame.Flags.Retries() > 0 {
				ack, err := NewFrame(m.address, frame.Src, Ack(0), nil)
				if err != nil {
					return Frame{}, fmt.Errorf("rfm69: build ack frame: %w", err)
				}
				globalLogger.Info("sending requested ack as reply")
				select {
				case <-time.After(macAckTXDelay):
				case <-ctx.Done():
					return Frame{}, ctx.Err()
				}
				if err := m.trx.Send(&ack); err != nil {
					return Frame{}, err
				}
			}
			return frame, nil
		case frame.Dst.IsBroadcast():
			return frame, nil
		default:
			// Destined for a different node; drop and keep waiting.
		}
	}
}

// waitForMACAck loops on Recv until a frame arrives from "from", addressed
// to this node, that is an ACK. Any other frame is discarded. ctx bounds the
// wait; it is the caller's responsibility to apply macAckTimeout.
func (m *MAC) waitForMACAck(ctx context.Context, from Address) error {
	for {
		frame, err := recvCtx(ctx, m.trx)
		if err != nil {
			return err
		}
		if frame.Src == from && frame.Dst == m.address && frame.IsAck() {
			return nil
		}
	}
}
