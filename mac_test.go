package rfm69

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeTransceiver is a Transceiver backed by an in-memory queue of frames,
// so MAC tests exercise Ack/retry/addressing logic without touching any
// wire encoding (see the Ack(0) quirk noted in frame_test.go).
type fakeTransceiver struct {
	sent []Frame
	rx   []Frame

	// onSend, if set, is called for every Send and can enqueue a reply
	// into rx to simulate a peer responding.
	onSend func(f *Frame)
}

func (f *fakeTransceiver) Send(frame *Frame) error {
	f.sent = append(f.sent, *frame)
	if f.onSend != nil {
		f.onSend(frame)
	}
	return nil
}

func (f *fakeTransceiver) Recv() (Frame, error) {
	for len(f.rx) == 0 {
		// Poll until a frame is queued. Tests that expect an ACK timeout
		// never queue one, so this call never returns there; recvCtx stops
		// waiting for it when its context expires.
		time.Sleep(time.Millisecond)
	}
	frame := f.rx[0]
	f.rx = f.rx[1:]
	return frame, nil
}

func TestSendPacketNoAckSendsOnce(t *testing.T) {
	trx := &fakeTransceiver{}
	mac := NewMAC(trx, Unicast(1))

	err := mac.SendPacket(context.Background(), Unicast(2), NoAck, []byte("hi"))
	if err != nil {
		t.Fatalf("SendPacket() = %v", err)
	}
	if len(trx.sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(trx.sent))
	}
}

func TestSendPacketAckSucceedsOnFirstAttempt(t *testing.T) {
	trx := &fakeTransceiver{}
	self := Unicast(1)
	peer := Unicast(2)
	mac := NewMAC(trx, self)

	trx.onSend = func(f *Frame) {
		ack, _ := NewFrame(peer, self, Ack(0), nil)
		trx.rx = append(trx.rx, ack)
	}

	err := mac.SendPacket(context.Background(), peer, Ack(3), []byte("hi"))
	if err != nil {
		t.Fatalf("SendPacket() = %v", err)
	}
	if len(trx.sent) != 1 {
		t.Fatalf("sent %d frames, want 1 (should not retry after ack)", len(trx.sent))
	}
}

func TestSendPacketAckTimesOutAfterRetries(t *testing.T) {
	trx := &fakeTransceiver{}
	mac := NewMAC(trx, Unicast(1))

	// No replies are ever enqueued, so every attempt must time out.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := mac.SendPacket(ctx, Unicast(2), Ack(2), []byte("hi"))
	if !errors.Is(err, ErrAckTimeout) {
		t.Fatalf("SendPacket() = %v, want ErrAckTimeout", err)
	}
	if len(trx.sent) != 2 {
		t.Fatalf("sent %d frames, want 2 (one per retry)", len(trx.sent))
	}
}

func TestSendPacketIgnoresAckFromWrongSender(t *testing.T) {
	trx := &fakeTransceiver{}
	self := Unicast(1)
	mac := NewMAC(trx, self)

	trx.onSend = func(f *Frame) {
		wrongSender, _ := NewFrame(Unicast(99), self, Ack(0), nil)
		trx.rx = append(trx.rx, wrongSender)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := mac.SendPacket(ctx, Unicast(2), Ack(1), []byte("hi"))
	if !errors.Is(err, ErrAckTimeout) {
		t.Fatalf("SendPacket() = %v, want ErrAckTimeout (ack from wrong sender must be ignored)", err)
	}
}

func TestReceivePacketRepliesWithAck(t *testing.T) {
	trx := &fakeTransceiver{}
	self := Unicast(42)
	peer := Unicast(84)
	mac := NewMAC(trx, self)

	incoming, _ := NewFrame(peer, self, Ack(3), []byte("ping"))
	trx.rx = append(trx.rx, incoming)

	got, err := mac.ReceivePacket(context.Background())
	if err != nil {
		t.Fatalf("ReceivePacket() = %v", err)
	}
	if got.Src != peer || got.Dst != self {
		t.Fatalf("ReceivePacket() = %s, want src=%s dst=%s", &got, peer, self)
	}
	if len(trx.sent) != 1 {
		t.Fatalf("sent %d ack frames, want 1", len(trx.sent))
	}
	reply := trx.sent[0]
	if reply.Src != self || reply.Dst != peer {
		t.Fatalf("ack reply = %s, want src=%s dst=%s", &reply, self, peer)
	}
}

func TestReceivePacketNoAckForUnacknowledgedFrame(t *testing.T) {
	trx := &fakeTransceiver{}
	self := Unicast(42)
	peer := Unicast(84)
	mac := NewMAC(trx, self)

	incoming, _ := NewFrame(peer, self, NoAck, []byte("ping"))
	trx.rx = append(trx.rx, incoming)

	if _, err := mac.ReceivePacket(context.Background()); err != nil {
		t.Fatalf("ReceivePacket() = %v", err)
	}
	if len(trx.sent) != 0 {
		t.Fatalf("sent %d frames, want 0 (no ack requested)", len(trx.sent))
	}
}

func TestReceivePacketDropsFramesForOtherUnicastAddresses(t *testing.T) {
	trx := &fakeTransceiver{}
	self := Unicast(42)
	other := Unicast(7)
	peer := Unicast(84)
	mac := NewMAC(trx, self)

	wrongDst, _ := NewFrame(peer, other, NoAck, []byte("not for me"))
	forMe, _ := NewFrame(peer, self, NoAck, []byte("for me"))
	trx.rx = append(trx.rx, wrongDst, forMe)

	got, err := mac.ReceivePacket(context.Background())
	if err != nil {
		t.Fatalf("ReceivePacket() = %v", err)
	}
	if string(got.Data()) != "for me" {
		t.Fatalf("ReceivePacket() data = %q, want %q (mismatched unicast frame should be dropped)", got.Data(), "for me")
	}
}

func TestReceivePacketAcceptsBroadcast(t *testing.T) {
	trx := &fakeTransceiver{}
	self := Unicast(42)
	peer := Unicast(84)
	mac := NewMAC(trx, self)

	broadcast, _ := NewFrame(peer, BroadcastAddr, NoAck, []byte("all"))
	trx.rx = append(trx.rx, broadcast)

	got, err := mac.ReceivePacket(context.Background())
	if err != nil {
		t.Fatalf("ReceivePacket() = %v", err)
	}
	if !got.Dst.IsBroadcast() {
		t.Fatalf("ReceivePacket() dst = %s, want broadcast", got.Dst)
	}
}
