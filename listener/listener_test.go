package listener

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/duskline/duskline/backhaul"
	"github.com/duskline/duskline/crypt"
	"github.com/duskline/duskline/token"
	"github.com/duskline/duskline/wire"
)

func testLongKey(t *testing.T) *crypt.LongKey {
	t.Helper()
	var sk [32]byte
	copy(sk[:], []byte("server-static-secret-key-32bytes"))
	k, err := crypt.NewLongKey(sk)
	if err != nil {
		t.Fatalf("NewLongKey: %v", err)
	}
	return k
}

func udpAddr(s string) net.Addr {
	a, err := net.ResolveUDPAddr("udp", s)
	if err != nil {
		panic(err)
	}
	return a
}

// sealClientHello seals a ClientHello the way a real client would,
// under the current C2S key derived from the server's own Cookie (the
// test stands in for a client that has learned the server's static
// public key out of band).
func sealClientHello(t *testing.T, l *Listener, hello wire.ClientHello) []byte {
	t.Helper()
	c2sKeys := l.cookie.GenerateC2S()
	aead := crypt.NewStdAEAD(c2sKeys[0])
	plain, err := wire.MarshalHandshake(hello)
	if err != nil {
		t.Fatalf("MarshalHandshake: %v", err)
	}
	sealed, err := aead.PadSeal(plain, padTarget)
	if err != nil {
		t.Fatalf("PadSeal: %v", err)
	}
	return sealed
}

func sealClientResume(t *testing.T, s2cAEADKey [32]byte, resume wire.ClientResume) []byte {
	t.Helper()
	aead := crypt.NewStdAEAD(s2cAEADKey)
	plain, err := wire.MarshalHandshake(resume)
	if err != nil {
		t.Fatalf("MarshalHandshake: %v", err)
	}
	sealed, err := aead.PadSeal(plain, padTarget)
	if err != nil {
		t.Fatalf("PadSeal: %v", err)
	}
	return sealed
}

func newTestListener(t *testing.T) (*Listener, *backhaul.Mock) {
	t.Helper()
	mock := backhaul.NewMock(udpAddr("127.0.0.1:9999"))
	l, err := New(mock, testLongKey(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l, mock
}

func runListener(t *testing.T, l *Listener) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	return cancel
}

// TestHandshakeRoundTrip exercises scenario S1: a ClientHello produces
// exactly one ServerHello reply, recoverable by the client.
func TestHandshakeRoundTrip(t *testing.T) {
	l, mock := newTestListener(t)
	cancel := runListener(t, l)
	defer cancel()

	clientAddr := udpAddr("10.0.0.1:4000")
	_, clientEphPK, err := crypt.NewEphemeralKeypair()
	if err != nil {
		t.Fatal(err)
	}
	hello := wire.ClientHello{LongPK: [32]byte{7}, EphPK: clientEphPK, Version: wire.HandshakeVersion}
	mock.Deliver(sealClientHello(t, l, hello), clientAddr)

	waitForSent(t, mock, 1)

	sent := mock.Sent()
	if len(sent) != 1 {
		t.Fatalf("got %d replies, want exactly 1", len(sent))
	}

	s2cKey := l.cookie.GenerateS2C()
	aead := crypt.NewStdAEAD(s2cKey)
	plain, ok := aead.PadOpen(sent[0].Payload)
	if !ok {
		t.Fatal("client could not open the ServerHello reply")
	}
	frame, ok := wire.UnmarshalHandshake(plain)
	if !ok {
		t.Fatal("client could not unmarshal the ServerHello reply")
	}
	reply, ok := frame.(wire.ServerHello)
	if !ok {
		t.Fatalf("expected ServerHello, got %T", frame)
	}
	if len(reply.ResumeToken) == 0 {
		t.Fatal("ServerHello must carry a non-empty resume token")
	}
}

// TestReplayedClientHelloProducesOneReply exercises scenario S5:
// delivering the exact same ClientHello bytes twice produces exactly
// one ServerHello — the second copy is dropped by the replay filter
// (spec §4.4 "may be replayed safely").
func TestReplayedClientHelloProducesOneReply(t *testing.T) {
	l, mock := newTestListener(t)
	cancel := runListener(t, l)
	defer cancel()

	clientAddr := udpAddr("10.0.0.2:4000")
	_, clientEphPK, _ := crypt.NewEphemeralKeypair()
	hello := wire.ClientHello{LongPK: [32]byte{9}, EphPK: clientEphPK, Version: wire.HandshakeVersion}
	raw := sealClientHello(t, l, hello)

	mock.Deliver(raw, clientAddr)
	waitForSent(t, mock, 1)
	mock.Deliver(append([]byte(nil), raw...), clientAddr)

	time.Sleep(50 * time.Millisecond)
	if got := len(mock.Sent()); got != 1 {
		t.Fatalf("got %d replies after replay, want exactly 1", got)
	}
}

// TestResumeDeliversSessionAndData exercises scenario S2: resuming on
// the same address hands exactly one Session to the accept queue, and
// a subsequent DataFrame is delivered to it.
func TestResumeDeliversSessionAndData(t *testing.T) {
	l, mock := newTestListener(t)
	cancel := runListener(t, l)
	defer cancel()

	clientAddr := udpAddr("10.0.0.3:4000")
	resumeToken, s2cKey := completeHandshake(t, l, mock, clientAddr)

	mock.Deliver(sealClientResume(t, s2cKey, wire.ClientResume{ResumeToken: resumeToken, ShardID: 0}), clientAddr)

	sess, ok := l.Accept()
	if !ok {
		t.Fatal("expected a Session on the accept queue")
	}

	// Derive the up-direction key the same way the server did, to send
	// a DataFrame as the client would.
	info, ok := recoverInfo(t, l, resumeToken)
	if !ok {
		t.Fatal("could not recover token info")
	}
	upKey := crypt.KeyedHash(crypt.UpLabel, info[:])
	upAEAD := crypt.NewStdAEAD(upKey)
	sealed, err := crypt.PadEncrypt(upAEAD, wire.DataFrame{Payload: []byte("hello")}, 0)
	if err != nil {
		t.Fatal(err)
	}
	mock.Deliver(sealed, clientAddr)

	ctx, cancelRecv := context.WithTimeout(context.Background(), time.Second)
	defer cancelRecv()
	got, err := sess.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

// TestRebindMovesRouting exercises scenario S4: resuming from a new
// address on the same shard makes the old address stop routing and the
// new one take over.
func TestRebindMovesRouting(t *testing.T) {
	l, mock := newTestListener(t)
	cancel := runListener(t, l)
	defer cancel()

	oldAddr := udpAddr("10.0.0.4:4000")
	resumeToken, s2cKey := completeHandshake(t, l, mock, oldAddr)
	mock.Deliver(sealClientResume(t, s2cKey, wire.ClientResume{ResumeToken: resumeToken, ShardID: 0}), oldAddr)
	if _, ok := l.Accept(); !ok {
		t.Fatal("expected initial accept")
	}

	newAddr := udpAddr("10.0.0.5:4000")
	mock.Deliver(sealClientResume(t, s2cKey, wire.ClientResume{ResumeToken: resumeToken, ShardID: 0}), newAddr)
	time.Sleep(50 * time.Millisecond)

	if _, _, ok := l.table.Lookup(oldAddr); ok {
		t.Fatal("old address must no longer route once shard 0 rebinds elsewhere")
	}
	if _, _, ok := l.table.Lookup(newAddr); !ok {
		t.Fatal("new address must route to the same session")
	}
}

// TestOutputPollerRoundRobinsAcrossShards exercises the fan-out half of
// scenario S3: once a session has two shard addresses bound, subsequent
// outbound frames alternate between them.
func TestOutputPollerRoundRobinsAcrossShards(t *testing.T) {
	l, mock := newTestListener(t)
	cancel := runListener(t, l)
	defer cancel()

	addrA := udpAddr("10.0.0.6:4000")
	addrB := udpAddr("10.0.0.7:4000")
	resumeToken, s2cKey := completeHandshake(t, l, mock, addrA)

	mock.Deliver(sealClientResume(t, s2cKey, wire.ClientResume{ResumeToken: resumeToken, ShardID: 0}), addrA)
	sess, ok := l.Accept()
	if !ok {
		t.Fatal("expected a Session on the accept queue")
	}
	mock.Deliver(sealClientResume(t, s2cKey, wire.ClientResume{ResumeToken: resumeToken, ShardID: 1}), addrB)
	time.Sleep(50 * time.Millisecond)

	before := len(mock.Sent())
	ctx, cancelSend := context.WithTimeout(context.Background(), time.Second)
	defer cancelSend()
	for i := 0; i < 4; i++ {
		if err := sess.Send(ctx, []byte("frame")); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	waitForSent(t, mock, before+4)

	sent := mock.Sent()[before:]
	want := []net.Addr{addrA, addrB, addrA, addrB}
	for i, w := range want {
		if sent[i].Addr.String() != w.String() {
			t.Fatalf("send %d went to %s, want %s (round-robin across shards)", i, sent[i].Addr, w)
		}
	}
}

func completeHandshake(t *testing.T, l *Listener, mock *backhaul.Mock, clientAddr net.Addr) (resumeToken []byte, s2cKey [32]byte) {
	t.Helper()
	_, clientEphPK, _ := crypt.NewEphemeralKeypair()
	hello := wire.ClientHello{LongPK: [32]byte{3}, EphPK: clientEphPK, Version: wire.HandshakeVersion}
	mock.Deliver(sealClientHello(t, l, hello), clientAddr)
	waitForSent(t, mock, 1)

	s2cKey = l.cookie.GenerateS2C()
	aead := crypt.NewStdAEAD(s2cKey)
	sent := mock.Sent()
	plain, ok := aead.PadOpen(sent[len(sent)-1].Payload)
	if !ok {
		t.Fatal("could not open ServerHello")
	}
	frame, ok := wire.UnmarshalHandshake(plain)
	if !ok {
		t.Fatal("could not unmarshal ServerHello")
	}
	reply := frame.(wire.ServerHello)
	return reply.ResumeToken, s2cKey
}

func recoverInfo(t *testing.T, l *Listener, resumeToken []byte) ([32]byte, bool) {
	t.Helper()
	info, ok := token.Decrypt(l.tokenAEAD, resumeToken)
	return info.SessionKey, ok
}

func waitForSent(t *testing.T, mock *backhaul.Mock, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(mock.Sent()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d sent datagrams", n)
}
