// handshake.go - listener datagram and handshake dispatch
// Copyright (C) 2019  David Stainton.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package listener

import (
	"context"
	"net"
	"time"

	"github.com/duskline/duskline/addrmap"
	"github.com/duskline/duskline/crypt"
	"github.com/duskline/duskline/session"
	"github.com/duskline/duskline/token"
	"github.com/duskline/duskline/wire"
)

// handleDatagram is the per-datagram dispatch spec §4.4 describes: a
// fast path for already-bound addresses, then replay suppression, then
// an attempt to decode the datagram as a handshake frame.
func (l *Listener) handleDatagram(payload []byte, addr net.Addr) {
	if ingress, upAEAD, ok := l.table.Lookup(addr); ok {
		if frame, ok := crypt.PadDecrypt[wire.DataFrame](upAEAD, payload); ok {
			select {
			case ingress <- frame:
			default:
				l.log.Debugf("ingress full for %s, dropping datagram", addr)
			}
			return
		}
		// Fast-path decrypt failed (e.g. this is actually a fresh
		// handshake attempt reusing a now-stale binding); fall through.
	}

	if !l.replay.Check(payload) {
		l.metrics.ReplayDrop()
		return
	}

	s2cKey := l.cookie.GenerateS2C()
	s2cAEAD := crypt.NewStdAEAD(s2cKey)

	for _, c2sKey := range l.cookie.GenerateC2S() {
		c2sAEAD := crypt.NewStdAEAD(c2sKey)
		plain, ok := c2sAEAD.PadOpen(payload)
		if !ok {
			continue
		}
		frame, ok := wire.UnmarshalHandshake(plain)
		if !ok {
			continue
		}
		l.handleHandshakeFrame(frame, addr, s2cAEAD)
		return
	}

	l.log.Debugf("no candidate key decrypted datagram from %s, dropping", addr)
}

func (l *Listener) handleHandshakeFrame(frame any, addr net.Addr, s2cAEAD *crypt.StdAEAD) {
	switch f := frame.(type) {
	case wire.ClientHello:
		l.handleClientHello(f, addr, s2cAEAD)
	case wire.ClientResume:
		l.handleClientResume(f, addr)
	default:
		// ServerHello (or anything future) arriving from a client is
		// not a recognized request; spec §4.4 says ignore silently.
	}
}

func (l *Listener) handleClientHello(hello wire.ClientHello, addr net.Addr, s2cAEAD *crypt.StdAEAD) {
	if hello.Version != wire.HandshakeVersion {
		l.log.Infof("client %s offered unsupported version %d", addr, hello.Version)
		return
	}

	ephSK, ephPK, err := crypt.NewEphemeralKeypair()
	if err != nil {
		l.log.Errorf("ephemeral keypair generation failed: %v", err)
		return
	}

	sessionKey, err := crypt.TripleECDH(l.longKey.Secret(), ephSK, hello.LongPK, hello.EphPK)
	if err != nil {
		l.log.Errorf("triple-ECDH failed for %s: %v", addr, err)
		return
	}

	resumeToken, err := token.Encrypt(l.tokenAEAD, token.Info{
		SessionKey: sessionKey,
		InitTimeMs: uint64(time.Now().UnixMilli()),
	})
	if err != nil {
		l.log.Errorf("resume token encryption failed: %v", err)
		return
	}

	reply := wire.ServerHello{
		LongPK:      l.longKey.Public(),
		EphPK:       ephPK,
		ResumeToken: resumeToken,
	}
	plain, err := wire.MarshalHandshake(reply)
	if err != nil {
		l.log.Errorf("handshake reply marshal failed: %v", err)
		return
	}
	sealed, err := s2cAEAD.PadSeal(plain, padTarget)
	if err != nil {
		l.log.Errorf("handshake reply seal failed: %v", err)
		return
	}

	if err := l.bh.SendTo(sealed, addr); err != nil {
		l.log.Debugf("ServerHello send to %s failed: %v", addr, err)
	}
	l.metrics.HandshakeAttempt()
}

func (l *Listener) handleClientResume(resume wire.ClientResume, addr net.Addr) {
	if l.table.Rebind(addr, resume.ShardID, resume.ResumeToken) {
		// Idempotent re-bind of an already-known session.
		return
	}

	info, ok := token.Decrypt(l.tokenAEAD, resume.ResumeToken)
	if !ok {
		l.log.Debugf("unknown resume token from %s, dropping", addr)
		return
	}

	upKey := crypt.KeyedHash(crypt.UpLabel, info.SessionKey[:])
	dnKey := crypt.KeyedHash(crypt.DnLabel, info.SessionKey[:])
	upAEAD := crypt.NewStdAEAD(upKey)
	dnAEAD := crypt.NewStdAEAD(dnKey)

	ingressCh := make(chan wire.DataFrame, ingressCap)
	egressCh := make(chan wire.DataFrame, egressCap)
	addrs := addrmap.New(resume.ShardID, addr)

	l.table.NewSess(resume.ResumeToken, ingressCh, upAEAD, addrs)
	l.table.Rebind(addr, resume.ShardID, resume.ResumeToken)

	pollerCtx, cancelPoller := context.WithCancel(context.Background())
	l.Go(func() { l.runOutputPoller(pollerCtx, egressCh, addrs, dnAEAD) })

	tok := resume.ResumeToken
	sess := session.New(session.Options{
		Egress:  egressCh,
		Ingress: ingressCh,
		DropHook: func() {
			cancelPoller()
			select {
			case l.deathCh <- tok:
			default:
				// Queue full: spec §7 treats this as harmless, the
				// table entry persists until process exit.
			}
		},
	})

	l.accept.In() <- sess
	l.metrics.SessionOpened()
}
