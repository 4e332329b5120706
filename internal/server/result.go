// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package server

import "github.com/ClusterCockpit/katcpd/internal/wire"

type resultKind int

const (
	kindReply resultKind = iota
	kindFail
	kindAsync
)

// Result is a request handler's tagged return value: exactly one of a
// reply to send, a failure reason, or a declaration that the reply will
// be produced elsewhere (the dispatch layer sends nothing). A handler
// panic is recovered by the dispatcher and turned into the fail case
// automatically -- handlers never construct that case themselves.
type Result struct {
	kind   resultKind
	reply  *wire.Message
	reason string
}

// Reply returns msg to the caller. msg's name must equal the request's
// name; dispatch does not check this.
func Reply(msg *wire.Message) Result {
	return Result{kind: kindReply, reply: msg}
}

// Fail refuses the request with a caller-visible reason.
func Fail(reason string) Result {
	return Result{kind: kindFail, reason: reason}
}

// Async declares that a reply will be sent later by arbitrary means;
// dispatch emits nothing for this request.
func Async() Result {
	return Result{kind: kindAsync}
}
